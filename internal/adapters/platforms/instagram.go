package platforms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"crosspost/internal/core/platform"
	publisherPort "crosspost/internal/ports/publisher"
)

const instagramMaxCaption = 2200

// InstagramPublisher انتشار با Graph API در دو مرحله: ساخت media container و سپس media_publish
type InstagramPublisher struct {
	BaseURL    string
	APIVersion string
	Client     *http.Client
}

func NewInstagramPublisher(baseURL, version string, client *http.Client) *InstagramPublisher {
	return &InstagramPublisher{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIVersion: version,
		Client:     client,
	}
}

func (p *InstagramPublisher) Platform() platform.Platform { return platform.Instagram }

type igIDResponse struct {
	ID string `json:"id"`
}

func (p *InstagramPublisher) endpoint(accountID, edge string, q url.Values) string {
	return fmt.Sprintf("%s/%s/%s/%s?%s", p.BaseURL, p.APIVersion, url.PathEscape(accountID), edge, q.Encode())
}

func (p *InstagramPublisher) Publish(ctx context.Context, req publisherPort.Request) (string, error) {
	creds := req.Credentials
	switch {
	case creds.AccessToken == "":
		return "", publisherPort.NewError(platform.Instagram, publisherPort.KindAuth, "missing access token")
	case creds.AccountID == "":
		return "", publisherPort.NewError(platform.Instagram, publisherPort.KindAuth, "missing business account id")
	case req.MediaURL == "":
		return "", publisherPort.NewError(platform.Instagram, publisherPort.KindValidation, "instagram requires an image")
	case utf8.RuneCountInString(req.Content) > instagramMaxCaption:
		return "", publisherPort.NewError(platform.Instagram, publisherPort.KindValidation, "caption exceeds 2200 characters")
	}

	// ۱. ساخت container
	q := url.Values{}
	q.Set("image_url", req.MediaURL)
	q.Set("caption", req.Content)
	q.Set("access_token", creds.AccessToken)
	var container igIDResponse
	if err := doJSON(ctx, p.Client, platform.Instagram, http.MethodPost,
		p.endpoint(creds.AccountID, "media", q), "", nil, &container); err != nil {
		return "", err
	}
	if container.ID == "" {
		return "", publisherPort.NewError(platform.Instagram, publisherPort.KindPlatformAPI, "media container has no id")
	}

	// ۲. انتشار
	q = url.Values{}
	q.Set("creation_id", container.ID)
	q.Set("access_token", creds.AccessToken)
	var published igIDResponse
	if err := doJSON(ctx, p.Client, platform.Instagram, http.MethodPost,
		p.endpoint(creds.AccountID, "media_publish", q), "", nil, &published); err != nil {
		return "", err
	}
	if published.ID == "" {
		return "", publisherPort.NewError(platform.Instagram, publisherPort.KindPlatformAPI, "media_publish returned no id")
	}
	return published.ID, nil
}
