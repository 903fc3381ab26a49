package platforms

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"crosspost/internal/core/platform"
	publisherPort "crosspost/internal/ports/publisher"
)

const xMaxChars = 280

// XPublisher انتشار روی X با API v2 و توکن Bearer کاربر؛ رسانه پیوست نمی‌شود
type XPublisher struct {
	BaseURL string
	Client  *http.Client
}

func NewXPublisher(baseURL string, client *http.Client) *XPublisher {
	return &XPublisher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (p *XPublisher) Platform() platform.Platform { return platform.X }

type xTweetRequest struct {
	Text string `json:"text"`
}

type xTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func (p *XPublisher) Publish(ctx context.Context, req publisherPort.Request) (string, error) {
	if req.Credentials.AccessToken == "" {
		return "", publisherPort.NewError(platform.X, publisherPort.KindAuth, "missing access token")
	}
	if n := utf8.RuneCountInString(req.Content); n > xMaxChars {
		return "", publisherPort.NewError(platform.X, publisherPort.KindValidation, "content exceeds 280 characters")
	}

	var out xTweetResponse
	err := doJSON(ctx, p.Client, platform.X, http.MethodPost, p.BaseURL+"/2/tweets",
		req.Credentials.AccessToken, xTweetRequest{Text: req.Content}, &out)
	if err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", publisherPort.NewError(platform.X, publisherPort.KindPlatformAPI, "response has no tweet id")
	}
	return out.Data.ID, nil
}
