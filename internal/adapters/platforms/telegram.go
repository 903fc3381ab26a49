package platforms

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"crosspost/internal/core/platform"
	publisherPort "crosspost/internal/ports/publisher"

	tele "gopkg.in/telebot.v4"
)

const (
	telegramMaxText    = 4096
	telegramMaxCaption = 1024
)

// TelegramPublisher ارسال پیام یا عکس به chat پروفایل با توکن ربات همان پروفایل
type TelegramPublisher struct {
	APIURL string
	Client *http.Client
}

func NewTelegramPublisher(apiURL string, client *http.Client) *TelegramPublisher {
	return &TelegramPublisher{APIURL: strings.TrimRight(apiURL, "/"), Client: client}
}

func (p *TelegramPublisher) Platform() platform.Platform { return platform.Telegram }

// chatRecipient هم شناسه‌ی عددی و هم @username کانال را می‌پذیرد
type chatRecipient string

func (c chatRecipient) Recipient() string { return string(c) }

type sendResult struct {
	msg *tele.Message
	err error
}

func (p *TelegramPublisher) Publish(ctx context.Context, req publisherPort.Request) (string, error) {
	creds := req.Credentials
	if creds.AccessToken == "" {
		return "", publisherPort.NewError(platform.Telegram, publisherPort.KindAuth, "missing bot token")
	}
	if creds.AccountID == "" {
		return "", publisherPort.NewError(platform.Telegram, publisherPort.KindValidation, "missing chat id")
	}

	var what any = req.Content
	if req.MediaURL != "" {
		if utf8.RuneCountInString(req.Content) > telegramMaxCaption {
			return "", publisherPort.NewError(platform.Telegram, publisherPort.KindValidation, "caption exceeds 1024 characters")
		}
		what = &tele.Photo{File: tele.FromURL(req.MediaURL), Caption: req.Content}
	} else if utf8.RuneCountInString(req.Content) > telegramMaxText {
		return "", publisherPort.NewError(platform.Telegram, publisherPort.KindValidation, "message exceeds 4096 characters")
	}

	bot, err := tele.NewBot(tele.Settings{
		URL:     p.APIURL,
		Token:   creds.AccessToken,
		Client:  p.Client,
		Offline: true,
	})
	if err != nil {
		return "", publisherPort.NewError(platform.Telegram, publisherPort.KindAuth, err.Error())
	}

	// telebot از context پشتیبانی نمی‌کند؛ مهلت درخواست با ctx کنترل می‌شود
	done := make(chan sendResult, 1)
	go func() {
		msg, err := bot.Send(chatRecipient(creds.AccountID), what)
		done <- sendResult{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", publisherPort.Classify(platform.Telegram, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", telegramError(res.err)
		}
		if res.msg == nil {
			return "", publisherPort.NewError(platform.Telegram, publisherPort.KindPlatformAPI, "empty response")
		}
		return strconv.Itoa(res.msg.ID), nil
	}
}

// telegramError نگاشت خطاهای telebot به نوع خطای publisher
func telegramError(err error) error {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		e := publisherPort.NewError(platform.Telegram, publisherPort.KindRateLimit, err.Error())
		e.RetryAfter = time.Duration(flood.RetryAfter) * time.Second
		e.Err = err
		return e
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		kind := publisherPort.KindPlatformAPI
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = publisherPort.KindAuth
		case http.StatusBadRequest:
			kind = publisherPort.KindValidation
		case http.StatusTooManyRequests:
			kind = publisherPort.KindRateLimit
		}
		e := publisherPort.NewError(platform.Telegram, kind, err.Error())
		e.Err = err
		return e
	}
	return publisherPort.Classify(platform.Telegram, err)
}
