package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crosspost/internal/core/platform"
	publisherPort "crosspost/internal/ports/publisher"
)

// حداکثر حجم بدنه‌ی پاسخ که برای پیام خطا خوانده می‌شود
const maxErrorBody = 4 << 10

// doJSON یک درخواست JSON می‌فرستد و پاسخ موفق را در out می‌ریزد.
// هر خطا به *publisher.Error تبدیل می‌شود.
func doJSON(ctx context.Context, client *http.Client, pl platform.Platform, method, url, bearer string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return publisherPort.NewError(pl, publisherPort.KindValidation, err.Error())
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return publisherPort.NewError(pl, publisherPort.KindPlatformAPI, err.Error())
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return publisherPort.Classify(pl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return statusError(pl, resp, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return publisherPort.Classify(pl, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// statusError نگاشت کد وضعیت HTTP به نوع خطا
func statusError(pl platform.Platform, resp *http.Response, body []byte) *publisherPort.Error {
	msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if text := strings.TrimSpace(string(body)); text != "" {
		msg += ": " + text
	}

	var kind publisherPort.Kind
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = publisherPort.KindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = publisherPort.KindValidation
	case http.StatusTooManyRequests:
		kind = publisherPort.KindRateLimit
	default:
		kind = publisherPort.KindPlatformAPI
	}
	e := publisherPort.NewError(pl, kind, msg)
	if kind == publisherPort.KindRateLimit {
		e.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return e
}

// parseRetryAfter هر دو قالب ثانیه و تاریخ HTTP را می‌پذیرد
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
