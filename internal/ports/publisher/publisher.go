package publisher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"crosspost/internal/core/platform"
)

// Credentials برای موتور مبهم است و فقط به publisher پاس داده می‌شود
type Credentials struct {
	AccessToken  string
	AccessSecret string
	AccountID    string
	Username     string
}

type Request struct {
	Content     string
	MediaURL    string
	Credentials Credentials
}

// Publisher یک تلاش انتشار روی یک پلتفرم؛ شناسه‌ی پست در پلتفرم را برمی‌گرداند
type Publisher interface {
	Platform() platform.Platform
	Publish(ctx context.Context, req Request) (string, error)
}

// Registry پیدا کردن publisher هر پلتفرم
type Registry interface {
	Get(p platform.Platform) (Publisher, bool)
}

type Kind int

const (
	KindPlatformAPI Kind = iota
	KindAuth
	KindValidation
	KindRateLimit
	KindNetwork
	KindProfileNotFound
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth_error"
	case KindValidation:
		return "validation_error"
	case KindRateLimit:
		return "rate_limited"
	case KindNetwork:
		return "network_error"
	case KindProfileNotFound:
		return "profile_not_found"
	case KindUnsupported:
		return "unsupported_platform"
	default:
		return "platform_api_error"
	}
}

// Error خطای تایپ‌شده‌ی یک پلتفرم
type Error struct {
	Platform   platform.Platform
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Platform, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(p platform.Platform, kind Kind, msg string) *Error {
	return &Error{Platform: p, Kind: kind, Message: msg}
}

// Classify هر خطا را به *Error تبدیل می‌کند؛ timeout و خطای شبکه KindNetwork هستند
func Classify(p platform.Platform, err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Platform == "" {
			pe.Platform = p
		}
		return pe
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &ne) {
		return &Error{Platform: p, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	return &Error{Platform: p, Kind: KindPlatformAPI, Message: err.Error(), Err: err}
}
