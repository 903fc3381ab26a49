package platform

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Platform شناسه پلتفرم مقصد انتشار
type Platform string

const (
	X         Platform = "x"
	Instagram Platform = "instagram"
	Telegram  Platform = "telegram"
	Facebook  Platform = "facebook"
	LinkedIn  Platform = "linkedin"
	TikTok    Platform = "tiktok"
)

var known = map[Platform]struct{}{
	X:         {},
	Instagram: {},
	Telegram:  {},
	Facebook:  {},
	LinkedIn:  {},
	TikTok:    {},
}

// Parse نام پلتفرم را به مقدار enum تبدیل می‌کند؛ "twitter" معادل x است
func Parse(s string) (Platform, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "twitter" {
		v = string(X)
	}
	p := Platform(v)
	if _, ok := known[p]; !ok {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

func (p Platform) String() string { return string(p) }

// List ترتیب پلتفرم‌ها در دیتابیس به صورت رشته‌ی جداشده با کاما ذخیره می‌شود
type List []Platform

// ParseList ورودی کاربر را تبدیل و تکراری‌ها را رد می‌کند
func ParseList(raw []string) (List, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one platform is required")
	}
	out := make(List, 0, len(raw))
	seen := make(map[Platform]struct{}, len(raw))
	for _, r := range raw {
		p, err := Parse(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate platform %q", p)
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (l List) Strings() []string {
	out := make([]string, len(l))
	for i, p := range l {
		out[i] = string(p)
	}
	return out
}

func (l List) Contains(p Platform) bool {
	for _, v := range l {
		if v == p {
			return true
		}
	}
	return false
}

func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// Value implements driver.Valuer.
func (l List) Value() (driver.Value, error) {
	return strings.Join(l.Strings(), ","), nil
}

// Scan implements sql.Scanner.
func (l *List) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("platform.List: unsupported type %T", src)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*l = List{}
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(List, 0, len(parts))
	for _, part := range parts {
		p, err := Parse(part)
		if err != nil {
			return err
		}
		out = append(out, p)
	}
	*l = out
	return nil
}
