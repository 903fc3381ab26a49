package database

import (
	"errors"

	"crosspost/internal/core/errs"

	"gorm.io/gorm"
)

// notFound خطای gorm.ErrRecordNotFound را به errs.ErrNotFound تبدیل می‌کند
func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("%s %s not found", what, id)
	}
	return err
}
