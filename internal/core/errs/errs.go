package errs

import (
	"errors"
	"fmt"
)

// نوع خطاهایی که به لایه‌ی HTTP برمی‌گردند؛ با errors.Is بررسی شوند
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrScheduling   = errors.New("scheduling error")
	ErrPublish      = errors.New("publish failed")

	// ErrConflict is returned by version-checked writes that lost the race.
	// It never leaves the execution coordinator.
	ErrConflict = errors.New("version conflict")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Scheduling wraps a trigger store failure.
func Scheduling(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %v", ErrScheduling, fmt.Sprintf(format, args...), err)
}

// Publish wraps a platform failure of an immediate publish.
func Publish(err error) error {
	return fmt.Errorf("%w: %v", ErrPublish, err)
}
