package httpapi

import (
	"errors"
	"net/http"

	"crosspost/internal/core/errs"

	"github.com/gin-gonic/gin"
)

// respondError نگاشت نوع خطا به کد وضعیت HTTP
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, errs.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, errs.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, errs.ErrInvalidState):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, errs.ErrPublish):
		status, msg = http.StatusBadGateway, err.Error()
	case errors.Is(err, errs.ErrScheduling):
		status, msg = http.StatusServiceUnavailable, "could not schedule post, try again"
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}

// currentUser شناسه‌ی کاربر از JWT
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		return "", false
	}
	return userID, true
}
