package config

import (
	"go.uber.org/zap"
)

// NewLogger در محیط production لاگ JSON و در بقیه‌ی محیط‌ها لاگ توسعه
func NewLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
