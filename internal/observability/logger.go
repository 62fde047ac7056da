package observability

import (
	"go.uber.org/zap"
)

// NewLogger returns a production JSON logger, or a human-readable development
// one when env is "development".
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
