package config

import (
	"os"
	"time"
)

const (
	// Validation
	MinTitleLength       = 5
	MaxTitleLength       = 160
	MinDescriptionLength = 20
	TitlePreviewLength   = 60

	// Verification
	VerificationCodeLength = 8

	// Receipt-check rate limiting
	VerifyCodeWindow      = 10 * time.Minute
	VerifyCodeMaxAttempts = 5

	// Redis channel carrying committed ledger events
	LedgerEventsChannel = "ledger:events"
)

// Severities accepted on a complaint, highest first.
var Severities = []string{"emergency", "high", "medium", "low"}

// Getenv reads an environment variable with a fallback.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
