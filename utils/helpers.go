package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var nonDigits = regexp.MustCompile(`\D`)

func StringPtr(s string) *string {
	return &s
}

func BoolPtr(b bool) *bool {
	return &b
}

func FormatDuration(duration time.Duration) string {
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// MaskPhoneNumber keeps only the last four digits, for logs.
func MaskPhoneNumber(phone string) string {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	if len(cleaned) < 4 {
		return strings.Repeat("*", len(cleaned))
	}

	return strings.Repeat("*", len(cleaned)-4) + cleaned[len(cleaned)-4:]
}
