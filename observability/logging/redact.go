package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive attribute values in emitted records.
const RedactedValue = "[REDACTED]"

// Keys containing any of these fragments are masked by every logger built by
// Setup. Matching is case-insensitive.
var sensitiveFragments = []string{
	"secret",
	"password",
	"token",
	"signature",
	"private_key",
	"privatekey",
	"authorization",
}

// IsSensitive reports whether values logged under key are masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, fragment := range sensitiveFragments {
		if strings.Contains(normalized, fragment) {
			return true
		}
	}
	return false
}

func redactAttr(attr slog.Attr) slog.Attr {
	if !IsSensitive(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
