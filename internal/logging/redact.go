package logging

import (
	"regexp"
	"strings"
)

// Field names whose values never reach the log.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"access_token",
	"refresh_token",
	"authorization",
	"session_key",
	"device_keys",
	"ciphertext",
}

// Patterns for credentials that can leak through raw event snippets.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(syt_[a-zA-Z0-9_]{16,})`),     // Synapse access tokens
	regexp.MustCompile(`(mct_[a-zA-Z0-9_]{16,})`),     // MAS compatibility tokens
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)"(access_token|refresh_token|ciphertext|session_key)"\s*:\s*"[^"]*"`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactMap redacts sensitive fields in a decoded event content map.
func RedactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))

	for k, v := range m {
		if IsSensitiveField(k) {
			result[k] = RedactedValue
			continue
		}
		switch value := v.(type) {
		case map[string]any:
			result[k] = RedactMap(value)
		case string:
			result[k] = Redact(value)
		default:
			result[k] = v
		}
	}

	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
