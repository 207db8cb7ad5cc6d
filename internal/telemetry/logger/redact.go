package logger

import (
	"log/slog"
	"strings"
)

// Key patterns whose values are fully redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"signature",
	"credential",
	"bearer",
	"authorization",
	"seal_key",
}

// bearerPrefix is masked wherever it appears as a value prefix.
const bearerPrefix = "Bearer "

// signatureHexLen is the length of a 65-byte signature in 0x-hex form.
const signatureHexLen = 2 + 130

const redactedValue = "***REDACTED***"

// redactSensitive masks credentials in a log attribute.
// Value-based masking takes priority over key-based redaction.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strings.HasPrefix(strVal, bearerPrefix) {
			return slog.String(a.Key, bearerPrefix+maskValue(strVal[len(bearerPrefix):]))
		}
		if looksLikeSignature(strVal) {
			return slog.String(a.Key, maskValue(strVal))
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// maskValue keeps the first and last three characters.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

func looksLikeSignature(s string) bool {
	if len(s) != signatureHexLen || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// RedactString masks a credential before it is embedded in a message.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, bearerPrefix) {
		return bearerPrefix + maskValue(value[len(bearerPrefix):])
	}
	return maskValue(value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
