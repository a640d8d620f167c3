package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sensitiveTokens = []string{
	"password",
	"token",
	"secret",
	"authorization",
	"apikey",
}

// SanitizeFields masks fields whose key looks like a credential, recursing into map values.
func SanitizeFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	sanitized := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if isSensitiveKey(field.Key) {
			sanitized = append(sanitized, zap.String(field.Key, "***"))
			continue
		}

		enc := zapcore.NewMapObjectEncoder()
		field.AddTo(enc)
		value, ok := enc.Fields[field.Key]
		if !ok {
			sanitized = append(sanitized, field)
			continue
		}
		if _, nested := value.(map[string]interface{}); !nested {
			sanitized = append(sanitized, field)
			continue
		}
		sanitized = append(sanitized, zap.Any(field.Key, sanitizeAny(field.Key, value)))
	}
	return sanitized
}

func sanitizeAny(parentKey string, value interface{}) interface{} {
	if isSensitiveKey(parentKey) {
		return "***"
	}

	switch typed := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			out[k] = sanitizeAny(k, v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeAny(parentKey, item))
		}
		return out
	default:
		return typed
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false
	}
	normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)

	for _, token := range sensitiveTokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}
