package logger

import (
	"bytes"
	"log/slog"
	"strings"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"credential",
	"auth",
	"requirepass",
}

// Commands whose arguments carry credentials.
var sensitiveCommands = map[string]bool{
	"auth":    true,
	"hello":   true,
	"migrate": true,
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive redacts string attributes whose key suggests a secret.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
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

// RedactArgs renders command arguments for logging. The arguments of
// credential carrying commands are replaced by the redaction marker.
func RedactArgs(args [][]byte) string {
	if len(args) == 0 {
		return ""
	}
	name := string(bytes.ToLower(args[0]))
	var sb strings.Builder
	sb.WriteString(name)
	for _, a := range args[1:] {
		sb.WriteByte(' ')
		if sensitiveCommands[name] {
			sb.WriteString(redactedValue)
			continue
		}
		if len(a) > 64 {
			sb.Write(a[:64])
			sb.WriteString("...")
			continue
		}
		sb.Write(a)
	}
	return sb.String()
}
