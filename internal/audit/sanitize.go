package audit

import "strings"

// Redacted replaces the value of any field whose name looks sensitive.
const Redacted = "[REDACTED]"

var sensitiveKeyParts = []string{
	"password",
	"token",
	"secret",
	"key",
	"auth",
	"session",
	"credit_card",
	"ssn",
	"phone",
}

func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// Sanitize walks a decoded JSON value and replaces the value of every
// map key whose lowercased name contains a sensitive substring. Nested
// objects and arrays are walked recursively; everything else passes
// through unchanged. The input is not mutated.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if sensitiveKey(k) {
				out[k] = Redacted
				continue
			}
			out[k] = Sanitize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = Sanitize(inner)
		}
		return out
	default:
		return v
	}
}
