package auth

import (
	"encoding/json"
	"os"
	"strings"
)

const redacted = "[REDACTED]"

// Secret is a credential value. Its textual forms are redacted.
type Secret string

// SecretFromEnv reads a secret from the environment.
func SecretFromEnv(name string) Secret {
	return Secret(strings.TrimSpace(os.Getenv(name)))
}

// Reveal returns the raw value.
func (s Secret) Reveal() string { return string(s) }

// Empty reports whether the secret is unset.
func (s Secret) Empty() bool { return strings.TrimSpace(string(s)) == "" }

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer.
func (s Secret) GoString() string { return s.String() }

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalText implements encoding.TextMarshaler so YAML and zap also see the
// redacted form.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
