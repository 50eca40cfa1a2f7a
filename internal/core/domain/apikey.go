package domain

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const redacted = "[REDACTED]"

// APIKey is a UUID-formatted aggregator API key.
// Every printing path redacts the value; use Reveal for the request header.
type APIKey struct {
	id uuid.UUID
}

// ParseAPIKey validates s as a UUID key.
func ParseAPIKey(s string) (APIKey, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return APIKey{}, fmt.Errorf("invalid API key format (expected UUID): %w", err)
	}
	return APIKey{id: id}, nil
}

// NewAPIKey wraps an existing UUID.
func NewAPIKey(id uuid.UUID) APIKey {
	return APIKey{id: id}
}

// IsZero reports whether no key is set.
func (k APIKey) IsZero() bool {
	return k.id == uuid.Nil
}

// Reveal returns the raw key. Never log the result.
func (k APIKey) Reveal() string {
	return k.id.String()
}

func (k APIKey) String() string {
	return redacted
}

func (k APIKey) GoString() string {
	return "APIKey(" + redacted + ")"
}

func (k APIKey) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalYAML keeps keys out of dumped configuration.
func (k APIKey) MarshalYAML() (any, error) {
	if k.IsZero() {
		return "", nil
	}
	return redacted, nil
}

// UnmarshalYAML parses the key from config; an empty value means no key.
func (k *APIKey) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		*k = APIKey{}
		return nil
	}
	parsed, err := ParseAPIKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
