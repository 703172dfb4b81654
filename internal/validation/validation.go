package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"telecom-bundle-chat/internal/models"
)

const (
	// MaxMessageLength bounds a chat message in characters.
	MaxMessageLength = 2000
	// MaxMetadataKeys bounds the free-form metadata object.
	MaxMetadataKeys = 32
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// SanitizeChatPayload strips control characters and surrounding whitespace
// from the message in place. The phone is left untouched: it is a lookup
// key and an unknown value must reach the store as sent.
func SanitizeChatPayload(p *models.ChatPayload) {
	if p.Message != nil {
		msg := SanitizeString(*p.Message)
		p.Message = &msg
	}
}

// ValidateChatPayload checks the shape of a decoded body. The message key
// must be present but may be empty. The phone key is mandatory only when
// requirePhone is set; its value is never checked here, unknown phones are
// reported by the lookup.
func ValidateChatPayload(p models.ChatPayload, requirePhone bool) error {
	if p.Phone == nil && requirePhone {
		return &ValidationError{Field: "phone", Message: "is required"}
	}

	if p.Message == nil {
		return &ValidationError{Field: "message", Message: "is required"}
	}
	if utf8.RuneCountInString(*p.Message) > MaxMessageLength {
		return &ValidationError{
			Field:   "message",
			Message: fmt.Sprintf("cannot exceed %d characters", MaxMessageLength),
		}
	}

	if len(p.Metadata) > MaxMetadataKeys {
		return &ValidationError{
			Field:   "metadata",
			Message: fmt.Sprintf("cannot contain more than %d keys", MaxMetadataKeys),
		}
	}
	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
