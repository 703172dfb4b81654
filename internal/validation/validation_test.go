package validation

import (
	"errors"
	"strings"
	"testing"

	"telecom-bundle-chat/internal/models"
)

func strPtr(s string) *string { return &s }

func TestValidateChatPayload(t *testing.T) {
	manyKeys := make(map[string]interface{})
	for i := 0; i <= MaxMetadataKeys; i++ {
		manyKeys[strings.Repeat("k", i+1)] = i
	}

	tests := []struct {
		name         string
		payload      models.ChatPayload
		requirePhone bool
		wantField    string
	}{
		{"valid", models.ChatPayload{Phone: strPtr("0700000001"), Message: strPtr("who am i")}, true, ""},
		{"unknown phone shape is accepted", models.ChatPayload{Phone: strPtr("unknown"), Message: strPtr("hi")}, true, ""},
		{"spaced phone is accepted", models.ChatPayload{Phone: strPtr("070 000 0009"), Message: strPtr("hi")}, true, ""},
		{"empty phone is accepted", models.ChatPayload{Phone: strPtr(""), Message: strPtr("hi")}, true, ""},
		{"missing phone", models.ChatPayload{Message: strPtr("hi")}, true, "phone"},
		{"phone optional", models.ChatPayload{Message: strPtr("hi")}, false, ""},
		{"empty message", models.ChatPayload{Phone: strPtr("0700000001"), Message: strPtr("")}, true, ""},
		{"missing message", models.ChatPayload{Phone: strPtr("0700000001")}, true, "message"},
		{"long message", models.ChatPayload{Phone: strPtr("0700000001"), Message: strPtr(strings.Repeat("a", MaxMessageLength+1))}, true, "message"},
		{"too much metadata", models.ChatPayload{Message: strPtr("hi"), Metadata: manyKeys}, false, "metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatPayload(tt.payload, tt.requirePhone)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Expected field %q, got %q", tt.wantField, vErr.Field)
			}
		})
	}
}

func TestSanitizeChatPayload(t *testing.T) {
	p := models.ChatPayload{Phone: strPtr(" 0700000001 "), Message: strPtr("\tcheck my balance\x07\n")}
	SanitizeChatPayload(&p)

	if *p.Phone != " 0700000001 " {
		t.Errorf("Expected phone untouched, got %q", *p.Phone)
	}
	if *p.Message != "check my balance" {
		t.Errorf("Unexpected message %q", *p.Message)
	}

	var empty models.ChatPayload
	SanitizeChatPayload(&empty)
	if empty.Message != nil {
		t.Error("Expected absent message to stay absent")
	}
}
