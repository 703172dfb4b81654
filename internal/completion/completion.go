// Package completion forwards chat messages to a hosted chat-completion
// model together with a system prompt built from the caller's context.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BaseInstruction opens every system prompt.
const BaseInstruction = "You are an AI assistant. Always respond in English."

const unknown = "Unknown"

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty completion response")

// Client sends one system prompt and one user message and returns the
// model's reply text unmodified.
type Client interface {
	Complete(ctx context.Context, system, message string) (string, error)
}

// UserContext is the subscriber data embedded in the system prompt. Empty
// fields are rendered as "Unknown".
type UserContext struct {
	Name        string
	PhoneNumber string
	Balance     string
}

// BuildSystemPrompt renders the system prompt for uc.
func BuildSystemPrompt(uc UserContext) string {
	var b strings.Builder
	b.WriteString(BaseInstruction)
	b.WriteString("\nYou help mobile subscribers with their airtime and bundles.")
	fmt.Fprintf(&b, "\nUser name: %s", orUnknown(uc.Name))
	fmt.Fprintf(&b, "\nPhone number: %s", orUnknown(uc.PhoneNumber))
	fmt.Fprintf(&b, "\nAirtime balance: %s", orUnknown(uc.Balance))
	return b.String()
}

// ContextFromMetadata reads name, phone_number and balance from free-form
// request metadata. Non-string values are formatted with %v.
func ContextFromMetadata(metadata map[string]interface{}) UserContext {
	return UserContext{
		Name:        metadataString(metadata, "name"),
		PhoneNumber: metadataString(metadata, "phone_number"),
		Balance:     metadataString(metadata, "balance"),
	}
}

// ContextFromBalance builds a context from resolved store values.
func ContextFromBalance(name, phone string, balance decimal.Decimal) UserContext {
	return UserContext{Name: name, PhoneNumber: phone, Balance: balance.String()}
}

func metadataString(metadata map[string]interface{}, key string) string {
	v, ok := metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%v", v)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. Expiry surfaces as an error
// wrapping context.DeadlineExceeded.
func WithTimeout(next Client, d time.Duration) Client {
	if d <= 0 {
		return next
	}
	return &timeoutClient{next: next, timeout: d}
}

func (c *timeoutClient) Complete(ctx context.Context, system, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.next.Complete(ctx, system, message)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return "", err
	}
	return reply, nil
}
