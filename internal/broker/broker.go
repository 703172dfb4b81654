// Package broker delivers serialized chat events to an external message
// broker.
package broker

import (
	"context"
	"log/slog"
	"strings"
)

// Publisher sends one JSON payload for an event type.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
	Close() error
}

// Subject joins the configured prefix and an event type with a dot.
func Subject(prefix, eventType string) string {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// LogPublisher logs events instead of sending them. It stands in when no
// broker is configured or the broker is unreachable at startup.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a log-only publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.DebugContext(ctx, "event", "type", eventType, "payload", string(payload))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
