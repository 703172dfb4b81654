package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event.
type EventType string

const (
	// EventChatReplied is emitted when a chat request produced a reply.
	EventChatReplied EventType = "chat.replied"
	// EventUserNotFound is emitted when the phone number did not resolve.
	EventUserNotFound EventType = "chat.user_not_found"
	// EventChatFailed is emitted when a dependency failed during a chat request.
	EventChatFailed EventType = "chat.failed"
)

// AllTypes lists every chat event type.
var AllTypes = []EventType{EventChatReplied, EventUserNotFound, EventChatFailed}

// Event represents an event in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Phone     string    `json:"phone,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	Admin     bool      `json:"admin,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Publisher is the broker side used by Forward.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}

// Manager fans events out to subscribed handlers asynchronously.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewManager creates a new event manager. A disabled manager drops every
// subscription and event.
func NewManager(enabled bool, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
	}
}

// Subscribe subscribes a handler to the given event types, or to all of
// them when none are given.
func (m *Manager) Subscribe(handler Handler, types ...EventType) {
	if len(types) == 0 {
		types = AllTypes
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	for _, t := range types {
		m.handlers[t] = append(m.handlers[t], handler)
	}
}

// Publish stamps the event with an ID and timestamp and runs every
// subscribed handler in its own goroutine. Handler errors are logged.
func (m *Manager) Publish(ctx context.Context, event Event) {
	if m == nil {
		return
	}

	m.mu.RLock()
	if !m.enabled {
		m.mu.RUnlock()
		return
	}
	handlers := m.handlers[event.Type]
	if len(handlers) > 0 {
		m.wg.Add(len(handlers))
	}
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	// Handlers outlive the request that emitted the event.
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go func(h Handler) {
			defer m.wg.Done()
			if err := h(ctx, event); err != nil {
				m.logger.Warn("event handler failed", "type", event.Type, "id", event.ID, "error", err)
			}
		}(handler)
	}
}

// Shutdown stops accepting events and waits for running handlers until ctx
// is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forward returns a handler that serializes events as JSON and hands them to
// pub keyed by event type.
func Forward(pub Publisher) Handler {
	return func(ctx context.Context, event Event) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return pub.Publish(ctx, string(event.Type), payload)
	}
}
