package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu       sync.Mutex
	types    []string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestManager_PublishAndForward(t *testing.T) {
	m := NewManager(true, nil)
	pub := &recordingPublisher{}
	m.Subscribe(Forward(pub))

	m.Publish(context.Background(), Event{Type: EventChatReplied, Phone: "0700000001", Intent: "airtime", Admin: true})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(pub.types) != 1 || pub.types[0] != "chat.replied" {
		t.Fatalf("Unexpected published types: %v", pub.types)
	}

	var got Event
	if err := json.Unmarshal(pub.payloads[0], &got); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}
	if got.ID == "" || got.Timestamp.IsZero() {
		t.Errorf("Expected ID and timestamp to be stamped, got %+v", got)
	}
	if got.Phone != "0700000001" || got.Intent != "airtime" || !got.Admin {
		t.Errorf("Unexpected event: %+v", got)
	}
}

func TestManager_SubscribeToSpecificTypes(t *testing.T) {
	m := NewManager(true, nil)

	var mu sync.Mutex
	var seen []EventType
	m.Subscribe(func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
		return errors.New("handler errors are only logged")
	}, EventChatFailed)

	m.Publish(context.Background(), Event{Type: EventChatReplied})
	m.Publish(context.Background(), Event{Type: EventChatFailed})
	_ = m.Shutdown(context.Background())

	if len(seen) != 1 || seen[0] != EventChatFailed {
		t.Errorf("Expected only chat.failed, got %v", seen)
	}
}

func TestManager_Disabled(t *testing.T) {
	m := NewManager(false, nil)
	called := false
	m.Subscribe(func(ctx context.Context, e Event) error {
		called = true
		return nil
	})
	m.Publish(context.Background(), Event{Type: EventChatReplied})
	_ = m.Shutdown(context.Background())

	if called {
		t.Error("Expected disabled manager not to run handlers")
	}

	var nilManager *Manager
	nilManager.Publish(context.Background(), Event{Type: EventChatReplied})
}
