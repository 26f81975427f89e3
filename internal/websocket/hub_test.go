package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockSession creates a Session with an outbox but no real connection.
func mockSession(hub *Hub) *Session {
	return &Session{
		hub:    hub,
		conn:   nil,
		outbox: make(chan []byte, outboxSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	s1 := mockSession(hub)
	s2 := mockSession(hub)

	hub.Register(s1)
	hub.Register(s2)

	if got := hub.SessionCount(); got != 2 {
		t.Fatalf("expected 2 sessions, got %d", got)
	}

	hub.Unregister(s1)

	if got := hub.SessionCount(); got != 1 {
		t.Fatalf("expected 1 session after unregister, got %d", got)
	}

	hub.Unregister(s2)

	if got := hub.SessionCount(); got != 0 {
		t.Fatalf("expected 0 sessions, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	s := mockSession(hub)
	hub.Register(s)
	hub.Unregister(s)
	// Should not panic
	hub.Unregister(s)

	if got := hub.SessionCount(); got != 0 {
		t.Fatalf("expected 0 sessions, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	s1 := mockSession(hub)
	s2 := mockSession(hub)
	hub.Register(s1)
	hub.Register(s2)

	msg := NewMessage("occurrence", "completed", "42", map[string]any{"points": float64(5)})
	hub.Broadcast(msg)

	// Check both sessions received the message
	for _, s := range []*Session{s1, s2} {
		select {
		case data := <-s.outbox:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "occurrence_completed" {
				t.Errorf("expected type occurrence_completed, got %s", got.Type)
			}
			if got.Entity != "occurrence" {
				t.Errorf("expected entity occurrence, got %s", got.Entity)
			}
			if got.Ref != "42" {
				t.Errorf("expected ref 42, got %s", got.Ref)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(s1)
	hub.Unregister(s2)
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	msg := NewMessage("chore", "created", "def-1", nil)
	hub.Broadcast(msg)
}

func TestBroadcastFullOutbox(t *testing.T) {
	hub := NewHub(slog.Default())

	s := mockSession(hub)
	hub.Register(s)

	// Fill the outbox
	for i := 0; i < outboxSize; i++ {
		hub.Broadcast(NewMessage("test", "fill", "", nil))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(NewMessage("test", "dropped", "", nil))

	// Drain to verify the outbox was full
	count := 0
	for {
		select {
		case <-s.outbox:
			count++
		default:
			goto done
		}
	}
done:
	if count != outboxSize {
		t.Errorf("expected %d messages, got %d", outboxSize, count)
	}

	hub.Unregister(s)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("reward", "redeemed", "aria", nil)
	if msg.Type != "reward_redeemed" {
		t.Errorf("expected type reward_redeemed, got %s", msg.Type)
	}
	if msg.Entity != "reward" {
		t.Errorf("expected entity reward, got %s", msg.Entity)
	}
	if msg.Action != "redeemed" {
		t.Errorf("expected action redeemed, got %s", msg.Action)
	}
	if msg.Ref != "aria" {
		t.Errorf("expected ref aria, got %s", msg.Ref)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, broadcast, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := mockSession(hub)
			hub.Register(s)
			hub.Broadcast(NewMessage("test", "concurrent", "", nil))
			// Drain any messages
			for {
				select {
				case <-s.outbox:
				default:
					hub.Unregister(s)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.SessionCount(); got != 0 {
		t.Errorf("expected 0 sessions after concurrent test, got %d", got)
	}
}
