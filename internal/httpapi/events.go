package httpapi

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/feliperosa/trainvault/internal/lifecycle"
)

// EventHub fans lifecycle events out to websocket subscribers. Slow consumers
// are dropped rather than allowed to block the controller.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan lifecycle.Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan lifecycle.Event]struct{})}
}

// Publish is the lifecycle.EventHook implementation. It never blocks.
func (h *EventHub) Publish(ev lifecycle.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Saturated subscriber; skip this event for it.
		}
	}
}

func (h *EventHub) subscribe() chan lifecycle.Event {
	ch := make(chan lifecycle.Event, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan lifecycle.Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)

	// Reader goroutine only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("[httpapi] event stream write failed: %v", err)
				return
			}
		}
	}
}
