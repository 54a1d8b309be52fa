// Package sse streams output-tree changes to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeFileCreated    = "file.created"
	TypeFileUpdated    = "file.updated"
	TypeFileDeleted    = "file.deleted"
	TypeCatalogChanged = "catalog.changed"
)

const clientBuffer = 64

// Event is one message broadcast to every subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// hub is the state owned by the broker goroutine.
type hub struct {
	clients     map[chan []byte]struct{}
	lastCatalog time.Time
}

// Broker fans events out to connected clients. All state lives in one
// goroutine; callers submit closures to it.
type Broker struct {
	throttle time.Duration
	cmds     chan func(*hub)
	stop     chan struct{}
	done     chan struct{}
	closed   atomic.Bool
}

// NewBroker starts a broker that emits at most one catalog.changed event per
// throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		throttle: throttle,
		cmds:     make(chan func(*hub), 256),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.done)
	h := &hub{clients: make(map[chan []byte]struct{})}
	for {
		select {
		case <-b.stop:
			for ch := range h.clients {
				close(ch)
			}
			return
		case cmd := <-b.cmds:
			cmd(h)
		}
	}
}

// do hands cmd to the broker goroutine. It reports false once the broker is
// closed.
func (b *Broker) do(cmd func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.cmds <- cmd:
		return true
	case <-b.done:
		return false
	}
}

func (h *hub) broadcast(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload))
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Slow client; it misses this event.
		}
	}
}

// Close stops the broker and closes every client channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.done
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	registered := make(chan struct{})
	ok := b.do(func(h *hub) {
		h.clients[ch] = struct{}{}
		close(registered)
	})
	if !ok {
		close(ch)
		return ch
	}
	select {
	case <-registered:
	case <-b.done:
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	removed := make(chan struct{})
	ok := b.do(func(h *hub) {
		if _, found := h.clients[ch]; found {
			delete(h.clients, ch)
			close(ch)
		}
		close(removed)
	})
	if !ok {
		return
	}
	select {
	case <-removed:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.do(func(h *hub) { n <- len(h.clients) }) {
		return 0
	}
	select {
	case v := <-n:
		return v
	case <-b.done:
		return 0
	}
}

// Publish broadcasts ev.
func (b *Broker) Publish(ev Event) {
	b.do(func(h *hub) { h.broadcast(ev) })
}

// FileChanged matches index.EventCallback: it broadcasts the change plus a
// throttled catalog.changed event. Unknown kinds are ignored.
func (b *Broker) FileChanged(kind, path string) {
	typ, ok := fileEventType(kind)
	if !ok {
		return
	}
	b.do(func(h *hub) {
		h.broadcast(Event{Type: typ, Data: map[string]string{"path": path}})
		if now := time.Now(); now.Sub(h.lastCatalog) >= b.throttle {
			h.lastCatalog = now
			h.broadcast(Event{Type: TypeCatalogChanged, Data: map[string]string{}})
		}
	})
}

func fileEventType(kind string) (string, bool) {
	switch kind {
	case "created":
		return TypeFileCreated, true
	case "updated":
		return TypeFileUpdated, true
	case "deleted":
		return TypeFileDeleted, true
	}
	return "", false
}

// ServeHTTP streams events to one client until it disconnects or the broker
// closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
