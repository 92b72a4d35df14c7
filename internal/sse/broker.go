// Package sse implements a Server-Sent Events broker for vault change
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/chronicle/internal/watch"
)

// Event types. Change events are "note.<kind>" or "asset.<kind>".
const (
	TypeTreeUpdated = "tree.updated"
	notePrefix      = "note."
	assetPrefix     = "asset."
)

// Defaults for NewBroker.
const (
	DefaultTreeThrottle = 2 * time.Second
	DefaultHeartbeat    = 25 * time.Second
	clientBuffer        = 64
	retryMillis         = 3000
)

// Event represents an SSE event to broadcast. An empty ID is filled with a
// random UUID.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ChangeData is the payload of note and asset events.
type ChangeData struct {
	Path string `json:"path"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithTreeThrottle sets the minimum interval between tree.updated events.
func WithTreeThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.treeMin = d
		}
	}
}

// WithHeartbeat sets the keep-alive comment interval of open streams.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.heartbeat = d
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop goroutine owns the client set and the tree throttle
// timestamp. Public methods talk to it over channels.
type Broker struct {
	treeMin   time.Duration
	heartbeat time.Duration
	logger    *slog.Logger

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan watch.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker and starts its event loop.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		treeMin:       DefaultTreeThrottle,
		heartbeat:     DefaultHeartbeat,
		logger:        slog.Default(),
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan watch.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

// Format renders event in the text/event-stream wire format.
func Format(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Appendf(nil, "id: %s\nevent: %s\ndata: %s\n\n", id, event.Type, payload), nil
}

// changeEvents maps a watcher event to the events it produces, excluding
// the throttled tree event. Unknown kinds produce nothing.
func changeEvents(ev watch.Event) []Event {
	switch ev.Kind {
	case watch.Created, watch.Updated, watch.Deleted:
	default:
		return nil
	}
	prefix := notePrefix
	if ev.IsAsset() {
		prefix = assetPrefix
	}
	return []Event{{Type: prefix + string(ev.Kind), Data: ChangeData{Path: ev.Path}}}
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastTree time.Time

	broadcast := func(event Event) {
		raw, err := Format(event)
		if err != nil {
			b.logger.Warn("sse event dropped",
				slog.String("type", event.Type),
				slog.String("error", err.Error()))
			return
		}
		dropped := 0
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				dropped++
			}
		}
		if dropped > 0 {
			b.logger.Debug("sse slow clients skipped",
				slog.String("type", event.Type),
				slog.Int("clients", dropped))
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case ev := <-b.changeCh:
			events := changeEvents(ev)
			for _, e := range events {
				broadcast(e)
			}
			// Asset changes never alter the page tree.
			if len(events) == 0 || ev.IsAsset() {
				continue
			}
			if now := time.Now(); now.Sub(lastTree) >= b.treeMin {
				lastTree = now
				broadcast(Event{Type: TypeTreeUpdated, Data: struct{}{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishChange broadcasts a watcher event as note.* or asset.*. Note changes
// are followed by a throttled tree.updated. Its signature matches
// watch.Callback.
func (b *Broker) PublishChange(ev watch.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- ev:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Idle streams get
// a comment line every heartbeat interval so proxies keep them open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	b.logger.Debug("sse client connected", slog.String("remote", r.RemoteAddr))

	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			b.logger.Debug("sse client disconnected", slog.String("remote", r.RemoteAddr))
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
