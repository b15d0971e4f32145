package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Event kinds
const (
	KindPosition   = "position"
	KindConnection = "connection"
	KindError      = "error"
)

// Event is one message sent to SSE clients
type Event struct {
	Time      string `json:"t"`
	Kind      string `json:"kind"`
	Pos       *int   `json:"pos,omitempty"`
	Port      string `json:"port,omitempty"`
	Connected *bool  `json:"connected,omitempty"`
	Msg       string `json:"msg,omitempty"`
}

// Broadcaster distributes focuser events to Server-Sent Events clients.
// Slow clients miss events rather than holding up the controller.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}

	// Heartbeat is the interval of keep-alive comments on idle streams
	Heartbeat time.Duration
}

// NewBroadcaster returns a broadcaster with no subscribers
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients:   make(map[chan string]struct{}),
		Heartbeat: 30 * time.Second,
	}
}

// Subscribe returns a channel of JSON-encoded events and a cleanup function,
// which the caller must call when done
func (b *Broadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Subscribers returns the number of connected clients
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast stamps evt with the current time and sends it to every client
func (b *Broadcaster) Broadcast(evt Event) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// full, skip
		}
	}
}

// PositionChanged broadcasts a position event
func (b *Broadcaster) PositionChanged(pos int) {
	b.Broadcast(Event{Kind: KindPosition, Pos: &pos})
}

// ConnectionChanged broadcasts a connection event
func (b *Broadcaster) ConnectionChanged(port string, connected bool) {
	b.Broadcast(Event{Kind: KindConnection, Port: port, Connected: &connected})
}

// Error broadcasts an error event
func (b *Broadcaster) Error(err error) {
	b.Broadcast(Event{Kind: KindError, Msg: err.Error()})
}

// ServeHTTP streams events to the client until it goes away
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := b.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	hb := b.Heartbeat
	if hb <= 0 {
		hb = 30 * time.Second
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
