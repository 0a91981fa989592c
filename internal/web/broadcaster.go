package web

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"
)

// StatusEvent is one message pushed to SSE clients.
type StatusEvent struct {
	Time  string `json:"t"`
	Kind  string `json:"k"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
}

// Event kinds.
const (
	KindLog   = "log"
	KindState = "state"
	KindShot  = "shot"
)

const clientBuffer = 64

// StatusBroadcaster fans camera events out to SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel of JSON-encoded events and its cleanup.
// The caller must call cleanup when the client goes away.
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, clientBuffer)
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

// Clients returns the number of subscribers.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Publish sends an event to every subscriber. Slow clients miss events
// rather than block the camera.
func (b *StatusBroadcaster) Publish(kind, level, msg string) {
	data, err := json.Marshal(StatusEvent{
		Time:  time.Now().Format(time.RFC3339),
		Kind:  kind,
		Level: level,
		Msg:   msg,
	})
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
		}
	}
}

// Broadcast publishes a log event.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.Publish(KindLog, level, msg)
}

// BroadcastState publishes a connection state change.
func (b *StatusBroadcaster) BroadcastState(state string) {
	b.Publish(KindState, "info", state)
}

// BroadcastShot publishes the device path of a new capture.
func (b *StatusBroadcaster) BroadcastShot(path string) {
	b.Publish(KindShot, "info", path)
}

// BroadcastWriter returns an io.Writer that turns debug log lines into
// log events. It is meant to be passed to debug.SetOutput.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *StatusBroadcaster
}

// logLineRe splits "[camctl] 2026/01/02 15:04:05.000000 [LIVE] text".
var logLineRe = regexp.MustCompile(`^(?:\[camctl\]\s+)?(?:\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2}(?:\.\d+)?\s+)?(?:\[([A-Z]+)\]\s*)?(.*)$`)

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		level, msg := splitLogLine(line)
		if msg == "" {
			continue
		}
		w.b.Broadcast(level, msg)
	}
	return len(p), nil
}

// splitLogLine strips the logger prefix and maps the debug tag to an
// event level.
func splitLogLine(line string) (level, msg string) {
	m := logLineRe.FindStringSubmatch(line)
	if m == nil {
		return "info", line
	}
	msg = strings.TrimSpace(m[2])
	switch m[1] {
	case "ERROR":
		level = "error"
	case "LIVE":
		level = "live"
	case "VERBOSE", "TRACE", "CALL", "GPIO":
		level = "debug"
	default:
		level = "info"
	}
	return level, msg
}
