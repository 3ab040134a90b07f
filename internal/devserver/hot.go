package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yacobolo/windsync/internal/host"
)

const (
	hotWriteWait = 10 * time.Second
	hotPongWait  = 60 * time.Second
	hotPingEvery = (hotPongWait * 9) / 10
	hotQueueSize = 32
)

var hotUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// hotInbound is a client message. Custom events carry a name and an
// arbitrary JSON value.
type hotInbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type hotClient struct {
	out chan host.Payload
}

// Hub is the websocket side of the hot channel. It broadcasts payloads to
// every connected client and dispatches custom client events to
// listeners.
type Hub struct {
	mu        sync.Mutex
	clients   map[*hotClient]struct{}
	listeners map[string][]func(json.RawMessage)
	log       *slog.Logger
}

// NewHub creates a hub without clients.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*hotClient]struct{}),
		listeners: make(map[string][]func(json.RawMessage)),
		log:       log,
	}
}

// Send broadcasts p. Slow clients lose their oldest queued payload rather
// than blocking the sender.
func (h *Hub) Send(p host.Payload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		pushPayload(c.out, p)
	}
	return nil
}

// On registers a listener for a custom client event.
func (h *Hub) On(event string, fn func(json.RawMessage)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners[event] = append(h.listeners[event], fn)
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *hotClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *hotClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) dispatch(event string, data json.RawMessage) {
	h.mu.Lock()
	fns := append([]func(json.RawMessage){}, h.listeners[event]...)
	h.mu.Unlock()

	if len(fns) == 0 {
		h.log.Debug("no listener for hot event", "event", event)
		return
	}
	for _, fn := range fns {
		fn(data)
	}
}

// ServeHTTP upgrades the request and serves one client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := hotUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("hot channel upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(hotPongWait)); err != nil {
		h.log.Warn("hot channel set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(hotPongWait))
	})

	c := &hotClient{out: make(chan host.Payload, hotQueueSize)}
	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(hotPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case p := <-c.out:
				if err := conn.SetWriteDeadline(time.Now().Add(hotWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(p); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(hotWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	h.register(c)
	defer h.unregister(c)
	pushPayload(c.out, host.Payload{Type: host.PayloadConnected})
	h.log.Debug("hot client connected", "remote", r.RemoteAddr)

	for {
		var in hotInbound
		if err := conn.ReadJSON(&in); err != nil {
			close(done)
			<-writerDone
			h.log.Debug("hot client disconnected", "remote", r.RemoteAddr)
			return
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case host.PayloadCustom:
			if in.Event == "" {
				continue
			}
			h.dispatch(in.Event, in.Data)
		case "ping":
			pushPayload(c.out, host.Payload{Type: "pong"})
		default:
			h.log.Debug("unsupported hot message", "type", in.Type)
		}
	}
}

// pushPayload queues p without blocking, dropping the oldest queued
// payload when the queue is full.
func pushPayload(ch chan host.Payload, p host.Payload) {
	select {
	case ch <- p:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- p:
	default:
	}
}
