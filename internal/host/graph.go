package host

import (
	"encoding/json"
	"sync"
	"time"
)

// Server is what a plugin sees of the development server.
type Server interface {
	ModuleGraph() ModuleGraph
	Hot() HotChannel
}

// ModuleGraph tracks modules that were served to clients.
type ModuleGraph interface {
	ModuleByID(id string) (*ModuleNode, bool)
	InvalidateModule(m *ModuleNode)
}

// HotChannel is the bidirectional live-update channel to connected
// clients.
type HotChannel interface {
	Send(p Payload) error
	On(event string, fn func(data json.RawMessage))
}

// Payload is a message on the hot channel.
type Payload struct {
	Type    string          `json:"type"`
	Updates []Update        `json:"updates,omitempty"`
	Event   string          `json:"event,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Payload types.
const (
	PayloadUpdate     = "update"
	PayloadFullReload = "full-reload"
	PayloadCustom     = "custom"
	PayloadConnected  = "connected"
)

// UpdateJS is the update type for modules that reload in place.
const UpdateJS = "js-update"

// Update asks clients to refetch one module.
type Update struct {
	Type         string `json:"type"`
	Path         string `json:"path"`
	AcceptedPath string `json:"acceptedPath"`
	Timestamp    int64  `json:"timestamp"`
}

// ModuleNode is a served module.
type ModuleNode struct {
	ID  string
	URL string

	// Code is the cached transform result, "" once invalidated.
	Code             string
	LastInvalidation time.Time
}

// Graph is an in-memory ModuleGraph.
type Graph struct {
	mu    sync.Mutex
	nodes map[string]*ModuleNode
	now   func() time.Time
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*ModuleNode), now: time.Now}
}

// Ensure returns the node for id, creating it on first use.
func (g *Graph) Ensure(id, url string) *ModuleNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &ModuleNode{ID: id, URL: url}
	g.nodes[id] = n
	return n
}

// ModuleByID implements ModuleGraph.
func (g *Graph) ModuleByID(id string) (*ModuleNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return n, ok
}

// InvalidateModule drops the cached code of m.
func (g *Graph) InvalidateModule(m *ModuleNode) {
	if m == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	m.Code = ""
	m.LastInvalidation = g.now()
}

// Cached returns the cached code of id.
func (g *Graph) Cached(id string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok || n.Code == "" {
		return "", false
	}
	return n.Code, true
}

// Store caches code for id.
func (g *Graph) Store(id, url, code string) {
	n := g.Ensure(id, url)
	g.mu.Lock()
	n.Code = code
	g.mu.Unlock()
}
