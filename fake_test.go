package windsync

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yacobolo/windsync/internal/engine"
	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// countingGenerator wraps the real engine and counts calls.
type countingGenerator struct {
	mu      sync.Mutex
	inner   *engine.Generator
	calls   int
	warmups int
}

func newCountingGenerator(t *testing.T) *countingGenerator {
	t.Helper()
	gen, err := engine.New(engine.Options{Config: engine.NoConfig(), Logger: logging.Discard()})
	require.NoError(t, err)
	return &countingGenerator{inner: gen}
}

func (c *countingGenerator) Generate(entries []engine.Entry) (engine.Result, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Generate(entries)
}

func (c *countingGenerator) GenerateCandidates(candidates []string) engine.Result {
	c.mu.Lock()
	c.warmups++
	c.mu.Unlock()
	return c.inner.GenerateCandidates(candidates)
}

func (c *countingGenerator) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newTestPlugin(t *testing.T) (*Plugin, *countingGenerator) {
	t.Helper()
	gen := newCountingGenerator(t)
	p := newPlugin(Options{
		Debounce: -1,
		Logger:   logging.Discard(),
		Now:      func() time.Time { return fixedNow },
	}, gen, gen)
	t.Cleanup(p.Close)
	return p, gen
}

var errEngineDown = errors.New("engine down")

type failingGenerator struct{}

func (failingGenerator) Generate([]engine.Entry) (engine.Result, error) {
	return engine.Result{}, errEngineDown
}

type nopWarmer struct{}

func (nopWarmer) GenerateCandidates([]string) engine.Result { return engine.Result{} }

type fakeHot struct {
	mu        sync.Mutex
	sent      []host.Payload
	listeners map[string][]func(json.RawMessage)
	err       error
}

func (h *fakeHot) Send(p host.Payload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.sent = append(h.sent, p)
	return nil
}

func (h *fakeHot) On(event string, fn func(json.RawMessage)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners == nil {
		h.listeners = make(map[string][]func(json.RawMessage))
	}
	h.listeners[event] = append(h.listeners[event], fn)
}

func (h *fakeHot) emit(event, data string) {
	h.mu.Lock()
	fns := append([]func(json.RawMessage){}, h.listeners[event]...)
	h.mu.Unlock()
	for _, fn := range fns {
		fn(json.RawMessage(data))
	}
}

func (h *fakeHot) payloads() []host.Payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.Payload{}, h.sent...)
}

type fakeServer struct {
	graph *host.Graph
	hot   *fakeHot
}

func newFakeServer() *fakeServer {
	return &fakeServer{graph: host.NewGraph(), hot: &fakeHot{}}
}

func (s *fakeServer) ModuleGraph() host.ModuleGraph { return s.graph }
func (s *fakeServer) Hot() host.HotChannel          { return s.hot }

func jsonInt(n int) string {
	return strconv.Itoa(n)
}
