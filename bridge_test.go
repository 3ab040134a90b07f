package windsync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/windsync/internal/engine"
	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
	"github.com/yacobolo/windsync/internal/queue"
)

func attachedPlugin(t *testing.T) (*Plugin, *countingGenerator, *fakeServer) {
	t.Helper()
	p, gen := newTestPlugin(t)
	srv := newFakeServer()

	c, err := host.NewContainer(host.ContainerConfig{
		Root:    t.TempDir(),
		Mode:    host.ModeServe,
		Plugins: p.Plugins(),
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	require.NoError(t, c.ConfigureServer(srv))
	return p, gen, srv
}

func TestBridge_DropsUpdateForUnloadedModule(t *testing.T) {
	p, _, srv := attachedPlugin(t)

	p.Push("/src/index.html", `<p class="p-4">`)
	res, ran, err := p.Flush()
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, engine.Generated, res.Kind)

	assert.Empty(t, srv.hot.payloads())
	assert.Equal(t, Idle, p.Bridge().State())
}

func TestBridge_SendsUpdate(t *testing.T) {
	p, _, srv := attachedPlugin(t)
	node := srv.graph.Ensure(VirtualID, "/@id/__windsync.css")
	srv.graph.Store(VirtualID, node.URL, "stale")

	p.Push("/src/index.html", `<p class="p-4">`)
	_, _, err := p.Flush()
	require.NoError(t, err)

	assert.Equal(t, []host.Payload{{
		Type: host.PayloadUpdate,
		Updates: []host.Update{{
			Type:         host.UpdateJS,
			Path:         "/@id/__windsync.css",
			AcceptedPath: "/@id/__windsync.css",
			Timestamp:    fixedNow.UnixMilli(),
		}},
	}}, srv.hot.payloads())

	_, cached := srv.graph.Cached(VirtualID)
	assert.False(t, cached)
	assert.Equal(t, PendingAck, p.Bridge().State())
}

func TestBridge_CachedResultSendsNothing(t *testing.T) {
	p, _, srv := attachedPlugin(t)
	srv.graph.Ensure(VirtualID, VirtualID)

	p.Push("/src/a.html", `<p class="p-4">`)
	_, _, err := p.Flush()
	require.NoError(t, err)
	require.Len(t, srv.hot.payloads(), 1)

	// Same candidates from another module: nothing new to generate.
	p.Push("/src/b.html", `<p class="p-4">`)
	res, ran, err := p.Flush()
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, engine.Cached, res.Kind)
	assert.Len(t, srv.hot.payloads(), 1)
}

func TestBridge_AckMatchingLength(t *testing.T) {
	p, gen, srv := attachedPlugin(t)
	srv.graph.Ensure(VirtualID, VirtualID)

	p.Push("/src/index.html", `<p class="p-4">`)
	_, _, err := p.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, gen.callCount())
	require.Equal(t, PendingAck, p.Bridge().State())

	srv.hot.emit(HMREvent, jsonInt(len(p.CSS())))

	assert.Equal(t, 1, gen.callCount())
	assert.Len(t, srv.hot.payloads(), 1)
	assert.Equal(t, Idle, p.Bridge().State())
}

func TestBridge_AckMismatchForcesOneFlush(t *testing.T) {
	p, gen, srv := attachedPlugin(t)
	srv.graph.Ensure(VirtualID, VirtualID)

	p.Push("/src/index.html", `<p class="p-4">`)
	_, _, err := p.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, gen.callCount())

	// The client still holds the placeholder.
	srv.hot.emit(HMREvent, jsonInt(len(Placeholder)))

	assert.Equal(t, 2, gen.callCount())
	payloads := srv.hot.payloads()
	require.Len(t, payloads, 2)
	assert.Equal(t, host.PayloadUpdate, payloads[1].Type)
	assert.Equal(t, PendingAck, p.Bridge().State())

	// The client catches up.
	srv.hot.emit(HMREvent, jsonInt(len(p.CSS())))
	assert.Equal(t, 2, gen.callCount())
	assert.Equal(t, Idle, p.Bridge().State())
}

func TestBridge_PlaceholderAckSettles(t *testing.T) {
	p, gen, srv := attachedPlugin(t)
	srv.graph.Ensure(VirtualID, VirtualID)

	// No utilities anywhere: the engine answers Cached and clients keep
	// the placeholder.
	p.Push("/src/index.html", `<p>hello</p>`)
	res, ran, err := p.Flush()
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, engine.Cached, res.Kind)
	require.Empty(t, p.CSS())

	for i := 0; i < 5; i++ {
		srv.hot.emit(HMREvent, jsonInt(len(Placeholder)))
	}

	assert.Equal(t, 1, gen.callCount())
	assert.Empty(t, srv.hot.payloads())
	assert.Equal(t, Idle, p.Bridge().State())
}

func TestBridge_UpdateDuringReconcileStaysPending(t *testing.T) {
	srv := newFakeServer()
	srv.graph.Ensure(VirtualID, VirtualID)

	var b *Bridge
	b = NewBridge(func(int) (queue.FlushResult, bool, error) {
		// A scheduled flush lands while the acknowledgement is handled.
		b.Notify(queue.FlushResult{Kind: engine.Generated, CSS: "y"})
		return queue.FlushResult{Kind: engine.Cached, CSS: "y"}, true, nil
	}, BridgeOptions{Logger: logging.Discard()})
	b.Attach(srv)

	require.NoError(t, b.Acknowledge(1))
	assert.Len(t, srv.hot.payloads(), 1)
	assert.Equal(t, PendingAck, b.State())
}

func TestBridge_MalformedAckIgnored(t *testing.T) {
	p, gen, srv := attachedPlugin(t)
	srv.graph.Ensure(VirtualID, VirtualID)

	srv.hot.emit(HMREvent, `"twelve"`)
	assert.Equal(t, 0, gen.callCount())
	assert.Empty(t, srv.hot.payloads())
	assert.Equal(t, Idle, p.Bridge().State())
}

func TestBridge_AckErrorReported(t *testing.T) {
	var reported error
	p := newPlugin(Options{
		Debounce: -1,
		Logger:   logging.Discard(),
		OnError:  func(err error) { reported = err },
	}, failingGenerator{}, nopWarmer{})
	srv := newFakeServer()
	p.Bridge().Attach(srv)

	srv.hot.emit(HMREvent, "7")
	assert.ErrorIs(t, reported, errEngineDown)
}

func TestBridge_SendFailureKeepsIdle(t *testing.T) {
	srv := newFakeServer()
	srv.hot.err = errors.New("closed")
	srv.graph.Ensure(VirtualID, VirtualID)

	b := NewBridge(func(int) (queue.FlushResult, bool, error) {
		return queue.FlushResult{}, false, nil
	}, BridgeOptions{Logger: logging.Discard()})
	b.Attach(srv)

	b.Notify(queue.FlushResult{Kind: engine.Generated, CSS: "x"})
	assert.Equal(t, Idle, b.State())
	assert.Empty(t, srv.hot.payloads())
}

func TestBridge_DetachedNotifyIsNoop(t *testing.T) {
	b := NewBridge(nil, BridgeOptions{Logger: logging.Discard()})
	b.Notify(queue.FlushResult{Kind: engine.Generated, CSS: "x"})
	assert.Equal(t, Idle, b.State())
}

func TestBridgeState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending-ack", PendingAck.String())
	assert.Equal(t, "BridgeState(7)", BridgeState(7).String())
}
