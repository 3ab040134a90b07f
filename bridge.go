package windsync

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
	"github.com/yacobolo/windsync/internal/queue"
)

// BridgeState is the acknowledgement state of the live-update bridge.
type BridgeState int

const (
	// Idle means no update is waiting for a client acknowledgement.
	Idle BridgeState = iota
	// PendingAck means an update was sent and no acknowledgement has
	// reconciled it yet.
	PendingAck
)

func (s BridgeState) String() string {
	switch s {
	case Idle:
		return "idle"
	case PendingAck:
		return "pending-ack"
	default:
		return fmt.Sprintf("BridgeState(%d)", int(s))
	}
}

// ReconcileFunc flushes for a client that holds output of the given
// length.
type ReconcileFunc func(length int) (queue.FlushResult, bool, error)

// BridgeOptions configures a Bridge.
type BridgeOptions struct {
	Logger  *slog.Logger
	Now     func() time.Time
	OnError func(error)
}

// Bridge pushes stylesheet updates to development clients and reconciles
// their acknowledgements.
type Bridge struct {
	mu     sync.Mutex
	server host.Server
	state  BridgeState
	sent   int

	reconcile ReconcileFunc
	now       func() time.Time
	onError   func(error)
	log       *slog.Logger
}

// NewBridge creates a detached bridge.
func NewBridge(reconcile ReconcileFunc, opts BridgeOptions) *Bridge {
	b := &Bridge{
		reconcile: reconcile,
		now:       opts.Now,
		onError:   opts.OnError,
		log:       opts.Logger,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.log == nil {
		b.log = logging.Logger()
	}
	return b
}

// Attach connects the bridge to a development server and subscribes to
// client acknowledgements. Without a server Notify does nothing.
func (b *Bridge) Attach(srv host.Server) {
	b.mu.Lock()
	b.server = srv
	b.mu.Unlock()

	srv.Hot().On(HMREvent, b.handleAck)
}

// State returns the current state.
func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Notify propagates a flush result. Results that change nothing for
// clients are ignored, as are updates for a virtual module no client has
// loaded yet.
func (b *Bridge) Notify(res queue.FlushResult) {
	if !res.Changed() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.server == nil {
		return
	}
	graph := b.server.ModuleGraph()
	mod, ok := graph.ModuleByID(VirtualID)
	if !ok {
		b.log.Debug("virtual module not loaded yet, update dropped")
		return
	}
	graph.InvalidateModule(mod)

	err := b.server.Hot().Send(host.Payload{
		Type: host.PayloadUpdate,
		Updates: []host.Update{{
			Type:         host.UpdateJS,
			Path:         mod.URL,
			AcceptedPath: mod.URL,
			Timestamp:    b.now().UnixMilli(),
		}},
	})
	if err != nil {
		b.log.Warn("sending stylesheet update", "error", err)
		return
	}
	b.sent++
	b.state = PendingAck
	b.log.Debug("stylesheet update sent", "url", mod.URL, "bytes", len(res.CSS))
}

// Acknowledge handles a client reporting the byte length of the
// stylesheet it holds. A matching length settles the bridge; any other
// length forces one reconciling flush.
func (b *Bridge) Acknowledge(length int) error {
	b.mu.Lock()
	sent := b.sent
	b.mu.Unlock()

	res, ran, err := b.reconcile(length)
	if err != nil {
		return err
	}
	if ran && res.Changed() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// An update pushed while reconciling is still waiting for its own
	// acknowledgement.
	if b.sent == sent {
		b.state = Idle
	}
	return nil
}

func (b *Bridge) handleAck(data json.RawMessage) {
	var length int
	if err := json.Unmarshal(data, &length); err != nil {
		b.log.Debug("ignoring malformed acknowledgement", "data", string(data), "error", err)
		return
	}
	if err := b.Acknowledge(length); err != nil {
		b.log.Error("reconciling stylesheet", "error", err)
		if b.onError != nil {
			b.onError(err)
		}
	}
}
