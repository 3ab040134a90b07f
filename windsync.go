// Package windsync connects the utility CSS engine to a bundler host.
//
// It collects the text of every module the host transforms, regenerates
// the stylesheet after a short quiet period, and serves it as a virtual
// module. Importing "windsync.css" from application code is all that is
// needed:
//
//	ws, err := windsync.New(windsync.Options{
//		Engine: engine.Options{Base: "."},
//	})
//	if err != nil {
//		return err
//	}
//	defer ws.Close()
//
//	bundler, err := host.NewBundler(".", ws.Plugins(), nil)
//
// # Development
//
// During development every regeneration invalidates the virtual module and
// notifies connected clients. A client reports back the length of the
// stylesheet it holds; a mismatch triggers a reconciling flush.
//
// # Build
//
// In a build no timers run. When the host renders a chunk the pending
// modules are flushed once and the stylesheet is run through the host's
// own CSS plugins, so it is minified and emitted like any authored
// stylesheet.
package windsync

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yacobolo/windsync/internal/engine"
	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
	"github.com/yacobolo/windsync/internal/queue"
)

const (
	// ImportSpecifier is what application code imports.
	ImportSpecifier = "windsync.css"
	// VirtualID is the internal id of the generated stylesheet.
	VirtualID = "/__windsync.css"
	// Placeholder is served before the first generation.
	Placeholder = "@windsync-base;"
	// HMREvent is the client acknowledgement event.
	HMREvent = "windsync:hmr"

	chunkSuffix = "-windsync.css"
)

// Plugin names.
const (
	CollectorPluginName = "windsync:content-collector"
	ServePluginName     = "windsync:serve"
	BuildPluginName     = "windsync:build"
)

// Options configures a Plugin.
type Options struct {
	// Engine is passed to the generation engine unchanged.
	Engine engine.Options

	// Debounce overrides the quiet period before a development flush.
	Debounce time.Duration

	// CSSPlugin and CSSPostPlugin name the host's stylesheet plugins used
	// by the build injector. They default to the host's native names.
	CSSPlugin     string
	CSSPostPlugin string

	// OnError receives errors that have no caller, from scheduled flushes
	// and from client acknowledgements.
	OnError func(error)

	Logger *slog.Logger

	// Now is the clock used for update timestamps.
	Now func() time.Time
}

type warmer interface {
	GenerateCandidates(candidates []string) engine.Result
}

// Plugin is one instance of the integration. Its state is never shared
// with other instances.
type Plugin struct {
	opts   Options
	gen    queue.Generator
	warm   warmer
	queue  *queue.Queue
	bridge *Bridge
	log    *slog.Logger

	mu            sync.Mutex
	root          string
	cssTransform  host.TransformFunc
	postTransform host.TransformFunc
}

// New creates the engine and the content queue. Configuration errors are
// returned here.
func New(opts Options) (*Plugin, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Logger()
	}
	if opts.Engine.Logger == nil {
		opts.Engine.Logger = opts.Logger
	}

	gen, err := engine.New(opts.Engine)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	return newPlugin(opts, gen, gen), nil
}

func newPlugin(opts Options, gen queue.Generator, warm warmer) *Plugin {
	if opts.Logger == nil {
		opts.Logger = logging.Logger()
	}
	if opts.CSSPlugin == "" {
		opts.CSSPlugin = host.CSSPluginName
	}
	if opts.CSSPostPlugin == "" {
		opts.CSSPostPlugin = host.CSSPostPluginName
	}

	p := &Plugin{
		opts: opts,
		gen:  gen,
		warm: warm,
		log:  opts.Logger,
	}
	p.bridge = NewBridge(func(length int) (queue.FlushResult, bool, error) {
		return p.queue.Reconcile(length)
	}, BridgeOptions{Logger: opts.Logger, Now: opts.Now, OnError: opts.OnError})

	p.queue = queue.New(gen, queue.Options{
		Debounce:    opts.Debounce,
		OnFlush:     p.bridge.Notify,
		OnError:     opts.OnError,
		Logger:      opts.Logger,
		Placeholder: Placeholder,
	})
	return p
}

// Plugins returns the host plugins of this instance.
func (p *Plugin) Plugins() []*host.Plugin {
	return []*host.Plugin{p.collector(), p.serve(), p.build()}
}

// Flush regenerates the stylesheet from everything pending.
func (p *Plugin) Flush() (queue.FlushResult, bool, error) {
	return p.queue.Flush()
}

// Push records module text as the collector would.
func (p *Plugin) Push(id, text string) bool {
	if id == VirtualID {
		return false
	}
	return p.queue.Push(id, text)
}

// Forget drops a module from the pending set.
func (p *Plugin) Forget(id string) {
	p.queue.Forget(id)
}

// CSS returns the current stylesheet, "" before the first generation.
func (p *Plugin) CSS() string {
	return p.queue.CSS()
}

// Bridge returns the live-update bridge.
func (p *Plugin) Bridge() *Bridge {
	return p.bridge
}

// Close stops pending timers.
func (p *Plugin) Close() {
	p.queue.Stop()
}

// virtualCSS is what the virtual module loads to.
func (p *Plugin) virtualCSS() string {
	if css := p.queue.CSS(); css != "" {
		return css
	}
	return Placeholder
}

func resolveVirtual(id string) (string, bool) {
	if id == ImportSpecifier {
		return VirtualID, true
	}
	return "", false
}
