// Package queue collects module contents and decides when the generation
// engine runs.
//
// A Queue owns the content store, the last generated stylesheet and, in
// development, a debounced flush timer. Push records content; Flush feeds
// everything pending to the engine in one call.
package queue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yacobolo/windsync/internal/engine"
	"github.com/yacobolo/windsync/internal/logging"
)

// DefaultDebounce is the quiet period before an automatic flush.
const DefaultDebounce = 10 * time.Millisecond

// Generator is the generation adapter consumed by the queue.
type Generator interface {
	Generate(entries []engine.Entry) (engine.Result, error)
}

// FlushResult describes a flush that reached the engine.
type FlushResult struct {
	Kind engine.ResultKind
	CSS  string
	// Stale is set when the caller reported holding output whose length
	// differs from CSS, so the caller must be brought up to date even when
	// Kind is Cached.
	Stale bool
}

// Changed reports whether the result must be propagated to clients.
func (r FlushResult) Changed() bool {
	return r.Kind == engine.Generated || r.Stale
}

// Options configures a Queue.
type Options struct {
	// Debounce is the quiet period before an automatic flush. Zero means
	// DefaultDebounce; a negative value disables automatic flushing.
	Debounce time.Duration

	// AfterFunc overrides the timer primitive, mainly for tests.
	AfterFunc AfterFunc

	// OnFlush is called after every flush that ran the engine, outside of
	// the queue lock.
	OnFlush func(FlushResult)

	// OnError receives errors from timer-triggered flushes, which have no
	// caller to return them to.
	OnError func(error)

	// Placeholder is what clients are served before the first generated
	// stylesheet. Reported lengths are compared against it while the
	// output is empty.
	Placeholder string

	Logger *slog.Logger
}

// Queue is the per-plugin pipeline state.
type Queue struct {
	mu    sync.Mutex
	gen   Generator
	store *Store
	css   string

	// placeholder stands in for css while css is empty.
	placeholder string

	debouncer *Debouncer
	manual    bool
	onFlush   func(FlushResult)
	onError   func(error)
	log       *slog.Logger
}

// New creates a Queue feeding gen.
func New(gen Generator, opts Options) *Queue {
	q := &Queue{
		gen:         gen,
		store:       NewStore(),
		placeholder: opts.Placeholder,
		onFlush:     opts.OnFlush,
		onError:     opts.OnError,
		log:         opts.Logger,
	}
	if q.log == nil {
		q.log = logging.Logger()
	}

	if opts.Debounce >= 0 {
		delay := opts.Debounce
		if delay == 0 {
			delay = DefaultDebounce
		}
		q.debouncer = NewDebouncer(delay, q.flushFromTimer, opts.AfterFunc)
	}
	return q
}

// Push records the text of a module. Unchanged text is ignored; otherwise
// the debounce timer is re-armed. It reports whether the store changed.
func (q *Queue) Push(id, text string) bool {
	q.mu.Lock()
	changed := q.store.Set(id, text)
	arm := changed && !q.manual && q.debouncer != nil
	q.mu.Unlock()

	if arm {
		q.debouncer.Arm()
	}
	return changed
}

// Manual turns automatic flushing off for good. Only Flush and Reconcile
// run the engine afterwards.
func (q *Queue) Manual() {
	q.mu.Lock()
	q.manual = true
	q.mu.Unlock()
	q.Stop()
}

// Flush runs the engine if anything is pending. ran is false when it was a
// no-op.
func (q *Queue) Flush() (res FlushResult, ran bool, err error) {
	return q.flush(-1)
}

// Reconcile is Flush for a client that reports holding output of the given
// byte length. A length different from what clients are served, the
// current output or the placeholder before it, forces a run.
func (q *Queue) Reconcile(length int) (res FlushResult, ran bool, err error) {
	if length < 0 {
		length = 0
	}
	return q.flush(length)
}

// CSS returns the last generated stylesheet, "" before the first one.
func (q *Queue) CSS() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.css
}

// Pending is the number of modules waiting for the next flush.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Len()
}

// Forget drops a module, e.g. after its file was deleted.
func (q *Queue) Forget(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.store.Forget(id)
}

// Stop cancels a pending automatic flush.
func (q *Queue) Stop() {
	if q.debouncer != nil {
		q.debouncer.Cancel()
	}
}

// flush holds the lock across the engine call so two flushes never
// overlap. hint < 0 means no length was reported.
func (q *Queue) flush(hint int) (FlushResult, bool, error) {
	if q.debouncer != nil {
		q.debouncer.Cancel()
	}

	q.mu.Lock()
	if q.store.Len() == 0 && (hint < 0 || hint == q.servedLenLocked()) {
		q.mu.Unlock()
		return FlushResult{}, false, nil
	}

	entries := q.store.Entries()
	res, err := q.gen.Generate(entries)
	if err != nil {
		q.mu.Unlock()
		return FlushResult{}, false, err
	}
	if res.Kind == engine.Generated {
		q.css = res.CSS
	}
	q.store.Clear()

	out := FlushResult{
		Kind:  res.Kind,
		CSS:   q.css,
		Stale: hint >= 0 && hint != q.servedLenLocked(),
	}
	q.mu.Unlock()

	q.log.Debug("flushed content queue", "modules", len(entries), "kind", res.Kind.String(), "bytes", len(out.CSS))

	if q.onFlush != nil {
		q.onFlush(out)
	}
	return out, true, nil
}

// servedLenLocked is the byte length of the text clients load.
func (q *Queue) servedLenLocked() int {
	if q.css == "" {
		return len(q.placeholder)
	}
	return len(q.css)
}

func (q *Queue) flushFromTimer() {
	if _, _, err := q.flush(-1); err != nil {
		q.log.Error("scheduled flush failed", "error", err)
		if q.onError != nil {
			q.onError(err)
		}
	}
}
