package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/yacobolo/windsync/internal/engine"
)

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeTimers is a manual AfterFunc.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) after(_ time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{f: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) active() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	n := 0
	for _, t := range ft.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fireAll runs every timer that is neither stopped nor fired.
func (ft *fakeTimers) fireAll() {
	ft.mu.Lock()
	var due []*fakeTimer
	for _, t := range ft.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	ft.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// recordingGenerator concatenates entry texts and reports Generated when
// the output changes.
type recordingGenerator struct {
	mu    sync.Mutex
	calls [][]engine.Entry
	css   string
	err   error
}

func (g *recordingGenerator) Generate(entries []engine.Entry) (engine.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, entries)
	if g.err != nil {
		return engine.Result{}, g.err
	}

	next := g.css
	for _, e := range entries {
		next += e.Text
	}
	if next == g.css {
		return engine.Result{CSS: g.css, Kind: engine.Cached}, nil
	}
	g.css = next
	return engine.Result{CSS: g.css, Kind: engine.Generated}, nil
}

func (g *recordingGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

var errEngine = errors.New("engine exploded")
