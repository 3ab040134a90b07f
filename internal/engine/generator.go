// Package engine turns source text into utility CSS.
//
// A Generator extracts class candidates from source units, resolves them
// against a theme and a set of utilities, and emits a stylesheet. In the
// default accumulating mode every call adds to the stylesheet produced so
// far and reports Cached when nothing new was found.
package engine

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yacobolo/windsync/internal/logging"
)

const (
	extractionCacheSize = 4096
	invalidCacheSize    = 16384
)

type extraction struct {
	sum        [sha256.Size]byte
	candidates []string
}

// Generator is the generation engine. It is safe for concurrent use;
// calls are serialized.
type Generator struct {
	mu sync.Mutex

	opts   Options
	design *designSystem
	log    *slog.Logger

	extracted *lru.Cache[string, extraction]
	invalid   *lru.Cache[string, struct{}]

	rules map[string]*rule // accumulated utilities by candidate
	css   string
}

// New builds a Generator. Configuration problems are reported here, never
// later at generation time.
func New(opts Options) (*Generator, error) {
	cfg, err := resolveConfig(opts.Base, opts.Config)
	if err != nil {
		return nil, err
	}

	extracted, err := lru.New[string, extraction](extractionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating extraction cache: %w", err)
	}
	invalid, err := lru.New[string, struct{}](invalidCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating candidate cache: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Logger()
	}

	return &Generator{
		opts:      opts,
		design:    newDesignSystem(cfg),
		log:       log,
		extracted: extracted,
		invalid:   invalid,
		rules:     make(map[string]*rule),
	}, nil
}

// Generate extracts candidates from entries and generates CSS for them.
func (g *Generator) Generate(entries []Entry) (Result, error) {
	for i, e := range entries {
		if e.ID == "" {
			return Result{}, fmt.Errorf("entry %d: empty module id", i)
		}
	}

	lists := make([][]string, len(entries))
	if g.opts.Parallel && len(entries) > 1 {
		var eg errgroup.Group
		eg.SetLimit(runtime.NumCPU())
		for i, e := range entries {
			eg.Go(func() error {
				lists[i] = g.candidatesOf(e)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return Result{}, fmt.Errorf("extracting candidates: %w", err)
		}
	} else {
		for i, e := range entries {
			lists[i] = g.candidatesOf(e)
		}
	}

	var candidates []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				candidates = append(candidates, c)
			}
		}
	}

	return g.GenerateCandidates(candidates), nil
}

// GenerateString generates CSS for a raw text of the given kind
// ("html", "ecma" or anything else for the basic splitter).
func (g *Generator) GenerateString(text, kind string) Result {
	return g.GenerateCandidates(extract(text, ParseInputKind(kind)))
}

// GenerateCandidates generates CSS for already extracted candidates. An
// empty slice is a cheap way to initialize the engine.
func (g *Generator) GenerateCandidates(candidates []string) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	var fresh []*rule
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		if _, ok := g.rules[c]; ok {
			continue
		}
		if g.invalid.Contains(c) {
			continue
		}
		r, ok := g.design.generate(c)
		if !ok {
			g.invalid.Add(c, struct{}{})
			continue
		}
		fresh = append(fresh, r)
	}

	g.log.Debug("utilities generated", "new", len(fresh), "candidates", len(candidates))

	if g.opts.OneShot {
		if len(fresh) == 0 {
			return Result{CSS: "", Kind: Cached}
		}
		return Result{CSS: writeRules(fresh), Kind: Generated}
	}

	if len(fresh) == 0 {
		return Result{CSS: g.css, Kind: Cached}
	}

	for _, r := range fresh {
		g.rules[r.raw] = r
	}
	all := make([]*rule, 0, len(g.rules))
	for _, r := range g.rules {
		all = append(all, r)
	}
	g.css = writeRules(all)

	return Result{CSS: g.css, Kind: Generated}
}

// CSS returns the accumulated stylesheet.
func (g *Generator) CSS() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.css
}

// candidatesOf extracts the candidates of one entry, reusing the previous
// extraction when the text did not change.
func (g *Generator) candidatesOf(e Entry) []string {
	sum := sha256.Sum256([]byte(e.Text))
	if prev, ok := g.extracted.Get(e.ID); ok && prev.sum == sum {
		return prev.candidates
	}
	candidates := extract(e.Text, KindOf(e.ID))
	g.extracted.Add(e.ID, extraction{sum: sum, candidates: candidates})
	return candidates
}

// writeRules sorts rules into cascade order and prints them.
func writeRules(rules []*rule) string {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		if a.variantOrder != b.variantOrder {
			return a.variantOrder < b.variantOrder
		}
		if a.utilityOrder != b.utilityOrder {
			return a.utilityOrder < b.utilityOrder
		}
		return a.raw < b.raw
	})

	var b strings.Builder
	for _, r := range rules {
		writeRule(&b, r)
	}
	return b.String()
}

func writeRule(b *strings.Builder, r *rule) {
	for depth, at := range r.atRules {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(at)
		b.WriteString(" {\n")
	}

	indent := strings.Repeat("  ", len(r.atRules))
	b.WriteString(indent)
	b.WriteString(r.selector)
	b.WriteString(" {\n")
	for _, dl := range r.decls {
		fmt.Fprintf(b, "%s  %s: %s;\n", indent, dl.prop, dl.value)
	}
	b.WriteString(indent)
	b.WriteString("}\n")

	for depth := len(r.atRules) - 1; depth >= 0; depth-- {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString("}\n")
	}
}
