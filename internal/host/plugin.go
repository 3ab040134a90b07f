// Package host is a small bundler host: a plugin container with
// resolve/load/transform/render hooks, a module graph, a native CSS
// pipeline and a single-chunk production bundler.
package host

import (
	"context"
	"errors"
)

// Enforce places a plugin before or after the normal plugins.
type Enforce string

const (
	EnforceNormal Enforce = ""
	EnforcePre    Enforce = "pre"
	EnforcePost   Enforce = "post"
)

// Mode is the kind of pass the host is running.
type Mode string

const (
	ModeServe Mode = "serve"
	ModeBuild Mode = "build"
)

// ErrPluginNotFound is returned by FindPlugin.
var ErrPluginNotFound = errors.New("plugin not found")

// TransformResult replaces the code of a module. A nil result passes the
// input through unchanged.
type TransformResult struct {
	Code string
}

// TransformFunc is the normalized transform hook.
type TransformFunc func(ctx context.Context, code, id string) (*TransformResult, error)

// ObjectHook is the object form of a hook, carrying an ordering hint next
// to the handler.
type ObjectHook struct {
	Order   Enforce
	Handler TransformFunc
}

// Plugin is a set of optional hooks. Transform may be a TransformFunc, a
// plain func with the same signature, an ObjectHook or a *ObjectHook; use
// TransformHandler to obtain a callable.
type Plugin struct {
	Name    string
	Enforce Enforce
	Apply   Mode // "" applies to both passes

	ConfigResolved  func(cfg *ResolvedConfig) error
	ConfigureServer func(srv Server) error
	BuildStart      func(ctx context.Context) error
	ResolveID       func(id string) (string, bool)
	Load            func(ctx context.Context, id string) (string, bool, error)
	Transform       any
	RenderChunk     func(ctx context.Context, code string, chunk *Chunk) error
}

// AppliesTo reports whether p runs in mode.
func (p *Plugin) AppliesTo(mode Mode) bool {
	return p.Apply == "" || p.Apply == mode
}

// TransformHandler normalizes the shapes a transform hook may take. It
// returns nil when there is no usable handler.
func TransformHandler(hook any) TransformFunc {
	switch h := hook.(type) {
	case TransformFunc:
		return h
	case func(context.Context, string, string) (*TransformResult, error):
		return h
	case ObjectHook:
		return h.Handler
	case *ObjectHook:
		if h == nil {
			return nil
		}
		return h.Handler
	default:
		return nil
	}
}

// ResolvedConfig is handed to ConfigResolved hooks once the plugin list is
// final.
type ResolvedConfig struct {
	Root    string
	Mode    Mode
	Plugins []*Plugin // in execution order
}

// FindPlugin looks up a plugin by name.
func (c *ResolvedConfig) FindPlugin(name string) (*Plugin, error) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, ErrPluginNotFound
}

// RenderedModule is a module entry of a chunk.
type RenderedModule struct {
	OriginalLength int
	RenderedLength int
	Synthetic      bool // registered by a plugin, not produced by the module pass
}

// Chunk is one output unit of a build.
type Chunk struct {
	FileName string
	Code     string
	Modules  map[string]*RenderedModule
	Emitted  map[string]string // asset file name to content
}

// Emit attaches an asset to the chunk's output.
func (c *Chunk) Emit(name, source string) {
	if c.Emitted == nil {
		c.Emitted = make(map[string]string)
	}
	c.Emitted[name] = source
}
