package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yacobolo/windsync/internal/logging"
)

// ContainerConfig configures a Container.
type ContainerConfig struct {
	Root    string
	Mode    Mode
	Plugins []*Plugin

	// CSS is the native CSS pipeline. Nil runs without one.
	CSS *CSSPipeline

	Logger *slog.Logger
}

// Container runs plugin hooks in order: pre plugins, the native css
// plugin, normal plugins, the native css-post plugin, post plugins.
// Plugins whose Apply does not match the mode are left out.
type Container struct {
	cfg        *ResolvedConfig
	transforms []namedTransform
	log        *slog.Logger
}

type namedTransform struct {
	name string
	fn   TransformFunc
}

// NewContainer orders plugins and runs their ConfigResolved hooks.
func NewContainer(cc ContainerConfig) (*Container, error) {
	log := cc.Logger
	if log == nil {
		log = logging.Logger()
	}
	root := cc.Root
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	var pre, normal, post []*Plugin
	for _, p := range cc.Plugins {
		if p == nil || !p.AppliesTo(cc.Mode) {
			continue
		}
		switch p.Enforce {
		case EnforcePre:
			pre = append(pre, p)
		case EnforcePost:
			post = append(post, p)
		default:
			normal = append(normal, p)
		}
	}

	ordered := append([]*Plugin{}, pre...)
	if cc.CSS != nil {
		ordered = append(ordered, cc.CSS.plugin())
	}
	ordered = append(ordered, normal...)
	if cc.CSS != nil {
		ordered = append(ordered, cc.CSS.postPlugin())
	}
	ordered = append(ordered, post...)

	c := &Container{
		cfg: &ResolvedConfig{Root: root, Mode: cc.Mode, Plugins: ordered},
		log: log,
	}
	for _, p := range ordered {
		if fn := TransformHandler(p.Transform); fn != nil {
			c.transforms = append(c.transforms, namedTransform{name: p.Name, fn: fn})
		}
	}

	for _, p := range ordered {
		if p.ConfigResolved == nil {
			continue
		}
		if err := p.ConfigResolved(c.cfg); err != nil {
			return nil, fmt.Errorf("plugin %s: config resolved: %w", p.Name, err)
		}
	}
	return c, nil
}

// Config returns the resolved configuration.
func (c *Container) Config() *ResolvedConfig {
	return c.cfg
}

// ConfigureServer hands the server to every plugin that asks for it.
func (c *Container) ConfigureServer(srv Server) error {
	for _, p := range c.cfg.Plugins {
		if p.ConfigureServer == nil {
			continue
		}
		if err := p.ConfigureServer(srv); err != nil {
			return fmt.Errorf("plugin %s: configure server: %w", p.Name, err)
		}
	}
	return nil
}

// BuildStart runs the BuildStart hooks.
func (c *Container) BuildStart(ctx context.Context) error {
	for _, p := range c.cfg.Plugins {
		if p.BuildStart == nil {
			continue
		}
		if err := p.BuildStart(ctx); err != nil {
			return fmt.Errorf("plugin %s: build start: %w", p.Name, err)
		}
	}
	return nil
}

// ResolveID returns the first plugin resolution of id, or id itself.
func (c *Container) ResolveID(id string) string {
	for _, p := range c.cfg.Plugins {
		if p.ResolveID == nil {
			continue
		}
		if resolved, ok := p.ResolveID(id); ok {
			return resolved
		}
	}
	return id
}

// Load returns the first plugin-provided content for id. Without one it
// reads the file under the root.
func (c *Container) Load(ctx context.Context, id string) (string, error) {
	for _, p := range c.cfg.Plugins {
		if p.Load == nil {
			continue
		}
		code, ok, err := p.Load(ctx, id)
		if err != nil {
			return "", fmt.Errorf("plugin %s: load %s: %w", p.Name, id, err)
		}
		if ok {
			return code, nil
		}
	}

	path := cleanID(id)
	if !filepath.IsAbs(path) || !strings.HasPrefix(path, c.cfg.Root) {
		path = filepath.Join(c.cfg.Root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", id, err)
	}
	return string(data), nil
}

// Transform runs code through every transform hook in order.
func (c *Container) Transform(ctx context.Context, code, id string) (string, error) {
	for _, t := range c.transforms {
		res, err := t.fn(ctx, code, id)
		if err != nil {
			return "", fmt.Errorf("plugin %s: transform %s: %w", t.name, id, err)
		}
		if res != nil {
			code = res.Code
		}
	}
	return code, nil
}

// RenderChunk runs the RenderChunk hooks over chunk.
func (c *Container) RenderChunk(ctx context.Context, chunk *Chunk) error {
	for _, p := range c.cfg.Plugins {
		if p.RenderChunk == nil {
			continue
		}
		if err := p.RenderChunk(ctx, chunk.Code, chunk); err != nil {
			return fmt.Errorf("plugin %s: render chunk %s: %w", p.Name, chunk.FileName, err)
		}
	}
	return nil
}

// cleanID strips the query part of a module id.
func cleanID(id string) string {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		return id[:i]
	}
	return id
}

// IsCSS reports whether id names a stylesheet module.
func IsCSS(id string) bool {
	return strings.HasSuffix(cleanID(id), ".css")
}
