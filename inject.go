package windsync

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/yacobolo/windsync/internal/host"
)

func (p *Plugin) resolveHooks(cfg *host.ResolvedConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.root = strings.TrimSuffix(cfg.Root, "/")
	p.cssTransform, p.postTransform = nil, nil

	if css, err := cfg.FindPlugin(p.opts.CSSPlugin); err == nil {
		p.cssTransform = host.TransformHandler(css.Transform)
	}
	if post, err := cfg.FindPlugin(p.opts.CSSPostPlugin); err == nil {
		p.postTransform = host.TransformHandler(post.Transform)
	}
	if p.cssTransform == nil || p.postTransform == nil {
		p.log.Warn("host css pipeline not found, stylesheets will be emitted untransformed",
			"css", p.opts.CSSPlugin, "cssPost", p.opts.CSSPostPlugin)
	}
}

// chunkCSSID addresses the stylesheet of one chunk.
func (p *Plugin) chunkCSSID(chunk *host.Chunk) string {
	return p.root + "/" + chunk.FileName + chunkSuffix
}

// renderChunk flushes once, runs the result through the host's css and
// css-post transforms and registers it as a module of the chunk.
func (p *Plugin) renderChunk(ctx context.Context, _ string, chunk *host.Chunk) error {
	if _, _, err := p.queue.Flush(); err != nil {
		return fmt.Errorf("generating stylesheet for %s: %w", chunk.FileName, err)
	}

	p.mu.Lock()
	cssFn, postFn := p.cssTransform, p.postTransform
	id := p.chunkCSSID(chunk)
	p.mu.Unlock()

	css := p.queue.CSS()
	out := css
	if cssFn != nil {
		res, err := cssFn(ctx, css, id)
		if err != nil {
			return fmt.Errorf("transforming %s: %w", id, err)
		}
		if res != nil && res.Code != "" {
			out = res.Code
		}
	}

	if chunk.Modules == nil {
		chunk.Modules = make(map[string]*host.RenderedModule)
	}
	chunk.Modules[id] = &host.RenderedModule{Synthetic: true}

	if postFn != nil {
		if _, err := postFn(ctx, out, id); err != nil {
			return fmt.Errorf("post-processing %s: %w", id, err)
		}
		return nil
	}

	name := strings.TrimSuffix(chunk.FileName, path.Ext(chunk.FileName)) + ".css"
	p.log.Warn("emitting untransformed stylesheet", "chunk", chunk.FileName, "asset", name)
	chunk.Emit(name, out)
	return nil
}
