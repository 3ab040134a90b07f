package host

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/yacobolo/windsync/internal/logging"
)

// Input is one source module of a build.
type Input struct {
	ID   string
	Code string
}

// BuildOptions configures Bundler.Build.
type BuildOptions struct {
	// Entry names the chunk; the chunk file is Entry + ".js".
	Entry string

	// Imports are specifiers the entry imports that are not source files,
	// e.g. virtual modules. Each is resolved, loaded and transformed.
	Imports []string
}

// Bundle is the output of a build.
type Bundle struct {
	Chunks []*Chunk
	// Assets maps emitted file names to their content.
	Assets map[string]string
}

// Bundler performs a single-chunk production build.
type Bundler struct {
	container *Container
	log       *slog.Logger
}

// NewBundler creates a bundler over plugins rooted at root. The native
// CSS pipeline is always installed.
func NewBundler(root string, plugins []*Plugin, log *slog.Logger) (*Bundler, error) {
	if log == nil {
		log = logging.Logger()
	}
	c, err := NewContainer(ContainerConfig{
		Root:    root,
		Mode:    ModeBuild,
		Plugins: plugins,
		CSS:     NewCSSPipeline(true),
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}
	return &Bundler{container: c, log: log}, nil
}

// Container exposes the plugin container.
func (b *Bundler) Container() *Container {
	return b.container
}

// Build transforms every input, then renders one chunk holding all of
// them. Stylesheet modules do not end up in the chunk code; the css-post
// plugin emits them as an asset.
func (b *Bundler) Build(ctx context.Context, inputs []Input, opts BuildOptions) (*Bundle, error) {
	if err := b.container.BuildStart(ctx); err != nil {
		return nil, err
	}

	entry := opts.Entry
	if entry == "" {
		entry = "index"
	}
	chunk := &Chunk{
		FileName: entry + ".js",
		Modules:  make(map[string]*RenderedModule),
	}

	var code strings.Builder
	add := func(id, src string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := b.container.Transform(ctx, src, id)
		if err != nil {
			return err
		}
		rendered := 0
		if !IsCSS(id) {
			fmt.Fprintf(&code, "// %s\n%s\n", id, out)
			rendered = len(out)
		}
		chunk.Modules[id] = &RenderedModule{OriginalLength: len(src), RenderedLength: rendered}
		return nil
	}

	for _, in := range inputs {
		id := b.container.ResolveID(in.ID)
		if err := add(id, in.Code); err != nil {
			return nil, err
		}
	}
	for _, spec := range opts.Imports {
		id := b.container.ResolveID(spec)
		src, err := b.container.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := add(id, src); err != nil {
			return nil, err
		}
	}
	chunk.Code = code.String()

	if err := b.container.RenderChunk(ctx, chunk); err != nil {
		return nil, err
	}

	bundle := &Bundle{
		Chunks: []*Chunk{chunk},
		Assets: map[string]string{chunk.FileName: chunk.Code},
	}
	for name, src := range chunk.Emitted {
		bundle.Assets[name] = src
	}

	b.log.Debug("build finished", "chunk", chunk.FileName, "modules", len(chunk.Modules), "assets", len(bundle.Assets))
	return bundle, nil
}

// AssetNames returns the asset names in sorted order.
func (bd *Bundle) AssetNames() []string {
	names := make([]string, 0, len(bd.Assets))
	for name := range bd.Assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
