package windsync

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/windsync/internal/engine"
	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
)

type hookCall struct {
	code string
	id   string
}

// recordingCSSPlugins stand in for a host stylesheet pipeline.
type recordingCSSPlugins struct {
	mu    sync.Mutex
	css   []hookCall
	posts []hookCall
}

func (r *recordingCSSPlugins) plugins() []*host.Plugin {
	return []*host.Plugin{
		{
			Name: host.CSSPluginName,
			Transform: host.TransformFunc(func(_ context.Context, code, id string) (*host.TransformResult, error) {
				if !host.IsCSS(id) {
					return nil, nil
				}
				r.mu.Lock()
				r.css = append(r.css, hookCall{code: code, id: id})
				r.mu.Unlock()
				return &host.TransformResult{Code: "/* processed */" + code}, nil
			}),
		},
		{
			Name: host.CSSPostPluginName,
			Transform: &host.ObjectHook{Handler: func(_ context.Context, code, id string) (*host.TransformResult, error) {
				if !host.IsCSS(id) {
					return nil, nil
				}
				r.mu.Lock()
				r.posts = append(r.posts, hookCall{code: code, id: id})
				r.mu.Unlock()
				return nil, nil
			}},
		},
	}
}

func TestInjector_RenderChunk(t *testing.T) {
	p, gen := newTestPlugin(t)
	pipeline := &recordingCSSPlugins{}
	root := t.TempDir()

	c, err := host.NewContainer(host.ContainerConfig{
		Root:    root,
		Mode:    host.ModeBuild,
		Plugins: append(p.Plugins(), pipeline.plugins()...),
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Transform(ctx, `<div class="text-blue-500">`, "/src/a.html")
	require.NoError(t, err)
	_, err = c.Transform(ctx, `<div class="p-4">`, "/src/b.html")
	require.NoError(t, err)
	assert.Equal(t, 0, gen.callCount())

	chunk := &host.Chunk{FileName: "assets/index.js", Modules: map[string]*host.RenderedModule{}}
	require.NoError(t, c.RenderChunk(ctx, chunk))

	assert.Equal(t, 1, gen.callCount())
	css := p.CSS()
	require.Contains(t, css, ".text-blue-500")
	require.Contains(t, css, ".p-4")

	fakeID := c.Config().Root + "/assets/index.js-windsync.css"
	require.Len(t, pipeline.css, 1)
	assert.Equal(t, hookCall{code: css, id: fakeID}, pipeline.css[0])
	require.Len(t, pipeline.posts, 1)
	assert.Equal(t, hookCall{code: "/* processed */" + css, id: fakeID}, pipeline.posts[0])

	require.Contains(t, chunk.Modules, fakeID)
	assert.True(t, chunk.Modules[fakeID].Synthetic)
	assert.Empty(t, chunk.Emitted)
}

func TestInjector_FallbackWithoutPipeline(t *testing.T) {
	p, _ := newTestPlugin(t)

	c, err := host.NewContainer(host.ContainerConfig{
		Root:    t.TempDir(),
		Mode:    host.ModeBuild,
		Plugins: p.Plugins(),
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Transform(ctx, `<div class="text-red-500">`, "/src/a.html")
	require.NoError(t, err)

	chunk := &host.Chunk{FileName: "index.js"}
	require.NoError(t, c.RenderChunk(ctx, chunk))

	assert.Equal(t, map[string]string{"index.css": ".text-red-500 {\n  color: #ef4444;\n}\n"}, chunk.Emitted)
	assert.Len(t, chunk.Modules, 1)
}

func TestInjector_EngineErrorFailsBuild(t *testing.T) {
	p := newPlugin(Options{Debounce: -1, Logger: logging.Discard()}, failingGenerator{}, nopWarmer{})

	c, err := host.NewContainer(host.ContainerConfig{
		Root:    t.TempDir(),
		Mode:    host.ModeBuild,
		Plugins: p.Plugins(),
		CSS:     host.NewCSSPipeline(true),
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Transform(ctx, `<div class="p-4">`, "/src/a.html")
	require.NoError(t, err)

	err = c.RenderChunk(ctx, &host.Chunk{FileName: "index.js"})
	require.ErrorIs(t, err, errEngineDown)
}

func TestBuild_EndToEnd(t *testing.T) {
	p, err := New(Options{
		Engine: engine.Options{Config: engine.NoConfig()},
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	defer p.Close()

	b, err := host.NewBundler(t.TempDir(), p.Plugins(), logging.Discard())
	require.NoError(t, err)

	bundle, err := b.Build(context.Background(), []host.Input{
		{ID: "/src/index.html", Code: `<div class="text-blue-500 md:p-4">Hello World</div>`},
		{ID: "/src/main.js", Code: `import "windsync.css"`},
	}, host.BuildOptions{Imports: []string{ImportSpecifier}})
	require.NoError(t, err)

	assert.Equal(t, []string{"index.css", "index.js"}, bundle.AssetNames())
	assert.Equal(t,
		".text-blue-500{color:#3b82f6}@media (min-width:768px){.md\\:p-4{padding:1rem}}",
		bundle.Assets["index.css"])
	assert.NotContains(t, bundle.Assets["index.js"], Placeholder)
}
