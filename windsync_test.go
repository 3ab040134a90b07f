package windsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/windsync/internal/engine"
	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
)

func serveContainer(t *testing.T, p *Plugin) *host.Container {
	t.Helper()
	c, err := host.NewContainer(host.ContainerConfig{
		Root:    t.TempDir(),
		Mode:    host.ModeServe,
		Plugins: p.Plugins(),
		CSS:     host.NewCSSPipeline(false),
		Logger:  logging.Discard(),
	})
	require.NoError(t, err)
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Options{
		Engine: engine.Options{Config: engine.ConfigFile("does-not-exist.yaml")},
		Logger: logging.Discard(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating generator")
}

func TestPlugin_GeneratesForCollectedModule(t *testing.T) {
	p, gen := newTestPlugin(t)
	c := serveContainer(t, p)

	_, err := c.Transform(context.Background(), `<div class="text-blue-500">Hello World</div>`, "/src/index.html")
	require.NoError(t, err)

	res, ran, err := p.Flush()
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, engine.Generated, res.Kind)
	assert.Contains(t, res.CSS, ".text-blue-500 {\n  color: #3b82f6;\n}")
	assert.Equal(t, 1, gen.callCount())
}

func TestPlugin_EmptyFlushesNeverReachEngine(t *testing.T) {
	p, gen := newTestPlugin(t)

	for range 2 {
		_, ran, err := p.Flush()
		require.NoError(t, err)
		assert.False(t, ran)
	}
	assert.Equal(t, 0, gen.callCount())
}

func TestPlugin_CollectorSkipsVirtualModule(t *testing.T) {
	p, _ := newTestPlugin(t)
	c := serveContainer(t, p)

	_, err := c.Transform(context.Background(), ".x{}", VirtualID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.queue.Pending())
}

func TestPlugin_VirtualModule(t *testing.T) {
	p, _ := newTestPlugin(t)
	c := serveContainer(t, p)
	ctx := context.Background()

	assert.Equal(t, VirtualID, c.ResolveID(ImportSpecifier))
	assert.Equal(t, "/src/main.js", c.ResolveID("/src/main.js"))

	code, err := c.Load(ctx, VirtualID)
	require.NoError(t, err)
	assert.Equal(t, Placeholder, code)

	out, err := c.Transform(ctx, code, VirtualID)
	require.NoError(t, err)
	assert.Contains(t, out, `"@windsync-base;"`)
	assert.Contains(t, out, `import.meta.hot.send("windsync:hmr", new TextEncoder().encode(`+host.CSSModuleVar+`).length)`)

	p.Push("/src/index.html", `<p class="p-4">`)
	_, _, err = p.Flush()
	require.NoError(t, err)

	code, err = c.Load(ctx, VirtualID)
	require.NoError(t, err)
	assert.Equal(t, ".p-4 {\n  padding: 1rem;\n}\n", code)
}

func TestPlugin_SnippetOnlyOnVirtualModule(t *testing.T) {
	p, _ := newTestPlugin(t)
	c := serveContainer(t, p)

	out, err := c.Transform(context.Background(), "export const a = 1", "/src/main.js")
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1", out)

	out, err = c.Transform(context.Background(), ".a{color:red}", "/src/app.css")
	require.NoError(t, err)
	assert.NotContains(t, out, HMREvent)
}

func TestPlugin_BuildStartWarmsEngine(t *testing.T) {
	p, gen := newTestPlugin(t)
	c := serveContainer(t, p)

	require.NoError(t, c.BuildStart(context.Background()))
	assert.Equal(t, 1, gen.warmups)
	assert.Equal(t, 0, gen.callCount())
}

func TestPlugin_ServeModeUsesOnlyServePlugins(t *testing.T) {
	p, _ := newTestPlugin(t)
	c := serveContainer(t, p)

	_, err := c.Config().FindPlugin(BuildPluginName)
	assert.ErrorIs(t, err, host.ErrPluginNotFound)
	_, err = c.Config().FindPlugin(ServePluginName)
	assert.NoError(t, err)
}
