package windsync

import (
	"context"
	"fmt"

	"github.com/yacobolo/windsync/internal/host"
)

// collector feeds every transformed module into the queue.
func (p *Plugin) collector() *host.Plugin {
	return &host.Plugin{
		Name:    CollectorPluginName,
		Enforce: host.EnforcePre,
		ConfigResolved: func(cfg *host.ResolvedConfig) error {
			if cfg.Mode == host.ModeBuild {
				p.queue.Manual()
			}
			return nil
		},
		Transform: host.TransformFunc(func(_ context.Context, code, id string) (*host.TransformResult, error) {
			p.Push(id, code)
			return nil, nil
		}),
	}
}

// hmrSnippet reports the byte length of the stylesheet a client installed.
var hmrSnippet = fmt.Sprintf(
	";\nif (import.meta.hot) import.meta.hot.send(%q, new TextEncoder().encode(%s).length);\n",
	HMREvent, host.CSSModuleVar,
)

// serve provides the virtual module in development and attaches the
// live-update bridge.
func (p *Plugin) serve() *host.Plugin {
	return &host.Plugin{
		Name:    ServePluginName,
		Enforce: host.EnforcePost,
		Apply:   host.ModeServe,
		ConfigureServer: func(srv host.Server) error {
			p.bridge.Attach(srv)
			return nil
		},
		BuildStart: func(context.Context) error {
			p.warm.GenerateCandidates(nil)
			return nil
		},
		ResolveID: resolveVirtual,
		Load: func(_ context.Context, id string) (string, bool, error) {
			if id != VirtualID {
				return "", false, nil
			}
			return p.virtualCSS(), true, nil
		},
		Transform: host.TransformFunc(func(_ context.Context, code, id string) (*host.TransformResult, error) {
			if id != VirtualID {
				return nil, nil
			}
			return &host.TransformResult{Code: code + hmrSnippet}, nil
		}),
	}
}

// build injects the stylesheet into every rendered chunk.
func (p *Plugin) build() *host.Plugin {
	return &host.Plugin{
		Name:    BuildPluginName,
		Enforce: host.EnforcePre,
		Apply:   host.ModeBuild,
		ConfigResolved: func(cfg *host.ResolvedConfig) error {
			p.resolveHooks(cfg)
			return nil
		},
		ResolveID: resolveVirtual,
		Load: func(_ context.Context, id string) (string, bool, error) {
			if id != VirtualID {
				return "", false, nil
			}
			return "", true, nil
		},
		RenderChunk: p.renderChunk,
	}
}
