// Package devserver serves a project during development: modules go
// through the plugin container on request and changes reach the browser
// over a websocket hot channel.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Config configures a Server.
type Config struct {
	Root    string
	Addr    string
	Plugins []*host.Plugin
	Logger  *slog.Logger
}

// Server is the development server. It implements host.Server.
type Server struct {
	container *host.Container
	graph     *host.Graph
	hub       *Hub
	root      string
	addr      string
	log       *slog.Logger
}

// New resolves the plugins in serve mode, hands them the server and runs
// their BuildStart hooks.
func New(ctx context.Context, cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Logger()
	}

	container, err := host.NewContainer(host.ContainerConfig{
		Root:    cfg.Root,
		Mode:    host.ModeServe,
		Plugins: cfg.Plugins,
		CSS:     host.NewCSSPipeline(false),
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		container: container,
		graph:     host.NewGraph(),
		hub:       NewHub(log),
		root:      container.Config().Root,
		addr:      cfg.Addr,
		log:       log,
	}
	if err := container.ConfigureServer(s); err != nil {
		return nil, err
	}
	if err := container.BuildStart(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ModuleGraph implements host.Server.
func (s *Server) ModuleGraph() host.ModuleGraph { return s.graph }

// Hot implements host.Server.
func (s *Server) Hot() host.HotChannel { return s.hub }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(ClientPath, s.handleClient)
	mux.Handle(HotPath, s.hub)
	mux.HandleFunc(ModulePath, s.handleModule)
	mux.HandleFunc("/", s.handleFile)
	return h2c.NewHandler(cors(mux), &http2.Server{})
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dev server listening", "addr", s.addr, "root", s.root)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down dev server: %w", err)
	}
	return nil
}

// Update feeds a changed source file through the transform chain. A module
// clients already loaded is invalidated and reloaded; a changed page
// reloads the browser.
func (s *Server) Update(ctx context.Context, id, code string) error {
	if _, err := s.container.Transform(ctx, code, id); err != nil {
		return err
	}

	node, ok := s.graph.ModuleByID(id)
	switch {
	case ok:
		s.graph.InvalidateModule(node)
		return s.hub.Send(host.Payload{
			Type: host.PayloadUpdate,
			Updates: []host.Update{{
				Type:         host.UpdateJS,
				Path:         node.URL,
				AcceptedPath: node.URL,
				Timestamp:    time.Now().UnixMilli(),
			}},
		})
	case isPage(id):
		return s.hub.Send(host.Payload{Type: host.PayloadFullReload})
	}
	return nil
}

// ModuleURL is the URL a module id is served under.
func ModuleURL(id string) string {
	return ModulePath + strings.TrimPrefix(id, "/")
}

func (s *Server) handleClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write([]byte(clientScript))
}

// handleModule serves /@id/<specifier> through resolve, load and
// transform, caching the result in the module graph.
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, ModulePath)
	if raw == "" {
		http.NotFound(w, r)
		return
	}
	id := s.container.ResolveID(raw)
	if id == raw {
		id = s.container.ResolveID("/" + raw)
	}

	code, ok := s.graph.Cached(id)
	if !ok {
		loaded, err := s.container.Load(r.Context(), id)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			s.log.Error("loading module", "id", id, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		code, err = s.container.Transform(r.Context(), loaded, id)
		if err != nil {
			s.log.Error("transforming module", "id", id, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.graph.Store(id, ModuleURL(id), code)
	}

	w.Header().Set("Cache-Control", "no-cache")
	if isScript(id) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		code = hotPrelude + code
	} else if ct := mime.TypeByExtension(path.Ext(id)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = w.Write([]byte(code))
}

// handleFile serves files under the root. Pages pass through the
// transform chain and get the client script injected.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	rel := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(rel, "/") || rel == "/" {
		rel = path.Join(rel, "index.html")
	}
	file := filepath.Join(s.root, filepath.FromSlash(rel))

	if !isPage(rel) {
		http.ServeFile(w, r, file)
		return
	}

	data, err := os.ReadFile(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	code, err := s.container.Transform(r.Context(), string(data), rel)
	if err != nil {
		s.log.Error("transforming page", "id", rel, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(injectClient(code)))
}

func injectClient(page string) string {
	tag := `<script type="module" src="` + ClientPath + `"></script>`
	if i := strings.Index(page, "<head>"); i >= 0 {
		i += len("<head>")
		return page[:i] + "\n" + tag + page[i:]
	}
	return tag + "\n" + page
}

func isPage(id string) bool {
	return strings.HasSuffix(id, ".html")
}

func isScript(id string) bool {
	if host.IsCSS(id) {
		return true
	}
	switch path.Ext(id) {
	case ".js", ".mjs", ".ts", ".jsx", ".tsx":
		return true
	}
	return false
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
