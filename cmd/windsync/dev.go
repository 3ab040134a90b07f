package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yacobolo/windsync"
	"github.com/yacobolo/windsync/internal/devserver"
	"github.com/yacobolo/windsync/internal/logging"
	"github.com/yacobolo/windsync/internal/watch"
)

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"serve"},
	Short:   "Start the development server with live stylesheet updates",
	Long: `Serve the project, watch its content files and keep the virtual
stylesheet in sync with them. Connected pages update without reloading.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runDev,
}

func init() {
	f := devCmd.Flags()
	f.String("addr", "localhost:5173", "Listen address")
	f.Duration("debounce", 0, "Quiet period before regenerating (0 uses the default)")
}

func runDev(cmd *cobra.Command, _ []string) error {
	project := buildProjectConfig()
	config := buildDevConfig()
	logging.Init(project.LogLevel)
	log := logging.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matcher, err := watch.NewMatcher(project.Root, project.Content, project.Ignore)
	if err != nil {
		return err
	}

	opts := buildPluginOptions(matcher.Root())
	opts.Logger = log
	opts.OnError = func(err error) {
		log.Error("stylesheet update failed", "error", err)
	}
	ws, err := windsync.New(opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	server, err := devserver.New(ctx, devserver.Config{
		Root:    matcher.Root(),
		Addr:    config.Addr,
		Plugins: ws.Plugins(),
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("starting dev server: %w", err)
	}

	files, stats, err := matcher.Scan()
	if err != nil {
		return fmt.Errorf("scanning content: %w", err)
	}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(matcher.Root(), filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		if err := server.Update(ctx, watch.ID(rel), string(data)); err != nil {
			return err
		}
	}
	log.Info("content scanned", "files", stats.FilesScanned, "skipped", stats.FilesSkipped)

	watcher, err := watch.New(matcher, log)
	if err != nil {
		return err
	}
	defer watcher.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return watcher.Run(gctx, func(ev watch.Event) error {
			return handleChange(gctx, ws, server, ev)
		})
	})
	return g.Wait()
}

// handleChange feeds one content change into the server. Transform
// failures are logged and do not end the session.
func handleChange(ctx context.Context, ws *windsync.Plugin, server *devserver.Server, ev watch.Event) error {
	if ev.Removed {
		ws.Forget(ev.ID)
		logging.Debug("content removed", "id", ev.ID)
		return nil
	}
	if err := server.Update(ctx, ev.ID, ev.Text); err != nil {
		logging.Warn("update failed", "id", ev.ID, "error", err)
	}
	return nil
}
