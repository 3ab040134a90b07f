package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yacobolo/windsync"
	"github.com/yacobolo/windsync/internal/host"
	"github.com/yacobolo/windsync/internal/logging"
	"github.com/yacobolo/windsync/internal/ui"
	"github.com/yacobolo/windsync/internal/watch"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bundle the project and emit its stylesheet",
	Long: `Scan the content files, run them through the plugin pipeline as one
chunk and write the chunk and its stylesheet to the output directory.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.String("out-dir", "dist", "Output directory, relative to root")
	f.String("entry", "index", "Chunk name")
	f.Bool("json", false, "Print the build summary as JSON")
}

// buildReport is the machine-readable build summary.
type buildReport struct {
	Files   int           `json:"files"`
	Skipped int           `json:"skipped"`
	OutDir  string        `json:"out_dir"`
	Assets  []assetReport `json:"assets"`
}

type assetReport struct {
	Name  string `json:"name"`
	Bytes int    `json:"bytes"`
}

func runBuild(cmd *cobra.Command, _ []string) error {
	project := buildProjectConfig()
	config := buildBuildConfig()
	logging.Init(project.LogLevel)

	report, err := build(cmd.Context(), project, config)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if config.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	p := ui.Printer{
		W:      cmd.OutOrStdout(),
		Colors: getBoolWithFallback("color", "color", false),
		Quiet:  getBoolWithFallback("quiet", "quiet", false),
	}
	if report.Files == 0 {
		p.Warn("no content files matched %v", project.Content)
	}
	p.Success("built %d assets from %d files in %s", len(report.Assets), report.Files, report.OutDir)
	for _, a := range report.Assets {
		p.Item(a.Name, fmt.Sprintf("%d B", a.Bytes))
	}
	return nil
}

func build(ctx context.Context, project projectConfig, config buildConfig) (*buildReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.Logger()

	matcher, err := watch.NewMatcher(project.Root, project.Content, project.Ignore)
	if err != nil {
		return nil, err
	}
	files, stats, err := matcher.Scan()
	if err != nil {
		return nil, fmt.Errorf("scanning content: %w", err)
	}

	inputs := make([]host.Input, 0, len(files))
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(matcher.Root(), filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		inputs = append(inputs, host.Input{ID: watch.ID(rel), Code: string(data)})
	}

	opts := buildPluginOptions(matcher.Root())
	opts.Logger = log
	ws, err := windsync.New(opts)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	bundler, err := host.NewBundler(matcher.Root(), ws.Plugins(), log)
	if err != nil {
		return nil, err
	}
	bundle, err := bundler.Build(ctx, inputs, host.BuildOptions{
		Entry:   config.Entry,
		Imports: []string{windsync.ImportSpecifier},
	})
	if err != nil {
		return nil, err
	}

	outDir := config.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(matcher.Root(), outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	report := &buildReport{
		Files:   stats.FilesScanned,
		Skipped: stats.FilesSkipped,
		OutDir:  outDir,
	}
	for _, name := range bundle.AssetNames() {
		src := bundle.Assets[name]
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(src), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		report.Assets = append(report.Assets, assetReport{Name: name, Bytes: len(src)})
	}
	log.Debug("assets written", "dir", outDir, "count", len(report.Assets))
	return report, nil
}
