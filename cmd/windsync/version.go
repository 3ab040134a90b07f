package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yacobolo/windsync"
	"github.com/yacobolo/windsync/internal/engine"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/windsync
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the names windsync looks for",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "windsync %s\n", version)
		fmt.Fprintf(out, "  import:        %s\n", windsync.ImportSpecifier)
		fmt.Fprintf(out, "  virtual id:    %s\n", windsync.VirtualID)
		fmt.Fprintf(out, "  engine config: %s\n", engine.DefaultConfigFile)
		fmt.Fprintf(out, "  cli config:    %s\n", defaultConfigPath)
	},
}
