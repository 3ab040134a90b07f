// Command windsync generates utility CSS for a project and serves it
// during development.
package main

import (
	"fmt"
	"os"

	"github.com/yacobolo/windsync/internal/ui"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		useColors := getBoolWithFallback("color", "color", false)
		fmt.Fprintln(os.Stderr, ui.RenderStyle(ui.StyleRed, "Error:", useColors), err)
		os.Exit(1)
	}
}
