package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xforge-build/xforge/internal/query"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xforge",
		Short: "xforge - scoped configuration query engine for project-file generation",
		Long: `xforge evaluates ADD/REMOVE configuration blocks layered over a
workspace -> project -> configuration/platform scope tree and reports the
effective value of each field at a target scope, while keeping the result
strictly additive.`,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newParseCmd(),
		newQueryCmd(),
		newExplainCmd(),
		newMCPServeCmd(),
	)

	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(query.ErrInvariant); ok {
				fmt.Fprintf(os.Stderr, "internal error: %s\n", inv.Error())
				os.Exit(2)
			}
			panic(r)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
