package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledctl",
		Short: "LED matrix display server and client",
		Long: `ledctl runs a display server that accepts image and command frames over
TCP and UDP, picks one active stream by priority, and drives an LED matrix.
It also sends frames to a running server.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newSendCommand())
	root.AddCommand(newConfigCommand())
	return root
}
