package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gatewire-dev/gatewire/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐┌┬┐┌─┐┬ ┬┬┬─┐┌─┐
  │ ┬├─┤ │ ├┤ │││││├┬┘├┤
  └─┘┴ ┴ ┴ └─┘└┴┘┴┴└─└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "gatewire",
		Short: "Resilient gateway connections for Discord bots",
		Long: `Gatewire maintains real-time gateway connections for Discord bots.

It handles the full session lifecycle so your bot does not have to:

  • Identify and resume handshakes
  • Heartbeating with zombie-connection detection
  • Reconnects with backoff and session resumption
  • Shard management with identify pacing
  • An in-memory guild/channel/member cache
  • Prometheus metrics and debug endpoints`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		runCmd(),
		checkCmd(),
		initCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the gatewire ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
