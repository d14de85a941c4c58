// cliptrail: bounded clipboard history.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"go.klb.dev/cliptrail/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func init() {
	// Keep the main goroutine on the main OS thread so "watch --main-thread"
	// can serve clipboard reads from it.
	runtime.LockOSThread()
}

func main() {
	root := &cobra.Command{
		Use:   "cliptrail",
		Short: "Bounded clipboard history",
		Long: `cliptrail watches the system clipboard and keeps the most recent text
entries in memory, newest first.

Run "cliptrail watch" to start the daemon. Use "cliptrail history" and
"cliptrail status" to query it over the local IPC socket.

Config file search order (first found wins):
  /etc/cliptrail/cliptrail.toml
  $HOME/.config/cliptrail/cliptrail.toml
  path supplied via --config

All flags can be set via CLIPTRAIL_<FLAG> env vars or config-file keys.
See "cliptrail watch --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newWatchCmd(),
		newHistoryCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cliptrail %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
