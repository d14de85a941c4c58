package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/cliptrail/internal/clip"
	"go.klb.dev/cliptrail/internal/history"
	"go.klb.dev/cliptrail/internal/ipc"
	"go.klb.dev/cliptrail/internal/mainthread"
	"go.klb.dev/cliptrail/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the clipboard and keep a history of recent text",
		Long: `Polls the system clipboard's change counter and records every new text
entry, newest first, up to --capacity entries. The content present when the
daemon starts is not recorded; only later copies are.

The history lives in memory only. Query it with "cliptrail history".

On Linux the clipboard has no change counter; changes are detected by
comparing content, so copying the same text twice in a row is recorded once.

Config file search order:
  /etc/cliptrail/cliptrail.toml
  $HOME/.config/cliptrail/cliptrail.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → CLIPTRAIL_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd, v) },
	}

	f := cmd.Flags()
	f.Duration("interval", watcher.DefaultInterval, "clipboard polling interval")
	f.Duration("read-timeout", watcher.DefaultReadTimeout, "give up on a clipboard read after this long (tick counts as no change)")
	f.Int("capacity", history.DefaultCapacity, "number of entries to keep")
	f.Bool("main-thread", runtime.GOOS == "darwin", "perform clipboard reads on the process main thread")
	f.Bool("print", false, "print each new entry to stdout")
	f.Bool("no-ipc", false, "do not serve the IPC socket")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := history.New(v.GetInt("capacity"))
	src := clip.New()
	defer src.Close()

	var (
		runner mainthread.Runner = mainthread.Direct{}
		loop   *mainthread.Loop
	)
	if v.GetBool("main-thread") {
		loop = mainthread.NewLoop()
		runner = loop
	}

	w := watcher.New(src, runner, store, watcher.Config{
		Interval:    v.GetDuration("interval"),
		ReadTimeout: v.GetDuration("read-timeout"),
	})

	slog.Info("cliptrail starting",
		"version", Version,
		"backend", src.Name(),
		"capacity", store.Capacity(),
		"main_thread", loop != nil,
	)

	var ln net.Listener
	if !v.GetBool("no-ipc") {
		var err error
		ln, err = ipc.Listen()
		switch {
		case errors.Is(err, ipc.ErrAlreadyRunning):
			return err
		case err != nil:
			slog.Warn("IPC socket unavailable", "err", err)
		default:
			slog.Info("IPC socket listening", "path", ipc.SocketPath())
			defer os.Remove(ipc.SocketPath())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })

	if ln != nil {
		d := &daemon{store: store, watcher: w, backend: src.Name()}
		g.Go(func() error { return ipc.Serve(gctx, ln, d) })
	}

	if v.GetBool("print") {
		g.Go(func() error {
			printEntries(gctx, store, cmd.OutOrStdout())
			return nil
		})
	}

	if loop != nil {
		// Blocks on the main thread until shutdown.
		loop.Serve(gctx)
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	slog.Info("cliptrail stopped", "entries", store.Len())
	return nil
}
