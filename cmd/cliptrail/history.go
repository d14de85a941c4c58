package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliptrail/internal/ipc"
	"go.klb.dev/cliptrail/internal/logging"
	"go.klb.dev/cliptrail/internal/message"
)

const (
	requestTimeout = 5 * time.Second

	// defaultMaxBytes bounds each listed entry so that a full history of
	// large copies still fits in one IPC message.
	defaultMaxBytes = 1024
)

func newHistoryCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the clipboard history of the running daemon",
		Long: `Prints the entries recorded by "cliptrail watch", newest first.

Listed entries are clipped to --max-bytes; the SIZE column always shows the
full length. Use --index N to print the full text of a single entry, e.g.

  cliptrail history --index 0 | less`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runHistory(cmd, v) },
	}

	f := cmd.Flags()
	f.Int("limit", 0, "show at most this many entries (0 = all)")
	f.Int("index", -1, "print only the full content of the entry at this index")
	f.Int("max-bytes", defaultMaxBytes, "clip each listed entry to this many bytes (0 = full text)")
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

// historyRequest builds the HISTORY request for the command's settings.
func historyRequest(v *viper.Viper) *message.Message {
	req := &message.Message{Type: message.TypeHistory}
	if idx := v.GetInt("index"); idx >= 0 {
		req.Index = &idx
		return req
	}
	req.Limit = v.GetInt("limit")
	req.MaxBytes = v.GetInt("max-bytes")
	return req
}

func runHistory(cmd *cobra.Command, v *viper.Viper) error {
	req := historyRequest(v)
	entries, err := fetchHistory(cmd.Context(), req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if req.Index != nil {
		if len(entries) != 1 {
			return fmt.Errorf("history: expected one entry, got %d", len(entries))
		}
		_, err := io.WriteString(out, entries[0].Content)
		return err
	}

	if v.GetBool("json") {
		enc, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(enc))
		return nil
	}

	printHistory(out, entries, time.Now())
	return nil
}

func fetchHistory(ctx context.Context, req *message.Message) ([]message.Entry, error) {
	if !ipc.IsRunning() {
		return nil, fmt.Errorf("no cliptrail daemon on %s (start one with \"cliptrail watch\")", ipc.SocketPath())
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := ipc.Request(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return resp.Entries, nil
}

func printHistory(w io.Writer, entries []message.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "History is empty.")
		return
	}

	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "#\tCOPIED\tSIZE\tCONTENT\n")
	_, _ = fmt.Fprintf(tw, "-\t------\t----\t-------\n")
	for i, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
			i,
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			humanize.Bytes(uint64(e.Size)),
			logging.Preview(e.Content),
		)
	}
	_ = tw.Flush()
}
