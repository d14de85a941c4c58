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
	"go.klb.dev/cliptrail/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running daemon",
		Long: `Displays the clipboard backend, polling state and counters of the
running "cliptrail watch" daemon, queried over the IPC socket.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	if !ipc.IsRunning() {
		return fmt.Errorf("no cliptrail daemon on %s (start one with \"cliptrail watch\")", ipc.SocketPath())
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	resp, err := ipc.Request(ctx, &message.Message{Type: message.TypeStatus})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if resp.Status == nil {
		return fmt.Errorf("status: empty response")
	}

	out := cmd.OutOrStdout()
	if v.GetBool("json") {
		enc, err := json.MarshalIndent(resp.Status, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(enc))
		return nil
	}

	printStatus(out, resp.Status, time.Now())
	return nil
}

func printStatus(w io.Writer, st *message.Status, now time.Time) {
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Socket:\t%s\n", ipc.SocketPath())
	fmt.Fprintf(tw, "Backend:\t%s\n", st.Backend)
	fmt.Fprintf(tw, "State:\t%s\n", st.State)
	fmt.Fprintf(tw, "Interval:\t%s\n", st.Interval)
	if !st.StartedAt.IsZero() {
		fmt.Fprintf(tw, "Started:\t%s (%s)\n",
			st.StartedAt.Format(time.RFC3339), humanize.RelTime(st.StartedAt, now, "ago", "from now"))
	}
	fmt.Fprintf(tw, "Entries:\t%d / %d\n", st.Size, st.Capacity)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Ticks:\t%s\n", humanize.Comma(int64(st.Ticks)))
	fmt.Fprintf(tw, "Changes:\t%s\n", humanize.Comma(int64(st.Changes)))
	fmt.Fprintf(tw, "Recorded:\t%s\n", humanize.Comma(int64(st.Delivered)))
	fmt.Fprintf(tw, "No text:\t%s\n", humanize.Comma(int64(st.Absent)))
	fmt.Fprintf(tw, "Unavailable:\t%s\n", humanize.Comma(int64(st.Unavailable)))
	_ = tw.Flush()
}
