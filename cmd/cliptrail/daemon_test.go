package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/cliptrail/internal/clip"
	"go.klb.dev/cliptrail/internal/history"
	"go.klb.dev/cliptrail/internal/ipc"
	"go.klb.dev/cliptrail/internal/mainthread"
	"go.klb.dev/cliptrail/internal/message"
	"go.klb.dev/cliptrail/internal/watcher"
	"go.klb.dev/cliptrail/internal/wire"
)

func newTestDaemon(entries ...string) *daemon {
	store := history.New(history.DefaultCapacity)
	for _, e := range entries {
		store.Add(e)
	}
	w := watcher.New(clip.Headless(), mainthread.Direct{}, store, watcher.Config{})
	return &daemon{store: store, watcher: w, backend: "test"}
}

func TestDaemon_History(t *testing.T) {
	d := newTestDaemon("a", "b", "c")

	resp := d.Handle(&message.Message{Type: message.TypeHistory})
	require.NotNil(t, resp)
	assert.Equal(t, message.TypeHistoryResponse, resp.Type)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, "c", resp.Entries[0].Content)

	resp = d.Handle(&message.Message{Type: message.TypeHistory, Limit: 1})
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "c", resp.Entries[0].Content)
}

func TestDaemon_LargeHistoryFitsInOneMessage(t *testing.T) {
	big := strings.Repeat("x", 1<<20)
	entries := make([]string, history.DefaultCapacity)
	for i := range entries {
		entries[i] = big
	}
	d := newTestDaemon(entries...)

	v := viper.New()
	cmd := newHistoryCmd()
	require.NoError(t, bindViper(cmd, v))
	req := historyRequest(v)
	assert.Equal(t, defaultMaxBytes, req.MaxBytes)
	assert.Nil(t, req.Index)

	resp := d.Handle(req)
	require.Equal(t, message.TypeHistoryResponse, resp.Type)
	require.Len(t, resp.Entries, history.DefaultCapacity)
	for _, e := range resp.Entries {
		assert.Equal(t, 1<<20, e.Size)
		assert.True(t, e.Truncated)
	}

	raw, err := resp.Encode()
	require.NoError(t, err)
	assert.Less(t, len(raw), wire.MaxMessageSize)
}

func TestDaemon_HistoryByIndex(t *testing.T) {
	big := strings.Repeat("y", 1<<20)
	d := newTestDaemon(big, "newest")

	v := viper.New()
	cmd := newHistoryCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--index", "1"}))
	require.NoError(t, bindViper(cmd, v))
	req := historyRequest(v)
	require.NotNil(t, req.Index)

	resp := d.Handle(req)
	require.Equal(t, message.TypeHistoryResponse, resp.Type)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, big, resp.Entries[0].Content)
	assert.False(t, resp.Entries[0].Truncated)

	idx := 5
	resp = d.Handle(&message.Message{Type: message.TypeHistory, Index: &idx})
	assert.Equal(t, message.TypeError, resp.Type)
	assert.Contains(t, resp.Error, "no entry at index 5")
}

func serveTestDaemon(t *testing.T, d *daemon) {
	t.Helper()
	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)
	t.Setenv("CLIPTRAIL_SOCKET", filepath.Join(dir, "c.sock"))

	ln, err := ipc.Listen()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ipc.Serve(ctx, ln, d) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestCommands_JSONOutput(t *testing.T) {
	d := newTestDaemon("one", strings.Repeat("z", 4096))
	serveTestDaemon(t, d)

	run := func(cmd *cobra.Command, args ...string) []byte {
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs(args)
		require.NoError(t, cmd.ExecuteContext(context.Background()))
		return buf.Bytes()
	}

	var entries []message.Entry
	require.NoError(t, json.Unmarshal(run(newHistoryCmd(), "--json"), &entries))
	require.Len(t, entries, 2)
	assert.Len(t, entries[0].Content, defaultMaxBytes)
	assert.Equal(t, 4096, entries[0].Size)
	assert.True(t, entries[0].Truncated)
	assert.Equal(t, "one", entries[1].Content)

	var st message.Status
	require.NoError(t, json.Unmarshal(run(newStatusCmd(), "--json"), &st))
	assert.Equal(t, "test", st.Backend)
	assert.Equal(t, 2, st.Size)

	assert.Equal(t, strings.Repeat("z", 4096), string(run(newHistoryCmd(), "--index", "0")))
}

func TestWatchCmd_HelpMentionsLinuxDuplicates(t *testing.T) {
	cmd := newWatchCmd()
	assert.Contains(t, cmd.Long, "On Linux")
	assert.Contains(t, cmd.Long, "recorded once")
}

func TestDaemon_Status(t *testing.T) {
	d := newTestDaemon("x")

	resp := d.Handle(&message.Message{Type: message.TypeStatus})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Status)
	assert.Equal(t, "test", resp.Status.Backend)
	assert.Equal(t, "idle", resp.Status.State)
	assert.Equal(t, "100ms", resp.Status.Interval)
	assert.Equal(t, 1, resp.Status.Size)
	assert.Equal(t, history.DefaultCapacity, resp.Status.Capacity)
}

func TestDaemon_UnknownRequest(t *testing.T) {
	d := newTestDaemon()
	assert.Nil(t, d.Handle(&message.Message{Type: message.TypeHistoryResponse}))
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPrintEntries_PrintsOnlyNewEntriesInOrder(t *testing.T) {
	store := history.New(history.DefaultCapacity)
	store.Add("before start")

	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		printEntries(ctx, store, &out)
		close(done)
	}()

	// Wait for the subscription to be in place.
	require.Eventually(t, func() bool {
		store.Add("first")
		return strings.Contains(out.String(), "first")
	}, 2*time.Second, 10*time.Millisecond)
	store.Add("second")
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "second") }, 2*time.Second, time.Millisecond)

	cancel()
	<-done

	got := out.String()
	assert.NotContains(t, got, "before start")
	assert.Less(t, strings.LastIndex(got, "first"), strings.Index(got, "second"))
}

func TestPrintHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []message.Entry{
		{Content: "newest\nline", Timestamp: now.Add(-5 * time.Second), Size: 11},
		{Content: "older", Timestamp: now.Add(-2 * time.Hour), Size: 3 << 20, Truncated: true},
	}

	var buf bytes.Buffer
	printHistory(&buf, entries, now)
	out := buf.String()

	assert.Contains(t, out, "CONTENT")
	assert.Contains(t, out, "5 seconds ago")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "newest line")
	assert.Contains(t, out, "3.1 MB", "size is the full length, not the clipped one")

	buf.Reset()
	printHistory(&buf, nil, now)
	assert.Equal(t, "History is empty.\n", buf.String())
}

func TestPrintStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, &message.Status{
		Backend:   "headless (no-op)",
		State:     "idle",
		Interval:  "100ms",
		Capacity:  20,
		Size:      3,
		StartedAt: now.Add(-time.Minute),
		Ticks:     12345,
		Delivered: 3,
	}, now)

	out := buf.String()
	assert.Contains(t, out, "headless (no-op)")
	assert.Contains(t, out, "3 / 20")
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "1 minute ago")
}

func TestBindViper_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "cliptrail.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("interval = \"50ms\"\nread-timeout = \"2s\"\ncapacity = 5\n"), 0o600))
	t.Setenv("CLIPTRAIL_READ_TIMEOUT", "250ms")

	v := viper.New()
	cmd := &cobra.Command{Use: "watch"}
	f := cmd.Flags()
	f.Duration("interval", watcher.DefaultInterval, "")
	f.Duration("read-timeout", watcher.DefaultReadTimeout, "")
	f.Int("capacity", history.DefaultCapacity, "")
	addConfigFlag(cmd)
	require.NoError(t, f.Parse([]string{"--config", cfg, "--capacity", "7"}))

	require.NoError(t, bindViper(cmd, v))

	assert.Equal(t, 50*time.Millisecond, v.GetDuration("interval"), "config file beats default")
	assert.Equal(t, 250*time.Millisecond, v.GetDuration("read-timeout"), "env beats config file")
	assert.Equal(t, 7, v.GetInt("capacity"), "flag beats config file")
}
