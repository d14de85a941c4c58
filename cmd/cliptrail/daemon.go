package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.klb.dev/cliptrail/internal/history"
	"go.klb.dev/cliptrail/internal/logging"
	"go.klb.dev/cliptrail/internal/message"
	"go.klb.dev/cliptrail/internal/watcher"
)

// daemon answers IPC requests from the history and status commands.
type daemon struct {
	store   *history.Store
	watcher *watcher.Watcher
	backend string
}

func (d *daemon) Handle(req *message.Message) *message.Message {
	switch req.Type {
	case message.TypeHistory:
		return d.history(req)
	case message.TypeStatus:
		return &message.Message{Type: message.TypeStatusResponse, Status: d.status()}
	}
	return nil
}

func (d *daemon) history(req *message.Message) *message.Message {
	entries := d.store.Snapshot()
	if req.Index != nil {
		i := *req.Index
		if i < 0 || i >= len(entries) {
			return message.Errorf("no entry at index %d (history holds %d)", i, len(entries))
		}
		return &message.Message{
			Type:    message.TypeHistoryResponse,
			Entries: message.Clip(entries[i:i+1], 0),
		}
	}
	return &message.Message{
		Type:    message.TypeHistoryResponse,
		Entries: message.Clip(message.Truncate(entries, req.Limit), req.MaxBytes),
	}
}

func (d *daemon) status() *message.Status {
	st := d.watcher.Stats()
	return &message.Status{
		Backend:     d.backend,
		State:       d.watcher.State().String(),
		Interval:    d.watcher.Interval().String(),
		Capacity:    d.store.Capacity(),
		Size:        d.store.Len(),
		StartedAt:   st.StartedAt,
		Ticks:       st.Ticks,
		Changes:     st.Changes,
		Delivered:   st.Delivered,
		Absent:      st.Absent,
		Unavailable: st.Unavailable,
	}
}

// printEntries writes every entry added to store after the call, oldest
// first, until ctx ends.
func printEntries(ctx context.Context, store *history.Store, out io.Writer) {
	changed, cancel := store.Subscribe()
	defer cancel()

	_, seen := store.View()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			entries, version := store.View()
			n := int(version - seen)
			if n > len(entries) {
				n = len(entries)
			}
			for i := n - 1; i >= 0; i-- {
				e := entries[i]
				fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Format(time.TimeOnly), logging.Preview(e.Content))
			}
			seen = version
		}
	}
}
