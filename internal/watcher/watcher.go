// Package watcher polls the OS clipboard change counter and forwards each
// new text to a history sink.
//
// The loop reads the counter every interval. A counter that differs from the
// last observed value is a change: the cursor moves to the new value
// immediately (so an unreadable change is never re-processed), the text is
// read, and non-empty text is delivered. Comparing counters rather than
// content means copying the same text twice produces two entries.
//
// Read failures and empty clipboards are absorbed: the tick is skipped and
// the next tick tries again. The only way out of Run is cancellation.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.klb.dev/cliptrail/internal/clip"
	"go.klb.dev/cliptrail/internal/logging"
	"go.klb.dev/cliptrail/internal/mainthread"
)

const (
	// DefaultInterval is the polling period.
	DefaultInterval = 100 * time.Millisecond
	// DefaultReadTimeout bounds each hand-off to the clipboard's execution
	// context; an expired read counts as no change.
	DefaultReadTimeout = time.Second
)

// Sink receives confirmed clipboard text. *history.Store satisfies it.
type Sink interface {
	Add(content string)
}

// Config tunes the loop. Zero values select the defaults.
type Config struct {
	Interval    time.Duration
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// State is the loop's position in its cycle.
type State int32

const (
	StateIdle       State = iota // waiting for the next tick
	StatePolling                 // reading the change counter
	StateReading                 // counter moved; reading text
	StateDelivering              // handing text to the sink
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateReading:
		return "reading"
	case StateDelivering:
		return "delivering"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Stats is a point-in-time copy of the loop counters.
type Stats struct {
	StartedAt   time.Time `json:"started_at"`
	Ticks       uint64    `json:"ticks"`
	Changes     uint64    `json:"changes"`
	Delivered   uint64    `json:"delivered"`
	Absent      uint64    `json:"absent"`
	Unavailable uint64    `json:"unavailable"`
}

// Watcher is the polling loop. Create with New and drive with Run.
type Watcher struct {
	src    clip.Source
	runner mainthread.Runner
	sink   Sink
	cfg    Config

	// Owned by the Run goroutine.
	cursor int64
	primed bool

	state     atomic.Int32
	startedAt atomic.Int64 // unix nanos
	ticks     atomic.Uint64
	changes   atomic.Uint64
	delivered atomic.Uint64
	absent    atomic.Uint64
	unavail   atomic.Uint64
}

// New wires a Watcher. runner decides where OS reads execute; pass
// mainthread.Direct{} when the platform has no thread affinity.
func New(src clip.Source, runner mainthread.Runner, sink Sink, cfg Config) *Watcher {
	if runner == nil {
		runner = mainthread.Direct{}
	}
	return &Watcher{
		src:    src,
		runner: runner,
		sink:   sink,
		cfg:    cfg.withDefaults(),
	}
}

// Interval returns the effective polling period.
func (w *Watcher) Interval() time.Duration { return w.cfg.Interval }

// State returns the loop's current state.
func (w *Watcher) State() State { return State(w.state.Load()) }

// Stats returns the loop counters.
func (w *Watcher) Stats() Stats {
	var started time.Time
	if ns := w.startedAt.Load(); ns != 0 {
		started = time.Unix(0, ns)
	}
	return Stats{
		StartedAt:   started,
		Ticks:       w.ticks.Load(),
		Changes:     w.changes.Load(),
		Delivered:   w.delivered.Load(),
		Absent:      w.absent.Load(),
		Unavailable: w.unavail.Load(),
	}
}

// Run records the current counter as the starting cursor and then polls
// until ctx is cancelled. The clipboard's content at start is not recorded.
// Run returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	w.startedAt.Store(time.Now().UnixNano())
	w.setState(StateIdle)

	slog.Info("clipboard watcher started",
		"backend", w.src.Name(),
		"interval", w.cfg.Interval,
		"read_timeout", w.cfg.ReadTimeout,
	)
	w.prime(ctx)

	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard watcher stopped", "ticks", w.ticks.Load(), "delivered", w.delivered.Load())
			return nil
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) prime(ctx context.Context) {
	cc, err := w.changeCount(ctx)
	if err != nil {
		w.unavail.Add(1)
		slog.Debug("initial change count unavailable", "err", err)
		return
	}
	w.cursor = cc
	w.primed = true
	slog.Debug("cursor initialised", "change_count", cc)
}

// tick runs one Polling → Reading → Delivering pass and always ends Idle.
func (w *Watcher) tick(ctx context.Context) {
	w.ticks.Add(1)
	w.setState(StatePolling)
	defer w.setState(StateIdle)

	cc, err := w.changeCount(ctx)
	if err != nil {
		w.unavail.Add(1)
		slog.Debug("change count unavailable", "err", err)
		return
	}
	if !w.primed {
		w.cursor = cc
		w.primed = true
		slog.Debug("cursor initialised", "change_count", cc)
		return
	}
	if cc == w.cursor {
		return
	}

	slog.Debug("clipboard changed", "from", w.cursor, "to", cc)
	w.cursor = cc
	w.changes.Add(1)

	w.setState(StateReading)
	text, ok, err := w.readText(ctx)
	if err != nil {
		w.unavail.Add(1)
		slog.Debug("clipboard text unavailable", "change_count", cc, "err", err)
		return
	}
	if !ok || text == "" {
		w.absent.Add(1)
		slog.Debug("clipboard holds no text", "change_count", cc)
		return
	}

	w.setState(StateDelivering)
	w.sink.Add(text)
	w.delivered.Add(1)
	slog.Debug("clipboard entry recorded", "change_count", cc, "preview", logging.Preview(text))
}

func (w *Watcher) setState(s State) { w.state.Store(int32(s)) }

func (w *Watcher) changeCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.ReadTimeout)
	defer cancel()
	return mainthread.Call(ctx, w.runner, w.src.ChangeCount)
}

type textRead struct {
	text string
	ok   bool
}

func (w *Watcher) readText(ctx context.Context) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.ReadTimeout)
	defer cancel()
	r, err := mainthread.Call(ctx, w.runner, func() (textRead, error) {
		text, ok, err := w.src.ReadText()
		return textRead{text, ok}, err
	})
	return r.text, r.ok, err
}
