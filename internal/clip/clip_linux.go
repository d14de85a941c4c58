//go:build linux

package clip

import (
	"log/slog"

	"golang.design/x/clipboard"
)

// New returns the Linux clipboard backend, or the headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland).
func New() Source {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return Headless()
	}
	return newDigestSource("Linux clipboard (digest)", func() []byte {
		return clipboard.Read(clipboard.FmtText)
	})
}
