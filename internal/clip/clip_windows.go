//go:build windows

package clip

import (
	"fmt"
	"log/slog"

	"golang.design/x/clipboard"
	"golang.org/x/sys/windows"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procGetClipboardSequenceNumber = user32.NewProc("GetClipboardSequenceNumber")
)

type windowsSource struct {
	ready bool
}

// New returns the Windows clipboard backend.
func New() Source {
	err := clipboard.Init()
	if err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	return &windowsSource{ready: err == nil}
}

func (s *windowsSource) Name() string { return "Windows Clipboard" }

// ChangeCount returns the clipboard sequence number. Windows reports zero
// when the calling window station has no clipboard access.
func (s *windowsSource) ChangeCount() (int64, error) {
	if err := procGetClipboardSequenceNumber.Find(); err != nil {
		return 0, fmt.Errorf("GetClipboardSequenceNumber: %w", ErrUnavailable)
	}
	seq, _, _ := procGetClipboardSequenceNumber.Call()
	if seq == 0 {
		return 0, fmt.Errorf("sequence number: %w", ErrUnavailable)
	}
	return int64(uint32(seq)), nil
}

func (s *windowsSource) ReadText() (string, bool, error) {
	if !s.ready {
		return "", false, fmt.Errorf("read text: %w", ErrUnavailable)
	}
	text := clipboard.Read(clipboard.FmtText)
	if len(text) == 0 {
		return "", false, nil
	}
	return string(text), true, nil
}

func (s *windowsSource) Close() {}
