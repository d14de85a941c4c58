//go:build darwin

package clip

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
//
// NSInteger cliptrail_changeCount() {
//     return [[NSPasteboard generalPasteboard] changeCount];
// }
import "C"

import (
	"fmt"
	"log/slog"

	"golang.design/x/clipboard"
)

type darwinSource struct {
	ready bool
}

// New returns the macOS clipboard backend. Text reads are disabled (but the
// change counter still works) if clipboard.Init fails.
func New() Source {
	err := clipboard.Init()
	if err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	return &darwinSource{ready: err == nil}
}

func (s *darwinSource) Name() string { return "macOS NSPasteboard" }

func (s *darwinSource) ChangeCount() (int64, error) {
	return int64(C.cliptrail_changeCount()), nil
}

func (s *darwinSource) ReadText() (string, bool, error) {
	if !s.ready {
		return "", false, fmt.Errorf("read text: %w", ErrUnavailable)
	}
	text := clipboard.Read(clipboard.FmtText)
	if len(text) == 0 {
		return "", false, nil
	}
	return string(text), true, nil
}

func (s *darwinSource) Close() {}
