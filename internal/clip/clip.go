// Package clip provides read-only access to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_darwin.go   — macOS via NSPasteboard changeCount + golang.design/x/clipboard
//	clip_windows.go  — Windows via GetClipboardSequenceNumber + golang.design/x/clipboard
//	clip_linux.go    — Linux via golang.design/x/clipboard, counter derived from content
//	clip_other.go    — headless / container stub
package clip

import "errors"

// ErrUnavailable is returned when the OS refuses or fails to report the
// clipboard's change counter or content. Callers treat it as transient.
var ErrUnavailable = errors.New("clipboard unavailable")

// Source is the capability every platform clipboard backend satisfies.
// Implementations may require being called from a specific thread; callers
// route calls through a mainthread.Runner when that is the case.
type Source interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ChangeCount returns the OS clipboard change indicator. The value
	// differs from the previous one whenever the clipboard has been
	// replaced; its absolute value carries no meaning.
	ChangeCount() (int64, error)

	// ReadText returns the clipboard's text. ok is false when the
	// clipboard holds no text (empty, or only non-text formats).
	ReadText() (text string, ok bool, err error)

	// Close releases any resources held by the backend.
	Close()
}
