package clip

// headlessSource is a no-op backend for environments without a display
// server (headless Linux servers, containers, etc.). Its counter never moves
// and it never has text.
type headlessSource struct{}

// Headless returns the no-op source.
func Headless() Source { return headlessSource{} }

func (headlessSource) Name() string                    { return "headless (no-op)" }
func (headlessSource) ChangeCount() (int64, error)     { return 0, nil }
func (headlessSource) ReadText() (string, bool, error) { return "", false, nil }
func (headlessSource) Close()                          {}
