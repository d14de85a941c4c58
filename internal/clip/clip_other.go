//go:build !darwin && !windows && !linux

package clip

// New returns the headless backend; no clipboard integration exists for this
// platform.
func New() Source { return Headless() }
