//go:build unittest

package supervisor

// Launchd is a no-op stub used during unit testing (build tag: unittest).
// The real implementation is in launchd_real.go.
type Launchd struct{}

func (Launchd) IsLoaded(label string) bool           { return false }
func (Launchd) IsRunning(label string) bool          { return false }
func (Launchd) Bootstrap(definitionPath string) error { return nil }
func (Launchd) Bootout(label string) error            { return nil }
