//go:build unittest

package tunnel

// Default is a no-op overlay stub used during unit testing (build tag:
// unittest). The real implementation is in tailscale_real.go.
var Default Overlay = Tailscale{}

// Tailscale is the unit-test stub of the overlay implementation.
type Tailscale struct{}

func (Tailscale) Present() bool                { return false }
func (Tailscale) Addr() (string, string, error) { return "", "", nil }
func (Tailscale) SetPath(publicPort int, path string, localPort int) error { return nil }
