// Package tunnel republishes local dashboards through the overlay network's
// ingress on a single public port, with path-based multiplexing. The overlay
// is optional: when absent, everything here is a no-op and installation
// proceeds without it.
package tunnel

import (
	"fmt"
	"io"
	"sort"

	"github.com/zulandar/roundhouse/internal/config"
)

// Overlay abstracts the overlay-network CLI (tailscale) for testability.
type Overlay interface {
	// Present reports whether the overlay binary is installed.
	Present() bool
	// Addr returns the machine's overlay IP and DNS hostname.
	Addr() (ip, hostname string, err error)
	// SetPath registers a path-prefixed route on the public port to a
	// local port. Re-registering a path replaces its target.
	SetPath(publicPort int, path string, localPort int) error
}

// Manager publishes and restores overlay routes.
type Manager struct {
	Overlay    Overlay // defaults to Default
	PublicPort int
	Out        io.Writer
}

// Routes derives the route map from the fleet config: the main dashboard at
// "/" plus one path per team sub-dashboard.
func Routes(cfg *config.Config) map[string]int {
	routes := map[string]int{"/": cfg.LocalPort}
	for _, team := range cfg.Tunnel.Teams {
		routes["/"+team.Name] = team.Port
	}
	return routes
}

// PublishRoutes registers every route with the overlay ingress. Routes are
// idempotent by path: re-running replaces targets rather than duplicating
// them. Without an overlay this is a logged no-op, never an error.
func (m *Manager) PublishRoutes(routes map[string]int) error {
	out := m.Out
	if out == nil {
		out = io.Discard
	}
	overlay := m.Overlay
	if overlay == nil {
		overlay = Default
	}
	if !overlay.Present() {
		fmt.Fprintln(out, "Overlay network not present — skipping route publication")
		return nil
	}
	if m.PublicPort <= 0 {
		return fmt.Errorf("tunnel: public port is required")
	}

	paths := make([]string, 0, len(routes))
	for path := range routes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := overlay.SetPath(m.PublicPort, path, routes[path]); err != nil {
			return fmt.Errorf("tunnel: publish %s: %w", path, err)
		}
		fmt.Fprintf(out, "  %s -> localhost:%d (public port %d)\n", path, routes[path], m.PublicPort)
	}
	return nil
}
