// Package notify announces fleet liveness transitions to chat platforms.
// Notification failures are logged and dropped; liveness tracking never
// depends on a chat platform being reachable.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transition kinds.
const (
	WentStale = "stale"
	Recovered = "recovered"
)

// Event is one liveness transition observed by the sweep.
type Event struct {
	MachineID  string
	Hostname   string
	Nickname   string
	Kind       string // WentStale or Recovered
	LastSeenAt time.Time
	At         time.Time
}

// Title renders the event headline.
func (e Event) Title() string {
	name := e.Nickname
	if name == "" {
		name = e.Hostname
	}
	if name == "" {
		name = e.MachineID
	}
	switch e.Kind {
	case WentStale:
		return fmt.Sprintf("Machine %s went stale", name)
	case Recovered:
		return fmt.Sprintf("Machine %s recovered", name)
	default:
		return fmt.Sprintf("Machine %s: %s", name, e.Kind)
	}
}

// Body renders the event detail line.
func (e Event) Body() string {
	return fmt.Sprintf("host %s, last heartbeat at %s", e.Hostname, e.LastSeenAt.Format(time.RFC3339))
}

// Color returns a sidebar color hint for platforms that support one.
func (e Event) Color() string {
	if e.Kind == Recovered {
		return "#36a64f"
	}
	return "#d00000"
}

// Notifier delivers one event to a platform.
type Notifier interface {
	Announce(ctx context.Context, ev Event) error
}

// Multi fans an event out to every notifier, collecting errors.
type Multi []Notifier

// Announce delivers ev to all notifiers. Errors are joined, not short-circuited.
func (m Multi) Announce(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Announce(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
