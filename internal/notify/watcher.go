package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zulandar/roundhouse/internal/aggregator"
)

// Watcher diffs the peer table's liveness between sweeps and announces
// transitions. A peer is announced when it crosses the stale boundary in
// either direction; first sightings are not announced. Sweep is safe to call
// concurrently; overlapping sweeps serialize.
type Watcher struct {
	Table      *aggregator.Table
	StaleAfter time.Duration
	Notifiers  Multi

	mu   sync.Mutex
	seen map[string]string // machine ID -> last observed liveness
}

// Sweep evaluates liveness against now and announces transitions. Returns
// the events emitted, mainly for tests. Notification errors are logged only.
func (w *Watcher) Sweep(ctx context.Context, now time.Time) []Event {
	if w.Table == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen == nil {
		w.seen = make(map[string]string)
	}

	var events []Event
	for _, rec := range w.Table.Snapshot() {
		liveness := aggregator.Live
		if now.Sub(rec.LastSeenAt) > w.StaleAfter {
			liveness = aggregator.Stale
		}

		prev, known := w.seen[rec.Beacon.MachineID]
		w.seen[rec.Beacon.MachineID] = liveness
		if !known || prev == liveness {
			continue
		}

		kind := Recovered
		if liveness == aggregator.Stale {
			kind = WentStale
		}
		ev := Event{
			MachineID:  rec.Beacon.MachineID,
			Hostname:   rec.Beacon.Hostname,
			Nickname:   rec.Beacon.Nickname,
			Kind:       kind,
			LastSeenAt: rec.LastSeenAt,
			At:         now,
		}
		events = append(events, ev)
		if err := w.Notifiers.Announce(ctx, ev); err != nil {
			log.Printf("notify: announce %s: %v", ev.Title(), err)
		}
	}
	return events
}
