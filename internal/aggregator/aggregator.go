// Package aggregator merges local service probes, the received heartbeat
// table, and the task-board summary into one consistent status view.
package aggregator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zulandar/roundhouse/internal/beacon"
	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/probe"
	"github.com/zulandar/roundhouse/internal/taskboard"
)

// Liveness flags for peer records. Stale records stay listed so operators
// can tell "went away" apart from "never seen".
const (
	Live  = "live"
	Stale = "stale"
)

// DefaultStaleAfter is used when no liveness timeout is configured:
// three missed beacons at the default interval.
const DefaultStaleAfter = 3 * beacon.DefaultInterval

// SummarySource supplies the task-board summary. Errors are soft: the
// summary is omitted, never fatal.
type SummarySource interface {
	Summary(ctx context.Context) (*taskboard.Summary, error)
}

// PeerStatus is one peer annotated with its liveness at query time.
type PeerStatus struct {
	MachineID  string         `json:"machine_id"`
	Hostname   string         `json:"hostname"`
	Nickname   string         `json:"nickname,omitempty"`
	Sequence   uint64         `json:"sequence"`
	LastSeenAt time.Time      `json:"last_seen_at"`
	Liveness   string         `json:"liveness"`
	Services   []probe.Result `json:"services,omitempty"`
	TaskTotal  int64          `json:"task_total,omitempty"`
	TaskActive int64          `json:"task_active,omitempty"`
}

// AggregatedStatus is the merged, read-only status view. It is computed
// fresh on every query and never cached.
type AggregatedStatus struct {
	MachineID string             `json:"machine_id"`
	Hostname  string             `json:"hostname"`
	Nickname  string             `json:"nickname,omitempty"`
	Mode      string             `json:"mode"`
	CheckedAt time.Time          `json:"checked_at"`
	Self      []probe.Result     `json:"self"`
	Peers     []PeerStatus       `json:"peers,omitempty"`
	Tasks     *taskboard.Summary `json:"tasks,omitempty"`
}

// Opts configures an Aggregator.
type Opts struct {
	Identity     *identity.MachineIdentity
	Mode         string
	Table        *Table // nil for client-only machines
	Probers      []probe.Prober
	ProbeTimeout time.Duration
	StaleAfter   time.Duration
	Board        SummarySource    // nil = no task board
	Now          func() time.Time // defaults to time.Now
}

// Aggregator owns the peer table and answers status queries. Status and
// Receive are safe to call concurrently.
type Aggregator struct {
	opts Opts
}

// New validates opts and returns an Aggregator.
func New(opts Opts) (*Aggregator, error) {
	if opts.Identity == nil {
		return nil, fmt.Errorf("aggregator: identity is required")
	}
	if opts.Mode == "" {
		return nil, fmt.Errorf("aggregator: mode is required")
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{opts: opts}, nil
}

// Table exposes the peer table for collaborators that watch transitions.
func (a *Aggregator) Table() *Table { return a.opts.Table }

// StaleAfter returns the configured liveness timeout.
func (a *Aggregator) StaleAfter() time.Duration { return a.opts.StaleAfter }

// Receive upserts one beacon into the peer table. Returns false when the
// beacon's sequence does not advance the stored record, or when this
// machine does not aggregate (client role).
func (a *Aggregator) Receive(b beacon.Beacon) bool {
	if a.opts.Table == nil {
		return false
	}
	return a.opts.Table.Upsert(b, a.opts.Now())
}

// Status computes the merged view: parallel local probes, the peer table
// annotated live/stale against now, and the task summary. It never mutates
// state; a missing task board degrades to an omitted summary.
func (a *Aggregator) Status(ctx context.Context) *AggregatedStatus {
	now := a.opts.Now()
	status := &AggregatedStatus{
		MachineID: a.opts.Identity.MachineID,
		Hostname:  a.opts.Identity.Hostname,
		Nickname:  a.opts.Identity.Nickname,
		Mode:      a.opts.Mode,
		CheckedAt: now,
		Self:      probe.RunAll(ctx, a.opts.ProbeTimeout, a.opts.Probers),
	}

	if a.opts.Table != nil {
		for _, rec := range a.opts.Table.Snapshot() {
			status.Peers = append(status.Peers, annotate(rec, now, a.opts.StaleAfter))
		}
	}

	if a.opts.Board != nil {
		summary, err := a.opts.Board.Summary(ctx)
		if err != nil {
			log.Printf("aggregator: task board unavailable: %v", err)
		} else {
			status.Tasks = summary
		}
	}

	return status
}

// annotate flags a record live or stale relative to now, not to its write time.
func annotate(rec PeerRecord, now time.Time, staleAfter time.Duration) PeerStatus {
	liveness := Live
	if now.Sub(rec.LastSeenAt) > staleAfter {
		liveness = Stale
	}
	return PeerStatus{
		MachineID:  rec.Beacon.MachineID,
		Hostname:   rec.Beacon.Hostname,
		Nickname:   rec.Beacon.Nickname,
		Sequence:   rec.Beacon.Sequence,
		LastSeenAt: rec.LastSeenAt,
		Liveness:   liveness,
		Services:   rec.Beacon.Status.Services,
		TaskTotal:  rec.Beacon.Status.TaskTotal,
		TaskActive: rec.Beacon.Status.TaskActive,
	}
}
