package aggregator

import (
	"sort"
	"sync"
	"time"

	"github.com/zulandar/roundhouse/internal/beacon"
)

// PeerRecord is the most recent accepted beacon from one machine, plus the
// receive timestamp staleness is judged against.
type PeerRecord struct {
	Beacon     beacon.Beacon
	LastSeenAt time.Time
}

// Table is the mutex-guarded peer table. It is owned by the Aggregator and
// touched only for in-memory upserts and reads; no lock is ever held across
// a network call.
type Table struct {
	mu    sync.Mutex
	peers map[string]PeerRecord
}

// NewTable returns an empty peer table.
func NewTable() *Table {
	return &Table{peers: make(map[string]PeerRecord)}
}

// Upsert stores b keyed by machine ID if its sequence is strictly greater
// than the stored one. Duplicates and out-of-order beacons are rejected, so
// stored state never regresses. Returns whether the beacon was accepted.
func (t *Table) Upsert(b beacon.Beacon, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.peers[b.MachineID]; ok && b.Sequence <= prev.Beacon.Sequence {
		return false
	}
	t.peers[b.MachineID] = PeerRecord{Beacon: b, LastSeenAt: now}
	return true
}

// Snapshot returns all records ordered by nickname then machine ID. Stale
// records are included; flagging is the caller's job since staleness is
// always judged against "now" at query time.
func (t *Table) Snapshot() []PeerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := make([]PeerRecord, 0, len(t.peers))
	for _, rec := range t.peers {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].Beacon, records[j].Beacon
		if a.Nickname != b.Nickname {
			return a.Nickname < b.Nickname
		}
		return a.MachineID < b.MachineID
	})
	return records
}

// Len returns the number of known peers.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}
