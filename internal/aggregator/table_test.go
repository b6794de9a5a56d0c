package aggregator

import (
	"sync"
	"testing"
	"time"

	"github.com/zulandar/roundhouse/internal/beacon"
)

func beat(machineID string, seq uint64) beacon.Beacon {
	return beacon.Beacon{MachineID: machineID, Hostname: machineID + "-host", Sequence: seq}
}

func TestUpsert_SequenceMonotonicity(t *testing.T) {
	table := NewTable()
	now := time.Now()

	// Out-of-order and duplicate deliveries must never regress stored state.
	deliveries := []struct {
		seq      uint64
		accepted bool
	}{
		{1, true},
		{2, true},
		{2, false},
		{1, false},
		{3, true},
	}
	for i, d := range deliveries {
		got := table.Upsert(beat("m-1", d.seq), now)
		if got != d.accepted {
			t.Errorf("delivery %d (seq %d): accepted = %v, want %v", i, d.seq, got, d.accepted)
		}
	}

	records := table.Snapshot()
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Beacon.Sequence != 3 {
		t.Errorf("stored sequence = %d, want 3", records[0].Beacon.Sequence)
	}
}

func TestUpsert_IndependentPerMachine(t *testing.T) {
	table := NewTable()
	now := time.Now()

	if !table.Upsert(beat("m-1", 100), now) {
		t.Error("m-1 seq 100 rejected")
	}
	if !table.Upsert(beat("m-2", 5), now) {
		t.Error("m-2 seq 5 rejected; sequences are per-sender")
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestUpsert_UpdatesLastSeen(t *testing.T) {
	table := NewTable()
	t0 := time.Now()
	t1 := t0.Add(time.Minute)

	table.Upsert(beat("m-1", 1), t0)
	table.Upsert(beat("m-1", 2), t1)

	rec := table.Snapshot()[0]
	if !rec.LastSeenAt.Equal(t1) {
		t.Errorf("LastSeenAt = %v, want %v", rec.LastSeenAt, t1)
	}
}

func TestSnapshot_Ordered(t *testing.T) {
	table := NewTable()
	now := time.Now()

	b1 := beat("m-2", 1)
	b1.Nickname = "zulu"
	b2 := beat("m-1", 1)
	b2.Nickname = "alpha"
	b3 := beat("m-3", 1)
	b3.Nickname = "alpha"

	table.Upsert(b1, now)
	table.Upsert(b2, now)
	table.Upsert(b3, now)

	records := table.Snapshot()
	got := []string{records[0].Beacon.MachineID, records[1].Beacon.MachineID, records[2].Beacon.MachineID}
	want := []string{"m-1", "m-3", "m-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot order = %v, want %v", got, want)
		}
	}
}

func TestTable_ConcurrentAccess(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := string(rune('a' + w))
			for i := 1; i <= 100; i++ {
				table.Upsert(beat(id, uint64(i)), time.Now())
				table.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	if table.Len() != 8 {
		t.Errorf("Len() = %d, want 8", table.Len())
	}
	for _, rec := range table.Snapshot() {
		if rec.Beacon.Sequence != 100 {
			t.Errorf("machine %s sequence = %d, want 100", rec.Beacon.MachineID, rec.Beacon.Sequence)
		}
	}
}
