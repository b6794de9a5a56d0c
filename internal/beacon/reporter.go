package beacon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/probe"
)

// DefaultInterval is the default time between beacons.
const DefaultInterval = 60 * time.Second

// DefaultSendTimeout bounds a single beacon delivery.
const DefaultSendTimeout = 5 * time.Second

// TaskCounter supplies task-board counts for the self-reported status.
// Errors degrade to zero counts; the beacon still goes out.
type TaskCounter interface {
	Counts(ctx context.Context) (total, active int64, err error)
}

// Reporter periodically pushes a liveness beacon to the fleet server.
// Delivery is fire-and-forget: a failed send is dropped and the next tick
// self-heals. Staleness on the receiving side is the intended failure signal.
type Reporter struct {
	URL          string
	Identity     *identity.MachineIdentity
	Interval     time.Duration
	SendTimeout  time.Duration
	Probers      []probe.Prober
	ProbeTimeout time.Duration
	Tasks        TaskCounter // nil = no task board
	Client       *http.Client
	Out          io.Writer

	seq uint64
}

// Run sends one beacon immediately, then one per tick until ctx is cancelled.
// The sequence is seeded from wall-clock seconds so a restarted reporter
// stays strictly monotonic from the server's point of view.
func (r *Reporter) Run(ctx context.Context) error {
	if r.URL == "" {
		return fmt.Errorf("beacon: server URL is required")
	}
	if r.Identity == nil {
		return fmt.Errorf("beacon: identity is required")
	}
	if r.Interval <= 0 {
		r.Interval = DefaultInterval
	}
	if r.SendTimeout <= 0 {
		r.SendTimeout = DefaultSendTimeout
	}
	if r.Client == nil {
		r.Client = &http.Client{}
	}
	if r.Out == nil {
		r.Out = io.Discard
	}
	if r.seq == 0 {
		r.seq = uint64(time.Now().Unix())
	}

	fmt.Fprintf(r.Out, "Reporting to %s every %s\n", r.URL, r.Interval)

	if err := r.send(ctx); err != nil {
		log.Printf("beacon: send: %v", err)
	}

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.send(ctx); err != nil {
				// Dropped on purpose. No retry queue, no backlog.
				log.Printf("beacon: send: %v", err)
			}
		}
	}
}

// send assembles and delivers a single beacon within the send timeout.
func (r *Reporter) send(ctx context.Context) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.SendTimeout)
	defer cancel()

	r.seq++
	b := Beacon{
		MachineID: r.Identity.MachineID,
		Hostname:  r.Identity.Hostname,
		Nickname:  r.Identity.Nickname,
		Sequence:  r.seq,
		SentAt:    time.Now().UTC(),
		Status:    r.selfStatus(sendCtx),
	}

	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, r.URL+"/api/heartbeat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", r.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("post %s: status %d", r.URL, resp.StatusCode)
	}
	return nil
}

func (r *Reporter) selfStatus(ctx context.Context) SelfStatus {
	status := SelfStatus{
		Services: probe.RunAll(ctx, r.ProbeTimeout, r.Probers),
	}
	if r.Tasks != nil {
		total, active, err := r.Tasks.Counts(ctx)
		if err != nil {
			log.Printf("beacon: task counts: %v", err)
		} else {
			status.TaskTotal = total
			status.TaskActive = active
		}
	}
	return status
}
