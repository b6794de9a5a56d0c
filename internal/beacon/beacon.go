// Package beacon implements the heartbeat protocol: the payload every
// machine periodically pushes to its fleet server, and the reporter loop
// that sends it.
package beacon

import (
	"time"

	"github.com/zulandar/roundhouse/internal/probe"
)

// Beacon is one liveness message from a reporting machine.
type Beacon struct {
	MachineID string     `json:"machine_id"`
	Hostname  string     `json:"hostname"`
	Nickname  string     `json:"nickname,omitempty"`
	Sequence  uint64     `json:"sequence"`
	SentAt    time.Time  `json:"sent_at"`
	Status    SelfStatus `json:"status"`
}

// SelfStatus is the sender's health summary: local service probe results
// plus task-board counts when a board is configured.
type SelfStatus struct {
	Services   []probe.Result `json:"services,omitempty"`
	TaskTotal  int64          `json:"task_total,omitempty"`
	TaskActive int64          `json:"task_active,omitempty"`
}
