package aggregator

import (
	"fmt"
	"strings"
	"time"
)

// FormatOpts controls which panels FormatStatus renders.
type FormatOpts struct {
	HidePeers bool
	HideTasks bool
}

// FormatStatus renders an AggregatedStatus as a human-readable dashboard string.
func FormatStatus(s *AggregatedStatus, opts FormatOpts) string {
	var b strings.Builder

	name := s.Nickname
	if name == "" {
		name = s.Hostname
	}
	b.WriteString(fmt.Sprintf("Roundhouse: %s (%s)\n\n", name, s.Mode))

	// Local service table.
	b.WriteString("SERVICES\n")
	b.WriteString(fmt.Sprintf("%-20s %-8s %-6s %s\n", "NAME", "STATE", "PORT", "DETAIL"))
	for _, svc := range s.Self {
		state := "down"
		if svc.Running {
			state = "up"
		}
		port := "-"
		if svc.Port > 0 {
			port = fmt.Sprintf("%d", svc.Port)
		}
		b.WriteString(fmt.Sprintf("%-20s %-8s %-6s %s\n", svc.Name, state, port, svc.Detail))
	}
	if len(s.Self) == 0 {
		b.WriteString("  (no services configured)\n")
	}
	b.WriteString("\n")

	// Peer table.
	if !opts.HidePeers && len(s.Peers) > 0 {
		b.WriteString("MACHINES\n")
		b.WriteString(fmt.Sprintf("%-16s %-20s %-7s %-12s %s\n",
			"NICKNAME", "HOST", "STATE", "LAST SEEN", "TASKS"))
		for _, p := range s.Peers {
			nick := p.Nickname
			if nick == "" {
				nick = p.MachineID
			}
			tasks := "-"
			if p.TaskTotal > 0 {
				tasks = fmt.Sprintf("%d/%d active", p.TaskActive, p.TaskTotal)
			}
			b.WriteString(fmt.Sprintf("%-16s %-20s %-7s %-12s %s\n",
				nick, p.Hostname, p.Liveness,
				formatAge(s.CheckedAt.Sub(p.LastSeenAt)), tasks))
		}
		b.WriteString("\n")
	}

	// Task summary.
	if !opts.HideTasks && s.Tasks != nil {
		b.WriteString("TASK BOARD\n")
		b.WriteString(fmt.Sprintf("%-12s %6s %8s\n", "TEAM", "TOTAL", "ACTIVE"))
		for _, t := range s.Tasks.Teams {
			b.WriteString(fmt.Sprintf("%-12s %6d %8d\n", t.Team, t.Total, t.InProgress))
		}
		b.WriteString(fmt.Sprintf("%-12s %6d %8d\n", "all", s.Tasks.Total, s.Tasks.InProgress))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("Checked at %s\n", s.CheckedAt.Format("15:04:05")))
	return b.String()
}

// formatAge formats a duration as "Xs", "Xm Ys", or "Xh Ym" ago.
func formatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm ago", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds ago", m, s)
	default:
		return fmt.Sprintf("%ds ago", s)
	}
}
