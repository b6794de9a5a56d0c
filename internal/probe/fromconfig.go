package probe

import "github.com/zulandar/roundhouse/internal/config"

// UnitStateFunc queries the supervisor state for a unit label.
type UnitStateFunc func(label string) (running bool, detail string)

// FromConfig builds probers for the configured service probes. unitState may
// be nil when no supervisor is available; unit probes then report not running.
func FromConfig(specs []config.ServiceProbe, unitState UnitStateFunc) []Prober {
	probers := make([]Prober, 0, len(specs))
	for _, s := range specs {
		switch s.Kind {
		case "tcp":
			probers = append(probers, TCPProbe{ServiceName: s.Name, Addr: s.Target})
		case "http":
			probers = append(probers, HTTPProbe{ServiceName: s.Name, URL: s.Target})
		case "unit":
			label := s.Target
			var state func() (bool, string)
			if unitState != nil {
				state = func() (bool, string) { return unitState(label) }
			}
			probers = append(probers, UnitProbe{ServiceName: s.Name, State: state})
		}
	}
	return probers
}
