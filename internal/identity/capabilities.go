package identity

import "os/exec"

// Well-known collaborator binaries probed during capability detection.
const (
	overlayBinary    = "tailscale"
	terminalBinary   = "tmux"
	supervisorBinary = "launchctl"
)

// DetectCapabilities probes for optional collaborator binaries. Absence is
// recorded, never treated as an error.
func DetectCapabilities() Capabilities {
	return Capabilities{
		CanHostServer:          binaryPresent(supervisorBinary),
		HasOverlayNetwork:      binaryPresent(overlayBinary),
		HasTerminalIntegration: binaryPresent(terminalBinary),
	}
}

func binaryPresent(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
