//go:build !unittest

package tunnel

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Default is the overlay implementation used by the package.
var Default Overlay = Tailscale{}

// Tailscale is the production overlay implementation that calls the real
// tailscale binary.
type Tailscale struct{}

func (Tailscale) Present() bool {
	_, err := exec.LookPath("tailscale")
	return err == nil
}

// tailscaleStatus is the subset of `tailscale status --json` we read.
type tailscaleStatus struct {
	Self struct {
		DNSName      string   `json:"DNSName"`
		TailscaleIPs []string `json:"TailscaleIPs"`
	} `json:"Self"`
}

func (Tailscale) Addr() (string, string, error) {
	out, err := exec.Command("tailscale", "status", "--json").Output()
	if err != nil {
		return "", "", fmt.Errorf("tunnel: tailscale status: %w", err)
	}
	var status tailscaleStatus
	if err := json.Unmarshal(out, &status); err != nil {
		return "", "", fmt.Errorf("tunnel: parse tailscale status: %w", err)
	}
	ip := ""
	if len(status.Self.TailscaleIPs) > 0 {
		ip = status.Self.TailscaleIPs[0]
	}
	return ip, strings.TrimSuffix(status.Self.DNSName, "."), nil
}

func (Tailscale) SetPath(publicPort int, path string, localPort int) error {
	cmd := exec.Command("tailscale", "serve", "--bg",
		fmt.Sprintf("--https=%d", publicPort),
		"--set-path", path,
		fmt.Sprintf("http://127.0.0.1:%d", localPort),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tailscale serve %s: %s: %w", path, strings.TrimSpace(string(out)), err)
	}
	return nil
}
