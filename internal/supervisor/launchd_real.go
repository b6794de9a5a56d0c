//go:build !unittest

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Launchd is the production implementation that calls the real launchctl
// binary against the gui/<uid> domain.
type Launchd struct{}

func (Launchd) IsLoaded(label string) bool {
	cmd := exec.Command("launchctl", "print", target(label))
	return cmd.Run() == nil
}

func (Launchd) IsRunning(label string) bool {
	out, err := exec.Command("launchctl", "print", target(label)).Output()
	if err != nil {
		return false
	}
	// A loaded-but-stopped unit prints no pid line.
	for _, line := range strings.Split(string(out), "\n") {
		if strings.Contains(line, "pid = ") {
			return true
		}
	}
	return false
}

func (Launchd) Bootstrap(definitionPath string) error {
	cmd := exec.Command("launchctl", "bootstrap", domain(), definitionPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("supervisor: bootstrap %s: %s: %w", definitionPath, strings.TrimSpace(string(out)), err)
	}
	return nil
}

func (Launchd) Bootout(label string) error {
	cmd := exec.Command("launchctl", "bootout", target(label))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("supervisor: bootout %s: %s: %w", label, strings.TrimSpace(string(out)), err)
	}
	return nil
}

func domain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

func target(label string) string {
	return fmt.Sprintf("%s/%s", domain(), label)
}
