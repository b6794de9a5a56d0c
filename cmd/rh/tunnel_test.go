package main

import (
	"strings"
	"testing"

	"github.com/zulandar/roundhouse/internal/config"
)

func TestTunnelPublish_NoOverlay(t *testing.T) {
	dir := fleetFixture(t, config.ModeStandalone)

	// The unit-test overlay stub reports not present; publishing must be a
	// logged no-op, never an error.
	out, err := runCommand(t, "tunnel", "publish", "--dir", dir)
	if err != nil {
		t.Fatalf("tunnel publish failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "not present") {
		t.Errorf("expected overlay-absent notice, got:\n%s", out)
	}
}

func TestTunnelRestore_NoOverlay(t *testing.T) {
	dir := fleetFixture(t, config.ModeStandalone)

	if _, err := runCommand(t, "tunnel", "restore", "--dir", dir); err != nil {
		t.Fatalf("tunnel restore failed: %v", err)
	}
}

func TestTunnelStatus_NoOverlay(t *testing.T) {
	dir := fleetFixture(t, config.ModeStandalone)

	out, err := runCommand(t, "tunnel", "status", "--dir", dir)
	if err != nil {
		t.Fatalf("tunnel status failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "not present") {
		t.Errorf("expected overlay-absent notice, got:\n%s", out)
	}
}

func TestTunnel_MissingConfig(t *testing.T) {
	if _, err := runCommand(t, "tunnel", "publish", "--dir", t.TempDir()); err == nil {
		t.Error("expected error for missing config")
	}
}
