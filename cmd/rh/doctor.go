package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/lifecycle"
	"github.com/zulandar/roundhouse/internal/taskboard"
	"github.com/zulandar/roundhouse/internal/tunnel"
)

func newDoctorCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check fleet prerequisites and configuration",
		Long: "Runs diagnostic checks on Roundhouse prerequisites: identity, config, " +
			"binaries, background agents, server reachability, task board, and overlay network.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, dir string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Roundhouse Doctor")
	fmt.Fprintln(out, "=================")

	dir, err := resolveDir(dir)
	if err != nil {
		return err
	}

	var results []checkResult

	// 1. Identity
	id, idResult := checkIdentity(dir)
	results = append(results, idResult)

	// 2. Config
	cfg, cfgResult := checkFleetConfig(dir)
	results = append(results, cfgResult)

	// 3. Binaries
	results = append(results, checkBinary("launchctl", false))
	results = append(results, checkBinary("tailscale", true))
	results = append(results, checkBinary("tmux", true))

	// 4. Background agents
	if cfg != nil {
		hasOverlay := id != nil && id.Capabilities.HasOverlayNetwork
		results = append(results, checkUnits(dir, cfg, hasOverlay)...)
	} else {
		results = append(results, checkResult{"Background agents", "FAIL", "skipped (no config)"})
	}

	// 5. Fleet server
	if cfg != nil {
		results = append(results, checkServer(cmd.Context(), cfg))
	} else {
		results = append(results, checkResult{"Fleet server", "FAIL", "skipped (no config)"})
	}

	// 6. Task board
	if cfg != nil {
		results = append(results, checkTaskBoard(cmd.Context(), cfg))
	} else {
		results = append(results, checkResult{"Task board", "FAIL", "skipped (no config)"})
	}

	// 7. Overlay network
	results = append(results, checkOverlay(id))

	// Print results.
	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printCheckResult(out io.Writer, r checkResult) {
	fmt.Fprintf(out, "[%s] %s: %s\n", r.status, r.name, r.detail)
}

func checkIdentity(dir string) (*identity.MachineIdentity, checkResult) {
	path := identity.Path(dir)
	if _, err := os.Stat(path); err != nil {
		return nil, checkResult{"Identity", "FAIL", fmt.Sprintf("%s missing (run rh setup)", path)}
	}
	id, err := identity.Load(path)
	if err != nil {
		return nil, checkResult{"Identity", "FAIL", err.Error()}
	}
	return id, checkResult{"Identity", "PASS", fmt.Sprintf("%s (%s)", id.Nickname, id.MachineID)}
}

func checkFleetConfig(dir string) (*config.Config, checkResult) {
	path := config.Path(dir)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, checkResult{"Config file", "FAIL", fmt.Sprintf("%s: %v", path, err)}
	}
	return cfg, checkResult{"Config file", "PASS", fmt.Sprintf("%s (mode: %s)", path, cfg.Mode)}
}

func checkBinary(name string, optional bool) checkResult {
	path, err := exec.LookPath(name)
	if err != nil {
		if optional {
			return checkResult{name, "WARN", "not found (optional)"}
		}
		return checkResult{name, "FAIL", "not found in PATH"}
	}
	return checkResult{name, "PASS", path}
}

func checkUnits(dir string, cfg *config.Config, hasOverlay bool) []checkResult {
	binary, err := os.Executable()
	if err != nil {
		binary = "rh"
	}
	mgr := lifecycle.NewManager(launchAgentsDir(), nil)

	var results []checkResult
	for _, u := range fleetUnits(binary, dir, cfg, hasOverlay) {
		name := fmt.Sprintf("Agent %s", u.Label)
		switch state := mgr.Status(u); state {
		case lifecycle.StateRunning:
			results = append(results, checkResult{name, "PASS", state})
		case lifecycle.StateStopped:
			// One-shot units are loaded but not continuously running.
			if !u.KeepAlive {
				results = append(results, checkResult{name, "PASS", state})
			} else {
				results = append(results, checkResult{name, "FAIL", state})
			}
		default:
			results = append(results, checkResult{name, "FAIL", state})
		}
	}
	return results
}

func checkServer(ctx context.Context, cfg *config.Config) checkResult {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, cfg.ServerURL+"/healthz", nil)
	if err != nil {
		return checkResult{"Fleet server", "FAIL", err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return checkResult{"Fleet server", "FAIL", fmt.Sprintf("%s unreachable: %v", cfg.ServerURL, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return checkResult{"Fleet server", "FAIL", fmt.Sprintf("%s returned %d", cfg.ServerURL, resp.StatusCode)}
	}
	return checkResult{"Fleet server", "PASS", fmt.Sprintf("%s reachable", cfg.ServerURL)}
}

func checkTaskBoard(ctx context.Context, cfg *config.Config) checkResult {
	if !cfg.TaskBoard.Enabled() {
		return checkResult{"Task board", "WARN", "not configured"}
	}
	board, err := taskboard.Open(cfg.TaskBoard)
	if err != nil {
		return checkResult{"Task board", "FAIL", err.Error()}
	}
	summary, err := board.Summary(ctx)
	if err != nil {
		return checkResult{"Task board", "FAIL", err.Error()}
	}
	return checkResult{"Task board", "PASS", fmt.Sprintf("%d cards, %d in progress", summary.Total, summary.InProgress)}
}

func checkOverlay(id *identity.MachineIdentity) checkResult {
	if !tunnel.Default.Present() {
		return checkResult{"Overlay network", "WARN", "tailscale not installed (tunnels disabled)"}
	}
	ip, hostname, err := tunnel.Default.Addr()
	if err != nil {
		return checkResult{"Overlay network", "WARN", fmt.Sprintf("installed but not responding: %v", err)}
	}
	detail := strings.TrimSpace(fmt.Sprintf("%s %s", ip, hostname))
	if id != nil && id.Network.OverlayAddr != "" && id.Network.OverlayAddr != ip {
		detail += " (identity records a different address; re-run rh setup)"
	}
	return checkResult{"Overlay network", "PASS", detail}
}
