package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/roundhouse/internal/aggregator"
	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/lifecycle"
	"github.com/zulandar/roundhouse/internal/probe"
	"github.com/zulandar/roundhouse/internal/taskboard"
)

func newStatusCmd() *cobra.Command {
	var (
		dir    string
		asJSON bool
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the fleet status dashboard",
		Long: "Displays local service health, every known fleet machine with its liveness, " +
			"and the task-board summary. Falls back to local-only status when the fleet " +
			"server is unreachable. Use --watch for auto-refresh.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, dir, asJSON, watch)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw status as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "auto-refresh every 5 seconds")
	return cmd
}

func runStatus(cmd *cobra.Command, dir string, asJSON, watch bool) error {
	dir, err := resolveDir(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Path(dir))
	if err != nil {
		return err
	}
	id, err := identity.Load(identity.Path(dir))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	for {
		status, err := fetchStatus(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(errOut, "fleet server unreachable (%v); showing local status only\n", err)
			status = localStatus(cmd.Context(), cfg, id)
		}

		if watch {
			// Clear screen.
			fmt.Fprint(out, "\033[2J\033[H")
		}

		if asJSON {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal status: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			fmt.Fprint(out, aggregator.FormatStatus(status, aggregator.FormatOpts{
				HidePeers: cfg.Display.HidePeers,
				HideTasks: cfg.Display.HideTasks,
			}))
		}

		if !watch {
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

// fetchStatus asks the fleet server for the aggregated view.
func fetchStatus(ctx context.Context, cfg *config.Config) (*aggregator.AggregatedStatus, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, cfg.ServerURL+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var status aggregator.AggregatedStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// localStatus computes a degraded, peer-free status from local probes and the
// task board. Always succeeds; individual sources degrade to omissions.
func localStatus(ctx context.Context, cfg *config.Config, id *identity.MachineIdentity) *aggregator.AggregatedStatus {
	var board aggregator.SummarySource
	if cfg.TaskBoard.Enabled() {
		if b, err := taskboard.Open(cfg.TaskBoard); err == nil {
			board = b
		}
	}

	agg, err := aggregator.New(aggregator.Opts{
		Identity:     id,
		Mode:         cfg.Mode,
		Probers:      localProbers(cfg),
		ProbeTimeout: cfg.Probes.Timeout(),
		StaleAfter:   cfg.Heartbeat.StaleAfter(),
		Board:        board,
	})
	if err != nil {
		// Identity and mode are validated above; this cannot happen.
		return &aggregator.AggregatedStatus{MachineID: id.MachineID, Mode: cfg.Mode, CheckedAt: time.Now()}
	}
	return agg.Status(ctx)
}

// localProbers builds the configured probers backed by the real supervisor.
func localProbers(cfg *config.Config) []probe.Prober {
	mgr := lifecycle.NewManager(launchAgentsDir(), nil)
	return probe.FromConfig(cfg.Probes.Services, func(label string) (bool, string) {
		return mgr.UnitState(lifecycle.Unit{Label: label})
	})
}
