package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/roundhouse/internal/beacon"
	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/taskboard"
)

func newAgentCmd() *cobra.Command {
	var (
		dir       string
		serverURL string
		interval  int
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the heartbeat reporter",
		Long: "Periodically pushes a liveness beacon with local service health to the fleet " +
			"server. Normally run as a background agent installed by rh setup.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, dir, serverURL, interval)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "fleet server URL (default from config)")
	cmd.Flags().IntVar(&interval, "interval", 0, "beacon interval in seconds (default from config)")
	return cmd
}

func runAgent(cmd *cobra.Command, dir, serverURL string, interval int) error {
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

	if serverURL == "" {
		serverURL = cfg.ServerURL
	}
	if serverURL == "" {
		return fmt.Errorf("agent: no server URL configured")
	}
	beatEvery := cfg.Heartbeat.Interval()
	if interval > 0 {
		beatEvery = time.Duration(interval) * time.Second
	}

	var tasks beacon.TaskCounter
	if cfg.TaskBoard.Enabled() {
		board, err := taskboard.Open(cfg.TaskBoard)
		if err != nil {
			log.Printf("agent: task board unavailable: %v", err)
		} else {
			tasks = board
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporter := &beacon.Reporter{
		URL:          serverURL,
		Identity:     id,
		Interval:     beatEvery,
		SendTimeout:  cfg.Heartbeat.SendTimeout(),
		Probers:      localProbers(cfg),
		ProbeTimeout: cfg.Probes.Timeout(),
		Tasks:        tasks,
		Out:          cmd.OutOrStdout(),
	}
	return reporter.Run(ctx)
}
