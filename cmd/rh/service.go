package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/lifecycle"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the Roundhouse background agents",
	}

	cmd.AddCommand(newServiceInstallCmd())
	cmd.AddCommand(newServiceUninstallCmd())
	cmd.AddCommand(newServiceStatusCmd())
	return cmd
}

// launchAgentsDir is where per-user unit definitions live.
func launchAgentsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Library", "LaunchAgents")
}

// fleetUnits lists the units this machine's role calls for. The tunnel
// restorer only exists where an overlay network does.
func fleetUnits(binary, dir string, cfg *config.Config, hasOverlay bool) []lifecycle.Unit {
	units := []lifecycle.Unit{lifecycle.AgentUnit(binary, dir, cfg)}
	if cfg.Mode != config.ModeClient {
		units = append(units, lifecycle.ServeUnit(binary, dir, cfg))
		if hasOverlay {
			units = append(units, lifecycle.TunnelRestoreUnit(binary, dir))
		}
	}
	return units
}

func loadServiceEnv(dir string) (string, string, *config.Config, *identity.MachineIdentity, error) {
	dir, err := resolveDir(dir)
	if err != nil {
		return "", "", nil, nil, err
	}
	cfg, err := config.Load(config.Path(dir))
	if err != nil {
		return "", "", nil, nil, err
	}
	id, err := identity.Load(identity.Path(dir))
	if err != nil {
		return "", "", nil, nil, err
	}
	binary, err := os.Executable()
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("service: resolve binary path: %w", err)
	}
	return dir, binary, cfg, id, nil
}

func newServiceInstallCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install (or reinstall) the background agents",
		Long: "Writes the unit definitions and reloads them. Re-running after a config " +
			"change is how the agents pick up new settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, binary, cfg, id, err := loadServiceEnv(dir)
			if err != nil {
				return err
			}
			mgr := lifecycle.NewManager(launchAgentsDir(), nil)
			out := cmd.OutOrStdout()
			for _, u := range fleetUnits(binary, dir, cfg, id.Capabilities.HasOverlayNetwork) {
				if err := mgr.Install(u); err != nil {
					return err
				}
				fmt.Fprintf(out, "Installed %s\n", u.Label)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	return cmd
}

func newServiceUninstallCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the background agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, binary, cfg, id, err := loadServiceEnv(dir)
			if err != nil {
				return err
			}
			mgr := lifecycle.NewManager(launchAgentsDir(), nil)
			out := cmd.OutOrStdout()
			for _, u := range fleetUnits(binary, dir, cfg, id.Capabilities.HasOverlayNetwork) {
				if err := mgr.Uninstall(u); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s\n", u.Label)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	return cmd
}

func newServiceStatusCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of each background agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, binary, cfg, id, err := loadServiceEnv(dir)
			if err != nil {
				return err
			}
			mgr := lifecycle.NewManager(launchAgentsDir(), nil)
			out := cmd.OutOrStdout()
			for _, u := range fleetUnits(binary, dir, cfg, id.Capabilities.HasOverlayNetwork) {
				fmt.Fprintf(out, "%-45s %s\n", u.Label, mgr.Status(u))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	return cmd
}
