package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/tunnel"
)

func newTunnelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tunnel",
		Short: "Expose dashboards through the overlay network",
	}

	cmd.AddCommand(newTunnelPublishCmd())
	cmd.AddCommand(newTunnelRestoreCmd())
	cmd.AddCommand(newTunnelStatusCmd())
	return cmd
}

func newTunnelPublishCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the configured routes on the overlay ingress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishTunnelRoutes(cmd, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	return cmd
}

func newTunnelRestoreCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Re-publish routes after a restart",
		Long: "Re-issues every configured overlay route. Ingress configuration does not " +
			"survive a restart, so this runs once at login as a background agent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishTunnelRoutes(cmd, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	return cmd
}

func publishTunnelRoutes(cmd *cobra.Command, dir string) error {
	dir, err := resolveDir(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Path(dir))
	if err != nil {
		return err
	}

	mgr := &tunnel.Manager{PublicPort: cfg.PublicPort, Out: cmd.OutOrStdout()}
	return mgr.PublishRoutes(tunnel.Routes(cfg))
}

func newTunnelStatusCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the overlay address and configured routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(dir)
			if err != nil {
				return err
			}
			cfg, err := config.Load(config.Path(dir))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !tunnel.Default.Present() {
				fmt.Fprintln(out, "Overlay network not present")
				return nil
			}
			ip, hostname, err := tunnel.Default.Addr()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Overlay: %s (%s)\n\n", hostname, ip)

			routes := tunnel.Routes(cfg)
			paths := make([]string, 0, len(routes))
			for path := range routes {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			fmt.Fprintf(out, "Routes on https://%s:%d\n", hostname, cfg.PublicPort)
			for _, path := range paths {
				fmt.Fprintf(out, "  %-20s -> localhost:%d\n", path, routes[path])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	return cmd
}
