package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/release"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rh",
		Short: "Roundhouse — fleet status for developer workstations",
		Long:  "Roundhouse tracks a fleet of developer machines: which ones are alive, what services they run, and what the task board says.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newServiceCmd())
	cmd.AddCommand(newTunnelCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rh %s (commit: %s, built: %s)\n", Version, Commit, Date)
			if !check {
				return nil
			}

			checker, err := release.New("zulandar", "roundhouse", os.Getenv("GITHUB_TOKEN"))
			if err != nil {
				return err
			}
			info, err := checker.Check(cmd.Context(), Version)
			if err != nil {
				return err
			}
			switch {
			case info.Latest == "":
				fmt.Fprintln(out, "Update check skipped for dev builds")
			case info.UpdateAvailable:
				fmt.Fprintf(out, "Update available: %s\n  %s\n", info.Latest, info.URL)
			default:
				fmt.Fprintln(out, "Up to date")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

// resolveDir returns the Roundhouse directory, defaulting to ~/.roundhouse.
func resolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return config.DefaultDir()
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
