package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/lifecycle"
	"github.com/zulandar/roundhouse/internal/topology"
	"github.com/zulandar/roundhouse/internal/tunnel"
)

func newSetupCmd() *cobra.Command {
	var (
		dir        string
		role       string
		serverURL  string
		nickname   string
		localPort  int
		publicPort int
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Set up this machine's fleet membership",
		Long: "Creates the machine identity, resolves the fleet role, writes the fleet config, " +
			"installs the background agents, and publishes tunnel routes. Safe to re-run; " +
			"re-running is how configuration changes take effect.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, setupFlags{
				dir:        dir,
				role:       role,
				serverURL:  serverURL,
				nickname:   nickname,
				localPort:  localPort,
				publicPort: publicPort,
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	cmd.Flags().StringVar(&role, "role", "", "fleet role: standalone, server, or client")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "fleet server URL (client role)")
	cmd.Flags().StringVar(&nickname, "nickname", "", "human-friendly machine name")
	cmd.Flags().IntVar(&localPort, "local-port", 0, "local fleet server port")
	cmd.Flags().IntVar(&publicPort, "public-port", 0, "overlay ingress port")
	return cmd
}

type setupFlags struct {
	dir        string
	role       string
	serverURL  string
	nickname   string
	localPort  int
	publicPort int
}

func runSetup(cmd *cobra.Command, flags setupFlags) error {
	out := cmd.OutOrStdout()

	dir, err := resolveDir(flags.dir)
	if err != nil {
		return err
	}

	// 1. Identity. Created once, then only refreshed in place.
	id, err := identity.Ensure(dir)
	if err != nil {
		return err
	}
	if flags.nickname != "" {
		id.Nickname = flags.nickname
	}
	id.Capabilities = identity.DetectCapabilities()
	if id.Capabilities.HasOverlayNetwork {
		if ip, hostname, err := tunnel.Default.Addr(); err == nil {
			id.Network.OverlayAddr = ip
			id.Network.OverlayHostname = hostname
		}
	}
	fmt.Fprintf(out, "Machine: %s (%s)\n", id.Nickname, id.MachineID)

	// 2. Topology. Explicit flags beat the stored config; a terminal gets
	// prompted, a pipe gets an error. A corrupt stored config is surfaced
	// before its sections get discarded by the rewrite below.
	stored, err := config.Load(config.Path(dir))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: existing config %s is invalid and will be rewritten: %v\n", config.Path(dir), err)
		}
		stored = nil
	}
	var prompt topology.Prompter
	if term.IsTerminal(int(os.Stdin.Fd())) {
		prompt = &terminalPrompter{in: bufio.NewReader(cmd.InOrStdin()), out: out}
	}
	localPort := flags.localPort
	if localPort == 0 && stored != nil {
		localPort = stored.LocalPort
	}
	result, err := topology.Resolve(topology.Opts{
		Role:      flags.role,
		ServerURL: flags.serverURL,
		Identity:  id,
		Stored:    stored,
		LocalPort: localPort,
		Prompt:    prompt,
	})
	if err != nil {
		return err
	}
	id.Role = result.Role
	if err := id.Save(identity.Path(dir)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Role: %s\n", result.Role)

	// 3. Fleet config. Start from the stored file so unrelated settings
	// (probes, task board, notify) survive re-setup.
	cfg := stored
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.Mode = result.Role
	cfg.ServerURL = result.ServerURL
	if flags.localPort > 0 {
		cfg.LocalPort = flags.localPort
	}
	if flags.publicPort > 0 {
		cfg.PublicPort = flags.publicPort
	}
	if err := cfg.Save(config.Path(dir)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Config written to %s\n", config.Path(dir))

	// 4. Background agents.
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("setup: resolve binary path: %w", err)
	}
	mgr := lifecycle.NewManager(launchAgentsDir(), nil)
	for _, u := range fleetUnits(binary, dir, cfg, id.Capabilities.HasOverlayNetwork) {
		if err := mgr.Install(u); err != nil {
			return err
		}
		fmt.Fprintf(out, "Installed %s\n", u.Label)
	}

	// 5. Tunnel routes. A missing overlay is a notice, not a failure.
	if cfg.Mode != config.ModeClient {
		tm := &tunnel.Manager{PublicPort: cfg.PublicPort, Out: out}
		if err := tm.PublishRoutes(tunnel.Routes(cfg)); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Setup complete")
	return nil
}

// terminalPrompter asks topology questions on an interactive terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *terminalPrompter) ChooseRole(options []string) (string, error) {
	fmt.Fprintf(p.out, "Choose a fleet role:\n")
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprintf(p.out, "> ")

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	for i, opt := range options {
		if answer == opt || answer == fmt.Sprintf("%d", i+1) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", answer)
}

func (p *terminalPrompter) ServerURL() (string, error) {
	fmt.Fprintf(p.out, "Fleet server URL (e.g. http://hub:7420)\n> ")
	return p.readLine()
}

func (p *terminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
