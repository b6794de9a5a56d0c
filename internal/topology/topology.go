// Package topology decides a machine's fleet role and the server endpoint
// its heartbeats report to.
package topology

import (
	"fmt"
	"net/url"

	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
)

// Prompter asks the user for topology choices when nothing explicit or
// stored is available. A nil Prompter means non-interactive resolution.
type Prompter interface {
	// ChooseRole picks one of the offered roles.
	ChooseRole(options []string) (string, error)
	// ServerURL asks for the fleet server endpoint a client reports to.
	ServerURL() (string, error)
}

// Opts configures a Resolve call. Explicit values win over stored state,
// stored state wins over prompting.
type Opts struct {
	Role      string // explicit override; "" = resolve from stored/prompt
	ServerURL string // explicit override for client role
	Identity  *identity.MachineIdentity
	Stored    *config.Config // previously saved fleet config, nil on first run
	LocalPort int            // used to synthesize the local server URL
	Prompt    Prompter       // nil in non-interactive contexts
}

// Result is the resolved topology.
type Result struct {
	Role      string
	ServerURL string
}

// Resolve determines this machine's role and server endpoint. Clients never
// fall back to a localhost default: an unresolvable server URL is an error,
// since reporting to localhost from a client always fails.
func Resolve(opts Opts) (*Result, error) {
	if opts.Identity == nil {
		return nil, fmt.Errorf("topology: identity is required")
	}
	if opts.LocalPort <= 0 {
		opts.LocalPort = 7420
	}

	role, err := resolveRole(opts)
	if err != nil {
		return nil, err
	}

	if role != config.ModeClient {
		return &Result{
			Role:      role,
			ServerURL: fmt.Sprintf("http://localhost:%d", opts.LocalPort),
		}, nil
	}

	serverURL, err := resolveServerURL(opts)
	if err != nil {
		return nil, err
	}
	return &Result{Role: config.ModeClient, ServerURL: serverURL}, nil
}

func resolveRole(opts Opts) (string, error) {
	role := opts.Role
	if role == "" && opts.Stored != nil {
		role = opts.Stored.Mode
	}
	if role == "" {
		role = opts.Identity.Role
	}
	if role == "" {
		if opts.Prompt == nil {
			return "", fmt.Errorf("topology: role not configured; pass --role or run interactively")
		}
		chosen, err := opts.Prompt.ChooseRole([]string{config.ModeStandalone, config.ModeServer, config.ModeClient})
		if err != nil {
			return "", fmt.Errorf("topology: choose role: %w", err)
		}
		role = chosen
	}
	switch role {
	case config.ModeStandalone, config.ModeServer, config.ModeClient:
		return role, nil
	default:
		return "", fmt.Errorf("topology: unknown role %q", role)
	}
}

func resolveServerURL(opts Opts) (string, error) {
	raw := opts.ServerURL
	if raw == "" && opts.Stored != nil && opts.Stored.Mode == config.ModeClient {
		raw = opts.Stored.ServerURL
	}
	if raw == "" {
		if opts.Prompt == nil {
			return "", fmt.Errorf("topology: client role needs a server URL; pass --server-url or run interactively")
		}
		answered, err := opts.Prompt.ServerURL()
		if err != nil {
			return "", fmt.Errorf("topology: prompt server URL: %w", err)
		}
		raw = answered
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("topology: server URL %q is not a valid URL", raw)
	}
	return raw, nil
}
