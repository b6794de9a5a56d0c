package lifecycle

import (
	"fmt"
	"path/filepath"

	"github.com/zulandar/roundhouse/internal/config"
)

// Well-known unit labels for the Roundhouse background agents.
const (
	LabelAgent         = "com.zulandar.roundhouse.agent"
	LabelServe         = "com.zulandar.roundhouse.serve"
	LabelTunnelRestore = "com.zulandar.roundhouse.tunnel-restore"
)

// AgentUnit is the heartbeat reporter daemon. The resolved server URL and
// interval are embedded in the definition, so a config change requires a
// reinstall to take effect.
func AgentUnit(binary, dir string, cfg *config.Config) Unit {
	return Unit{
		Label: LabelAgent,
		Args: []string{
			binary, "agent",
			"--dir", dir,
			"--server-url", cfg.ServerURL,
			"--interval", fmt.Sprintf("%d", cfg.Heartbeat.IntervalSeconds),
		},
		LogPath:    filepath.Join(dir, "logs", "agent.log"),
		ErrLogPath: filepath.Join(dir, "logs", "agent.err.log"),
		KeepAlive:  true,
		RunAtLoad:  true,
	}
}

// ServeUnit is the fleet server daemon for server and standalone machines.
func ServeUnit(binary, dir string, cfg *config.Config) Unit {
	return Unit{
		Label: LabelServe,
		Args: []string{
			binary, "serve",
			"--dir", dir,
			"--port", fmt.Sprintf("%d", cfg.LocalPort),
		},
		LogPath:    filepath.Join(dir, "logs", "serve.log"),
		ErrLogPath: filepath.Join(dir, "logs", "serve.err.log"),
		KeepAlive:  true,
		RunAtLoad:  true,
	}
}

// TunnelRestoreUnit re-issues overlay routes once at login, since ingress
// configuration does not survive a restart.
func TunnelRestoreUnit(binary, dir string) Unit {
	return Unit{
		Label: LabelTunnelRestore,
		Args: []string{
			binary, "tunnel", "restore",
			"--dir", dir,
		},
		LogPath:    filepath.Join(dir, "logs", "tunnel.log"),
		ErrLogPath: filepath.Join(dir, "logs", "tunnel.err.log"),
		RunAtLoad:  true,
	}
}
