// Package identity manages the durable machine identity file. The machine ID
// is generated exactly once and survives every upgrade and reconfigure.
package identity

import (
	"crypto/sha256"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileName is the identity file name inside the Roundhouse directory.
const FileName = "identity.yaml"

// MachineIdentity describes this machine to the rest of the fleet.
type MachineIdentity struct {
	MachineID    string       `yaml:"machine_id"`
	Hostname     string       `yaml:"hostname"`
	Nickname     string       `yaml:"nickname"`
	Role         string       `yaml:"role"`
	Capabilities Capabilities `yaml:"capabilities"`
	Network      Network      `yaml:"network"`
	CreatedAt    time.Time    `yaml:"created_at"`
}

// Capabilities are soft signals that gate optional behavior. They never
// block installation when absent.
type Capabilities struct {
	CanHostServer          bool `yaml:"can_host_server"`
	HasOverlayNetwork      bool `yaml:"has_overlay_network"`
	HasTerminalIntegration bool `yaml:"has_terminal_integration"`
}

// Network holds the machine's reachable addresses.
type Network struct {
	LocalAddr       string `yaml:"local_addr"`
	OverlayAddr     string `yaml:"overlay_addr,omitempty"`
	OverlayHostname string `yaml:"overlay_hostname,omitempty"`
}

// Path returns the identity file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Ensure loads the identity file from dir, creating it on first run. The
// machine ID is never regenerated for an existing file. A dir that cannot be
// created or written is a fatal error: nothing else works without identity.
func Ensure(dir string) (*MachineIdentity, error) {
	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("identity: stat %s: %w", path, err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	id := &MachineIdentity{
		MachineID: newMachineID(hostname),
		Hostname:  hostname,
		Nickname:  hostname,
		Network:   Network{LocalAddr: localAddr()},
		CreatedAt: time.Now().UTC(),
	}
	if err := id.Save(path); err != nil {
		return nil, err
	}
	return id, nil
}

// Load reads and validates an identity file. A missing or malformed file is
// an error, never a partial result.
func Load(path string) (*MachineIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}
	var id MachineIdentity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("identity: parse %s: %w", path, err)
	}
	if id.MachineID == "" {
		return nil, fmt.Errorf("identity: %s has no machine_id (corrupt file)", path)
	}
	if id.Nickname == "" {
		id.Nickname = id.Hostname
	}
	return &id, nil
}

// Save writes the identity file, creating the directory if needed.
func (m *MachineIdentity) Save(path string) error {
	if m.MachineID == "" {
		return fmt.Errorf("identity: refusing to save identity without machine_id")
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("identity: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("identity: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("identity: write %s: %w", path, err)
	}
	return nil
}

// newMachineID returns a random UUID, falling back to a hostname+timestamp
// hash when no randomness source is available. The fallback carries a small
// collision risk that is acceptable at workstation-fleet scale.
func newMachineID(hostname string) string {
	if u, err := uuid.NewRandom(); err == nil {
		return u.String()
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s-%d", hostname, time.Now().UnixNano()))
	return fmt.Sprintf("%x", sum[:16])
}

// localAddr returns the first non-loopback IPv4 address, or "" if none.
func localAddr() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return ""
}
