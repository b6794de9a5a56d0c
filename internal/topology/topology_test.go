package topology

import (
	"fmt"
	"strings"
	"testing"

	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
)

type fakePrompter struct {
	role      string
	serverURL string
	roleAsked bool
	urlAsked  bool
}

func (f *fakePrompter) ChooseRole(options []string) (string, error) {
	f.roleAsked = true
	if f.role == "" {
		return "", fmt.Errorf("no answer")
	}
	return f.role, nil
}

func (f *fakePrompter) ServerURL() (string, error) {
	f.urlAsked = true
	if f.serverURL == "" {
		return "", fmt.Errorf("no answer")
	}
	return f.serverURL, nil
}

func testIdentity() *identity.MachineIdentity {
	return &identity.MachineIdentity{MachineID: "m-1", Hostname: "box"}
}

func TestResolve_ExplicitServerRole(t *testing.T) {
	res, err := Resolve(Opts{Role: config.ModeServer, Identity: testIdentity(), LocalPort: 7500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Role != config.ModeServer {
		t.Errorf("Role = %q, want server", res.Role)
	}
	if res.ServerURL != "http://localhost:7500" {
		t.Errorf("ServerURL = %q, want synthesized localhost", res.ServerURL)
	}
}

func TestResolve_StoredModeWins(t *testing.T) {
	stored := &config.Config{Mode: config.ModeStandalone}
	res, err := Resolve(Opts{Identity: testIdentity(), Stored: stored})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Role != config.ModeStandalone {
		t.Errorf("Role = %q, want standalone from stored config", res.Role)
	}
}

func TestResolve_IdentityRoleFallback(t *testing.T) {
	id := testIdentity()
	id.Role = config.ModeServer
	res, err := Resolve(Opts{Identity: id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Role != config.ModeServer {
		t.Errorf("Role = %q, want server from identity", res.Role)
	}
}

func TestResolve_PromptsWhenNothingStored(t *testing.T) {
	p := &fakePrompter{role: config.ModeClient, serverURL: "http://hub:7420"}
	res, err := Resolve(Opts{Identity: testIdentity(), Prompt: p})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.roleAsked {
		t.Error("prompter was not asked for a role")
	}
	if !p.urlAsked {
		t.Error("prompter was not asked for a server URL")
	}
	if res.ServerURL != "http://hub:7420" {
		t.Errorf("ServerURL = %q, want http://hub:7420", res.ServerURL)
	}
}

func TestResolve_NonInteractiveWithoutRole(t *testing.T) {
	_, err := Resolve(Opts{Identity: testIdentity()})
	if err == nil {
		t.Fatal("expected error without role in non-interactive mode")
	}
}

func TestResolve_ClientWithoutServerURLNonInteractive(t *testing.T) {
	_, err := Resolve(Opts{Role: config.ModeClient, Identity: testIdentity()})
	if err == nil {
		t.Fatal("expected error: client role must not default to localhost")
	}
	if !strings.Contains(err.Error(), "server URL") {
		t.Errorf("error = %q, want server URL message", err.Error())
	}
}

func TestResolve_ClientStoredServerURL(t *testing.T) {
	stored := &config.Config{Mode: config.ModeClient, ServerURL: "http://hub:7420"}
	res, err := Resolve(Opts{Role: config.ModeClient, Identity: testIdentity(), Stored: stored})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ServerURL != "http://hub:7420" {
		t.Errorf("ServerURL = %q, want stored http://hub:7420", res.ServerURL)
	}
}

func TestResolve_ExplicitOverrideBeatsStored(t *testing.T) {
	stored := &config.Config{Mode: config.ModeClient, ServerURL: "http://old:7420"}
	res, err := Resolve(Opts{
		Role:      config.ModeClient,
		ServerURL: "http://new:7420",
		Identity:  testIdentity(),
		Stored:    stored,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ServerURL != "http://new:7420" {
		t.Errorf("ServerURL = %q, want override http://new:7420", res.ServerURL)
	}
}

func TestResolve_InvalidServerURL(t *testing.T) {
	_, err := Resolve(Opts{Role: config.ModeClient, ServerURL: "not a url", Identity: testIdentity()})
	if err == nil {
		t.Fatal("expected error for invalid server URL")
	}
}

func TestResolve_UnknownRole(t *testing.T) {
	_, err := Resolve(Opts{Role: "observer", Identity: testIdentity()})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestResolve_RequiresIdentity(t *testing.T) {
	_, err := Resolve(Opts{Role: config.ModeServer})
	if err == nil {
		t.Fatal("expected error without identity")
	}
}
