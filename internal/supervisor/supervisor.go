// Package supervisor abstracts the host's per-user service supervisor
// (launchd). The lifecycle layer talks only to this interface so unit tests
// never shell out to launchctl.
package supervisor

// Supervisor manages user-domain service units by label.
type Supervisor interface {
	// IsLoaded reports whether the label is known to the supervisor.
	IsLoaded(label string) bool
	// IsRunning reports whether the loaded unit currently has a process.
	IsRunning(label string) bool
	// Bootstrap loads a unit definition file into the user domain.
	Bootstrap(definitionPath string) error
	// Bootout unloads the label from the user domain. Unloading an absent
	// label is an error the caller is expected to tolerate.
	Bootout(label string) error
}

// Default is the supervisor implementation used by the package.
// Set to Launchd{} in launchd_real.go (excluded from test builds via build tag).
var Default Supervisor = Launchd{}
