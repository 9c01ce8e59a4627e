package plugin

// State represents where a plugin is in its install lifecycle.
type State int

// Plugin states.
const (
	// StateRegistered - the spec is known but nothing was installed yet.
	StateRegistered State = iota

	// StateInstalled - the plugin is present on disk.
	StateInstalled

	// StateError - installing or checking out failed.
	StateError
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInstalled:
		return "installed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
