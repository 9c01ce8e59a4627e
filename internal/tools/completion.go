package tools

// Completion configures AI inline completion.
type Completion struct {
	Provider   string          `yaml:"provider"`
	Model      string          `yaml:"model"`
	Filetypes  map[string]bool `yaml:"filetypes"`
	AcceptKey  string          `yaml:"accept_key"`
	DebounceMs int             `yaml:"debounce_ms"`
}

// Tool implements Options.
func (c *Completion) Tool() string { return "completion" }

// Validate implements Options.
func (c *Completion) Validate() error {
	if c.Provider == "" {
		return invalid(c.Tool(), "provider", "provider is required")
	}
	if c.DebounceMs < 0 {
		return invalid(c.Tool(), "debounce_ms", "must not be negative")
	}
	return nil
}

// Enabled reports whether completion is active for ft.
// Filetypes not listed are enabled unless "*" is set to false.
func (c *Completion) Enabled(ft string) bool {
	if on, ok := c.Filetypes[ft]; ok {
		return on
	}
	if on, ok := c.Filetypes["*"]; ok {
		return on
	}
	return true
}

// Executables implements Options.
func (c *Completion) Executables() []string { return nil }
