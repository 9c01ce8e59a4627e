package tools

// Treesitter configures syntax parsing.
type Treesitter struct {
	// EnsureInstalled lists parsers installed at startup.
	EnsureInstalled []string `yaml:"ensure_installed"`

	// AutoInstall installs missing parsers when a buffer is entered.
	AutoInstall bool `yaml:"auto_install"`

	Highlight Toggle `yaml:"highlight"`
	Indent    Toggle `yaml:"indent"`
}

// Toggle is a feature switch table such as highlight = { enable = true }.
type Toggle struct {
	Enable bool `yaml:"enable"`
}

// Tool implements Options.
func (t *Treesitter) Tool() string { return "treesitter" }

// Validate implements Options.
func (t *Treesitter) Validate() error {
	for i, lang := range t.EnsureInstalled {
		if lang == "" {
			return invalid(t.Tool(), "ensure_installed", "entry %d is empty", i+1)
		}
	}
	return nil
}

// Executables implements Options. Parsers are built by the plugin itself.
func (t *Treesitter) Executables() []string { return nil }
