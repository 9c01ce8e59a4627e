package tools

// DefaultFormatTimeoutMs is the format-on-save timeout when none is given.
const DefaultFormatTimeoutMs = 500

// lspFormatModes are the accepted values of format_on_save.lsp_format.
var lspFormatModes = map[string]bool{
	"never":    true,
	"fallback": true,
	"prefer":   true,
	"first":    true,
	"last":     true,
}

// Conform maps filetypes to formatters.
type Conform struct {
	FormattersByFt map[string][]string  `yaml:"formatters_by_ft"`
	Formatters     map[string]Formatter `yaml:"formatters"`
	FormatOnSave   FormatOnSave         `yaml:"format_on_save"`
}

// Formatter overrides how a formatter is run.
type Formatter struct {
	Command string `yaml:"command"`
}

// FormatOnSave controls formatting when a buffer is written.
type FormatOnSave struct {
	TimeoutMs int    `yaml:"timeout_ms"`
	LspFormat string `yaml:"lsp_format"`
}

func (c *Conform) setDefaults() {
	c.FormatOnSave = FormatOnSave{TimeoutMs: DefaultFormatTimeoutMs, LspFormat: "fallback"}
}

// Tool implements Options.
func (c *Conform) Tool() string { return "conform" }

// Validate implements Options.
func (c *Conform) Validate() error {
	if c.FormatOnSave.TimeoutMs <= 0 {
		return invalid(c.Tool(), "format_on_save.timeout_ms", "must be positive, got %d", c.FormatOnSave.TimeoutMs)
	}
	if !lspFormatModes[c.FormatOnSave.LspFormat] {
		return invalid(c.Tool(), "format_on_save.lsp_format", "unknown mode %q", c.FormatOnSave.LspFormat)
	}
	for ft, names := range c.FormattersByFt {
		if len(names) == 0 {
			return invalid(c.Tool(), "formatters_by_ft."+ft, "no formatters listed")
		}
	}
	for name, f := range c.Formatters {
		if f.Command == "" {
			return invalid(c.Tool(), "formatters."+name+".command", "must not be empty")
		}
	}
	return nil
}

// Executables implements Options. Formatters that run inside the editor
// are left out.
func (c *Conform) Executables() []string {
	var out []string
	for _, names := range c.FormattersByFt {
		for _, name := range names {
			out = append(out, c.command(name))
		}
	}
	return sortedUnique(out)
}

func (c *Conform) command(name string) string {
	if f, ok := c.Formatters[name]; ok {
		return f.Command
	}
	return resolveCommand(name, conformBuiltins, conformCommands)
}
