package tools

// DefaultLintEvents are the editor events that trigger linting.
var DefaultLintEvents = []string{"BufWritePost"}

// Lint maps filetypes to linters.
type Lint struct {
	LintersByFt map[string][]string `yaml:"linters_by_ft"`
	Linters     map[string]Linter   `yaml:"linters"`
	Events      []string            `yaml:"events"`
}

// Linter overrides how a linter is run.
type Linter struct {
	Cmd string `yaml:"cmd"`
}

func (l *Lint) setDefaults() {
	l.Events = append([]string(nil), DefaultLintEvents...)
}

// Tool implements Options.
func (l *Lint) Tool() string { return "lint" }

// Validate implements Options.
func (l *Lint) Validate() error {
	if len(l.Events) == 0 {
		return invalid(l.Tool(), "events", "at least one event is required")
	}
	for ft, linters := range l.LintersByFt {
		for _, name := range linters {
			if name == "" {
				return invalid(l.Tool(), "linters_by_ft."+ft, "empty linter name")
			}
		}
	}
	for name, def := range l.Linters {
		if def.Cmd == "" {
			return invalid(l.Tool(), "linters."+name+".cmd", "must not be empty")
		}
	}
	return nil
}

// Executables implements Options. Linter names are mapped to the
// programs they run.
func (l *Lint) Executables() []string {
	var out []string
	for _, linters := range l.LintersByFt {
		for _, name := range linters {
			out = append(out, l.command(name))
		}
	}
	return sortedUnique(out)
}

func (l *Lint) command(name string) string {
	if def, ok := l.Linters[name]; ok {
		return def.Cmd
	}
	return resolveCommand(name, nil, lintCommands)
}
