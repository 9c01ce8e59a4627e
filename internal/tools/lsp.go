package tools

import "sort"

// LSP configures language servers by name.
type LSP struct {
	Servers map[string]Server `yaml:"servers"`
}

// Server describes how to start one language server.
type Server struct {
	// Cmd is the command line; Cmd[0] is the executable.
	Cmd []string `yaml:"cmd"`

	Filetypes   []string       `yaml:"filetypes"`
	RootMarkers []string       `yaml:"root_markers"`
	Settings    map[string]any `yaml:"settings"`
}

// Tool implements Options.
func (l *LSP) Tool() string { return "lsp" }

// Validate implements Options.
func (l *LSP) Validate() error {
	for _, name := range l.ServerNames() {
		srv := l.Servers[name]
		if len(srv.Cmd) == 0 || srv.Cmd[0] == "" {
			return invalid(l.Tool(), "servers."+name+".cmd", "command is required")
		}
	}
	return nil
}

// ServerNames returns the configured server names in sorted order.
func (l *LSP) ServerNames() []string {
	names := make([]string, 0, len(l.Servers))
	for name := range l.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Executables implements Options.
func (l *LSP) Executables() []string {
	var out []string
	for _, srv := range l.Servers {
		if len(srv.Cmd) > 0 {
			out = append(out, srv.Cmd[0])
		}
	}
	return sortedUnique(out)
}
