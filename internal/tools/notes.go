package tools

// Notes configures note-taking workspaces.
type Notes struct {
	Workspaces []Workspace `yaml:"workspaces"`
	Daily      Daily       `yaml:"daily"`
}

// Workspace is a named notes directory.
type Workspace struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Daily configures daily notes.
type Daily struct {
	Folder     string `yaml:"folder"`
	DateFormat string `yaml:"date_format"`
}

func (n *Notes) setDefaults() {
	n.Daily = Daily{DateFormat: "%Y-%m-%d"}
}

// Tool implements Options.
func (n *Notes) Tool() string { return "notes" }

// Validate implements Options.
func (n *Notes) Validate() error {
	if len(n.Workspaces) == 0 {
		return invalid(n.Tool(), "workspaces", "at least one workspace is required")
	}
	seen := make(map[string]bool, len(n.Workspaces))
	for i, ws := range n.Workspaces {
		switch {
		case ws.Name == "":
			return invalid(n.Tool(), "workspaces", "entry %d has no name", i+1)
		case ws.Path == "":
			return invalid(n.Tool(), "workspaces", "workspace %q has no path", ws.Name)
		case seen[ws.Name]:
			return invalid(n.Tool(), "workspaces", "duplicate workspace %q", ws.Name)
		}
		seen[ws.Name] = true
	}
	return nil
}

// Executables implements Options.
func (n *Notes) Executables() []string { return nil }
