package tools

// Snippets configures snippet loading.
type Snippets struct {
	// Paths are extra directories searched for snippet files.
	Paths []string `yaml:"paths"`

	// FiletypeExtend makes a filetype also load the snippets of others.
	FiletypeExtend map[string][]string `yaml:"filetype_extend"`
}

// Tool implements Options.
func (s *Snippets) Tool() string { return "snippets" }

// Validate implements Options.
func (s *Snippets) Validate() error {
	for ft, parents := range s.FiletypeExtend {
		for _, p := range parents {
			if p == ft {
				return invalid(s.Tool(), "filetype_extend."+ft, "filetype extends itself")
			}
		}
	}
	return nil
}

// Executables implements Options.
func (s *Snippets) Executables() []string { return nil }
