package tools

// conformBuiltins are conform.nvim formatters implemented in Lua.
var conformBuiltins = map[string]bool{
	"injected":        true,
	"squeeze_blanks":  true,
	"trim_newlines":   true,
	"trim_whitespace": true,
}

// conformCommands maps conform.nvim formatter names to the programs they
// run where the two differ.
var conformCommands = map[string]string{
	"biome-check":           "biome",
	"clang_format":          "clang-format",
	"ruff_fix":              "ruff",
	"ruff_format":           "ruff",
	"ruff_organize_imports": "ruff",
	"sql_formatter":         "sql-formatter",
	"terraform_fmt":         "terraform",
}

// lintCommands does the same for nvim-lint linter names.
var lintCommands = map[string]string{
	"ansible_lint": "ansible-lint",
	"cfn_lint":     "cfn-lint",
	"clangtidy":    "clang-tidy",
	"golangcilint": "golangci-lint",
	"write_good":   "write-good",
}

// resolveCommand returns the program behind a formatter or linter name,
// or "" when nothing needs to be found in PATH.
func resolveCommand(name string, builtins map[string]bool, renamed map[string]string) string {
	if builtins[name] {
		return ""
	}
	if cmd, ok := renamed[name]; ok {
		return cmd
	}
	return name
}
