// Package tools holds the typed option records handed to plugin setup calls.
//
// Each supported tool has its own Options type. Raw option tables coming
// from the configuration script are decoded strictly: keys the tool does not
// recognize are rejected instead of being silently ignored.
//
//	reg := tools.NewRegistry()
//	opts, err := reg.Configure("conform", map[string]any{
//	    "formatters_by_ft": map[string]any{"lua": []any{"stylua"}},
//	})
//
// The registry also reports the external programs named by the stored
// configurations so they can be checked for on PATH.
package tools
