package app

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
)

// DoctorReport is the result of a health check.
type DoctorReport struct {
	// Checked lists every executable looked up, sorted.
	Checked []string

	// Missing lists executables not found in PATH.
	Missing []string

	// PluginErrors maps plugin names to install or hook failures.
	PluginErrors map[string]error

	// RunErr holds the failures of the startup run itself.
	RunErr error
}

// OK reports whether nothing was found wrong.
func (r *DoctorReport) OK() bool {
	return len(r.Missing) == 0 && len(r.PluginErrors) == 0 && r.RunErr == nil
}

// Doctor runs the whole startup sequence, then checks that git and every
// program named by tool configurations can be found.
func (app *Application) Doctor(ctx context.Context) (*DoctorReport, error) {
	if err := app.begin(); err != nil {
		return nil, err
	}

	report := &DoctorReport{
		RunErr:       app.run(ctx, false),
		PluginErrors: app.plugins.Errors(),
	}

	seen := make(map[string]bool)
	programs := append([]string{app.settings.Plugins.Git}, app.tools.Executables()...)
	for _, name := range programs {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		report.Checked = append(report.Checked, name)
		if _, err := exec.LookPath(name); err != nil {
			report.Missing = append(report.Missing, name)
		}
	}
	sort.Strings(report.Checked)
	sort.Strings(report.Missing)

	for _, name := range report.Missing {
		app.notifier.Warn("doctor", "%s not found in PATH", name)
	}
	if len(report.Missing) > 0 {
		return report, fmt.Errorf("%w: %v", ErrMissingExecutables, report.Missing)
	}
	return report, nil
}
