package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dshills/keystage/internal/app"
	"github.com/dshills/keystage/internal/schedule"
)

func newPlanCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [files...]",
		Short: "Show the tasks and plugins init.lua registers without running them",
		Long: `plan executes init.lua without running any queued task or installing
any plugin. Only top-level registrations are shown: task bodies are not
evaluated, so plugins a task would add with stage.add are not listed.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(flags.options(cmd, args))
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.Plan(cmd.Context())
			if report != nil {
				printPlan(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
}

func printPlan(w io.Writer, report *app.PlanReport) {
	tasks := 0
	for _, b := range []schedule.Bucket{schedule.Immediate, schedule.ImmediateIfFileArgs, schedule.Deferred} {
		names := report.Tasks.Names(b)
		tasks += len(names)
		fmt.Fprintf(w, "%s (%d)\n", b, len(names))
		for _, name := range names {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	fmt.Fprintf(w, "plugins (%d)\n", len(report.Plugins))
	for _, p := range report.Plugins {
		fmt.Fprintf(w, "  %s\n", p)
	}
	if tasks > 0 {
		fmt.Fprintln(w, "note: plugins added inside tasks are not listed")
	}
}

func newDoctorCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [files...]",
		Short: "Run the configuration and check plugins and external programs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(flags.options(cmd, args))
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.Doctor(cmd.Context())
			if report != nil {
				printDoctor(cmd.OutOrStdout(), report)
			}
			if err == nil && !report.OK() {
				err = fmt.Errorf("configuration has problems")
			}
			return err
		},
	}
}

func printDoctor(w io.Writer, report *app.DoctorReport) {
	missing := make(map[string]bool, len(report.Missing))
	for _, name := range report.Missing {
		missing[name] = true
	}
	for _, name := range report.Checked {
		status := "ok"
		if missing[name] {
			status = "missing"
		}
		fmt.Fprintf(w, "%-8s %s\n", status, name)
	}

	names := make([]string, 0, len(report.PluginErrors))
	for name := range report.PluginErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%-8s plugin %s: %v\n", "error", name, report.PluginErrors[name])
	}
	if report.RunErr != nil {
		fmt.Fprintf(w, "%-8s %v\n", "failed", report.RunErr)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "keystage %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
