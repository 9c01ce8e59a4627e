// Package main is the entry point for keystage, the staged plugin
// activation host for editor configuration.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/keystage/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// cliFlags are shared by every command that starts the host.
type cliFlags struct {
	initPath     string
	settingsPath string
	logLevel     string
	wait         bool
}

func (f *cliFlags) options(cmd *cobra.Command, files []string) app.Options {
	return app.Options{
		InitPath:     f.initPath,
		SettingsPath: f.settingsPath,
		LogLevel:     f.logLevel,
		Files:        files,
		Wait:         f.wait,
		Stdout:       cmd.OutOrStdout(),
		Stderr:       cmd.ErrOrStderr(),
	}
}

// newRootCmd builds the command tree writing to stdout and stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "keystage [files...]",
		Short: "Run an editor configuration in staged activation order",
		Long: `keystage executes init.lua, runs the tasks it queued with stage.now,
stage.now_if_args (only when files are given) and, once idle, stage.later.

A failing task is reported and the remaining tasks still run.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.New(flags.options(cmd, args))
			if err != nil {
				return err
			}
			defer application.Close()
			return application.Run(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.initPath, "init", "", "configuration script (default: $XDG_CONFIG_HOME/keystage/init.lua)")
	pf.StringVar(&flags.settingsPath, "settings", "", "settings file, .toml or .yaml")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	root.Flags().BoolVar(&flags.wait, "wait", false, "keep running and report configuration changes")

	root.AddCommand(newPlanCmd(flags), newDoctorCmd(flags), newVersionCmd())
	return root
}
