package plugin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultGitTimeout bounds a single git invocation.
const DefaultGitTimeout = 60 * time.Second

// CommandRunner runs an external program in dir and returns its combined output.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// GitInstaller installs plugins with the git executable into Dir/<name>.
type GitInstaller struct {
	// Dir is the directory holding one subdirectory per plugin.
	Dir string

	// Git is the git executable name or path.
	Git string

	// Timeout bounds each git invocation.
	Timeout time.Duration

	run CommandRunner
}

// GitOption configures a GitInstaller.
type GitOption func(*GitInstaller)

// WithGitExecutable sets the git executable.
func WithGitExecutable(name string) GitOption {
	return func(g *GitInstaller) {
		if name != "" {
			g.Git = name
		}
	}
}

// WithGitTimeout sets the per-invocation timeout.
func WithGitTimeout(d time.Duration) GitOption {
	return func(g *GitInstaller) {
		if d > 0 {
			g.Timeout = d
		}
	}
}

// WithCommandRunner replaces how external commands are executed.
func WithCommandRunner(run CommandRunner) GitOption {
	return func(g *GitInstaller) {
		if run != nil {
			g.run = run
		}
	}
}

// NewGitInstaller creates an installer rooted at dir.
func NewGitInstaller(dir string, opts ...GitOption) *GitInstaller {
	g := &GitInstaller{
		Dir:     dir,
		Git:     "git",
		Timeout: DefaultGitTimeout,
		run:     execRunner,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path implements Installer.
func (g *GitInstaller) Path(spec Spec) string {
	name := spec.Name
	if name == "" {
		name = NameFromSource(spec.Source)
	}
	return filepath.Join(g.Dir, name)
}

// Exists implements Installer.
func (g *GitInstaller) Exists(spec Spec) bool {
	info, err := os.Stat(g.Path(spec))
	return err == nil && info.IsDir()
}

// Install implements Installer.
func (g *GitInstaller) Install(ctx context.Context, spec Spec) error {
	if err := os.MkdirAll(g.Dir, 0o755); err != nil {
		return err
	}

	dest := g.Path(spec)
	if _, err := g.git(ctx, g.Dir, "clone", "--quiet", "--filter=blob:none", "--", spec.Source, dest); err != nil {
		return err
	}
	if spec.Checkout == "" {
		return nil
	}
	_, err := g.git(ctx, dest, "checkout", "--quiet", spec.Checkout, "--")
	return err
}

// Checkout implements Installer.
func (g *GitInstaller) Checkout(ctx context.Context, spec Spec) (bool, error) {
	dir := g.Path(spec)

	before, err := g.head(ctx, dir)
	if err != nil {
		return false, err
	}
	if _, err := g.git(ctx, dir, "checkout", "--quiet", spec.Checkout, "--"); err != nil {
		return false, err
	}
	after, err := g.head(ctx, dir)
	if err != nil {
		return false, err
	}
	return before != after, nil
}

func (g *GitInstaller) head(ctx context.Context, dir string) (string, error) {
	out, err := g.git(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *GitInstaller) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	out, err := g.run(ctx, dir, g.Git, args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return out, fmt.Errorf("git %s: %w", args[0], err)
		}
		return out, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return out, nil
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}
