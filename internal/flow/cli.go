package flow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"flowdiag/internal/logging"
	"flowdiag/internal/project"
)

var (
	// ErrServiceUnavailable reports that the flow binary could not be run or
	// produced no usable output.
	ErrServiceUnavailable = errors.New("flow service unavailable")
	// ErrMalformedReport reports output that could not be decoded at all.
	ErrMalformedReport = errors.New("malformed flow output")
)

// Analyzer returns diagnostics for the Flow project containing path.
type Analyzer interface {
	FindDiagnostics(ctx context.Context, path string) (*Report, error)
}

// Completer returns autocomplete suggestions at a position.
type Completer interface {
	Autocomplete(ctx context.Context, req AutocompleteRequest) ([]Suggestion, error)
}

// Command is a single invocation of the flow binary.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	Stdin  []byte
}

// ExitError is returned by a Runner when the process ran but exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

// Runner executes a Command and returns its stdout. Stdout is returned even
// when the error is an *ExitError.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	cmd.Dir = c.Dir
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ExitError{
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(stderr.String()),
			}
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// CLIOptions configures a CLI client.
type CLIOptions struct {
	// Binary is the flow executable; defaults to "flow".
	Binary string
	// Args are extra arguments passed to every subcommand.
	Args []string
	// RootMarker names the file that marks a project root; defaults to .flowconfig.
	RootMarker string
	// Timeout bounds a single call. Zero means no limit.
	Timeout time.Duration
	Runner  Runner
	Logger  *slog.Logger
}

// CLI talks to Flow through its command-line interface.
type CLI struct {
	binary     string
	args       []string
	rootMarker string
	timeout    time.Duration
	runner     Runner
	log        *slog.Logger
}

var (
	_ Analyzer  = (*CLI)(nil)
	_ Completer = (*CLI)(nil)
)

// NewCLI constructs a CLI client.
func NewCLI(opts CLIOptions) *CLI {
	binary := opts.Binary
	if binary == "" {
		binary = "flow"
	}
	marker := opts.RootMarker
	if marker == "" {
		marker = project.FlowConfig
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	return &CLI{
		binary:     binary,
		args:       append([]string(nil), opts.Args...),
		rootMarker: marker,
		timeout:    opts.Timeout,
		runner:     runner,
		log:        logging.OrDiscard(opts.Logger).With("component", "flow"),
	}
}

// ProjectRoot returns the Flow project root containing path.
func (c *CLI) ProjectRoot(path string) (string, bool, error) {
	return project.FindProjectRoot(filepath.Dir(path), c.rootMarker)
}

// FindDiagnostics runs `flow status` for the project containing path.
// It returns a nil report when path is not inside a Flow project.
func (c *CLI) FindDiagnostics(ctx context.Context, path string) (*Report, error) {
	root, ok, err := c.ProjectRoot(path)
	if err != nil {
		return nil, fmt.Errorf("locating %s for %s: %w", c.rootMarker, path, err)
	}
	if !ok {
		c.log.Debug("no flow project", "file", path)
		return nil, nil
	}
	args := []string{"status", "--json", "--from", "flowdiag"}
	args = append(args, c.args...)
	args = append(args, root)
	out, err := c.run(ctx, Command{Binary: c.binary, Args: args, Dir: root})
	if err != nil {
		return nil, fmt.Errorf("running flow status in %s: %w", root, err)
	}
	report, err := ParseStatus(out)
	if err != nil {
		return nil, fmt.Errorf("parsing flow status for %s: %w", root, err)
	}
	return report, nil
}

// Autocomplete runs `flow autocomplete` with the document contents on stdin.
func (c *CLI) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]Suggestion, error) {
	dir := filepath.Dir(req.Path)
	if root, ok, err := c.ProjectRoot(req.Path); err == nil && ok {
		dir = root
	}
	args := []string{"autocomplete", "--json", "--from", "flowdiag"}
	args = append(args, c.args...)
	args = append(args, req.Path, strconv.Itoa(req.Line+1), strconv.Itoa(req.Column+1))
	out, err := c.run(ctx, Command{
		Binary: c.binary,
		Args:   args,
		Dir:    dir,
		Stdin:  []byte(req.Contents),
	})
	if err != nil {
		return nil, fmt.Errorf("running flow autocomplete for %s: %w", req.Path, err)
	}
	suggestions, err := ParseAutocomplete(out, req.Prefix)
	if err != nil {
		return nil, fmt.Errorf("parsing flow autocomplete for %s: %w", req.Path, err)
	}
	return suggestions, nil
}

// exitTypeErrors is the code flow exits with when the check succeeded and
// found type errors.
const exitTypeErrors = 2

// run executes cmd. Flow exits with exitTypeErrors when it found errors, so
// that exit with output on stdout still counts as success. Any other failed
// exit is a service failure whatever stdout holds.
func (c *CLI) run(ctx context.Context, cmd Command) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := c.runner.Run(ctx, cmd)
	c.log.Debug("flow call", "args", strings.Join(cmd.Args, " "), "dur", time.Since(start), "bytes", len(out), "err", err)
	if err == nil {
		return out, nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == exitTypeErrors && len(bytes.TrimSpace(out)) > 0 {
		return out, nil
	}
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s not found: %w", ErrServiceUnavailable, cmd.Binary, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
}
