package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"flowdiag/internal/diag"
	"flowdiag/internal/diagfmt"
	"flowdiag/internal/flow"
	"flowdiag/internal/observ"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <file.js>...",
		Short: "Check files with flow and print their diagnostics",
		Long: `Check runs one flow analysis per project containing the given files and
prints every reported diagnostic. It exits with status 1 when any diagnostic
is an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	cmd.Flags().Int("jobs", 0, "max projects analyzed in parallel (0=auto)")
	cmd.Flags().Int("max-diagnostics", 0, "maximum number of diagnostics to show (0=all)")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	cmd.Flags().Bool("no-context", false, "do not print source lines in pretty output")
	cmd.Flags().Bool("timings", false, "print per-project phase timings to stderr")
	return cmd
}

// checkGroup is one flow project and the first argument that led to it.
type checkGroup struct {
	root  string
	probe string
}

func runCheck(cmd *cobra.Command, args []string) error {
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := diagfmt.ParseFormat(formatName)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	maxDiags, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	noContext, err := cmd.Flags().GetBool("no-context")
	if err != nil {
		return fmt.Errorf("failed to get no-context flag: %w", err)
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	colored, err := useColor(cmd, os.Stdout)
	if err != nil {
		return err
	}

	wd, err := workingDir()
	if err != nil {
		return err
	}
	env, err := loadEnv(cmd, wd)
	if err != nil {
		return err
	}
	cli := env.newCLI()

	groups, err := groupByProject(cli, wd, args)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.root == "" {
			env.log.Warn("file is not inside a flow project", "file", g.probe, "marker", env.cfg.Flow.RootMarker)
		}
	}

	results, err := analyzeGroups(cmd.Context(), cli, groups, jobs)
	if err != nil {
		return err
	}
	merged := &diag.FileMap{}
	for _, r := range results {
		merged.Merge(r.files)
	}

	opts := diagfmt.Options{
		Color:   colored,
		BaseDir: wd,
		Context: !noContext,
		Max:     maxDiags,
	}
	if fullPath {
		opts.PathMode = diagfmt.PathModeAbsolute
	}
	if err := diagfmt.Write(cmd.OutOrStdout(), merged, format, opts); err != nil {
		return err
	}
	if timings {
		if err := printProjectTimings(cmd.ErrOrStderr(), results, format == diagfmt.FormatJSON); err != nil {
			return err
		}
	}
	if merged.HasErrors() {
		return errDiagnosticsFound
	}
	return nil
}

// groupByProject maps every argument to its flow root, keeping the order in
// which roots first appear. Files outside any project form their own group
// with an empty root.
func groupByProject(cli *flow.CLI, wd string, args []string) ([]checkGroup, error) {
	var groups []checkGroup
	seen := make(map[string]bool)
	for _, arg := range args {
		path := arg
		if !filepath.IsAbs(path) {
			path = filepath.Join(wd, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		root, ok, err := cli.ProjectRoot(path)
		if err != nil {
			return nil, fmt.Errorf("locating project for %s: %w", arg, err)
		}
		if !ok {
			groups = append(groups, checkGroup{probe: path})
			continue
		}
		if seen[root] {
			continue
		}
		seen[root] = true
		groups = append(groups, checkGroup{root: root, probe: path})
	}
	return groups, nil
}

// projectResult is the outcome of one project analysis. Groups outside any
// project leave both fields nil.
type projectResult struct {
	root  string
	files *diag.FileMap
	timer *observ.Timer
}

// analyzeGroups runs one analysis per project in parallel. Results keep the
// order of groups.
func analyzeGroups(ctx context.Context, an flow.Analyzer, groups []checkGroup, jobs int) ([]projectResult, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]projectResult, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(groups))))
	for i, group := range groups {
		if group.root == "" {
			continue
		}
		g.Go(func() error {
			timer := observ.NewTimer()
			idx := timer.Begin("analyze")
			report, err := an.FindDiagnostics(gctx, group.probe)
			timer.End(idx, group.root)
			if err != nil {
				return fmt.Errorf("checking %s: %w", group.root, err)
			}
			idx = timer.Begin("normalize")
			entries := diag.Normalize(report)
			timer.End(idx, "")
			idx = timer.Begin("collect")
			files := diag.Collect(entries)
			timer.End(idx, "")
			results[i] = projectResult{root: group.root, files: files, timer: timer}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
