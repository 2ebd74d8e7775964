package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"flowdiag/internal/lsp"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the flowdiag language server over stdio",
		Args:  cobra.NoArgs,
		RunE:  runLSP,
	}
}

func runLSP(cmd *cobra.Command, _ []string) error {
	wd, err := workingDir()
	if err != nil {
		return err
	}
	env, err := loadEnv(cmd, wd)
	if err != nil {
		return err
	}
	cli := env.newCLI()
	server, err := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Analyzer:     cli,
		Completer:    cli,
		Extensions:   env.cfg.Diagnostics.Extensions,
		Debounce:     env.cfg.Refresh.Debounce.Duration,
		DropStale:    env.cfg.Refresh.DropStale,
		SnippetStyle: env.cfg.SnippetStyle(),
		Source:       env.cfg.Diagnostics.Source,
		Logger:       env.log,
		LevelVar:     env.levelVar,
		LoadWorkspace: func(root string) (lsp.WorkspaceSettings, error) {
			return workspaceSettings(cmd, root, env.log)
		},
	})
	if err != nil {
		return err
	}
	env.log.Info("lsp starting", "flow", env.cfg.Flow.Binary, "extensions", env.cfg.Diagnostics.Extensions)
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}

// workspaceSettings reloads configuration as seen from the workspace root the
// editor reported. Logging and refresh timing keep their launch values.
func workspaceSettings(cmd *cobra.Command, root string, log *slog.Logger) (lsp.WorkspaceSettings, error) {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return lsp.WorkspaceSettings{}, err
	}
	log.Info("workspace config", "root", root, "sources", cfg.Sources, "flow", cfg.Flow.Binary)
	cli := newFlowCLI(cfg, log)
	return lsp.WorkspaceSettings{
		Analyzer:     cli,
		Completer:    cli,
		Extensions:   cfg.Diagnostics.Extensions,
		SnippetStyle: cfg.SnippetStyle(),
		Source:       cfg.Diagnostics.Source,
	}, nil
}
