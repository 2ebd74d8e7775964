package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"flowdiag/internal/config"
	"flowdiag/internal/project"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default " + project.SettingsFile,
		Long: `Init writes a ` + project.SettingsFile + ` with the built-in defaults into dir, or
the current directory. An existing file is kept unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
	cmd.Flags().Bool("force", false, "overwrite an existing settings file")
	return cmd
}

const settingsHeader = `# flowdiag project settings.
# Values here override $XDG_CONFIG_HOME/flowdiag/config.toml and are
# overridden by --config and $` + config.EnvFlowBinary + `.

`

func runInit(cmd *cobra.Command, args []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	path := filepath.Join(target, project.SettingsFile)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	var buf bytes.Buffer
	buf.WriteString(settingsHeader)
	if err := config.Encode(&buf, config.Default()); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	env, err := loadEnv(cmd, target)
	if err != nil {
		return fmt.Errorf("written settings do not load: %w", err)
	}
	marker := env.cfg.Flow.RootMarker
	if _, ok, err := project.FindProjectRoot(target, marker); err == nil && !ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: no %s found above %s\n", marker, target)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
