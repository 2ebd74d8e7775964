package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"flowdiag/internal/config"
	"flowdiag/internal/flow"
	"flowdiag/internal/logging"
)

// runtimeEnv is what every subcommand needs after flags and config files
// have been merged.
type runtimeEnv struct {
	cfg      *config.Config
	log      *slog.Logger
	levelVar *slog.LevelVar
}

// newRunner builds the process runner used by the flow client. Tests swap it
// for a fake.
var newRunner = func() flow.Runner { return flow.ExecRunner{} }

// loadEnv loads configuration for a command working in dir and applies the
// persistent flag overrides.
func loadEnv(cmd *cobra.Command, dir string) (*runtimeEnv, error) {
	cfg, err := loadConfig(cmd, dir)
	if err != nil {
		return nil, err
	}

	levelVar := new(slog.LevelVar)
	logger, err := logging.New(logging.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Writer:   cmd.ErrOrStderr(),
		LevelVar: levelVar,
	})
	if err != nil {
		return nil, err
	}
	if len(cfg.Sources) > 0 {
		logger.Debug("config loaded", "sources", cfg.Sources)
	}
	return &runtimeEnv{cfg: cfg, log: logger, levelVar: levelVar}, nil
}

// loadConfig merges the config files seen from dir with the flag overrides.
func loadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(config.LoadOptions{WorkDir: dir, Explicit: explicit})
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"log-level", &cfg.Log.Level},
		{"log-format", &cfg.Log.Format},
		{"flow", &cfg.Flow.Binary},
	}
	for _, o := range overrides {
		v, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", o.flag, err)
		}
		if v != "" {
			*o.dst = v
		}
	}
	return cfg.Validate()
}

// newCLI builds the flow client from the loaded config.
func (e *runtimeEnv) newCLI() *flow.CLI {
	return newFlowCLI(e.cfg, e.log)
}

func newFlowCLI(cfg *config.Config, log *slog.Logger) *flow.CLI {
	return flow.NewCLI(flow.CLIOptions{
		Binary:     cfg.Flow.Binary,
		Args:       cfg.Flow.Args,
		RootMarker: cfg.Flow.RootMarker,
		Timeout:    cfg.Flow.Timeout.Duration,
		Runner:     newRunner(),
		Logger:     log,
	})
}

func workingDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return wd, nil
}

func envFlowBinaryName() string {
	return "$" + config.EnvFlowBinary
}
