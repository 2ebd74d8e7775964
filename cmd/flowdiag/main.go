package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"flowdiag/internal/version"
)

// errDiagnosticsFound makes the process exit non-zero without printing an
// extra error line; the diagnostics are the output.
var errDiagnosticsFound = errors.New("flow reported errors")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flowdiag",
		Short:         "Flow diagnostics for editors and the terminal",
		Long:          `flowdiag runs the Flow type checker and turns its reports into per-file editor diagnostics`,
		Version:       version.Plain(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "explicit config file, merged after the global and project files")
	flags.String("log-level", "", "log level (debug|info|warn|error); overrides log.level")
	flags.String("log-format", "", "log format (text|json); overrides log.format")
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.String("flow", "", "flow binary; overrides flow.binary and "+envFlowBinaryName())

	root.AddCommand(newLSPCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newCompleteCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// main executes the root command and exits with status 1 on any failure.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errDiagnosticsFound) {
			fmt.Fprintln(os.Stderr, "flowdiag:", err)
		}
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag for output going to f.
func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false, nil
		}
		return isTerminal(f), nil
	}
	return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
}
