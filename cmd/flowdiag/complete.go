package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flowdiag/internal/completion"
	"flowdiag/internal/flow"
)

func newCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete [flags] <file.js> <line> <col>",
		Short: "Print completion items at a 0-based position",
		Args:  cobra.ExactArgs(3),
		RunE:  runComplete,
	}
	cmd.Flags().String("format", "text", "output format (text|json)")
	cmd.Flags().Bool("stdin", false, "read the document contents from stdin instead of the file")
	cmd.Flags().String("prefix", "", "only keep suggestions starting with prefix (case-insensitive)")
	return cmd
}

func runComplete(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be text or json)", format)
	}
	fromStdin, err := cmd.Flags().GetBool("stdin")
	if err != nil {
		return fmt.Errorf("failed to get stdin flag: %w", err)
	}
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return fmt.Errorf("failed to get prefix flag: %w", err)
	}
	line, err := strconv.Atoi(args[1])
	if err != nil || line < 0 {
		return fmt.Errorf("invalid line %q", args[1])
	}
	col, err := strconv.Atoi(args[2])
	if err != nil || col < 0 {
		return fmt.Errorf("invalid column %q", args[2])
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	var contents []byte
	if fromStdin {
		contents, err = io.ReadAll(cmd.InOrStdin())
	} else {
		contents, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	env, err := loadEnv(cmd, filepath.Dir(path))
	if err != nil {
		return err
	}
	suggestions, err := env.newCLI().Autocomplete(cmd.Context(), flow.AutocompleteRequest{
		Path:     path,
		Contents: string(contents),
		Line:     line,
		Column:   col,
		Prefix:   prefix,
	})
	if err != nil {
		return err
	}
	items := completion.Items(suggestions, env.cfg.SnippetStyle())

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Label, it.Kind, it.Detail)
	}
	return tw.Flush()
}
