package main

import (
	"encoding/json"
	"fmt"
	"io"

	"flowdiag/internal/observ"
)

type projectTimingJSON struct {
	Root    string        `json:"root"`
	Timings observ.Report `json:"timings"`
}

// printProjectTimings writes per-project phase timings to out, as a JSON
// array when asJSON is set and as text summaries otherwise.
func printProjectTimings(out io.Writer, results []projectResult, asJSON bool) error {
	if asJSON {
		payload := make([]projectTimingJSON, 0, len(results))
		for _, r := range results {
			if r.timer == nil {
				continue
			}
			payload = append(payload, projectTimingJSON{Root: r.root, Timings: r.timer.Report()})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	for _, r := range results {
		if r.timer == nil {
			continue
		}
		if _, err := fmt.Fprintf(out, "project %s\n%s", r.root, r.timer.Summary()); err != nil {
			return err
		}
	}
	return nil
}
