package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/foundrydata/foundrygen/diag"
)

// detailsWidth caps the DETAILS column of the diagnostics table.
const detailsWidth = 72

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runGenerate(cmd *cobra.Command, args []string, f *generateFlags) error {
	if f.output != "json" && f.output != "yaml" {
		return fmt.Errorf("unknown output format %q", f.output)
	}
	runs, err := f.loadRuns(cmd, args)
	if err != nil {
		return err
	}
	results, err := execute(cmd.Context(), runs, f.parallel)
	if err != nil {
		return err
	}

	var out any
	if len(results) == 1 && results[0].name == "" {
		out = payload(results[0], f.items)
	} else {
		byName := make(map[string]any, len(results))
		for _, r := range results {
			byName[r.name] = payload(r, f.items)
		}
		out = byName
	}

	w := cmd.OutOrStdout()
	if f.output == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f.pretty || isTerminal(w) {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func payload(r runResult, itemsOnly bool) any {
	if itemsOnly {
		return r.result.Items
	}
	return r.result
}

func runDiagnostics(cmd *cobra.Command, args []string, f *runFlags) error {
	runs, err := f.loadRuns(cmd, args)
	if err != nil {
		return err
	}
	results, err := execute(cmd.Context(), runs, f.parallel)
	if err != nil {
		return err
	}

	withTarget := len(results) > 1 || results[0].name != ""
	header := []string{"CODE", "PATH", "DETAILS"}
	if withTarget {
		header = append([]string{"TARGET"}, header...)
	}
	rows := [][]string{header}
	for _, r := range results {
		for _, d := range r.result.Diagnostics {
			row := []string{string(d.Code), displayPath(d.CanonPath), runewidth.Truncate(detailsText(d), detailsWidth, "…")}
			if withTarget {
				row = append([]string{r.name}, row...)
			}
			rows = append(rows, row)
		}
	}
	w := cmd.OutOrStdout()
	writeTable(w, rows)

	total := 0
	for _, r := range results {
		total += len(r.result.Diagnostics)
	}
	fmt.Fprintf(w, "%d diagnostic(s)\n", total)
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "#"
	}
	return p
}

// detailsText renders details, budget and score details as compact
// key=value pairs in key order.
func detailsText(d diag.Diagnostic) string {
	parts := make([]string, 0, len(d.Details)+2)
	keys := make([]string, 0, len(d.Details))
	for k := range d.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+compactJSON(d.Details[k]))
	}
	if d.Budget != nil {
		parts = append(parts, "budget="+compactJSON(d.Budget))
	}
	if d.ScoreDetails != nil {
		parts = append(parts, "scoreDetails="+compactJSON(d.ScoreDetails))
	}
	return strings.Join(parts, " ")
}

func compactJSON(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// writeTable left-aligns columns by display width, so paths and pattern
// witnesses with wide characters stay aligned.
func writeTable(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}
