package backtest

import (
	"fmt"
	"path/filepath"
	"strings"

	atomicio "github.com/sawpanic/scorelab/internal/io"
)

// Writer handles writing backtest artifacts to disk
type Writer struct {
	outputDir string
}

// NewWriter creates a new artifact writer
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Dir returns the directory a report is written to:
// <output>/<start date>_<first 8 chars of run id>
func (w *Writer) Dir(report *Report) string {
	id := report.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(w.outputDir, report.StartedAt.UTC().Format("2006-01-02")+"_"+id)
}

// Write writes results.jsonl (one event per line), report.json and report.md
// and returns the directory
func (w *Writer) Write(report *Report) (string, error) {
	dir := w.Dir(report)

	if err := atomicio.WriteJSONLinesAtomic(filepath.Join(dir, "results.jsonl"), report.Events); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	if err := atomicio.WriteJSONAtomic(filepath.Join(dir, "report.json"), report); err != nil {
		return "", fmt.Errorf("failed to write report json: %w", err)
	}
	if err := atomicio.WriteFileAtomic(filepath.Join(dir, "report.md"), []byte(Markdown(report))); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return dir, nil
}

// Markdown renders the report as a human readable document
func Markdown(report *Report) string {
	var b strings.Builder
	cfg := report.Config

	b.WriteString("# Explosive Move Backtest\n\n")
	fmt.Fprintf(&b, "**Run**: %s\n", report.RunID)
	fmt.Fprintf(&b, "**Started**: %s\n", report.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Configuration**: timeframe=%s, denomination=%s, min move=%.0f%%, lookback=%d bars, %d per category\n\n",
		cfg.Timeframe, cfg.Denomination, cfg.MinMovePct, cfg.LookbackBars, cfg.PerCategory)

	b.WriteString("## Summary\n\n")
	o := report.Overall
	fmt.Fprintf(&b, "- **Events**: %d (%d unscored)\n", o.Events, o.Unscored)
	fmt.Fprintf(&b, "- **High score catch rate**: %.1f%%\n", o.CatchRate*100)
	fmt.Fprintf(&b, "- **Mean score at start**: %.2f\n", o.MeanScore)
	fmt.Fprintf(&b, "- **Skipped instruments**: %d\n\n", len(report.Skipped))
	writeBuckets(&b, o)

	for _, c := range report.Categories {
		fmt.Fprintf(&b, "## %s\n\n", c.Category)
		fmt.Fprintf(&b, "%d events, %d unscored, catch rate %.1f%%, mean score %.2f\n\n",
			c.Events, c.Unscored, c.CatchRate*100, c.MeanScore)
		if c.Events-c.Unscored == 0 {
			b.WriteString("_No scored events._\n\n")
			continue
		}
		writeBuckets(&b, c)

		if len(c.Top) > 0 {
			b.WriteString("| Symbol | Start | Return | Days to peak | Score |\n")
			b.WriteString("|--------|-------|--------|--------------|-------|\n")
			for _, e := range c.Top {
				fmt.Fprintf(&b, "| %s | %s | %.1f%% | %d | %.2f |\n",
					e.Symbol, e.Start.Format("2006-01-02"), e.ReturnPct, e.DaysToPeak, e.Score)
			}
			b.WriteString("\n")
		}
	}

	if len(report.Skipped) > 0 {
		b.WriteString("## Skipped Instruments\n\n")
		for _, s := range report.Skipped {
			fmt.Fprintf(&b, "- %s (%s): %s\n", s.Symbol, s.Category, s.Reason)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeBuckets(b *strings.Builder, c CategoryReport) {
	b.WriteString("| Score | Count | Catch rate | Mean return | Mean days to peak |\n")
	b.WriteString("|-------|-------|------------|-------------|-------------------|\n")
	for _, bk := range c.Buckets {
		fmt.Fprintf(b, "| %s | %d | %.1f%% | %.1f%% | %.1f |\n",
			bk.Label, bk.Count, bk.CatchRate*100, bk.MeanReturn, bk.MeanDaysToPeak)
	}
	b.WriteString("\n")
}
