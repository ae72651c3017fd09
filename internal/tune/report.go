package tune

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/scorelab/internal/category"
	atomicio "github.com/sawpanic/scorelab/internal/io"
)

// Write stores result.json, a markdown report and a categories.yaml
// fragment with the suggested params under dir/<category>. Nothing is
// applied automatically.
func Write(dir string, res Result) (string, error) {
	out := filepath.Join(dir, res.Category)
	if err := atomicio.WriteJSONAtomic(filepath.Join(out, "result.json"), res); err != nil {
		return "", err
	}
	if err := atomicio.WriteFileAtomic(filepath.Join(out, "report.md"), []byte(Markdown(res))); err != nil {
		return "", err
	}
	frag, err := ParamsYAML(res.Category, res.BestParams)
	if err != nil {
		return "", err
	}
	if err := atomicio.WriteFileAtomic(filepath.Join(out, "categories.yaml"), frag); err != nil {
		return "", err
	}
	return out, nil
}

// ParamsYAML renders params as a categories.yaml fragment
func ParamsYAML(name string, p category.Params) ([]byte, error) {
	doc := map[string]map[string]category.Params{"categories": {name: p}}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return data, nil
}

// Markdown renders a tuning result for review
func Markdown(res Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Parameter Tuning: %s\n\n", res.Category)
	fmt.Fprintf(&b, "**Run**: %s\n", res.RunID)
	fmt.Fprintf(&b, "**Events**: %d, **Evaluations**: %d, **Elapsed**: %s\n\n", res.Events, res.Evaluations, res.Elapsed.Round(time.Millisecond))
	b.WriteString("Suggested values are advisory. Review the backtest before copying them into categories.yaml.\n\n")

	b.WriteString("## Objective\n\n")
	b.WriteString("| | Initial | Best |\n|---|---|---|\n")
	row := func(label string, a, c float64) {
		fmt.Fprintf(&b, "| %s | %.4f | %.4f |\n", label, a, c)
	}
	i, o := res.InitialObjective, res.BestObjective
	row("Objective", i.Value, o.Value)
	row("Catch rate (>=6)", i.CatchRate, o.CatchRate)
	row("Share 4-6", i.GoodRate, o.GoodRate)
	row("Spearman score/return", i.Spearman, o.Spearman)
	row("Mean score", i.MeanScore, o.MeanScore)
	row("Regularization", i.Regularization, o.Regularization)

	b.WriteString("\n## Parameters\n\n")
	b.WriteString("| Field | Initial | Suggested | Change |\n|---|---|---|---|\n")
	for _, f := range category.Fields() {
		a, _ := res.InitialParams.Get(f)
		c, _ := res.BestParams.Get(f)
		change := ""
		if a != c {
			change = fmt.Sprintf("%+.3f", c-a)
		}
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %s |\n", f, a, c, change)
	}

	switch {
	case res.Converged:
		b.WriteString("\nStopped: step size below minimum.\n")
	case res.EarlyStopped:
		b.WriteString("\nStopped: no improvement within the early stop window.\n")
	default:
		b.WriteString("\nStopped: evaluation budget exhausted.\n")
	}
	return b.String()
}
