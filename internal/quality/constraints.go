package quality

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
)

// Constraints profiles completeness and uniqueness per column. Every
// constraint passes; the ratios are descriptive.
type Constraints struct{}

// Name returns the report key for this analyzer.
func (Constraints) Name() string { return NameConstraints }

// Analyze emits one completeness and one uniqueness constraint per column.
func (Constraints) Analyze(ctx context.Context, snap *dataset.Snapshot) (any, error) {
	out := &ConstraintResult{Constraints: make([]Finding, 0, 2*len(snap.Columns))}
	for i := range snap.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col := &snap.Columns[i]
		comp := completeness(col, snap.Rows())
		uniq := uniqueness(col)
		out.Constraints = append(out.Constraints,
			Finding{
				Analyzer:   NameConstraints,
				Check:      "completeness",
				Column:     col.Name,
				Observed:   num(comp),
				Constraint: fmt.Sprintf("completeness ratio: %.2f", comp),
				Passes:     true,
			},
			Finding{
				Analyzer:   NameConstraints,
				Check:      "uniqueness",
				Column:     col.Name,
				Observed:   num(uniq),
				Constraint: fmt.Sprintf("uniqueness ratio: %.2f", uniq),
				Passes:     true,
			})
	}
	out.Generated = len(out.Constraints)
	return out, nil
}

// uniqueness is distinct/non-missing, 0 when nothing is present.
func uniqueness(col *dataset.Column) float64 {
	n := col.NonMissing()
	if n == 0 {
		return 0
	}
	return float64(col.Distinct()) / float64(n)
}
