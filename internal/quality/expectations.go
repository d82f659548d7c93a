package quality

import (
	"context"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
)

const (
	completenessThreshold = 0.95
	emailThreshold        = 0.90
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Expectations auto-derives validation rules per column and evaluates them
// against fixed thresholds.
type Expectations struct{}

// Name returns the report key for this analyzer.
func (Expectations) Name() string { return NameExpectations }

// Analyze evaluates completeness, range and email checks for every column.
func (Expectations) Analyze(ctx context.Context, snap *dataset.Snapshot) (any, error) {
	out := &ExpectationResult{Expectations: make([]Finding, 0, len(snap.Columns)), AutoGenerated: true}
	for i := range snap.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col := &snap.Columns[i]
		ratio := completeness(col, snap.Rows())
		out.Expectations = append(out.Expectations, Finding{
			Analyzer:  NameExpectations,
			Check:     "expect_column_values_to_not_be_null",
			Column:    col.Name,
			Observed:  num(ratio),
			Threshold: num(completenessThreshold),
			Passes:    ratio >= completenessThreshold,
		})

		if vals := col.Floats(); len(vals) > 0 {
			out.Expectations = append(out.Expectations, Finding{
				Analyzer: NameExpectations,
				Check:    "expect_column_values_to_be_between",
				Column:   col.Name,
				Min:      num(floats.Min(vals)),
				Max:      num(floats.Max(vals)),
				Passes:   true,
			})
		}

		if strings.Contains(strings.ToLower(col.Name), "email") {
			validity := emailValidity(col)
			out.Expectations = append(out.Expectations, Finding{
				Analyzer:  NameExpectations,
				Check:     "expect_column_values_to_match_regex",
				Column:    col.Name,
				Observed:  num(validity),
				Threshold: num(emailThreshold),
				Passes:    validity >= emailThreshold,
				Metadata:  map[string]any{"pattern": "email_pattern"},
			})
		}
	}
	for _, f := range out.Expectations {
		if f.Passes {
			out.Passed++
		} else {
			out.Failed++
		}
	}
	out.Total = len(out.Expectations)
	return out, nil
}

// completeness is non-missing/rows, defined as 1 for a dataset with no rows.
func completeness(col *dataset.Column, rows int) float64 {
	if rows == 0 {
		return 1
	}
	return float64(col.NonMissing()) / float64(rows)
}

// emailValidity is the share of non-missing values shaped like an address.
func emailValidity(col *dataset.Column) float64 {
	total, valid := 0, 0
	for i, c := range col.Cells {
		if c.Missing {
			continue
		}
		total++
		if emailPattern.MatchString(col.Text(i)) {
			valid++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(valid) / float64(total)
}
