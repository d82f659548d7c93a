package quality

import (
	"context"
	"strings"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
)

const (
	strongPatternShare = 0.05
	strongConfidence   = 0.95
	baseConfidence     = 0.70
	confidenceSlope    = 5

	medianConfidence = 0.85
	modeConfidence   = 0.75

	MethodMedian = "median_imputation"
	MethodMode   = "mode_imputation"
)

// nullLike holds cell texts that disguise a missing value. Matching is on the
// trimmed, lower-cased cell.
var nullLike = map[string]struct{}{
	"n/a": {}, "na": {}, "null": {}, "none": {}, "missing": {},
	"": {}, "unknown": {}, "?": {}, "-": {}, "nan": {},
}

// IsNullLike reports whether s is a disguised missing value.
func IsNullLike(s string) bool {
	_, ok := nullLike[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// DetectionConfidence maps the share of null-like cells to a confidence in
// [0.70, 0.95].
func DetectionConfidence(strength float64) float64 {
	if strength > strongPatternShare {
		return strongConfidence
	}
	return baseConfidence + strength*confidenceSlope
}

// Repair flags columns holding null-like values and proposes a replacement.
type Repair struct{}

// Name returns the report key for this analyzer.
func (Repair) Name() string { return NameRepair }

// Analyze counts null-like cells per column and suggests a fill value.
func (Repair) Analyze(ctx context.Context, snap *dataset.Snapshot) (any, error) {
	out := &RepairResult{
		Detections:  []Detection{},
		Suggestions: []RepairSuggestion{},
		Method:      "null-like pattern matching with statistical imputation",
	}
	rows := snap.Rows()
	for i := range snap.Columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col := &snap.Columns[i]
		hits := 0
		var keep []int
		for r := range col.Cells {
			if IsNullLike(col.Text(r)) {
				hits++
				continue
			}
			if !col.Cells[r].Missing {
				keep = append(keep, r)
			}
		}
		if hits == 0 {
			continue
		}
		strength := float64(hits) / float64(rows)
		out.Detections = append(out.Detections, Detection{
			Column:          col.Name,
			ErrorType:       "null_like_patterns",
			Count:           hits,
			Confidence:      Number(DetectionConfidence(strength)),
			PatternStrength: Number(strength),
		})
		out.Suggestions = append(out.Suggestions, suggestRepair(col, keep))
	}
	out.ErrorsDetected = len(out.Detections)
	return out, nil
}

// suggestRepair picks the median for numeric data and the mode otherwise.
func suggestRepair(col *dataset.Column, rows []int) RepairSuggestion {
	if nums, ok := numericValues(col, rows); ok {
		return RepairSuggestion{
			Column:     col.Name,
			Method:     MethodMedian,
			Value:      Number(dataset.Median(nums)),
			Confidence: medianConfidence,
		}
	}
	values := make([]string, len(rows))
	for i, r := range rows {
		values[i] = col.Cells[r].Raw
	}
	value := "Unknown"
	if m, ok := mode(values); ok {
		value = m
	}
	return RepairSuggestion{
		Column:     col.Name,
		Method:     MethodMode,
		Value:      value,
		Confidence: modeConfidence,
	}
}

// numericValues returns the values at rows when the column is declared
// numeric or every one of them parses as a number. A text column with no
// remaining values is not numeric.
func numericValues(col *dataset.Column, rows []int) ([]float64, bool) {
	if col.Kind != dataset.KindNumeric && len(rows) == 0 {
		return nil, false
	}
	nums := make([]float64, 0, len(rows))
	for _, r := range rows {
		if col.Kind == dataset.KindNumeric {
			nums = append(nums, col.Cells[r].Num)
			continue
		}
		f, ok := dataset.ParseNumber(col.Cells[r].Raw)
		if !ok {
			return nil, false
		}
		nums = append(nums, f)
	}
	return nums, true
}

// mode returns the most frequent value; ties go to the smallest string.
func mode(values []string) (string, bool) {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, bestN > 0
}
