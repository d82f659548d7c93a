// Package quality implements the data-quality analysis engine: four
// independent analyzers over a dataset snapshot and the report that
// aggregates them.
package quality

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
)

// Analyzer names, also the report keys.
const (
	NameExpectations = "expectations"
	NameConstraints  = "constraints"
	NameRepair       = "probabilistic_repair"
	NameLabelQuality = "label_quality"
)

// Analyzer turns a snapshot into one analyzer-specific result.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, snap *dataset.Snapshot) (any, error)
}

// Number is a float64 that always serializes. Finite values are plain JSON
// numbers; NaN and infinities fall back to their string form.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func num(f float64) *Number {
	n := Number(f)
	return &n
}

// Finding is one evaluated statement about a column.
type Finding struct {
	Analyzer   string         `json:"analyzer"`
	Check      string         `json:"check"`
	Column     string         `json:"column"`
	Observed   *Number        `json:"observed_value,omitempty"`
	Threshold  *Number        `json:"threshold,omitempty"`
	Min        *Number        `json:"min_value,omitempty"`
	Max        *Number        `json:"max_value,omitempty"`
	Constraint string         `json:"constraint,omitempty"`
	Passes     bool           `json:"passes"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Detection records null-like values found in one column.
type Detection struct {
	Column          string `json:"column"`
	ErrorType       string `json:"error_type"`
	Count           int    `json:"errors_found"`
	Confidence      Number `json:"confidence"`
	PatternStrength Number `json:"pattern_strength"`
}

// RepairSuggestion proposes a replacement for a column's null-like values.
// Value is a Number for median repairs and a string for mode repairs.
type RepairSuggestion struct {
	Column     string `json:"column"`
	Method     string `json:"repair_method"`
	Value      any    `json:"suggested_value"`
	Confidence Number `json:"confidence"`
}

// MislabelCandidate is a row whose recorded label the model doubts.
type MislabelCandidate struct {
	Row        int    `json:"row_index"`
	Label      string `json:"current_label"`
	Predicted  string `json:"predicted_label"`
	Confidence Number `json:"confidence"`
	Likely     bool   `json:"likely_mislabel"`
}

// LabelColumnResult summarizes mislabel scoring for one label column.
type LabelColumnResult struct {
	Column     string              `json:"label_column"`
	Flagged    int                 `json:"total_potential_mislabels"`
	Percentage Number              `json:"percentage"`
	Details    []MislabelCandidate `json:"details"`
	Method     string              `json:"ml_method"`
}

// ExpectationResult is the output of the expectation profiler.
type ExpectationResult struct {
	Total         int       `json:"total_expectations"`
	Passed        int       `json:"passed"`
	Failed        int       `json:"failed"`
	Expectations  []Finding `json:"expectations"`
	AutoGenerated bool      `json:"auto_generated"`
}

// ConstraintResult is the output of the constraint profiler.
type ConstraintResult struct {
	Generated   int       `json:"constraints_generated"`
	Constraints []Finding `json:"constraints"`
}

// RepairResult is the output of the probabilistic repair analyzer.
// Suggestions pair one-to-one with Detections, in column order.
type RepairResult struct {
	ErrorsDetected int                `json:"errors_detected"`
	Detections     []Detection        `json:"error_details"`
	Suggestions    []RepairSuggestion `json:"repair_suggestions"`
	Method         string             `json:"method"`
}

// LabelQualityResult is the output of the label-quality scorer. Exactly one
// of Columns or Message is set.
type LabelQualityResult struct {
	Columns []LabelColumnResult `json:"mislabel_detection,omitempty"`
	Message string              `json:"message,omitempty"`
	Method  string              `json:"method"`
}
