package quality

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
	"github.com/KaramelBytes/dqscan-cli/internal/ml"
)

const (
	flagThreshold   = 0.6
	likelyThreshold = 0.4
	maxDetails      = 10
	maxLabelColumns = 2
	maxLabelShare   = 0.5

	labelMethod = "Random Forest confidence scoring"

	msgNoCandidates = "No suitable categorical columns for mislabel detection"
	msgNoFeatures   = "No numeric feature columns available for mislabel detection"
)

// LabelQuality trains a classifier per candidate label column on the numeric
// columns and flags rows whose predicted label has low confidence.
type LabelQuality struct {
	Classifier ml.Classifier
}

// NewLabelQuality returns a scorer backed by clf.
func NewLabelQuality(clf ml.Classifier) *LabelQuality {
	return &LabelQuality{Classifier: clf}
}

// Name returns the report key for this analyzer.
func (*LabelQuality) Name() string { return NameLabelQuality }

// Analyze scores up to two label columns and reports the rows the classifier
// is unsure about. Columns without flagged rows are omitted.
func (a *LabelQuality) Analyze(ctx context.Context, snap *dataset.Snapshot) (any, error) {
	if a.Classifier == nil {
		return nil, fmt.Errorf("label quality: no classifier configured")
	}
	out := &LabelQualityResult{Method: "ML confidence-based mislabel detection"}

	candidates := LabelCandidates(snap)
	if len(candidates) == 0 {
		out.Message = msgNoCandidates
		return out, nil
	}
	X := featureMatrix(snap)
	if X == nil {
		out.Message = msgNoFeatures
		return out, nil
	}

	for _, col := range candidates {
		labels := make([]string, snap.Rows())
		for r, c := range col.Cells {
			if c.Missing {
				labels[r] = "Unknown"
			} else {
				labels[r] = c.Raw
			}
		}
		classes, y := encodeLabels(labels)
		if len(classes) < 2 {
			continue
		}
		scores, err := a.Classifier.FitScore(ctx, X, y, len(classes))
		if err != nil {
			return nil, fmt.Errorf("score label column %q: %w", col.Name, err)
		}
		res := LabelColumnResult{Column: col.Name, Details: []MislabelCandidate{}, Method: labelMethod}
		for r, conf := range scores.Confidence {
			if conf >= flagThreshold {
				continue
			}
			res.Flagged++
			if len(res.Details) < maxDetails {
				res.Details = append(res.Details, MislabelCandidate{
					Row:        r,
					Label:      labels[r],
					Predicted:  classes[scores.Predicted[r]],
					Confidence: Number(conf),
					Likely:     conf < likelyThreshold,
				})
			}
		}
		if res.Flagged == 0 {
			continue
		}
		res.Percentage = Number(float64(res.Flagged) / float64(snap.Rows()) * 100)
		out.Columns = append(out.Columns, res)
	}
	return out, nil
}

// LabelCandidates returns up to two text columns, in column order, whose
// distinct count lies in [2, rows/2].
func LabelCandidates(snap *dataset.Snapshot) []*dataset.Column {
	limit := maxLabelShare * float64(snap.Rows())
	var out []*dataset.Column
	for i := range snap.Columns {
		col := &snap.Columns[i]
		if col.Kind == dataset.KindNumeric {
			continue
		}
		d := col.Distinct()
		if d < 2 || float64(d) > limit {
			continue
		}
		out = append(out, col)
		if len(out) == maxLabelColumns {
			break
		}
	}
	return out
}

// featureMatrix stacks every numeric column that has at least one value,
// filling missing cells with the column mean. It returns nil when there are
// no such columns.
func featureMatrix(snap *dataset.Snapshot) *mat.Dense {
	var cols []*dataset.Column
	var means []float64
	for _, col := range snap.NumericColumns() {
		vals := col.Floats()
		if len(vals) == 0 {
			continue
		}
		cols = append(cols, col)
		means = append(means, stat.Mean(vals, nil))
	}
	if len(cols) == 0 || snap.Rows() == 0 {
		return nil
	}
	X := mat.NewDense(snap.Rows(), len(cols), nil)
	for j, col := range cols {
		for r, c := range col.Cells {
			if c.Missing {
				X.Set(r, j, means[j])
			} else {
				X.Set(r, j, c.Num)
			}
		}
	}
	return X
}

// encodeLabels maps labels onto indexes of their sorted distinct values.
func encodeLabels(labels []string) ([]string, []int) {
	set := make(map[string]int)
	for _, l := range labels {
		set[l] = 0
	}
	classes := make([]string, 0, len(set))
	for l := range set {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	for i, l := range classes {
		set[l] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = set[l]
	}
	return classes, y
}
