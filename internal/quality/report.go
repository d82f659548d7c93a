package quality

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
	"github.com/KaramelBytes/dqscan-cli/internal/utils"
)

const errNotRun = "analyzer not run"

// Entry is one analyzer's slot in a report: either its output or an error.
type Entry struct {
	Analyzer string
	Output   any
	Err      string
}

// Failed reports whether the entry is an error placeholder.
func (e Entry) Failed() bool { return e.Err != "" }

// MarshalJSON writes the analyzer output, or {"analyzer", "error"} on failure.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Failed() || e.Output == nil {
		msg := e.Err
		if msg == "" {
			msg = errNotRun
		}
		return json.Marshal(struct {
			Analyzer string `json:"analyzer"`
			Error    string `json:"error"`
		}{e.Analyzer, msg})
	}
	return json.Marshal(e.Output)
}

// DatasetInfo describes the analyzed input. When Error is set only File and
// Error are serialized.
type DatasetInfo struct {
	File        string
	Rows        int
	Columns     int
	ColumnNames []string
	SizeBytes   int64
	SourceRows  int
	Sampled     bool
	Error       string
}

// InfoFor collects report metadata from a snapshot.
func InfoFor(snap *dataset.Snapshot) DatasetInfo {
	return DatasetInfo{
		File:        snap.Name,
		Rows:        snap.Rows(),
		Columns:     len(snap.Columns),
		ColumnNames: snap.ColumnNames(),
		SizeBytes:   snap.SizeBytes,
		SourceRows:  snap.SourceRows,
		Sampled:     snap.Sampled(),
	}
}

// FileSizeMB is the source size in megabytes, rounded to two decimals.
func (d DatasetInfo) FileSizeMB() float64 {
	return math.Round(float64(d.SizeBytes)/1024/1024*100) / 100
}

// MarshalJSON writes {"file", "error"} for a degraded report.
func (d DatasetInfo) MarshalJSON() ([]byte, error) {
	if d.Error != "" {
		return json.Marshal(struct {
			File  string `json:"file"`
			Error string `json:"error"`
		}{d.File, d.Error})
	}
	names := d.ColumnNames
	if names == nil {
		names = []string{}
	}
	return json.Marshal(struct {
		File        string   `json:"file"`
		Rows        int      `json:"rows"`
		Columns     int      `json:"columns"`
		ColumnNames []string `json:"column_names"`
		FileSizeMB  Number   `json:"file_size_mb"`
		SourceRows  int      `json:"source_rows"`
		Sampled     bool     `json:"sampled"`
	}{d.File, d.Rows, d.Columns, names, Number(d.FileSizeMB()), d.SourceRows, d.Sampled})
}

// Report is the assembled result of one run. It is not modified after the
// engine returns it.
type Report struct {
	RunID        string      `json:"run_id"`
	GeneratedAt  time.Time   `json:"generated_at"`
	Dataset      DatasetInfo `json:"dataset_info"`
	Expectations Entry       `json:"expectations"`
	Constraints  Entry       `json:"constraints"`
	Repair       Entry       `json:"probabilistic_repair"`
	LabelQuality Entry       `json:"label_quality"`
}

func newReport(info DatasetInfo) *Report {
	return &Report{
		RunID:        uuid.NewString(),
		GeneratedAt:  time.Now().UTC().Truncate(time.Second),
		Dataset:      info,
		Expectations: Entry{Analyzer: NameExpectations, Err: errNotRun},
		Constraints:  Entry{Analyzer: NameConstraints, Err: errNotRun},
		Repair:       Entry{Analyzer: NameRepair, Err: errNotRun},
		LabelQuality: Entry{Analyzer: NameLabelQuality, Err: errNotRun},
	}
}

// Degraded builds a report for a run that failed before analysis: every
// analyzer entry carries err.
func Degraded(file string, err error) *Report {
	rep := newReport(DatasetInfo{File: file, Error: err.Error()})
	for _, e := range rep.Entries() {
		rep.slot(e.Analyzer).Err = err.Error()
	}
	return rep
}

func (r *Report) slot(name string) *Entry {
	switch name {
	case NameExpectations:
		return &r.Expectations
	case NameConstraints:
		return &r.Constraints
	case NameRepair:
		return &r.Repair
	case NameLabelQuality:
		return &r.LabelQuality
	}
	return nil
}

// Entries returns the analyzer entries in report order.
func (r *Report) Entries() []Entry {
	return []Entry{r.Expectations, r.Constraints, r.Repair, r.LabelQuality}
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return utils.PrettyJSON(r)
}

// Summary holds the headline counts of a report.
type Summary struct {
	ExpectationsFailed int
	NullLikeColumns    int
	MislabelRows       int
	Errors             int
}

// Summary counts failures and flags across all entries.
func (r *Report) Summary() Summary {
	var s Summary
	for _, e := range r.Entries() {
		if e.Failed() || e.Output == nil {
			s.Errors++
		}
	}
	if out, ok := r.Expectations.Output.(*ExpectationResult); ok {
		s.ExpectationsFailed = out.Failed
	}
	if out, ok := r.Repair.Output.(*RepairResult); ok {
		s.NullLikeColumns = out.ErrorsDetected
	}
	if out, ok := r.LabelQuality.Output.(*LabelQualityResult); ok {
		for _, c := range out.Columns {
			s.MislabelRows += c.Flagged
		}
	}
	return s
}

// Markdown renders a compact human-readable summary.
func (r *Report) Markdown() string {
	var b strings.Builder
	d := r.Dataset
	b.WriteString("[DATASET SUMMARY]\n")
	b.WriteString(fmt.Sprintf("File: %s\n", d.File))
	if d.Error != "" {
		b.WriteString(fmt.Sprintf("Error: %s\n", d.Error))
		return b.String()
	}
	if d.Sampled {
		b.WriteString(fmt.Sprintf("Rows: %d (sampled from %d)\n", d.Rows, d.SourceRows))
	} else {
		b.WriteString(fmt.Sprintf("Rows: %d\n", d.Rows))
	}
	b.WriteString(fmt.Sprintf("Columns: %d\n", d.Columns))
	b.WriteString(fmt.Sprintf("Size: %s\n", humanize.Bytes(uint64(d.SizeBytes))))
	b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))

	b.WriteString("\n[EXPECTATIONS]\n")
	if out, ok := r.Expectations.Output.(*ExpectationResult); ok && !r.Expectations.Failed() {
		b.WriteString(fmt.Sprintf("%d total, %d passed, %d failed\n", out.Total, out.Passed, out.Failed))
		for _, f := range out.Expectations {
			if f.Passes {
				continue
			}
			b.WriteString(fmt.Sprintf("- FAIL %s %s: %.4g (threshold %.2f)\n",
				safeName(f.Column), f.Check, float64(*f.Observed), float64(*f.Threshold)))
		}
	} else {
		writeEntryError(&b, r.Expectations)
	}

	b.WriteString("\n[CONSTRAINTS]\n")
	if out, ok := r.Constraints.Output.(*ConstraintResult); ok && !r.Constraints.Failed() {
		for _, c := range out.Constraints {
			b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(c.Column), c.Constraint))
		}
		if len(out.Constraints) == 0 {
			b.WriteString("(none)\n")
		}
	} else {
		writeEntryError(&b, r.Constraints)
	}

	b.WriteString("\n[NULL-LIKE VALUES]\n")
	if out, ok := r.Repair.Output.(*RepairResult); ok && !r.Repair.Failed() {
		if len(out.Detections) == 0 {
			b.WriteString("(none detected)\n")
		}
		for i, det := range out.Detections {
			sug := out.Suggestions[i]
			b.WriteString(fmt.Sprintf("- %s: %d found (%.1f%%, confidence %.2f); suggest %s = %v\n",
				safeName(det.Column), det.Count, float64(det.PatternStrength)*100,
				float64(det.Confidence), sug.Method, sug.Value))
		}
	} else {
		writeEntryError(&b, r.Repair)
	}

	b.WriteString("\n[LABEL QUALITY]\n")
	if out, ok := r.LabelQuality.Output.(*LabelQualityResult); ok && !r.LabelQuality.Failed() {
		if out.Message != "" {
			b.WriteString(out.Message + "\n")
		}
		for _, c := range out.Columns {
			b.WriteString(fmt.Sprintf("- %s: %d potential mislabels (%.1f%%)\n",
				safeName(c.Column), c.Flagged, float64(c.Percentage)))
			for _, m := range c.Details {
				mark := ""
				if m.Likely {
					mark = " [likely]"
				}
				b.WriteString(fmt.Sprintf("  • row %d: %s → %s (confidence %.2f)%s\n",
					m.Row, safeVal(m.Label), safeVal(m.Predicted), float64(m.Confidence), mark))
			}
		}
	} else {
		writeEntryError(&b, r.LabelQuality)
	}
	return b.String()
}

func writeEntryError(b *strings.Builder, e Entry) {
	msg := e.Err
	if msg == "" {
		msg = errNotRun
	}
	b.WriteString(fmt.Sprintf("Error: %s\n", msg))
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
