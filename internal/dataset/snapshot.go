// Package dataset holds the in-memory tabular snapshot every analyzer reads,
// plus the readers that build one from CSV, TSV and XLSX files.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the declared type of a column.
type Kind int

const (
	// KindNumeric columns hold only numbers (or nothing at all).
	KindNumeric Kind = iota
	// KindText covers text and mixed columns.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Cell is one value in a column. Num is only meaningful for numeric columns.
type Cell struct {
	Raw     string
	Num     float64
	Missing bool
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name  string
	Kind  Kind
	Cells []Cell
}

// Snapshot is an immutable, fully loaded dataset. Callers must not modify
// Columns or their cells after construction.
type Snapshot struct {
	Name       string
	SizeBytes  int64
	SourceRows int
	Columns    []Column
	rows       int
}

// ParseOptions controls how raw text becomes typed cells.
type ParseOptions struct {
	// DecimalSeparator defaults to '.'.
	DecimalSeparator rune
	// ThousandsSeparator is stripped before parsing when set.
	ThousandsSeparator rune
}

// missingMarkers are the cell texts treated as native missing values, the
// same defaults common CSV readers apply before any analysis happens.
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissingMarker reports whether s is a native missing-value marker.
func IsMissingMarker(s string) bool {
	_, ok := missingMarkers[s]
	return ok
}

// FromRecords builds a snapshot from a header and row records. Short rows are
// padded with missing cells; rows longer than the header are rejected.
func FromRecords(name string, header []string, records [][]string, opt ParseOptions) (*Snapshot, error) {
	names := dedupeNames(header)
	ncol := len(names)
	for i, rec := range records {
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, saw %d", i+1, ncol, len(rec))
		}
	}

	snap := &Snapshot{Name: name, SourceRows: len(records), rows: len(records)}
	snap.Columns = make([]Column, ncol)
	for j := 0; j < ncol; j++ {
		cells := make([]Cell, len(records))
		numeric := true
		for i, rec := range records {
			raw := ""
			if j < len(rec) {
				raw = rec[j]
			}
			c := Cell{Raw: raw}
			if IsMissingMarker(raw) {
				c.Missing = true
			} else if numeric {
				if x, ok := parseNumeric(raw, opt); ok && math.IsNaN(x) {
					c.Missing = true
				} else if ok {
					c.Num = x
				} else {
					numeric = false
				}
			}
			cells[i] = c
		}
		kind := KindNumeric
		if !numeric {
			kind = KindText
			for i := range cells {
				cells[i].Num = 0
			}
		}
		snap.Columns[j] = Column{Name: names[j], Kind: kind, Cells: cells}
	}
	return snap, nil
}

// Rows returns the number of rows in the snapshot.
func (s *Snapshot) Rows() int { return s.rows }

// ColumnNames returns the column names in order.
func (s *Snapshot) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the numeric columns in original order.
func (s *Snapshot) NumericColumns() []*Column {
	var out []*Column
	for i := range s.Columns {
		if s.Columns[i].Kind == KindNumeric {
			out = append(out, &s.Columns[i])
		}
	}
	return out
}

// Sampled reports whether rows were dropped while loading.
func (s *Snapshot) Sampled() bool { return s.SourceRows > s.rows }

// NonMissing counts cells that carry a value.
func (c *Column) NonMissing() int {
	n := 0
	for _, cell := range c.Cells {
		if !cell.Missing {
			n++
		}
	}
	return n
}

// Text returns the string form of row i. Missing cells render as "nan".
func (c *Column) Text(i int) string {
	cell := c.Cells[i]
	if cell.Missing {
		return "nan"
	}
	return cell.Raw
}

// Floats returns the non-missing values of a numeric column.
func (c *Column) Floats() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Cells))
	for _, cell := range c.Cells {
		if !cell.Missing {
			out = append(out, cell.Num)
		}
	}
	return out
}

// Key returns the identity used to compare values of row i: the canonical
// number for numeric columns, the raw text otherwise.
func (c *Column) Key(i int) string {
	cell := c.Cells[i]
	if c.Kind == KindNumeric {
		return strconv.FormatFloat(cell.Num, 'g', -1, 64)
	}
	return cell.Raw
}

// Distinct counts distinct non-missing values.
func (c *Column) Distinct() int {
	seen := make(map[string]struct{})
	for i, cell := range c.Cells {
		if cell.Missing {
			continue
		}
		seen[c.Key(i)] = struct{}{}
	}
	return len(seen)
}

// dedupeNames mangles repeated header names as name.1, name.2 and names
// blank headers by position.
func dedupeNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counter := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			for used[name] {
				counter[base]++
				name = fmt.Sprintf("%s.%d", base, counter[base])
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}
