package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Options controls how a file becomes a Snapshot.
type Options struct {
	// MaxRows caps the rows handed to analyzers; larger inputs are sampled.
	// 0 means unlimited.
	MaxRows int
	// MaxBytes rejects larger source files before reading. 0 means unlimited.
	MaxBytes int64
	// Seed drives row sampling.
	Seed int64
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// Numeric parsing locale.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// XLSX sheet selection; SheetIndex is 1-based.
	SheetName  string
	SheetIndex int
	// Logger receives sampling notes; nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions mirrors the input contract of the engine: at most 10,000
// rows from a file no larger than 50MB, sampled with seed 42.
func DefaultOptions() Options {
	return Options{
		MaxRows:    10000,
		MaxBytes:   50 * 1024 * 1024,
		Seed:       42,
		SheetIndex: 1,
	}
}

// Reader turns a file into a header and raw records.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt Options) (header []string, records [][]string, err error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(xlsxReader{})
	Register(csvReader{})
}

// Load reads path into a Snapshot, enforcing the size guard and sampling.
func Load(path string, opt Options) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrUnsupported)
	}
	if opt.MaxBytes > 0 && info.Size() > opt.MaxBytes {
		return nil, &SizeError{Path: path, Size: info.Size(), Limit: opt.MaxBytes}
	}

	var rd Reader = csvReader{}
	for _, r := range registry {
		if r.CanRead(path) {
			rd = r
			break
		}
	}
	header, records, err := rd.Read(path, opt)
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, ErrEmpty
	}

	total := len(records)
	if opt.MaxRows > 0 && total > opt.MaxRows {
		if opt.Logger != nil {
			opt.Logger.Info("sampling rows for analysis",
				zap.String("file", filepath.Base(path)),
				zap.Int("rows", total),
				zap.Int("sample", opt.MaxRows),
				zap.Int64("seed", opt.Seed))
		}
		records = SampleRecords(records, opt.MaxRows, opt.Seed)
	}

	snap, err := FromRecords(filepath.Base(path), header, records, ParseOptions{
		DecimalSeparator:   opt.DecimalSeparator,
		ThousandsSeparator: opt.ThousandsSeparator,
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	snap.SizeBytes = info.Size()
	snap.SourceRows = total
	return snap, nil
}

// SampleRecords draws n records without replacement using seed and returns
// them in their original order. The same seed always picks the same rows.
func SampleRecords(records [][]string, n int, seed int64) [][]string {
	if n <= 0 || n >= len(records) {
		return records
	}
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(len(records))[:n]
	sort.Ints(idx)
	out := make([][]string, n)
	for i, k := range idx {
		out[i] = records[k]
	}
	return out
}

type csvReader struct{}

func (csvReader) CanRead(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvReader) Read(path string, opt Options) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return readDelimited(f, delim)
}

// readDelimited decodes UTF-8 or BOM-marked UTF-16 text and returns the
// header plus copies of every record.
func readDelimited(src io.Reader, delim rune) ([]string, [][]string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := csv.NewReader(transform.NewReader(src, dec))
	r.FieldsPerRecord = -1
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmpty
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
