// Package history keeps past quality reports in a local SQLite database so
// runs can be listed and re-read later.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/dqscan-cli/internal/quality"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("report not found")

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	run_id              TEXT PRIMARY KEY,
	file                TEXT NOT NULL,
	created_at          TEXT NOT NULL,
	rows                INTEGER NOT NULL,
	columns             INTEGER NOT NULL,
	expectations_failed INTEGER NOT NULL,
	null_like_columns   INTEGER NOT NULL,
	mislabel_rows       INTEGER NOT NULL,
	errors              INTEGER NOT NULL,
	body                TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_created_at ON reports(created_at);
`

// Entry is one stored run without its report body.
type Entry struct {
	RunID     string
	File      string
	CreatedAt time.Time
	Rows      int
	Columns   int
	quality.Summary
}

// Store is a SQLite-backed report history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent batch saves.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save stores rep, replacing any previous report with the same run id.
func (s *Store) Save(ctx context.Context, rep *quality.Report) error {
	body, err := rep.JSON()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	sum := rep.Summary()
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO reports
	(run_id, file, created_at, rows, columns, expectations_failed, null_like_columns, mislabel_rows, errors, body)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Dataset.File, formatTime(rep.GeneratedAt),
		rep.Dataset.Rows, rep.Dataset.Columns,
		sum.ExpectationsFailed, sum.NullLikeColumns, sum.MislabelRows, sum.Errors,
		string(body))
	if err != nil {
		return fmt.Errorf("save report %s: %w", rep.RunID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `SELECT run_id, file, created_at, rows, columns, expectations_failed, null_like_columns, mislabel_rows, errors
FROM reports ORDER BY created_at DESC, run_id`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.RunID, &e.File, &created, &e.Rows, &e.Columns,
			&e.ExpectationsFailed, &e.NullLikeColumns, &e.MislabelRows, &e.Errors); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		ts, err := parseTime(created)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", e.RunID, err)
		}
		e.CreatedAt = ts
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns the stored JSON body of a report. A unique run id prefix is
// accepted.
func (s *Store) Get(ctx context.Context, runID string) ([]byte, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM reports WHERE run_id = ? OR run_id LIKE ? ESCAPE '\' ORDER BY run_id = ? DESC LIMIT 2`,
		runID, escapeLike(runID)+"%", runID)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	defer rows.Close()
	var bodies []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		bodies = append(bodies, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(bodies) {
	case 0:
		return nil, fmt.Errorf("%s: %w", runID, ErrNotFound)
	case 1:
		return []byte(bodies[0]), nil
	}
	return nil, fmt.Errorf("run id prefix %q is ambiguous", runID)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// timeLayout has fixed-width fractions so stored text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}
