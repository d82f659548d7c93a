package history

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
	"github.com/KaramelBytes/dqscan-cli/internal/quality"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func analyzed(t *testing.T) *quality.Report {
	t.Helper()
	snap, err := dataset.FromRecords("ages.csv", []string{"age"}, [][]string{{"25"}, {"N/A"}, {"40"}}, dataset.ParseOptions{})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	eng := quality.NewEngine([]quality.Analyzer{quality.Expectations{}, quality.Constraints{}, quality.Repair{}}, quality.Options{})
	return eng.Run(context.Background(), snap)
}

func TestSaveListGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	older := quality.Degraded("big.csv", errors.New("file too large"))
	older.GeneratedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	newer := analyzed(t)
	newer.GeneratedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, rep := range []*quality.Report{older, newer} {
		if err := s.Save(ctx, rep); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].RunID != newer.RunID || list[1].RunID != older.RunID {
		t.Fatalf("list order = %+v", list)
	}
	got := list[0]
	if got.File != "ages.csv" || got.Rows != 3 || got.Columns != 1 || !got.CreatedAt.Equal(newer.GeneratedAt) {
		t.Fatalf("newest entry = %+v", got)
	}
	if got.NullLikeColumns != 1 || got.ExpectationsFailed != 1 || got.Errors != 1 {
		t.Fatalf("summary = %+v", got.Summary)
	}
	if list[1].Errors != 4 {
		t.Fatalf("degraded errors = %d, want 4", list[1].Errors)
	}

	limited, err := s.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(1) = %v, %v", limited, err)
	}

	body, err := s.Get(ctx, newer.RunID[:8])
	if err != nil {
		t.Fatalf("Get by prefix: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	if doc["run_id"] != newer.RunID {
		t.Fatalf("run_id = %v", doc["run_id"])
	}
	if _, ok := doc["label_quality"]; !ok {
		t.Fatalf("stored body lost label_quality key")
	}
}

func TestGetUnknown(t *testing.T) {
	s := openStore(t)
	if _, err := s.Get(context.Background(), "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty id err = %v", err)
	}
}

func TestSaveReplacesSameRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rep := analyzed(t)
	if err := s.Save(ctx, rep); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, rep); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	list, err := s.List(ctx, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
}
