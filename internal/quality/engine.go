package quality

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/dqscan-cli/internal/dataset"
	"github.com/KaramelBytes/dqscan-cli/internal/ml"
)

// Options configures an Engine.
type Options struct {
	// Parallel runs analyzers concurrently. Results are identical either way.
	Parallel bool
	Logger   *zap.Logger
}

// Engine runs a fixed set of analyzers over a snapshot and aggregates them.
type Engine struct {
	analyzers []Analyzer
	parallel  bool
	logger    *zap.Logger
}

// DefaultAnalyzers returns the four standard analyzers, scoring labels with clf.
func DefaultAnalyzers(clf ml.Classifier) []Analyzer {
	return []Analyzer{
		Expectations{},
		Constraints{},
		Repair{},
		NewLabelQuality(clf),
	}
}

// NewEngine builds an engine over analyzers.
func NewEngine(analyzers []Analyzer, opt Options) *Engine {
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{analyzers: analyzers, parallel: opt.Parallel, logger: logger}
}

// Run executes every analyzer against snap. A failing or panicking analyzer
// only turns its own entry into an error placeholder.
func (e *Engine) Run(ctx context.Context, snap *dataset.Snapshot) *Report {
	rep := newReport(InfoFor(snap))
	entries := make([]Entry, len(e.analyzers))

	if e.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, a := range e.analyzers {
			i, a := i, a
			g.Go(func() error {
				entries[i] = e.runOne(gctx, a, snap)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, a := range e.analyzers {
			entries[i] = e.runOne(ctx, a, snap)
		}
	}

	for _, entry := range entries {
		slot := rep.slot(entry.Analyzer)
		if slot == nil {
			e.logger.Warn("dropping result of unknown analyzer", zap.String("analyzer", entry.Analyzer))
			continue
		}
		*slot = entry
	}
	return rep
}

func (e *Engine) runOne(ctx context.Context, a Analyzer, snap *dataset.Snapshot) (entry Entry) {
	name := a.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer panicked",
				zap.String("analyzer", name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			entry = Entry{Analyzer: name, Err: fmt.Sprintf("panic: %v", r)}
		}
	}()

	out, err := a.Analyze(ctx, snap)
	if err != nil {
		e.logger.Warn("analyzer failed", zap.String("analyzer", name), zap.Error(err))
		return Entry{Analyzer: name, Err: err.Error()}
	}
	e.logger.Debug("analyzer finished",
		zap.String("analyzer", name),
		zap.Duration("took", time.Since(start)))
	return Entry{Analyzer: name, Output: out}
}
