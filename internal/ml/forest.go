// Package ml provides the bagged decision-tree ensemble used to score how
// well each row's label agrees with its numeric features.
package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Scores holds the per-row output of a fitted classifier.
type Scores struct {
	// Predicted is the most probable class per row.
	Predicted []int
	// Confidence is the probability assigned to Predicted.
	Confidence []float64
}

// Classifier fits on X/y and scores the same rows.
type Classifier interface {
	FitScore(ctx context.Context, X *mat.Dense, y []int, nClasses int) (Scores, error)
}

// Config tunes a Forest.
type Config struct {
	Trees int
	Seed  int64
	// MaxFeatures per split; 0 means floor(sqrt(features)).
	MaxFeatures int
	// Workers bounds concurrent tree training; 0 means GOMAXPROCS.
	Workers int
}

// Forest is a random forest: bootstrap-sampled CART trees with Gini splits
// and a random feature subset per split.
type Forest struct {
	cfg Config
}

// NewForest returns a forest using cfg, with 100 trees when unset.
func NewForest(cfg Config) *Forest {
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	return &Forest{cfg: cfg}
}

// FitScore trains the ensemble on every row of X and returns the averaged
// class probabilities for those same rows.
func (f *Forest) FitScore(ctx context.Context, X *mat.Dense, y []int, nClasses int) (Scores, error) {
	if X == nil {
		return Scores{}, errors.New("forest: nil feature matrix")
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return Scores{}, errors.New("forest: empty feature matrix")
	}
	if len(y) != n {
		return Scores{}, fmt.Errorf("forest: %d labels for %d rows", len(y), n)
	}
	if nClasses < 1 {
		return Scores{}, fmt.Errorf("forest: invalid class count %d", nClasses)
	}
	for i, c := range y {
		if c < 0 || c >= nClasses {
			return Scores{}, fmt.Errorf("forest: label %d at row %d out of range", c, i)
		}
	}

	mtry := f.cfg.MaxFeatures
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(p)))
	}
	if mtry < 1 {
		mtry = 1
	}
	if mtry > p {
		mtry = p
	}

	// Tree seeds are drawn up front so results do not depend on scheduling.
	master := rand.New(rand.NewSource(f.cfg.Seed))
	seeds := make([]int64, f.cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*node, f.cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	workers := f.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for t := range trees {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := &builder{
				x:        X,
				y:        y,
				classes:  nClasses,
				features: p,
				mtry:     mtry,
				rng:      rand.New(rand.NewSource(seeds[t])),
			}
			rows := make([]int, n)
			for i := range rows {
				rows[i] = b.rng.Intn(n)
			}
			trees[t] = b.grow(rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Scores{}, err
	}

	out := Scores{Predicted: make([]int, n), Confidence: make([]float64, n)}
	probs := make([]float64, nClasses)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		for k := range probs {
			probs[k] = 0
		}
		mat.Row(row, i, X)
		for _, tr := range trees {
			leaf := tr.find(row)
			for k, v := range leaf.probs {
				probs[k] += v
			}
		}
		best := 0
		for k := 1; k < nClasses; k++ {
			if probs[k] > probs[best] {
				best = k
			}
		}
		out.Predicted[i] = best
		out.Confidence[i] = probs[best] / float64(len(trees))
	}
	return out, nil
}
