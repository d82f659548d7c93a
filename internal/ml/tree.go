package ml

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// node is either a split (left != nil) or a leaf holding class fractions.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	probs     []float64
}

func (nd *node) find(row []float64) *node {
	for nd.left != nil {
		if row[nd.feature] <= nd.threshold {
			nd = nd.left
		} else {
			nd = nd.right
		}
	}
	return nd
}

type builder struct {
	x        *mat.Dense
	y        []int
	classes  int
	features int
	mtry     int
	rng      *rand.Rand
}

type valued struct {
	row int
	v   float64
}

// grow builds a fully grown tree over rows (which may repeat).
func (b *builder) grow(rows []int) *node {
	counts := make([]float64, b.classes)
	for _, r := range rows {
		counts[b.y[r]]++
	}
	if len(rows) < 2 || pure(counts) {
		return b.leaf(counts, len(rows))
	}
	feat, thr, ok := b.bestSplit(rows, counts)
	if !ok {
		return b.leaf(counts, len(rows))
	}
	var left, right []int
	for _, r := range rows {
		if b.x.At(r, feat) <= thr {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &node{
		feature:   feat,
		threshold: thr,
		left:      b.grow(left),
		right:     b.grow(right),
	}
}

func (b *builder) leaf(counts []float64, n int) *node {
	probs := make([]float64, len(counts))
	for k, c := range counts {
		probs[k] = c / float64(n)
	}
	return &node{probs: probs}
}

// bestSplit scans a random feature order and keeps going past constant
// features until mtry usable ones have been evaluated.
func (b *builder) bestSplit(rows []int, total []float64) (int, float64, bool) {
	order := b.rng.Perm(b.features)
	vals := make([]valued, len(rows))
	left := make([]float64, b.classes)
	right := make([]float64, b.classes)

	bestFeat, bestThr, bestScore := -1, 0.0, -1.0
	tried := 0
	for _, f := range order {
		if tried >= b.mtry {
			break
		}
		for i, r := range rows {
			vals[i] = valued{row: r, v: b.x.At(r, f)}
		}
		sort.Slice(vals, func(i, j int) bool { return vals[i].v < vals[j].v })
		if vals[0].v == vals[len(vals)-1].v {
			continue
		}
		tried++

		for k := range left {
			left[k] = 0
			right[k] = total[k]
		}
		n := float64(len(vals))
		for i := 0; i < len(vals)-1; i++ {
			c := b.y[vals[i].row]
			left[c]++
			right[c]--
			if vals[i].v == vals[i+1].v {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			// Maximizing sum(c^2)/n per side minimizes weighted Gini.
			score := sumSquares(left)/nl + sumSquares(right)/nr
			if score > bestScore {
				bestScore = score
				bestFeat = f
				bestThr = vals[i].v + (vals[i+1].v-vals[i].v)/2
				if bestThr == vals[i+1].v {
					bestThr = vals[i].v
				}
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}

func sumSquares(c []float64) float64 {
	s := 0.0
	for _, v := range c {
		s += v * v
	}
	return s
}

func pure(counts []float64) bool {
	seen := 0
	for _, c := range counts {
		if c > 0 {
			seen++
		}
	}
	return seen <= 1
}
