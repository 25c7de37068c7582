package forecast

import (
	"errors"
	"log"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// GBMParams holds the fixed hyperparameter set for the gradient-boosted
// regressor. No search or tuning happens at train time.
type GBMParams struct {
	NumTrees     int     `json:"numTrees"`
	MaxDepth     int     `json:"maxDepth"`
	LearningRate float64 `json:"learningRate"`
	Subsample    float64 `json:"subsample"`
	ColSample    float64 `json:"colSample"`
	Seed         int64   `json:"seed"`
}

// GBM is a gradient-boosted ensemble of regression trees fitted to the
// squared-error objective: each tree fits the residuals of the ensemble so
// far, scaled by the learning rate.
type GBM struct {
	Params   GBMParams        `json:"params"`
	Baseline float64          `json:"baseline"`
	Trees    []regressionTree `json:"trees"`

	fitted bool
}

// regressionTree is a CART regression tree stored as a flat node array;
// children reference node indices so the structure round-trips through JSON.
type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf"`
}

// NewGBM creates an unfitted model with the given hyperparameters.
func NewGBM(params GBMParams) *GBM {
	return &GBM{Params: params}
}

// Fit trains the ensemble on X/y, tracking mean absolute error on the
// validation split every 25 rounds. Validation is monitored only — the full
// tree budget is always spent.
func (g *GBM) Fit(X *mat.Dense, y []float64, valX *mat.Dense, valY []float64) error {
	n, cols := X.Dims()
	if n == 0 || n != len(y) {
		return errors.New("feature matrix and label vector sizes do not match")
	}

	g.Baseline = meanOf(y)
	g.Trees = make([]regressionTree, 0, g.Params.NumTrees)

	rng := rand.New(rand.NewSource(g.Params.Seed))

	// Running ensemble prediction per training row.
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.Baseline
	}
	residual := make([]float64, n)

	sampleRows := int(math.Max(1, g.Params.Subsample*float64(n)))
	sampleCols := int(math.Max(1, g.Params.ColSample*float64(cols)))

	for t := 0; t < g.Params.NumTrees; t++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		rows := sampleIndices(rng, n, sampleRows)
		features := sampleIndices(rng, cols, sampleCols)

		tree := growTree(X, residual, rows, features, g.Params.MaxDepth)
		g.Trees = append(g.Trees, tree)

		for i := 0; i < n; i++ {
			pred[i] += g.Params.LearningRate * tree.predict(X.RawRowView(i))
		}

		if valX != nil && (t+1)%25 == 0 {
			log.Printf("[TRAIN] round %d/%d  val MAE=%.4f", t+1, g.Params.NumTrees, g.validationMAE(valX, valY, t+1))
		}
	}

	g.fitted = true
	return nil
}

func (g *GBM) validationMAE(valX *mat.Dense, valY []float64, rounds int) float64 {
	vn, _ := valX.Dims()
	if vn == 0 {
		return math.NaN()
	}
	var sum float64
	for i := 0; i < vn; i++ {
		sum += math.Abs(valY[i] - g.predictPartial(valX.RawRowView(i), rounds))
	}
	return sum / float64(vn)
}

func (g *GBM) predictPartial(x []float64, rounds int) float64 {
	out := g.Baseline
	for t := 0; t < rounds && t < len(g.Trees); t++ {
		out += g.Params.LearningRate * g.Trees[t].predict(x)
	}
	return out
}

// Predict scores a single feature vector, ordered as the training columns.
func (g *GBM) Predict(x []float64) float64 {
	return g.predictPartial(x, len(g.Trees))
}

// Fitted reports whether the model has been trained or loaded.
func (g *GBM) Fitted() bool {
	return g.fitted || len(g.Trees) > 0
}

// sampleIndices draws k distinct indices from [0,n) in sorted order.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	if k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// growTree builds a depth-limited CART regression tree on the given row and
// feature subsets, minimising squared error greedily at each split.
func growTree(X *mat.Dense, target []float64, rows, features []int, maxDepth int) regressionTree {
	tree := regressionTree{}
	tree.build(X, target, rows, features, maxDepth)
	return tree
}

func (t *regressionTree) build(X *mat.Dense, target []float64, rows, features []int, depth int) int {
	leafValue := func() int {
		var sum float64
		for _, r := range rows {
			sum += target[r]
		}
		v := 0.0
		if len(rows) > 0 {
			v = sum / float64(len(rows))
		}
		t.Nodes = append(t.Nodes, treeNode{Leaf: true, Value: v})
		return len(t.Nodes) - 1
	}

	if depth == 0 || len(rows) < 2 {
		return leafValue()
	}

	feature, threshold, ok := bestSplit(X, target, rows, features)
	if !ok {
		return leafValue()
	}

	var left, right []int
	for _, r := range rows {
		if X.At(r, feature) <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leafValue()
	}

	// Reserve the split node before recursing so children index correctly.
	t.Nodes = append(t.Nodes, treeNode{Feature: feature, Threshold: threshold})
	idx := len(t.Nodes) - 1
	l := t.build(X, target, left, features, depth-1)
	r := t.build(X, target, right, features, depth-1)
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

// bestSplit scans every candidate feature for the threshold minimising the
// post-split sum of squared errors, using running prefix sums over rows
// sorted by feature value.
func bestSplit(X *mat.Dense, target []float64, rows, features []int) (feature int, threshold float64, ok bool) {
	bestSSE := math.Inf(1)

	order := make([]int, len(rows))
	for _, f := range features {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool { return X.At(order[i], f) < X.At(order[j], f) })

		var totalSum, totalSq float64
		for _, r := range order {
			totalSum += target[r]
			totalSq += target[r] * target[r]
		}

		var leftSum, leftSq float64
		n := float64(len(order))
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			leftSum += target[r]
			leftSq += target[r] * target[r]

			// No valid split between identical feature values.
			cur, next := X.At(r, f), X.At(order[i+1], f)
			if cur == next {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < bestSSE {
				bestSSE = sse
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func (t *regressionTree) predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}
