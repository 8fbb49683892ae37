package predictor

import (
	"fmt"
	"math/rand"
	"sort"
)

// TreeNode is one node of a flattened regression tree. Leaves carry Value;
// internal nodes send x[Feature] <= Threshold to Left.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a regression tree stored as a node slice rooted at index 0.
type Tree []TreeNode

// Predict walks the tree for one row.
func (t Tree) Predict(x []float64) float64 {
	i := 0
	for !t[i].Leaf {
		n := t[i]
		if n.Feature < len(x) && x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t[i].Value
}

// ForestRegressor averages bagged CART regression trees that split on
// variance reduction over a random feature subset.
type ForestRegressor struct {
	NTrees      int
	MaxDepth    int
	MinLeaf     int
	MaxFeatures int // 0 means one third of the features, at least one
	Seed        int64

	Trees []Tree
}

// NewForestRegressor returns an unfitted forest.
func NewForestRegressor(trees, maxDepth int, seed int64) *ForestRegressor {
	return &ForestRegressor{NTrees: trees, MaxDepth: maxDepth, MinLeaf: 1, Seed: seed}
}

// Fit grows NTrees trees on bootstrap samples. Tree i is seeded with Seed+i so
// a fit is reproducible.
func (f *ForestRegressor) Fit(X [][]float64, y []float64) error {
	n, p, err := shape(X, y)
	if err != nil {
		return fmt.Errorf("forest: %w", err)
	}
	if f.NTrees <= 0 {
		return fmt.Errorf("forest: NTrees must be positive, got %d", f.NTrees)
	}

	mtry := f.MaxFeatures
	if mtry <= 0 {
		mtry = p / 3
	}
	if mtry < 1 {
		mtry = 1
	}
	if mtry > p {
		mtry = p
	}
	minLeaf := f.MinLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	f.Trees = make([]Tree, f.NTrees)
	for t := 0; t < f.NTrees; t++ {
		rnd := rand.New(rand.NewSource(f.Seed + int64(t)))
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rnd.Intn(n)
		}
		b := &treeBuilder{X: X, y: y, p: p, mtry: mtry, maxDepth: f.MaxDepth, minLeaf: minLeaf, rnd: rnd}
		b.build(sample, 0)
		f.Trees[t] = b.nodes
	}
	return nil
}

// Predict returns the mean of the tree predictions.
func (f *ForestRegressor) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}

type treeBuilder struct {
	X        [][]float64
	y        []float64
	p        int
	mtry     int
	maxDepth int
	minLeaf  int
	rnd      *rand.Rand
	nodes    Tree
}

type split struct {
	feature   int
	threshold float64
	sse       float64
	ok        bool
}

func (b *treeBuilder) build(idx []int, depth int) int {
	at := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Leaf: true, Value: b.mean(idx)})

	if (b.maxDepth > 0 && depth >= b.maxDepth) || len(idx) < 2*b.minLeaf || b.pure(idx) {
		return at
	}

	best := split{}
	for _, feat := range b.rnd.Perm(b.p)[:b.mtry] {
		s := b.bestSplit(idx, feat)
		if s.ok && (!best.ok || s.sse < best.sse) {
			best = s
		}
	}
	if !best.ok {
		return at
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[at] = TreeNode{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return at
}

// bestSplit scans the sorted values of one feature with running sums.
func (b *treeBuilder) bestSplit(idx []int, feat int) split {
	sorted := make([]int, len(idx))
	copy(sorted, idx)
	sort.Slice(sorted, func(i, j int) bool { return b.X[sorted[i]][feat] < b.X[sorted[j]][feat] })

	var total, totalSq float64
	for _, i := range sorted {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}

	n := len(sorted)
	best := split{feature: feat}
	var leftSum, leftSq float64
	for k := 1; k < n; k++ {
		v := b.y[sorted[k-1]]
		leftSum += v
		leftSq += v * v
		if k < b.minLeaf || n-k < b.minLeaf {
			continue
		}
		lo, hi := b.X[sorted[k-1]][feat], b.X[sorted[k]][feat]
		if lo == hi {
			continue
		}
		rightSum, rightSq := total-leftSum, totalSq-leftSq
		sse := leftSq - leftSum*leftSum/float64(k) + rightSq - rightSum*rightSum/float64(n-k)
		if !best.ok || sse < best.sse {
			best.threshold = (lo + hi) / 2
			if best.threshold >= hi {
				best.threshold = lo
			}
			best.sse = sse
			best.ok = true
		}
	}
	return best
}

func (b *treeBuilder) mean(idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += b.y[i]
	}
	return s / float64(len(idx))
}

func (b *treeBuilder) pure(idx []int) bool {
	for _, i := range idx[1:] {
		if b.y[i] != b.y[idx[0]] {
			return false
		}
	}
	return true
}
