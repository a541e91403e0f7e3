package geometry

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/lumen-go/common"
	"github.com/Carmen-Shannon/lumen-go/log"
)

const (
	// DefaultMaxLeafSize is the triangle count at or below which a node is
	// always kept as a leaf.
	DefaultMaxLeafSize = 4

	// binCount is the number of equal-width centroid bins evaluated per axis
	// when scoring split candidates.
	binCount = 8

	// The builder will not evaluate split candidates along an axis whose
	// centroid range is smaller than this threshold.
	minCentroidRange = 1e-6

	// Triangle ranges below this size are scored inline; the per-axis worker
	// pool only pays off on large ranges.
	parallelScoreThreshold = 4096
)

// BVHNode is one node of the flattened hierarchy. The (LeftFirst, TriCount)
// pair discriminates the node kind:
//
//   - TriCount > 0: leaf; LeftFirst indexes the first of TriCount contiguous
//     entries in the reordered triangle slice.
//   - TriCount == 0: internal; the two children occupy nodes LeftFirst and
//     LeftFirst+1.
//
// Node 0 is always the root. The field order mirrors the GPU buffer layout
// (min, leftFirst, max, triCount) so nodes upload without reshuffling.
type BVHNode struct {
	Min       common.Vec3
	LeftFirst uint32
	Max       common.Vec3
	TriCount  uint32
}

// IsLeaf reports whether the node is a leaf.
func (n *BVHNode) IsLeaf() bool {
	return n.TriCount > 0
}

// Bounds returns the node's bounding box.
func (n *BVHNode) Bounds() AABB {
	return AABB{Min: n.Min, Max: n.Max}
}

// BVH is the built hierarchy plus the triangle permutation it indexes.
type BVH struct {
	// Nodes is the flattened node arena rooted at index 0.
	Nodes []BVHNode
	// Triangles is the input triangle list reordered so each leaf's range is
	// contiguous.
	Triangles []Triangle
}

// BuildOption configures the BVH builder during construction.
type BuildOption func(*builder)

// WithMaxLeafSize overrides the maximum number of triangles per leaf.
//
// Parameters:
//   - n: the leaf size cap (values < 1 are ignored)
//
// Returns:
//   - BuildOption: a function that applies the leaf size option to a builder
func WithMaxLeafSize(n int) BuildOption {
	return func(b *builder) {
		if n >= 1 {
			b.maxLeafSize = n
		}
	}
}

// WithScoreWorkers overrides the number of workers used for parallel SAH
// scoring on large triangle ranges.
//
// Parameters:
//   - n: the worker count (values < 1 are ignored)
//
// Returns:
//   - BuildOption: a function that applies the worker count option to a builder
func WithScoreWorkers(n int) BuildOption {
	return func(b *builder) {
		if n >= 1 {
			b.scoreWorkers = n
		}
	}
}

// axisSplit is the best split candidate found along one axis.
type axisSplit struct {
	axis  int
	pos   float32
	cost  float32
	found bool
}

type buildStats struct {
	nodes    int
	leafs    int
	maxDepth int
}

type builder struct {
	logger log.Logger

	nodes     []BVHNode
	tris      []Triangle
	centroids []common.Vec3

	maxLeafSize  int
	scoreWorkers int

	// scorePool manages a bounded set of reusable goroutines for per-axis SAH
	// scoring. Workers idle-exit after the build finishes.
	scorePool worker.DynamicWorkerPool

	stats buildStats
}

// BuildBVH constructs a bounding-volume hierarchy over the given triangles
// using binned surface-area-heuristic splits. The returned BVH owns a
// reordered copy of the input; the input slice is left untouched.
//
// Building from an empty slice is a caller error and panics.
//
// Parameters:
//   - triangles: the non-empty world-space triangle list
//   - opts: functional options (leaf size, worker count)
//
// Returns:
//   - *BVH: the flattened hierarchy rooted at node 0
func BuildBVH(triangles []Triangle, opts ...BuildOption) *BVH {
	if len(triangles) == 0 {
		panic("geometry: BuildBVH requires at least one triangle")
	}

	b := &builder{
		logger:       log.New("bvh"),
		nodes:        make([]BVHNode, 0, 2*len(triangles)),
		tris:         make([]Triangle, len(triangles)),
		centroids:    make([]common.Vec3, len(triangles)),
		maxLeafSize:  DefaultMaxLeafSize,
		scoreWorkers: max(runtime.NumCPU()-1, 1),
	}
	copy(b.tris, triangles)
	for i := range b.tris {
		b.centroids[i] = b.tris[i].Centroid()
	}

	for _, opt := range opts {
		opt(b)
	}

	b.scorePool = worker.NewDynamicWorkerPool(b.scoreWorkers, 16, time.Second)

	start := time.Now()

	// Root covers the whole range; children are appended as splitting proceeds.
	b.nodes = append(b.nodes, b.makeNode(0, uint32(len(b.tris))))
	b.stats.nodes = 1
	b.subdivide(0, 0)

	b.logger.Debugf(
		"BVH build: %d tris, %d nodes, %d leafs, depth %d in %d ms",
		len(b.tris), b.stats.nodes, b.stats.leafs, b.stats.maxDepth,
		time.Since(start).Milliseconds(),
	)

	return &BVH{Nodes: b.nodes, Triangles: b.tris}
}

// makeNode builds a leaf-shaped node whose bounds tightly cover the triangle
// range [first, first+count).
func (b *builder) makeNode(first, count uint32) BVHNode {
	bounds := EmptyAABB()
	for i := first; i < first+count; i++ {
		bounds.Union(b.tris[i].Bounds())
	}
	return BVHNode{
		Min:       bounds.Min,
		LeftFirst: first,
		Max:       bounds.Max,
		TriCount:  count,
	}
}

// subdivide recursively splits the node at nodeIndex until the SAH stops
// paying for further splits. Every split strictly shrinks both partitions so
// the recursion always terminates.
func (b *builder) subdivide(nodeIndex int, depth int) {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	node := &b.nodes[nodeIndex]
	first, count := node.LeftFirst, node.TriCount

	if int(count) <= b.maxLeafSize {
		b.stats.leafs++
		return
	}

	split, ok := b.bestSplit(first, count)
	if !ok {
		b.stats.leafs++
		return
	}

	// Two-pointer partition by centroid component against the split plane.
	i, j := first, first+count-1
	for i <= j {
		if b.centroids[i][split.axis] < split.pos {
			i++
		} else {
			b.tris[i], b.tris[j] = b.tris[j], b.tris[i]
			b.centroids[i], b.centroids[j] = b.centroids[j], b.centroids[i]
			if j == 0 {
				break
			}
			j--
		}
	}

	leftCount := i - first
	if leftCount == 0 || leftCount == count {
		// Binning said this plane separates the centroids, but the in-place
		// scan disagreed (ties on the plane). Keep the leaf.
		b.stats.leafs++
		return
	}

	leftIndex := uint32(len(b.nodes))
	b.nodes = append(b.nodes, b.makeNode(first, leftCount))
	b.nodes = append(b.nodes, b.makeNode(i, count-leftCount))
	b.stats.nodes += 2

	// The append above may have moved the backing array; re-resolve the node.
	n := &b.nodes[nodeIndex]
	n.LeftFirst = leftIndex
	n.TriCount = 0

	b.subdivide(int(leftIndex), depth+1)
	b.subdivide(int(leftIndex)+1, depth+1)
}

// bestSplit scores the 7 interior bin boundaries of each non-degenerate axis
// and returns the cheapest candidate, or ok=false when no candidate beats the
// cost of leaving the node as a leaf.
func (b *builder) bestSplit(first, count uint32) (axisSplit, bool) {
	parent := EmptyAABB()
	for i := first; i < first+count; i++ {
		parent.Union(b.tris[i].Bounds())
	}
	parentArea := parent.SurfaceArea()
	if parentArea <= 0 {
		return axisSplit{}, false
	}

	var results [3]axisSplit
	if count >= parallelScoreThreshold {
		var wg sync.WaitGroup
		for axis := 0; axis < 3; axis++ {
			wg.Add(1)
			a := axis
			b.scorePool.SubmitTask(worker.Task{
				ID: a,
				Do: func() (any, error) {
					defer wg.Done()
					results[a] = b.scoreAxis(a, first, count, parentArea)
					return nil, nil
				},
			})
		}
		wg.Wait()
	} else {
		for axis := 0; axis < 3; axis++ {
			results[axis] = b.scoreAxis(axis, first, count, parentArea)
		}
	}

	best := axisSplit{cost: float32(count)}
	found := false
	for _, r := range results {
		if r.found && r.cost < best.cost {
			best = r
			found = true
		}
	}
	return best, found
}

// scoreAxis bins the range's centroids into binCount equal-width bins along
// one axis and sweeps the interior boundaries, scoring each candidate with
// leftCount*SA(left) + rightCount*SA(right), normalized by the parent's
// surface area so scores compare directly against the leaf cost (= count).
func (b *builder) scoreAxis(axis int, first, count uint32, parentArea float32) axisSplit {
	cmin, cmax := b.centroids[first][axis], b.centroids[first][axis]
	for i := first + 1; i < first+count; i++ {
		c := b.centroids[i][axis]
		cmin = min(cmin, c)
		cmax = max(cmax, c)
	}
	if cmax-cmin < minCentroidRange {
		return axisSplit{}
	}

	type bin struct {
		bounds AABB
		count  uint32
	}
	var bins [binCount]bin
	for i := range bins {
		bins[i].bounds = EmptyAABB()
	}

	scale := float32(binCount) / (cmax - cmin)
	for i := first; i < first+count; i++ {
		idx := int((b.centroids[i][axis] - cmin) * scale)
		if idx > binCount-1 {
			idx = binCount - 1
		}
		bins[idx].count++
		bins[idx].bounds.Union(b.tris[i].Bounds())
	}

	// Suffix sweep: rightArea[i] is the bounds area of bins [i, binCount).
	var rightArea [binCount]float32
	var rightCount [binCount]uint32
	acc := EmptyAABB()
	var n uint32
	for i := binCount - 1; i >= 0; i-- {
		acc.Union(bins[i].bounds)
		n += bins[i].count
		rightArea[i] = acc.SurfaceArea()
		rightCount[i] = n
	}

	best := axisSplit{axis: axis}
	leftBounds := EmptyAABB()
	var leftCount uint32
	for i := 0; i < binCount-1; i++ {
		leftBounds.Union(bins[i].bounds)
		leftCount += bins[i].count
		rc := rightCount[i+1]
		if leftCount == 0 || rc == 0 {
			continue
		}
		cost := (float32(leftCount)*leftBounds.SurfaceArea() + float32(rc)*rightArea[i+1]) / parentArea
		if !best.found || cost < best.cost {
			best.cost = cost
			best.pos = cmin + float32(i+1)*(cmax-cmin)/float32(binCount)
			best.found = true
		}
	}
	if best.found && best.cost >= float32(count) {
		// No improvement over a pure leaf.
		return axisSplit{axis: axis}
	}
	return best
}
