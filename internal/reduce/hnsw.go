package reduce

import (
	"container/heap"
	"math"
	"math/rand"
)

// Hierarchical navigable small world graph used to build the approximate
// neighbor graph when the dataset is too large for exact all-pairs search.
// Insertion-only: the reducer builds it once per run and discards it.

type hnswNode struct {
	vector      []float32
	connections [][]int // connections[level] = neighbor node ids
	level       int
}

type hnswGraph struct {
	nodes    []*hnswNode
	ep       int // entry point node id
	maxLevel int
	m        int // connections per node per layer
	mmax0    int // max connections at layer 0
	ef       int // candidate list size during construction
	ml       float64
	rng      *rand.Rand
}

func newHNSW(m, ef int, seed int64) *hnswGraph {
	if m <= 0 {
		m = 16
	}
	if ef < m {
		ef = 4 * m
	}
	return &hnswGraph{
		ep:       -1,
		m:        m,
		mmax0:    2 * m,
		ef:       ef,
		ml:       1.0 / math.Log(float64(m)),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func squaredL2f32(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// candidate heap over (node, distance). min=true pops nearest first.
type candidate struct {
	node int
	dist float64
}

type candidateHeap struct {
	items []candidate
	min   bool
}

func (h *candidateHeap) Len() int { return len(h.items) }
func (h *candidateHeap) Less(i, j int) bool {
	if h.min {
		return h.items[i].dist < h.items[j].dist
	}
	return h.items[i].dist > h.items[j].dist
}
func (h *candidateHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *candidateHeap) Push(x any)         { h.items = append(h.items, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (g *hnswGraph) randomLevel() int {
	return int(math.Floor(-math.Log(g.rng.Float64()+1e-12) * g.ml))
}

// insert adds a vector and returns its node id.
func (g *hnswGraph) insert(v []float32) int {
	level := g.randomLevel()
	node := &hnswNode{
		vector:      v,
		connections: make([][]int, level+1),
		level:       level,
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, node)

	if g.ep < 0 {
		g.ep = id
		g.maxLevel = level
		return id
	}

	curr := g.ep
	currDist := squaredL2f32(v, g.nodes[curr].vector)

	// Greedy descent through layers above the node's level.
	for l := g.maxLevel; l > level; l-- {
		curr, currDist = g.greedyStep(v, curr, currDist, l)
	}

	// Connect at each layer from min(level, maxLevel) down to 0.
	top := level
	if top > g.maxLevel {
		top = g.maxLevel
	}
	for l := top; l >= 0; l-- {
		candidates := g.searchLayer(v, curr, l, g.ef)
		neighbors := g.selectNearest(candidates, g.m)
		node.connections[l] = neighbors
		maxConn := g.m
		if l == 0 {
			maxConn = g.mmax0
		}
		for _, n := range neighbors {
			g.nodes[n].connections[l] = append(g.nodes[n].connections[l], id)
			if len(g.nodes[n].connections[l]) > maxConn {
				g.shrink(n, l, maxConn)
			}
		}
		if len(neighbors) > 0 {
			curr = neighbors[0]
			currDist = squaredL2f32(v, g.nodes[curr].vector)
		}
	}

	if level > g.maxLevel {
		g.maxLevel = level
		g.ep = id
	}
	return id
}

func (g *hnswGraph) greedyStep(q []float32, curr int, currDist float64, level int) (int, float64) {
	changed := true
	for changed {
		changed = false
		for _, n := range g.nodes[curr].connections[level] {
			d := squaredL2f32(q, g.nodes[n].vector)
			if d < currDist {
				curr = n
				currDist = d
				changed = true
			}
		}
	}
	return curr, currDist
}

// searchLayer returns up to ef candidates near q at the given level,
// sorted nearest first.
func (g *hnswGraph) searchLayer(q []float32, entry int, level int, ef int) []candidate {
	visited := map[int]bool{entry: true}
	entryDist := squaredL2f32(q, g.nodes[entry].vector)

	frontier := &candidateHeap{min: true}
	results := &candidateHeap{min: false}
	heap.Push(frontier, candidate{node: entry, dist: entryDist})
	heap.Push(results, candidate{node: entry, dist: entryDist})

	for frontier.Len() > 0 {
		curr := heap.Pop(frontier).(candidate)
		worst := results.items[0].dist
		if curr.dist > worst && results.Len() >= ef {
			break
		}
		conns := g.nodes[curr.node].connections
		if level >= len(conns) {
			continue
		}
		for _, n := range conns[level] {
			if visited[n] {
				continue
			}
			visited[n] = true
			d := squaredL2f32(q, g.nodes[n].vector)
			if results.Len() < ef || d < results.items[0].dist {
				heap.Push(frontier, candidate{node: n, dist: d})
				heap.Push(results, candidate{node: n, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := results.Len() - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

func (g *hnswGraph) selectNearest(candidates []candidate, m int) []int {
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.node
	}
	return out
}

// shrink keeps only the maxConn nearest connections of node at level.
func (g *hnswGraph) shrink(node int, level int, maxConn int) {
	conns := g.nodes[node].connections[level]
	h := &candidateHeap{min: true}
	for _, n := range conns {
		h.items = append(h.items, candidate{node: n, dist: squaredL2f32(g.nodes[node].vector, g.nodes[n].vector)})
	}
	heap.Init(h)
	kept := make([]int, 0, maxConn)
	for len(kept) < maxConn && h.Len() > 0 {
		kept = append(kept, heap.Pop(h).(candidate).node)
	}
	g.nodes[node].connections[level] = kept
}

// search returns the k nearest node ids to q with their squared distances,
// nearest first.
func (g *hnswGraph) search(q []float32, k int) []candidate {
	if g.ep < 0 {
		return nil
	}
	curr := g.ep
	currDist := squaredL2f32(q, g.nodes[curr].vector)
	for l := g.maxLevel; l > 0; l-- {
		curr, currDist = g.greedyStep(q, curr, currDist, l)
	}
	ef := g.ef
	if ef < k {
		ef = k
	}
	candidates := g.searchLayer(q, curr, 0, ef)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
