package reduce

import (
	"math"
	"sort"
)

// neighborLists holds, per point, the ids and distances of its k nearest
// neighbors (self excluded), nearest first.
type neighborLists struct {
	ids   [][]int
	dists [][]float64
}

// nearestNeighbors builds the k-nearest-neighbor lists. Exact all-pairs
// search is O(n^2); above exactThreshold an HNSW index is substituted.
func nearestNeighbors(vectors [][]float32, k int, exactThreshold int, seed int64) *neighborLists {
	if k >= len(vectors) {
		k = len(vectors) - 1
	}
	if k < 1 {
		return &neighborLists{ids: make([][]int, len(vectors)), dists: make([][]float64, len(vectors))}
	}
	if len(vectors) <= exactThreshold {
		return exactNeighbors(vectors, k)
	}
	return approximateNeighbors(vectors, k, seed)
}

func exactNeighbors(vectors [][]float32, k int) *neighborLists {
	n := len(vectors)
	nl := &neighborLists{ids: make([][]int, n), dists: make([][]float64, n)}
	type pair struct {
		id   int
		dist float64
	}
	for i := 0; i < n; i++ {
		pairs := make([]pair, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			pairs = append(pairs, pair{id: j, dist: squaredL2f32(vectors[i], vectors[j])})
		}
		sort.Slice(pairs, func(a, b int) bool { return pairs[a].dist < pairs[b].dist })
		if len(pairs) > k {
			pairs = pairs[:k]
		}
		nl.ids[i] = make([]int, len(pairs))
		nl.dists[i] = make([]float64, len(pairs))
		for j, p := range pairs {
			nl.ids[i][j] = p.id
			nl.dists[i][j] = math.Sqrt(p.dist)
		}
	}
	return nl
}

func approximateNeighbors(vectors [][]float32, k int, seed int64) *neighborLists {
	n := len(vectors)
	g := newHNSW(16, 64, seed)
	for _, v := range vectors {
		g.insert(v)
	}
	nl := &neighborLists{ids: make([][]int, n), dists: make([][]float64, n)}
	for i := 0; i < n; i++ {
		// k+1 because the search returns the query point itself.
		found := g.search(vectors[i], k+1)
		ids := make([]int, 0, k)
		dists := make([]float64, 0, k)
		for _, c := range found {
			if c.node == i {
				continue
			}
			ids = append(ids, c.node)
			dists = append(dists, math.Sqrt(c.dist))
			if len(ids) == k {
				break
			}
		}
		nl.ids[i] = ids
		nl.dists[i] = dists
	}
	return nl
}

// edge is a weighted, symmetrized neighbor-graph edge (i < j).
type edge struct {
	i, j   int
	weight float64
}

// buildEdges converts neighbor lists into a symmetrized weighted edge set.
// Per point, distances are turned into membership weights relative to the
// nearest neighbor (rho) and the local scale; symmetrization is the fuzzy
// union w_ij + w_ji - w_ij*w_ji.
func buildEdges(nl *neighborLists) []edge {
	n := len(nl.ids)
	directed := make([]map[int]float64, n)
	for i := 0; i < n; i++ {
		directed[i] = make(map[int]float64, len(nl.ids[i]))
		if len(nl.dists[i]) == 0 {
			continue
		}
		rho := nl.dists[i][0]
		var sum float64
		for _, d := range nl.dists[i] {
			sum += d
		}
		scale := sum/float64(len(nl.dists[i])) - rho
		if scale <= 0 {
			scale = 1e-3
		}
		for j, id := range nl.ids[i] {
			d := nl.dists[i][j] - rho
			if d < 0 {
				d = 0
			}
			directed[i][id] = math.Exp(-d / scale)
		}
	}

	seen := make(map[int]bool)
	var edges []edge
	for i := 0; i < n; i++ {
		for j := range directed[i] {
			a, b := i, j
			if a > b {
				a, b = b, a
			}
			key := a*n + b
			if seen[key] {
				continue
			}
			seen[key] = true
			wab := directed[a][b]
			wba := directed[b][a]
			w := wab + wba - wab*wba
			if w > 0 {
				edges = append(edges, edge{i: a, j: b, weight: w})
			}
		}
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].i != edges[b].i {
			return edges[a].i < edges[b].i
		}
		return edges[a].j < edges[b].j
	})
	return edges
}
