package vector

import "sort"

// candidate is a coarse-phase hit handed to the rerank phase: the stored id
// plus the original stored vector it was indexed under.
type candidate struct {
	id  string
	vec []float32
}

// coarseL2 runs the exact L2 coarse phase: it scores every stored vector by
// squared Euclidean distance to query and returns up to k candidates in
// ascending distance order. Uses |q-v|^2 = |q|^2 + |v|^2 - 2*q.v with the
// per-vector norms precomputed by Build. Callers must hold at least a read lock.
func (f *FlatIndex) coarseL2(query []float32, k int) []candidate {
	var qNorm float64
	for _, v := range query {
		qNorm += float64(v) * float64(v)
	}
	type scored struct {
		idx  int
		dist float64
	}
	scores := make([]scored, len(f.vectors))
	for i, vec := range f.vectors {
		var dot float64
		for j := 0; j < f.dimensions; j++ {
			dot += float64(query[j]) * float64(vec[j])
		}
		scores[i] = scored{idx: i, dist: qNorm + f.sqNorms[i] - 2*dot}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].dist < scores[j].dist })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]candidate, k)
	for i := 0; i < k; i++ {
		out[i] = candidate{id: f.ids[scores[i].idx], vec: f.vectors[scores[i].idx]}
	}
	return out
}
