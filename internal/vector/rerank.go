package vector

import "sort"

// rerankCosine re-scores coarse candidates by cosine distance against the raw
// query vector and the original stored vectors, ascending. Kept separate from
// the coarse phase so the coarse algorithm can be swapped without touching the
// rerank semantics.
func rerankCosine(query []float32, cands []candidate) []*Result {
	results := make([]*Result, len(cands))
	for i, c := range cands {
		results[i] = &Result{ID: c.id, Distance: CosineDistance(query, c.vec)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results
}
