package models

// RecommendedItem is a single recommendation: a catalog id, its cosine similarity
// to the query (1 = identical direction), and the item's source metadata verbatim.
type RecommendedItem struct {
	ID         string            `json:"id"`
	Similarity float64           `json:"similarity"`
	Meta       map[string]string `json:"meta"`
}

// Recommendation is the response for a recommend request. Description is the
// generated (and possibly rewritten) search description used for the embedding.
type Recommendation struct {
	Description string             `json:"description"`
	Results     []*RecommendedItem `json:"results"`
	QueryTime   int64              `json:"query_time_ms"`
}
