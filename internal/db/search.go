package db

// TagFilter is an exact-match pre-filter on a TAG field. All filters on a
// query are conjunctive.
type TagFilter struct {
	Field string
	Value string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      []TagFilter
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Score is cosine
// similarity mapped to [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
