package vectorindex

import "context"

// Record is one live embedding for a document under a model version.
type Record struct {
	DocumentID   string
	Vector       []float32
	ModelVersion string
	// Metadata carried alongside the vector for diagnostics; the Document
	// Store remains the source of truth for document fields.
	Title       string
	PublishedAt string
}

// Match is one similarity-search hit, score normalized to [0,1].
type Match struct {
	DocumentID string
	Score      float64
}

// Index is the approximate-nearest-neighbor contract the engine depends on.
// Implementations must support concurrent reads during writes; new upserts
// may become visible eventually, no read-your-write guarantee is required.
type Index interface {
	Upsert(ctx context.Context, rec Record) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Has(ctx context.Context, documentID string) (bool, error)
	Count() int
	ModelVersion() string
}

// clamp01 normalizes a cosine similarity to [0,1]; negative similarity
// carries no grounding value.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
