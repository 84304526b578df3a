package vectorindex

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

const compress = false

// ChromemIndex implements Index on top of chromem-go. Each model version
// gets its own collection, so vectors embedded under a superseded version
// can never leak into search results: migrating to a new model version
// means reindexing into a fresh collection, not shadowing the old one.
type ChromemIndex struct {
	db           *chromem.DB
	collection   *chromem.Collection
	modelVersion string
}

// NewChromemIndex opens (or creates) the index at dbPath. With inMemory set
// the index lives only for the process lifetime, which tests rely on.
func NewChromemIndex(dbPath, collectionName string, inMemory bool, modelVersion string) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create vector database: %v", err)
		}
	}

	// One collection per model version keeps superseded vectors out of
	// every search without per-query filtering.
	name := collectionName + "@" + modelVersion
	collection, err := db.GetOrCreateCollection(name, map[string]string{"model_version": modelVersion}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	log.Info().Str("collection", name).Int("documents", collection.Count()).Msg("vector index opened")
	return &ChromemIndex{db: db, collection: collection, modelVersion: modelVersion}, nil
}

func (x *ChromemIndex) Upsert(ctx context.Context, rec Record) error {
	if rec.ModelVersion != x.modelVersion {
		return fmt.Errorf("record model version %q does not match index version %q", rec.ModelVersion, x.modelVersion)
	}
	doc := chromem.Document{
		ID:        rec.DocumentID,
		Content:   rec.Title,
		Embedding: rec.Vector,
		Metadata: map[string]string{
			"model_version": rec.ModelVersion,
			"published_at":  rec.PublishedAt,
		},
	}
	if err := x.collection.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add document: %v", err)
	}
	return nil
}

func (x *ChromemIndex) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	// chromem rejects nResults larger than the collection.
	if n := x.collection.Count(); n == 0 {
		return nil, nil
	} else if k > n {
		k = n
	}
	results, err := x.collection.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{DocumentID: r.ID, Score: clamp01(float64(r.Similarity))}
	}
	return matches, nil
}

func (x *ChromemIndex) Has(ctx context.Context, documentID string) (bool, error) {
	if _, err := x.collection.GetByID(ctx, documentID); err != nil {
		// chromem reports a missing id as an error rather than a bool.
		return false, nil
	}
	return true, nil
}

func (x *ChromemIndex) Count() int { return x.collection.Count() }

func (x *ChromemIndex) ModelVersion() string { return x.modelVersion }
