package indexer

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
)

// pagingStore serves documents newest-first with the window and limit
// semantics of the real stores.
type pagingStore struct {
	docs []models.Document
}

func (p *pagingStore) GetBars(context.Context, string, models.TimeWindow) ([]models.Bar, error) {
	return nil, nil
}

func (p *pagingStore) GetDocuments(_ context.Context, _ []string, window models.TimeWindow, limit int) ([]models.Document, error) {
	sorted := append([]models.Document(nil), p.docs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	var out []models.Document
	for _, d := range sorted {
		if !window.Contains(d.PublishedAt) {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (p *pagingStore) GetDocumentsByID(context.Context, []string) ([]models.Document, error) {
	return nil, nil
}

func (p *pagingStore) UpsertDocuments(context.Context, []models.Document) error { return nil }
func (p *pagingStore) UpsertBars(context.Context, []models.Bar) error { return nil }
func (p *pagingStore) Close() error { return nil }

func backlogDocs(n int) []models.Document {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	docs := make([]models.Document, n)
	for i := range docs {
		docs[i] = models.Document{
			ID:          "doc-" + string(rune('a'+i)),
			Title:       "Title " + string(rune('a'+i)),
			Body:        "Body " + string(rune('a'+i)),
			PublishedAt: base.AddDate(0, 0, i),
		}
	}
	return docs
}

func TestRunnerDrainsBacklogLargerThanBatch(t *testing.T) {
	ctx := context.Background()
	idx := newMemIndex("v1")
	emb := &failingEmbedder{}
	store := &pagingStore{docs: backlogDocs(5)}

	r, err := NewRunner(ctx, NewBuilder(idx, emb, time.Second), store, "0 */5 * * * *", 2)
	require.NoError(t, err)

	// One run pages through all five documents even though a page holds two.
	r.RunNow()
	assert.Equal(t, 5, idx.Count())
	assert.Equal(t, 5, emb.calls)

	// Steady state: everything is a skip, nothing is re-embedded.
	r.RunNow()
	assert.Equal(t, 5, idx.Count())
	assert.Equal(t, 5, emb.calls)
}

func TestRunnerPicksUpNewDocuments(t *testing.T) {
	ctx := context.Background()
	idx := newMemIndex("v1")
	store := &pagingStore{docs: backlogDocs(3)}

	r, err := NewRunner(ctx, NewBuilder(idx, &failingEmbedder{}, time.Second), store, "0 */5 * * * *", 2)
	require.NoError(t, err)

	r.RunNow()
	require.Equal(t, 3, idx.Count())

	store.docs = append(store.docs, models.Document{
		ID:          "doc-new",
		Title:       "Late arrival",
		Body:        "fresh",
		PublishedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	r.RunNow()
	assert.Equal(t, 4, idx.Count())
}
