package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/vectorindex"
)

type stubStore struct {
	docs []models.Document
}

func (s *stubStore) GetBars(context.Context, string, models.TimeWindow) ([]models.Bar, error) {
	return nil, nil
}

func (s *stubStore) GetDocuments(_ context.Context, symbols []string, window models.TimeWindow, limit int) ([]models.Document, error) {
	var out []models.Document
	for _, d := range s.docs {
		if !window.Contains(d.PublishedAt) {
			continue
		}
		if len(symbols) > 0 && !hasAny(d.Symbols, symbols) {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *stubStore) GetDocumentsByID(_ context.Context, ids []string) ([]models.Document, error) {
	var out []models.Document
	for _, id := range ids {
		for _, d := range s.docs {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (s *stubStore) UpsertDocuments(context.Context, []models.Document) error { return nil }
func (s *stubStore) UpsertBars(context.Context, []models.Bar) error { return nil }
func (s *stubStore) Close() error { return nil }

func hasAny(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

type stubIndex struct {
	matches []vectorindex.Match
}

func (s *stubIndex) Upsert(context.Context, vectorindex.Record) error { return nil }
func (s *stubIndex) Search(_ context.Context, _ []float32, k int) ([]vectorindex.Match, error) {
	if k < len(s.matches) {
		return s.matches[:k], nil
	}
	return s.matches, nil
}
func (s *stubIndex) Has(context.Context, string) (bool, error) { return false, nil }
func (s *stubIndex) Count() int { return len(s.matches) }
func (s *stubIndex) ModelVersion() string { return "v1" }

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	return []float32{0.1, 0.2, 0.3}, nil
}

func doc(id, symbol string, published time.Time) models.Document {
	return models.Document{
		ID:          id,
		Symbols:     []string{symbol},
		Title:       "title " + id,
		Body:        "body " + id,
		Source:      "test",
		PublishedAt: published,
	}
}

func TestRetrieve(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("zero budget returns nothing", func(t *testing.T) {
		emb := &stubEmbedder{}
		r := New(&stubStore{}, &stubIndex{}, emb, Options{})

		items, err := r.Retrieve(ctx, Query{Text: "anything", K: 0})
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Zero(t, emb.calls, "no work should happen on a zero budget")
	})

	t.Run("structured only path skips the embedder", func(t *testing.T) {
		store := &stubStore{docs: []models.Document{
			doc("d1", "AAPL", base.AddDate(0, 0, 2)),
			doc("d2", "AAPL", base.AddDate(0, 0, 1)),
			doc("d3", "MSFT", base),
		}}
		emb := &stubEmbedder{}
		r := New(store, &stubIndex{}, emb, Options{})

		items, err := r.Retrieve(ctx, Query{Symbols: []string{"AAPL"}, K: 5})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Zero(t, emb.calls)
		for _, it := range items {
			assert.Equal(t, models.ProvenanceStructuredFilter, it.Provenance)
		}
		// Equal scores fall back to recency.
		assert.Equal(t, "d1", items[0].Doc.ID)
		assert.Equal(t, "d2", items[1].Doc.ID)
	})

	t.Run("vector match wins the dedup", func(t *testing.T) {
		store := &stubStore{docs: []models.Document{
			doc("d1", "AAPL", base),
			doc("d2", "AAPL", base.AddDate(0, 0, 1)),
		}}
		idx := &stubIndex{matches: []vectorindex.Match{{DocumentID: "d1", Score: 0.9}}}
		r := New(store, idx, &stubEmbedder{}, Options{})

		items, err := r.Retrieve(ctx, Query{Text: "apple earnings", Symbols: []string{"AAPL"}, K: 5})
		require.NoError(t, err)
		require.Len(t, items, 2)

		// d1 appears once, with its similarity score and vector provenance,
		// ranked above the structured backfill.
		assert.Equal(t, "d1", items[0].Doc.ID)
		assert.Equal(t, models.ProvenanceVectorMatch, items[0].Provenance)
		assert.InDelta(t, 0.9, items[0].Score, 1e-9)
		assert.Equal(t, "d2", items[1].Doc.ID)
		assert.Equal(t, models.ProvenanceStructuredFilter, items[1].Provenance)
	})

	t.Run("truncates to the budget", func(t *testing.T) {
		docs := []models.Document{
			doc("a", "AAPL", base.AddDate(0, 0, 3)),
			doc("b", "AAPL", base.AddDate(0, 0, 2)),
			doc("c", "AAPL", base.AddDate(0, 0, 1)),
			doc("d", "AAPL", base),
		}
		r := New(&stubStore{docs: docs}, &stubIndex{}, &stubEmbedder{}, Options{})

		items, err := r.Retrieve(ctx, Query{Symbols: []string{"AAPL"}, K: 2})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "a", items[0].Doc.ID)
		assert.Equal(t, "b", items[1].Doc.ID)
	})

	t.Run("vector results are post-filtered by symbol and window", func(t *testing.T) {
		store := &stubStore{docs: []models.Document{
			doc("in", "AAPL", base),
			doc("wrong-symbol", "MSFT", base),
			doc("too-old", "AAPL", base.AddDate(-2, 0, 0)),
		}}
		idx := &stubIndex{matches: []vectorindex.Match{
			{DocumentID: "in", Score: 0.8},
			{DocumentID: "wrong-symbol", Score: 0.95},
			{DocumentID: "too-old", Score: 0.9},
		}}
		r := New(store, idx, &stubEmbedder{}, Options{})

		window := models.TimeWindow{Start: base.AddDate(0, -1, 0), End: base.AddDate(0, 1, 0)}
		items, err := r.Retrieve(ctx, Query{Text: "q", Symbols: []string{"AAPL"}, Window: window, K: 10})
		require.NoError(t, err)

		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.Doc.ID)
		}
		assert.Contains(t, ids, "in")
		assert.NotContains(t, ids, "wrong-symbol")
		assert.NotContains(t, ids, "too-old")
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		r := New(&stubStore{}, &stubIndex{}, &stubEmbedder{}, Options{})
		items, err := r.Retrieve(ctx, Query{Text: "nothing indexed", K: 3})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}
