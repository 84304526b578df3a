package retriever

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/embedding"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/store"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/vectorindex"
)

// Query selects evidence: free text and/or structured filters, budgeted to K.
type Query struct {
	Text    string
	Symbols []string
	Window  models.TimeWindow
	K       int
}

// Retriever merges vector similarity search with direct structured lookups
// into a ranked, deduplicated evidence list.
type Retriever struct {
	store           store.DocumentStore
	index           vectorindex.Index
	embedder        embedding.Embedder
	overfetchFactor int
	structuredScore float64
	embedTimeout    time.Duration
}

// Options tune merge behavior; zero values fall back to sane defaults.
type Options struct {
	OverfetchFactor int
	StructuredScore float64
	EmbedTimeout    time.Duration
}

func New(s store.DocumentStore, idx vectorindex.Index, emb embedding.Embedder, opts Options) *Retriever {
	if opts.OverfetchFactor < 1 {
		opts.OverfetchFactor = 3
	}
	if opts.StructuredScore == 0 {
		opts.StructuredScore = 0.30
	}
	if opts.EmbedTimeout == 0 {
		opts.EmbedTimeout = 15 * time.Second
	}
	return &Retriever{
		store:           s,
		index:           idx,
		embedder:        emb,
		overfetchFactor: opts.OverfetchFactor,
		structuredScore: opts.StructuredScore,
		embedTimeout:    opts.EmbedTimeout,
	}
}

// Retrieve returns at most q.K evidence items, ranked by relevance then
// recency. An empty result is valid, not an error.
func (r *Retriever) Retrieve(ctx context.Context, q Query) ([]models.EvidenceItem, error) {
	if q.K <= 0 {
		return nil, nil
	}

	merged := make(map[string]models.EvidenceItem)

	if q.Text != "" {
		items, err := r.vectorSearch(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			merged[it.Doc.ID] = it
		}
	}

	// Direct structured lookup when filters are present. With no query
	// text this is the only path; with text it backfills recent documents
	// the similarity search missed. A vector match wins over a structured
	// match for the same id since it carries a real relevance score.
	if len(q.Symbols) > 0 || !q.Window.IsZero() {
		items, err := r.structuredLookup(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if _, ok := merged[it.Doc.ID]; !ok {
				merged[it.Doc.ID] = it
			}
		}
	}

	items := make([]models.EvidenceItem, 0, len(merged))
	for _, it := range merged {
		items = append(items, it)
	}
	rankEvidence(items)
	if len(items) > q.K {
		items = items[:q.K]
	}
	return items, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, q Query) ([]models.EvidenceItem, error) {
	embedCtx, cancel := context.WithTimeout(ctx, r.embedTimeout)
	vector, err := r.embedder.Embed(embedCtx, q.Text)
	cancel()
	if err != nil {
		return nil, models.WrapDependency("embedder", err)
	}

	m := q.K * r.overfetchFactor
	matches, err := r.index.Search(ctx, vector, m)
	if err != nil {
		return nil, models.WrapDependency("vector index", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]string, len(matches))
	scores := make(map[string]float64, len(matches))
	for i, match := range matches {
		ids[i] = match.DocumentID
		scores[match.DocumentID] = match.Score
	}

	docs, err := r.store.GetDocumentsByID(ctx, ids)
	if err != nil {
		return nil, models.WrapDependency("document store", err)
	}

	// Post-filter: the index is filter-agnostic, so symbol and window
	// constraints are applied against the Document records.
	var items []models.EvidenceItem
	for _, doc := range docs {
		if !matchesSymbols(doc, q.Symbols) || !q.Window.Contains(doc.PublishedAt) {
			continue
		}
		items = append(items, models.EvidenceItem{
			Doc:        doc,
			Score:      scores[doc.ID],
			Provenance: models.ProvenanceVectorMatch,
		})
	}
	log.Debug().Int("matches", len(matches)).Int("kept", len(items)).Msg("vector search post-filtered")
	return items, nil
}

func (r *Retriever) structuredLookup(ctx context.Context, q Query) ([]models.EvidenceItem, error) {
	limit := q.K * r.overfetchFactor
	docs, err := r.store.GetDocuments(ctx, q.Symbols, q.Window, limit)
	if err != nil {
		return nil, models.WrapDependency("document store", err)
	}
	items := make([]models.EvidenceItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, models.EvidenceItem{
			Doc:        doc,
			Score:      r.structuredScore,
			Provenance: models.ProvenanceStructuredFilter,
		})
	}
	return items, nil
}

// rankEvidence orders by score descending, breaking ties on recency and
// finally on id so truncation is deterministic.
func rankEvidence(items []models.EvidenceItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if !items[i].Doc.PublishedAt.Equal(items[j].Doc.PublishedAt) {
			return items[i].Doc.PublishedAt.After(items[j].Doc.PublishedAt)
		}
		return items[i].Doc.ID < items[j].Doc.ID
	})
}

func matchesSymbols(doc models.Document, symbols []string) bool {
	if len(symbols) == 0 {
		return true
	}
	for _, want := range symbols {
		for _, have := range doc.Symbols {
			if have == want {
				return true
			}
		}
	}
	return false
}
