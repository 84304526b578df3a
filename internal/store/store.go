package store

import (
	"context"
	"sort"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
)

// DocumentStore is the durable home of OHLCV bars and news/filing records.
// The query engine consumes it through this contract and never owns the
// schema; tests inject in-memory fakes.
//
// Implementations must be safe for concurrent use.
type DocumentStore interface {
	// GetBars returns bars for symbol inside the window, ordered by
	// timestamp ascending. An empty result is not an error.
	GetBars(ctx context.Context, symbol string, window models.TimeWindow) ([]models.Bar, error)

	// GetDocuments returns the most recent documents matching the filters,
	// ordered by published_at descending. With symbols set, the limit
	// applies per symbol; duplicates across symbols are collapsed.
	GetDocuments(ctx context.Context, symbols []string, window models.TimeWindow, limit int) ([]models.Document, error)

	// GetDocumentsByID resolves documents by id. Unknown ids are omitted.
	GetDocumentsByID(ctx context.Context, ids []string) ([]models.Document, error)

	// UpsertDocuments inserts or replaces documents keyed by id.
	UpsertDocuments(ctx context.Context, docs []models.Document) error

	// UpsertBars inserts or replaces bars keyed by (symbol, timestamp).
	UpsertBars(ctx context.Context, bars []models.Bar) error

	Close() error
}

// sortByRecency restores the published_at descending order after per-symbol
// result sets are merged, with the id breaking timestamp ties.
func sortByRecency(docs []models.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].PublishedAt.Equal(docs[j].PublishedAt) {
			return docs[i].PublishedAt.After(docs[j].PublishedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}
