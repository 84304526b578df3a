package indexer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/embedding"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/vectorindex"
)

// Report accounts for every document handed to an Upsert call. Nothing is
// silently dropped: Indexed + Skipped + Failed equals the input size.
type Report struct {
	Indexed int
	Skipped int
	Failed  int
}

// Builder embeds new documents and writes them into the vector index.
// Upsert is idempotent and incremental: a document already indexed at the
// current model version is a no-op.
type Builder struct {
	index        vectorindex.Index
	embedder     embedding.Embedder
	embedTimeout time.Duration
}

func NewBuilder(idx vectorindex.Index, emb embedding.Embedder, embedTimeout time.Duration) *Builder {
	if embedTimeout == 0 {
		embedTimeout = 15 * time.Second
	}
	return &Builder{index: idx, embedder: emb, embedTimeout: embedTimeout}
}

// Upsert indexes the given documents. A single document's embedding failure
// is logged and counted, not fatal to the batch; only a broken index or a
// cancelled context aborts.
func (b *Builder) Upsert(ctx context.Context, docs []models.Document) (Report, error) {
	var report Report
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		indexed, err := b.index.Has(ctx, doc.ID)
		if err != nil {
			return report, models.WrapDependency("vector index", err)
		}
		if indexed {
			report.Skipped++
			continue
		}

		embedCtx, cancel := context.WithTimeout(ctx, b.embedTimeout)
		vector, err := b.embedder.Embed(embedCtx, embeddingText(doc))
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("document_id", doc.ID).Msg("embedding failed, skipping document")
			report.Failed++
			continue
		}

		rec := vectorindex.Record{
			DocumentID:   doc.ID,
			Vector:       vector,
			ModelVersion: b.index.ModelVersion(),
			Title:        doc.Title,
			PublishedAt:  doc.PublishedAt.UTC().Format(time.RFC3339),
		}
		if err := b.index.Upsert(ctx, rec); err != nil {
			log.Warn().Err(err).Str("document_id", doc.ID).Msg("index upsert failed, skipping document")
			report.Failed++
			continue
		}
		report.Indexed++
	}

	log.Info().Int("indexed", report.Indexed).Int("skipped", report.Skipped).
		Int("failed", report.Failed).Msg("index builder run complete")
	return report, nil
}

func embeddingText(doc models.Document) string {
	if doc.Title == "" {
		return doc.Body
	}
	return doc.Title + "\n\n" + doc.Body
}
