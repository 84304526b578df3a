package indexer

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/store"
)

// Runner triggers incremental index builds on a cron schedule, paging the
// document store in batches from newest to oldest. It runs fully decoupled
// from request handling and takes no lock a live request could block on;
// the index supports concurrent reads during writes.
type Runner struct {
	cron    *cron.Cron
	builder *Builder
	store   store.DocumentStore
	batch   int
	ctx     context.Context
}

// NewRunner schedules runBatch on the given 6-field cron spec.
func NewRunner(ctx context.Context, b *Builder, s store.DocumentStore, spec string, batch int) (*Runner, error) {
	r := &Runner{
		cron:    cron.New(cron.WithSeconds()),
		builder: b,
		store:   s,
		batch:   batch,
		ctx:     ctx,
	}
	if _, err := r.cron.AddFunc(spec, r.runBatch); err != nil {
		return nil, fmt.Errorf("register index task: %w", err)
	}
	return r, nil
}

// Start starts the scheduler.
func (r *Runner) Start() {
	r.cron.Start()
	log.Info().Msg("index builder scheduler started")
}

// Stop stops the scheduler gracefully.
func (r *Runner) Stop() {
	r.cron.Stop()
	log.Info().Msg("index builder scheduler stopped")
}

// RunNow executes one build immediately (startup catch-up / manual trigger).
func (r *Runner) RunNow() {
	r.runBatch()
}

func (r *Runner) runBatch() {
	// Pages from newest to oldest until the store is exhausted, so a backlog
	// larger than one batch still drains in a single run. Already indexed
	// documents are cheap skips inside the builder.
	var window models.TimeWindow
	for {
		docs, err := r.store.GetDocuments(r.ctx, nil, window, r.batch)
		if err != nil {
			log.Error().Err(err).Msg("index run: fetch documents")
			return
		}
		if len(docs) == 0 {
			return
		}
		if _, err := r.builder.Upsert(r.ctx, docs); err != nil {
			log.Error().Err(err).Msg("index run: upsert batch")
			return
		}
		if len(docs) < r.batch {
			return
		}

		oldest := docs[0].PublishedAt
		for _, d := range docs[1:] {
			if d.PublishedAt.Before(oldest) {
				oldest = d.PublishedAt
			}
		}
		// The window bound is inclusive, so the cursor row reappears on the
		// next page and is skipped there. A full page of identical
		// timestamps cannot advance the cursor; stop rather than spin.
		if !window.End.IsZero() && !oldest.Before(window.End) {
			return
		}
		window.End = oldest
	}
}
