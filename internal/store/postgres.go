package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
)

type barRow struct {
	bun.BaseModel `bun:"table:ohlcv_bars,alias:b"`
	Symbol        string    `bun:"symbol,pk"`
	Timestamp     time.Time `bun:"timestamp,pk"`
	Open          float64   `bun:"open,notnull"`
	High          float64   `bun:"high,notnull"`
	Low           float64   `bun:"low,notnull"`
	Close         float64   `bun:"close,notnull"`
	Volume        int64     `bun:"volume,notnull"`
}

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string    `bun:"id,pk"`
	Symbols       []string  `bun:"symbols,array"`
	Title         string    `bun:"title"`
	Body          string    `bun:"body"`
	Source        string    `bun:"source"`
	PublishedAt   time.Time `bun:"published_at,notnull"`
	Sentiment     *float64  `bun:"sentiment"`
}

// PostgresStore is a DocumentStore backed by Postgres (e.g. Supabase).
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore connects and ensures the tables exist.
func NewPostgresStore(ctx context.Context, dsn, password string, debug bool) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Msg("postgres store connected")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*barRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	if _, err := s.db.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) GetBars(ctx context.Context, symbol string, window models.TimeWindow) ([]models.Bar, error) {
	var rows []barRow
	q := s.db.NewSelect().Model(&rows).Where("b.symbol = ?", symbol)
	if !window.Start.IsZero() {
		q = q.Where("b.timestamp >= ?", window.Start)
	}
	if !window.End.IsZero() {
		q = q.Where("b.timestamp <= ?", window.End)
	}
	if err := q.Order("timestamp ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	bars := make([]models.Bar, len(rows))
	for i, r := range rows {
		bars[i] = models.Bar{Symbol: r.Symbol, Timestamp: r.Timestamp.UTC(),
			Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
	}
	return bars, nil
}

func (s *PostgresStore) GetDocuments(ctx context.Context, symbols []string, window models.TimeWindow, limit int) ([]models.Document, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(symbols) == 0 {
		return s.queryDocuments(ctx, "", window, limit)
	}
	seen := make(map[string]bool)
	var out []models.Document
	for _, sym := range symbols {
		docs, err := s.queryDocuments(ctx, sym, window, limit)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if !seen[d.ID] {
				seen[d.ID] = true
				out = append(out, d)
			}
		}
	}
	sortByRecency(out)
	return out, nil
}

func (s *PostgresStore) queryDocuments(ctx context.Context, symbol string, window models.TimeWindow, limit int) ([]models.Document, error) {
	var rows []documentRow
	q := s.db.NewSelect().Model(&rows)
	if symbol != "" {
		q = q.Where("? = ANY(d.symbols)", symbol)
	}
	if !window.Start.IsZero() {
		q = q.Where("d.published_at >= ?", window.Start)
	}
	if !window.End.IsZero() {
		q = q.Where("d.published_at <= ?", window.End)
	}
	if err := q.Order("published_at DESC").Limit(limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	return rowsToDocuments(rows), nil
}

func (s *PostgresStore) GetDocumentsByID(ctx context.Context, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []documentRow
	if err := s.db.NewSelect().Model(&rows).Where("d.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("query documents by id: %w", err)
	}
	return rowsToDocuments(rows), nil
}

func (s *PostgresStore) UpsertDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]documentRow, len(docs))
	for i, d := range docs {
		rows[i] = documentRow{ID: d.ID, Symbols: d.Symbols, Title: d.Title, Body: d.Body,
			Source: d.Source, PublishedAt: d.PublishedAt, Sentiment: d.Sentiment}
	}
	_, err := s.db.NewInsert().Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("symbols = EXCLUDED.symbols").
		Set("title = EXCLUDED.title").
		Set("body = EXCLUDED.body").
		Set("source = EXCLUDED.source").
		Set("published_at = EXCLUDED.published_at").
		Set("sentiment = EXCLUDED.sentiment").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert documents: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]barRow, len(bars))
	for i, b := range bars {
		rows[i] = barRow{Symbol: b.Symbol, Timestamp: b.Timestamp,
			Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	_, err := s.db.NewInsert().Model(&rows).
		On("CONFLICT (symbol, timestamp) DO UPDATE").
		Set("open = EXCLUDED.open").
		Set("high = EXCLUDED.high").
		Set("low = EXCLUDED.low").
		Set("close = EXCLUDED.close").
		Set("volume = EXCLUDED.volume").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert bars: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	log.Info().Msg("closing postgres store")
	return s.db.Close()
}

func rowsToDocuments(rows []documentRow) []models.Document {
	docs := make([]models.Document, len(rows))
	for i, r := range rows {
		docs[i] = models.Document{ID: r.ID, Symbols: r.Symbols, Title: r.Title, Body: r.Body,
			Source: r.Source, PublishedAt: r.PublishedAt.UTC(), Sentiment: r.Sentiment}
	}
	return docs
}
