package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
)

// SQLiteStore is the default DocumentStore backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the index builder can read while ingestion writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ohlcv_bars (
			symbol    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			open      REAL NOT NULL,
			high      REAL NOT NULL,
			low       REAL NOT NULL,
			close     REAL NOT NULL,
			volume    INTEGER NOT NULL,
			PRIMARY KEY (symbol, timestamp)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_symbol_ts ON ohlcv_bars(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS documents (
			id           TEXT PRIMARY KEY,
			symbols      TEXT,
			title        TEXT,
			body         TEXT,
			source       TEXT,
			published_at INTEGER NOT NULL,
			sentiment    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_docs_published ON documents(published_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetBars(ctx context.Context, symbol string, window models.TimeWindow) ([]models.Bar, error) {
	q := `SELECT symbol, timestamp, open, high, low, close, volume FROM ohlcv_bars WHERE symbol = ?`
	args := []any{symbol}
	if !window.Start.IsZero() {
		q += ` AND timestamp >= ?`
		args = append(args, window.Start.Unix())
	}
	if !window.End.IsZero() {
		q += ` AND timestamp <= ?`
		args = append(args, window.End.Unix())
	}
	q += ` ORDER BY timestamp ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		var ts int64
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) GetDocuments(ctx context.Context, symbols []string, window models.TimeWindow, limit int) ([]models.Document, error) {
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

func (s *SQLiteStore) queryDocuments(ctx context.Context, symbol string, window models.TimeWindow, limit int) ([]models.Document, error) {
	q := `SELECT id, symbols, title, body, source, published_at, sentiment FROM documents WHERE 1=1`
	var args []any
	if symbol != "" {
		// symbols column stores ",AAPL,MSFT," so an exact symbol match is a
		// substring match on ",SYM,".
		q += ` AND symbols LIKE ?`
		args = append(args, "%,"+strings.ToUpper(symbol)+",%")
	}
	if !window.Start.IsZero() {
		q += ` AND published_at >= ?`
		args = append(args, window.Start.Unix())
	}
	if !window.End.IsZero() {
		q += ` AND published_at <= ?`
		args = append(args, window.End.Unix())
	}
	q += ` ORDER BY published_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *SQLiteStore) GetDocumentsByID(ctx context.Context, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT id, symbols, title, body, source, published_at, sentiment FROM documents WHERE id IN (` + placeholders + `)`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents by id: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		var d models.Document
		var symbols sql.NullString
		var published int64
		var sentiment sql.NullFloat64
		if err := rows.Scan(&d.ID, &symbols, &d.Title, &d.Body, &d.Source, &published, &sentiment); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.PublishedAt = time.Unix(published, 0).UTC()
		d.Symbols = splitSymbols(symbols.String)
		if sentiment.Valid {
			v := sentiment.Float64
			d.Sentiment = &v
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) UpsertDocuments(ctx context.Context, docs []models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO documents
		(id, symbols, title, body, source, published_at, sentiment)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		var sentiment any
		if d.Sentiment != nil {
			sentiment = *d.Sentiment
		}
		if _, err := stmt.ExecContext(ctx, d.ID, joinSymbols(d.Symbols), d.Title, d.Body,
			d.Source, d.PublishedAt.Unix(), sentiment); err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpsertBars(ctx context.Context, bars []models.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO ohlcv_bars
		(symbol, timestamp, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Symbol, b.Timestamp.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("upsert bar %s@%s: %w", b.Symbol, b.Timestamp, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing sqlite store")
	return s.db.Close()
}

func joinSymbols(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return "," + strings.Join(upper, ",") + ","
}

func splitSymbols(s string) []string {
	s = strings.Trim(s, ",")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
