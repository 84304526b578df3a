package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/helper"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/store"
)

// LoadDocuments walks dir, parses every supported file into a Document and
// upserts the batch into the store. Ids are content-derived, so re-running
// over an unchanged directory is idempotent. symbols tags every document;
// source names the batch origin. Per-file parse failures are logged and
// skipped, matching the index builder's per-document failure policy.
func LoadDocuments(ctx context.Context, s store.DocumentStore, dir string, symbols []string, source string) (int, error) {
	var docs []models.Document
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".docx", ".md", ".txt":
		default:
			return nil
		}

		title, body, err := ParseFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("parse failed, skipping file")
			return nil
		}
		if body == "" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		docs = append(docs, models.Document{
			ID:          helper.ContentID(path, []byte(body)),
			Symbols:     normalizeSymbols(symbols),
			Title:       title,
			Body:        body,
			Source:      source,
			PublishedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := s.UpsertDocuments(ctx, docs); err != nil {
		return 0, err
	}
	log.Info().Int("documents", len(docs)).Str("dir", dir).Msg("documents ingested")
	return len(docs), nil
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
