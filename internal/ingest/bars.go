package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/store"
)

// LoadBars reads OHLCV bars from a .csv or .xlsx export and upserts them.
// Expected columns: symbol, date (YYYY-MM-DD), open, high, low, close,
// volume; a header row is detected and skipped.
func LoadBars(ctx context.Context, s store.DocumentStore, filePath string) (int, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		rows, err = readCSV(filePath)
	case ".xlsx":
		rows, err = readXLSX(filePath)
	default:
		return 0, fmt.Errorf("unsupported bar file format: %s", filepath.Ext(filePath))
	}
	if err != nil {
		return 0, err
	}

	var bars []models.Bar
	for i, row := range rows {
		bar, err := parseBarRow(row)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return 0, nil
	}
	if err := s.UpsertBars(ctx, bars); err != nil {
		return 0, err
	}
	log.Info().Int("bars", len(bars)).Str("file", filePath).Msg("bars ingested")
	return len(bars), nil
}

func readCSV(filePath string) ([][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSX(filePath string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func parseBarRow(row []string) (models.Bar, error) {
	if len(row) < 7 {
		return models.Bar{}, fmt.Errorf("expected 7 columns, got %d", len(row))
	}
	ts, err := time.Parse("2006-01-02", strings.TrimSpace(row[1]))
	if err != nil {
		return models.Bar{}, fmt.Errorf("bad date %q: %v", row[1], err)
	}
	vals := make([]float64, 4)
	for i, col := range row[2:6] {
		v, err := strconv.ParseFloat(strings.TrimSpace(col), 64)
		if err != nil {
			return models.Bar{}, fmt.Errorf("bad number %q: %v", col, err)
		}
		vals[i] = v
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(row[6]), 10, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("bad volume %q: %v", row[6], err)
	}
	return models.Bar{
		Symbol:    strings.ToUpper(strings.TrimSpace(row[0])),
		Timestamp: ts.UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    volume,
	}, nil
}
