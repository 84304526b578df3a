package models

import "time"

// Bar is one OHLCV candlestick for a symbol. Unique per (symbol, timestamp).
// Bars are written by ingestion and read-only to the query engine. Gaps
// between bars are non-trading days, never zero-filled.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Document is a stored news article or filing. The ID is stable, derived
// from the source URL or a content hash, so re-ingesting identical content
// is an idempotent upsert.
type Document struct {
	ID          string    `json:"id"`
	Symbols     []string  `json:"symbols,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   *float64  `json:"sentiment,omitempty"`
}

// Provenance tags where an evidence item came from.
type Provenance string

const (
	ProvenanceVectorMatch      Provenance = "vector-match"
	ProvenanceStructuredFilter Provenance = "structured-filter"
	ProvenanceDerivedMetric    Provenance = "derived-metric"
)

// EvidenceItem joins a document with a relevance score and provenance.
// Request-scoped, never persisted.
type EvidenceItem struct {
	Doc        Document
	Score      float64
	Provenance Provenance
}

// DerivedMetric is a numeric fact computed from structured data and carried
// in the evidence bundle so the generated text can cite it.
type DerivedMetric struct {
	Name  string
	Value float64
}

// EvidenceBundle is the ordered, size-bounded evidence for one request.
// Each bundle is exclusively owned by its request and discarded after the
// response is built.
type EvidenceBundle struct {
	Items   []EvidenceItem
	Metrics []DerivedMetric
}

// Empty reports whether the bundle holds no evidence at all.
func (b *EvidenceBundle) Empty() bool {
	return len(b.Items) == 0 && len(b.Metrics) == 0
}

// DocRef is the citable reference to one evidence item returned to the client.
type DocRef struct {
	DocumentID     string    `json:"document_id"`
	Title          string    `json:"title"`
	Source         string    `json:"source"`
	PublishedAt    time.Time `json:"published_at"`
	RelevanceScore float64   `json:"relevance_score"`
	Sentiment      *float64  `json:"sentiment,omitempty"`
}

// DocRefOf projects an evidence item into its citable reference.
func DocRefOf(it EvidenceItem) DocRef {
	return DocRef{
		DocumentID:     it.Doc.ID,
		Title:          it.Doc.Title,
		Source:         it.Doc.Source,
		PublishedAt:    it.Doc.PublishedAt,
		RelevanceScore: it.Score,
		Sentiment:      it.Doc.Sentiment,
	}
}

// TimeWindow bounds a query in time. A zero Start or End leaves that side open.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// IsZero reports whether the window is unbounded on both sides.
func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
