package models

// The three unary calls each have one closed request/response shape.
// Fields are validated at the orchestrator boundary before any collaborator
// is touched.

type StockSummaryRequest struct {
	Symbol         string `json:"symbol"`
	Period         Period `json:"period"`
	MaxContextDocs int    `json:"max_context_docs"`
}

type StockSummaryResponse struct {
	Symbol        string   `json:"symbol"`
	CurrentPrice  float64  `json:"current_price"`
	ChangePercent float64  `json:"change_percent"`
	Volume        int64    `json:"volume"`
	Summary       string   `json:"summary"`
	ContextDocs   []DocRef `json:"context_docs"`
}

type QueryRequest struct {
	Query          string   `json:"query"`
	Symbols        []string `json:"symbols,omitempty"`
	MaxContextDocs int      `json:"max_context_docs"`
}

type QueryResponse struct {
	Answer      string   `json:"answer"`
	Confidence  float64  `json:"confidence"`
	ContextDocs []DocRef `json:"context_docs"`
}

type VolatilityRequest struct {
	Symbol       string `json:"symbol"`
	Date         string `json:"date"` // ISO-8601 date, e.g. 2025-03-14
	LookbackDays int    `json:"lookback_days"`
}

type VolatilityResponse struct {
	Symbol          string   `json:"symbol"`
	Date            string   `json:"date"`
	VolatilityValue float64  `json:"volatility_value"`
	Annualized      float64  `json:"annualized_volatility"`
	SampleCount     int      `json:"sample_count"`
	Explanation     string   `json:"explanation"`
	ContextDocs     []DocRef `json:"context_docs"`
}
