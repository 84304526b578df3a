package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/analytics"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/helper"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/retriever"
)

// Retriever selects evidence for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q retriever.Query) ([]models.EvidenceItem, error)
}

// Analytics computes derived numeric facts from structured data.
type Analytics interface {
	Volatility(ctx context.Context, symbol string, date time.Time, lookbackDays int) (analytics.VolatilityStats, error)
	SummaryStats(ctx context.Context, symbol string, period models.Period) (analytics.SummaryStats, error)
}

// Generator produces prose from an instruction and citable evidence.
type Generator interface {
	Generate(ctx context.Context, instruction, evidence string) (string, error)
}

// Limits caps per-request work before any collaborator is touched.
type Limits struct {
	MaxContextDocs  int
	MaxLookbackDays int
	// DefaultContextDocs is the evidence budget for handlers without an
	// explicit one (ExplainVolatility).
	DefaultContextDocs int
	MinConfidence      float64
}

// Orchestrator composes the retriever, analytics engine, and generator into
// the three grounded request handlers. Each request owns its evidence
// bundle exclusively; nothing is shared across requests.
type Orchestrator struct {
	retriever Retriever
	analytics Analytics
	generator Generator
	limits    Limits
}

func New(r Retriever, a Analytics, g Generator, limits Limits) *Orchestrator {
	if limits.MaxContextDocs <= 0 {
		limits.MaxContextDocs = 20
	}
	if limits.MaxLookbackDays <= 0 {
		limits.MaxLookbackDays = 365
	}
	if limits.DefaultContextDocs <= 0 {
		limits.DefaultContextDocs = 8
	}
	return &Orchestrator{retriever: r, analytics: a, generator: g, limits: limits}
}

// GetStockSummary answers the point-in-time summary query. SymbolNotFound
// from the analytics engine is fatal to the request.
func (o *Orchestrator) GetStockSummary(ctx context.Context, req models.StockSummaryRequest) (*models.StockSummaryResponse, error) {
	t := newTask("GetStockSummary")
	if req.Symbol == "" {
		return nil, t.fail(fmt.Errorf("%w: symbol is required", models.ErrInvalidArgument))
	}
	if !req.Period.Valid() {
		return nil, t.fail(fmt.Errorf("%w: period %q", models.ErrInvalidArgument, req.Period))
	}
	if err := o.checkContextDocs(req.MaxContextDocs); err != nil {
		return nil, t.fail(err)
	}

	// Evidence fetch and analytics are independent: fan out, join before
	// the generator call.
	t.transition(stateRetrieving)
	type statsResult struct {
		stats analytics.SummaryStats
		err   error
	}
	statsCh := make(chan statsResult, 1)
	go func() {
		s, err := o.analytics.SummaryStats(ctx, req.Symbol, req.Period)
		statsCh <- statsResult{s, err}
	}()

	items, retErr := o.retriever.Retrieve(ctx, retriever.Query{
		Symbols: []string{req.Symbol},
		K:       req.MaxContextDocs,
	})

	t.transition(stateAnalyzing)
	sr := <-statsCh
	if sr.err != nil {
		return nil, t.fail(sr.err)
	}
	if retErr != nil {
		return nil, t.fail(retErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, t.fail(err)
	}

	bundle := models.EvidenceBundle{
		Items: items,
		Metrics: []models.DerivedMetric{
			{Name: "current_price", Value: sr.stats.CurrentPrice},
			{Name: "change_percent", Value: sr.stats.ChangePercent},
			{Name: "volume", Value: float64(sr.stats.Volume)},
		},
	}

	t.transition(stateGenerating)
	instruction := summaryInstruction(req.Symbol, req.Period, sr.stats)
	summary, err := o.generator.Generate(ctx, instruction, evidenceText(bundle))
	if err != nil {
		return nil, t.fail(err)
	}

	t.transition(stateCompleted)
	return &models.StockSummaryResponse{
		Symbol:        req.Symbol,
		CurrentPrice:  sr.stats.CurrentPrice,
		ChangePercent: sr.stats.ChangePercent,
		Volume:        sr.stats.Volume,
		Summary:       summary,
		ContextDocs:   docRefs(items),
	}, nil
}

const (
	noEvidenceAnswer = "No grounding evidence was found for this query; " +
		"declining to answer without supporting documents."
	lowConfidenceAnswer = "The retrieved context is too weakly related to this query " +
		"to support a grounded answer; declining to answer."
)

// QueryRAG answers an open-ended question. With no grounding evidence, or
// evidence below the confidence floor, it declines to fabricate and returns
// an explicit low-confidence response.
func (o *Orchestrator) QueryRAG(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	t := newTask("QueryRAG")
	if req.Query == "" {
		return nil, t.fail(fmt.Errorf("%w: query is required", models.ErrInvalidArgument))
	}
	if err := o.checkContextDocs(req.MaxContextDocs); err != nil {
		return nil, t.fail(err)
	}

	t.transition(stateRetrieving)
	items, err := o.retriever.Retrieve(ctx, retriever.Query{
		Text:    req.Query,
		Symbols: req.Symbols,
		K:       req.MaxContextDocs,
	})
	if err != nil {
		return nil, t.fail(err)
	}

	if len(items) == 0 {
		t.transition(stateCompleted)
		return &models.QueryResponse{
			Answer:      noEvidenceAnswer,
			Confidence:  0,
			ContextDocs: []models.DocRef{},
		}, nil
	}

	// Evidence whose mean relevance falls below the confidence floor cannot
	// ground an answer; decline instead of generating from weak context.
	conf := confidence(items)
	if conf < o.limits.MinConfidence {
		t.transition(stateCompleted)
		return &models.QueryResponse{
			Answer:      lowConfidenceAnswer,
			Confidence:  conf,
			ContextDocs: docRefs(items),
		}, nil
	}

	t.transition(stateGenerating)
	bundle := models.EvidenceBundle{Items: items}
	answer, err := o.generator.Generate(ctx, queryInstruction(req.Query), evidenceText(bundle))
	if err != nil {
		return nil, t.fail(err)
	}

	t.transition(stateCompleted)
	return &models.QueryResponse{
		Answer:      answer,
		Confidence:  conf,
		ContextDocs: docRefs(items),
	}, nil
}

// ExplainVolatility explains the realized volatility at a date from both
// the numeric value and qualitative context near that date. InsufficientData
// from the analytics engine is fatal to the request.
func (o *Orchestrator) ExplainVolatility(ctx context.Context, req models.VolatilityRequest) (*models.VolatilityResponse, error) {
	t := newTask("ExplainVolatility")
	if req.Symbol == "" {
		return nil, t.fail(fmt.Errorf("%w: symbol is required", models.ErrInvalidArgument))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, t.fail(fmt.Errorf("%w: date must be ISO-8601 (YYYY-MM-DD): %v", models.ErrInvalidArgument, err))
	}
	if req.LookbackDays <= 0 || req.LookbackDays > o.limits.MaxLookbackDays {
		return nil, t.fail(fmt.Errorf("%w: lookback_days must be in (0, %d]", models.ErrInvalidArgument, o.limits.MaxLookbackDays))
	}

	t.transition(stateRetrieving)
	type volResult struct {
		stats analytics.VolatilityStats
		err   error
	}
	volCh := make(chan volResult, 1)
	go func() {
		v, err := o.analytics.Volatility(ctx, req.Symbol, date, req.LookbackDays)
		volCh <- volResult{v, err}
	}()

	// Qualitative context: news for the symbol in the lookback window.
	window := models.TimeWindow{
		Start: date.AddDate(0, 0, -req.LookbackDays),
		End:   date.AddDate(0, 0, 1),
	}
	items, retErr := o.retriever.Retrieve(ctx, retriever.Query{
		Symbols: []string{req.Symbol},
		Window:  window,
		K:       o.limits.DefaultContextDocs,
	})

	t.transition(stateAnalyzing)
	vr := <-volCh
	if vr.err != nil {
		return nil, t.fail(vr.err)
	}
	if retErr != nil {
		return nil, t.fail(retErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, t.fail(err)
	}

	bundle := models.EvidenceBundle{
		Items: items,
		Metrics: []models.DerivedMetric{
			{Name: "volatility", Value: vr.stats.Value},
			{Name: "annualized_volatility", Value: vr.stats.Annualized},
		},
	}

	t.transition(stateGenerating)
	instruction := volatilityInstruction(req.Symbol, req.Date, vr.stats)
	explanation, err := o.generator.Generate(ctx, instruction, evidenceText(bundle))
	if err != nil {
		return nil, t.fail(err)
	}

	t.transition(stateCompleted)
	return &models.VolatilityResponse{
		Symbol:          req.Symbol,
		Date:            req.Date,
		VolatilityValue: vr.stats.Value,
		Annualized:      vr.stats.Annualized,
		SampleCount:     vr.stats.SampleCount,
		Explanation:     explanation,
		ContextDocs:     docRefs(items),
	}, nil
}

func (o *Orchestrator) checkContextDocs(n int) error {
	if n <= 0 || n > o.limits.MaxContextDocs {
		return fmt.Errorf("%w: max_context_docs must be in (0, %d]", models.ErrInvalidArgument, o.limits.MaxContextDocs)
	}
	return nil
}

// confidence is the mean relevance of the used evidence, already in [0,1].
func confidence(items []models.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.Score
	}
	c := sum / float64(len(items))
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func docRefs(items []models.EvidenceItem) []models.DocRef {
	refs := make([]models.DocRef, len(items))
	for i, it := range items {
		refs[i] = models.DocRefOf(it)
	}
	return refs
}

// request state machine: Received → Retrieving → Analyzing → Generating →
// Completed | Failed. Tracked per request for logging and latency.

type state string

const (
	stateReceived   state = "received"
	stateRetrieving state = "retrieving"
	stateAnalyzing  state = "analyzing"
	stateGenerating state = "generating"
	stateCompleted  state = "completed"
	stateFailed     state = "failed"
)

type task struct {
	id    string
	op    string
	state state
	start time.Time
}

func newTask(op string) *task {
	id, err := helper.GenerateUUID()
	if err != nil {
		id = "unknown"
	}
	t := &task{id: id, op: op, state: stateReceived, start: time.Now()}
	log.Info().Str("request_id", t.id).Str("op", op).Msg("request received")
	return t
}

func (t *task) transition(s state) {
	t.state = s
	if s == stateCompleted {
		log.Info().Str("request_id", t.id).Str("op", t.op).Dur("elapsed", time.Since(t.start)).Msg("request completed")
		return
	}
	log.Debug().Str("request_id", t.id).Str("op", t.op).Str("state", string(s)).Msg("state transition")
}

func (t *task) fail(err error) error {
	t.state = stateFailed
	log.Warn().Str("request_id", t.id).Str("op", t.op).Err(err).Dur("elapsed", time.Since(t.start)).Msg("request failed")
	return err
}
