package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/agent"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/analytics"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/retriever"
)

type stubRetriever struct {
	items []models.EvidenceItem
}

func (s *stubRetriever) Retrieve(context.Context, retriever.Query) ([]models.EvidenceItem, error) {
	return s.items, nil
}

type stubAnalytics struct {
	summary analytics.SummaryStats
	err     error
}

func (s *stubAnalytics) Volatility(context.Context, string, time.Time, int) (analytics.VolatilityStats, error) {
	return analytics.VolatilityStats{}, s.err
}

func (s *stubAnalytics) SummaryStats(context.Context, string, models.Period) (analytics.SummaryStats, error) {
	return s.summary, s.err
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, string) (string, error) {
	return "generated text", nil
}

func newTestServer(a agent.Analytics) *httptest.Server {
	o := agent.New(&stubRetriever{}, a, stubGenerator{},
		agent.Limits{MaxContextDocs: 20, MaxLookbackDays: 365, DefaultContextDocs: 8})
	s := New(o, ":0", 5*time.Second)
	return httptest.NewServer(s.httpServer.Handler)
}

func post(t *testing.T, ts *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestServerStockSummary(t *testing.T) {
	ts := newTestServer(&stubAnalytics{summary: analytics.SummaryStats{CurrentPrice: 101.5, Volume: 42}})
	defer ts.Close()

	resp := post(t, ts, "/v1/stock-summary", models.StockSummaryRequest{
		Symbol: "AAPL", Period: models.Period1W, MaxContextDocs: 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.StockSummaryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "AAPL", out.Symbol)
	assert.Equal(t, 101.5, out.CurrentPrice)
	assert.Equal(t, "generated text", out.Summary)
}

func TestServerErrorMapping(t *testing.T) {
	t.Run("invalid argument", func(t *testing.T) {
		ts := newTestServer(&stubAnalytics{})
		defer ts.Close()

		resp := post(t, ts, "/v1/stock-summary", models.StockSummaryRequest{
			Symbol: "AAPL", Period: "bogus", MaxContextDocs: 5,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_argument", decodeError(t, resp).Code)
	})

	t.Run("symbol not found", func(t *testing.T) {
		ts := newTestServer(&stubAnalytics{err: fmt.Errorf("%w: NOPE", models.ErrSymbolNotFound)})
		defer ts.Close()

		resp := post(t, ts, "/v1/stock-summary", models.StockSummaryRequest{
			Symbol: "NOPE", Period: models.Period1D, MaxContextDocs: 5,
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "symbol_not_found", decodeError(t, resp).Code)
	})

	t.Run("insufficient data", func(t *testing.T) {
		ts := newTestServer(&stubAnalytics{err: fmt.Errorf("%w: 1 bar", models.ErrInsufficientData)})
		defer ts.Close()

		resp := post(t, ts, "/v1/explain-volatility", models.VolatilityRequest{
			Symbol: "AAPL", Date: "2025-03-14", LookbackDays: 4,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "insufficient_data", decodeError(t, resp).Code)
	})

	t.Run("dependency unavailable", func(t *testing.T) {
		ts := newTestServer(&stubAnalytics{err: models.WrapDependency("store", fmt.Errorf("connection refused"))})
		defer ts.Close()

		resp := post(t, ts, "/v1/stock-summary", models.StockSummaryRequest{
			Symbol: "AAPL", Period: models.Period1D, MaxContextDocs: 5,
		})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "dependency_unavailable", decodeError(t, resp).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		ts := newTestServer(&stubAnalytics{})
		defer ts.Close()

		resp, err := http.Post(ts.URL+"/v1/query", "application/json", bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		ts := newTestServer(&stubAnalytics{})
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/v1/query")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestServerQueryDeclinesWithoutEvidence(t *testing.T) {
	ts := newTestServer(&stubAnalytics{})
	defer ts.Close()

	resp := post(t, ts, "/v1/query", models.QueryRequest{Query: "what happened?", MaxContextDocs: 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Zero(t, out.Confidence)
	assert.Empty(t, out.ContextDocs)
	assert.NotEmpty(t, out.Answer)
}
