package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/agent"
	"github.com/SushantGanji3/RAQQuantTradingAgent/internal/models"
)

// Server exposes the three unary calls over HTTP/JSON.
type Server struct {
	orchestrator   *agent.Orchestrator
	httpServer     *http.Server
	requestTimeout time.Duration
}

func New(o *agent.Orchestrator, addr string, requestTimeout time.Duration) *Server {
	s := &Server{orchestrator: o, requestTimeout: requestTimeout}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/stock-summary", handle(s, o.GetStockSummary))
	mux.HandleFunc("POST /v1/query", handle(s, o.QueryRAG))
	mux.HandleFunc("POST /v1/explain-volatility", handle(s, o.ExplainVolatility))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handle adapts one orchestrator method to an HTTP handler. Client
// disconnects and the per-request timeout both cancel the request context,
// which cancels all in-flight sub-calls cooperatively.
func handle[Req any, Resp any](s *Server, call func(context.Context, Req) (*Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrInvalidArgument, "malformed JSON body")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()

		resp, err := call(ctx, req)
		if err != nil {
			writeError(w, err, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("encode response")
		}
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, models.ErrSymbolNotFound):
		status, code = http.StatusNotFound, "symbol_not_found"
	case errors.Is(err, models.ErrInsufficientData):
		status, code = http.StatusUnprocessableEntity, "insufficient_data"
	case errors.Is(err, models.ErrDependencyTimeout):
		status, code = http.StatusServiceUnavailable, "dependency_timeout"
	case errors.Is(err, models.ErrDependencyUnavailable):
		status, code = http.StatusServiceUnavailable, "dependency_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, "request_cancelled"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Code: code})
}
