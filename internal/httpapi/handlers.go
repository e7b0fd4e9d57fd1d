package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/quantdesk/quantdesk/internal/portfolio"
	"github.com/quantdesk/quantdesk/internal/series"
	"github.com/quantdesk/quantdesk/internal/signal"
)

const defaultBaseValue = 10000

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": signal.Kinds()})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticker := q.Get("ticker")
	if ticker == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("missing required parameter: ticker"))
		return
	}

	period := q.Get("period")
	if period == "" {
		period = "1y"
	}

	spec := signal.Spec{Kind: q.Get("strategy"), Params: map[string]float64{}}
	if spec.Kind == "" {
		spec.Kind = "buy_hold"
	}
	// Any numeric query parameter beyond the reserved ones is a strategy
	// parameter, e.g. ?strategy=trend&window=100.
	for key, vals := range q {
		switch key {
		case "ticker", "period", "strategy", "base":
			continue
		}
		if len(vals) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(vals[0], 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("parameter %s: %w", key, err))
			return
		}
		spec.Params[key] = v
	}

	base, err := parseBase(q.Get("base"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := s.analyzer.Backtest(r.Context(), ticker, period, spec, base)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tickers := splitList(q.Get("tickers"))
	if len(tickers) == 0 {
		writeError(w, r, http.StatusBadRequest, errors.New("missing required parameter: tickers"))
		return
	}

	cfg := portfolio.Config{
		Tickers:   tickers,
		Rebalance: portfolio.Frequency(q.Get("rebalance")),
		Benchmark: q.Get("benchmark"),
	}
	if cfg.Rebalance == "" {
		cfg.Rebalance = portfolio.RebalanceNone
	}

	if raw := q.Get("weights"); raw != "" {
		parts := splitList(raw)
		if len(parts) != len(tickers) {
			writeError(w, r, http.StatusBadRequest,
				fmt.Errorf("weights count %d does not match tickers count %d", len(parts), len(tickers)))
			return
		}
		cfg.Weights = make(map[string]float64, len(parts))
		for i, p := range parts {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, fmt.Errorf("weight %q: %w", p, err))
				return
			}
			cfg.Weights[tickers[i]] = v
		}
	} else {
		cfg.Weights = portfolio.EqualWeights(tickers)
	}

	period := q.Get("period")
	if period == "" {
		period = "1y"
	}
	base, err := parseBase(q.Get("base"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := s.analyzer.AnalyzePortfolio(r.Context(), cfg, period, base)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "2y"
	}

	result, err := s.analyzer.Diagnostics(r.Context(), ticker, period)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func parseBase(raw string) (float64, error) {
	if raw == "" {
		return defaultBaseValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter base: %w", err)
	}
	return v, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// statusFor maps analysis errors to HTTP statuses: caller mistakes get 400,
// series the engine cannot analyze (too short, unaligned, not enough
// overlap) get 422, everything else is a gateway problem.
func statusFor(err error) int {
	var cfgErr *series.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest
	}
	var histErr *series.InsufficientHistoryError
	var overlapErr *series.InsufficientOverlapError
	var alignErr *series.MisalignmentError
	if errors.As(err, &histErr) || errors.As(err, &overlapErr) || errors.As(err, &alignErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	requestID, _ := r.Context().Value(requestIDKey).(string)
	writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: requestID})
}
