package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"quantlab/internal/backtest"
	"quantlab/internal/coint"
	"quantlab/internal/config"
	"quantlab/internal/domain"
	"quantlab/internal/metrics"
	"quantlab/internal/quotes"
	"quantlab/internal/strategy"
)

// ChartSource fetches raw chart documents, as quotes.YahooClient does.
type ChartSource interface {
	Chart(ctx context.Context, symbol, rng, interval string) (json.RawMessage, int, error)
}

// BarSource fetches historical bars, as quotes.AlpacaClient does.
type BarSource interface {
	Bars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]domain.Bar, error)
}

// Deps are the collaborators of a Server. Log, Metrics and Backtester are
// required. A nil Yahoo or Alpaca source disables the matching proxy route.
type Deps struct {
	Config     config.Server
	Log        *slog.Logger
	Metrics    *metrics.Metrics
	Backtester *strategy.Backtester
	Yahoo      ChartSource
	Alpaca     BarSource
}

// Server serves the quantlab REST API. It holds no mutable state of its own,
// so handlers run concurrently without locking.
type Server struct {
	cfg        config.Server
	log        *slog.Logger
	metrics    *metrics.Metrics
	backtester *strategy.Backtester
	yahoo      ChartSource
	alpaca     BarSource
}

// NewServer creates a Server from deps.
func NewServer(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:        deps.Config,
		log:        log.With("component", "httpapi"),
		metrics:    deps.Metrics,
		backtester: deps.Backtester,
		yahoo:      deps.Yahoo,
		alpaca:     deps.Alpaca,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /backtest", s.handleBacktest)
	mux.HandleFunc("POST /cointegration", s.handleCointegration)
	mux.HandleFunc("POST /ml/train", s.handleTrain)
	mux.HandleFunc("GET /api/yahoo-prices", s.handleYahooPrices)
	mux.HandleFunc("GET /api/alpaca-bars", s.handleAlpacaBars)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the routed API wrapped in CORS, request ID, logging and
// metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(requestIDMiddleware(s.observe(mux)))
}

// HTTPServer builds an *http.Server for the configured address and
// timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var (
		mbe *http.MaxBytesError
		bre *badRequestError
		ue  *upstreamError
	)
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &bre),
		errors.Is(err, backtest.ErrInvalidInput),
		errors.Is(err, coint.ErrInvalidInput),
		errors.Is(err, strategy.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, quotes.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, quotes.ErrUpstreamNotJSON), errors.As(err, &ue):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status statusFor assigns. Server errors are
// logged; client errors are only echoed back.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
	}
	writeError(w, status, err.Error())
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return &badRequestError{msg: "malformed JSON: " + err.Error()}
	}
	return nil
}

// badRequestError is a client error detected by the HTTP layer itself.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// upstreamError marks a failure talking to a market-data provider.
type upstreamError struct{ err error }

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }
