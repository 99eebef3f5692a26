package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quantlab/internal/backtest"
	"quantlab/internal/coint"
	"quantlab/internal/domain"
	"quantlab/internal/quotes"
	"quantlab/internal/strategy"
)

const (
	defaultRange    = "3y"
	defaultInterval = "1d"
	dateLayout      = "2006-01-02"

	// multipart parts beyond this size spill to temporary files.
	multipartMemory = 32 << 20
)

// outcome classifies err for the run counters.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case statusFor(err) < http.StatusInternalServerError:
		return "invalid"
	default:
		return "error"
	}
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	hasSignals := req.Signals != nil
	hasStrategy := req.Strategy != nil
	if hasSignals == hasStrategy {
		writeError(w, http.StatusBadRequest, "exactly one of signals or strategy is required")
		return
	}

	var (
		res    backtest.Result
		err    error
		source = "signals"
	)
	if hasSignals {
		res, err = backtest.Run(req.Prices, req.Signals)
	} else {
		res, err = s.backtester.Run(req.Strategy.Name, req.Strategy.Params, req.Prices)
		source = req.Strategy.Name
		if errors.Is(err, strategy.ErrUnknownStrategy) {
			source = "unknown"
		}
	}
	s.metrics.RecordBacktest(source, outcome(err))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, res)
}

func (s *Server) handleCointegration(w http.ResponseWriter, r *http.Request) {
	var req CointRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := coint.Test(req.SeriesX, req.SeriesY)
	s.metrics.RecordCoint(outcome(err))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, newCointResponse(res))
}

// handleTrain accepts a training data upload. Model training itself is not
// performed; the upload is drained and acknowledged.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if !errors.As(err, &mbe) {
			err = &badRequestError{msg: "invalid multipart form: " + err.Error()}
		}
		s.fail(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	n, err := io.Copy(io.Discard, file)
	if err != nil {
		s.fail(w, r, fmt.Errorf("reading upload: %w", err))
		return
	}

	s.log.Info("training data received",
		"filename", hdr.Filename,
		"bytes", n,
		"request_id", RequestID(r.Context()),
	)
	writeJSON(w, StatusResponse{Status: "training started"})
}

func (s *Server) handleYahooPrices(w http.ResponseWriter, r *http.Request) {
	if s.yahoo == nil {
		s.fail(w, r, quotes.ErrNotConfigured)
		return
	}

	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	rng := q.Get("range")
	if rng == "" {
		rng = defaultRange
	}
	interval := q.Get("interval")
	if interval == "" {
		interval = defaultInterval
	}

	raw, status, err := s.yahoo.Chart(r.Context(), symbol, rng, interval)
	if err != nil {
		s.metrics.RecordUpstream("yahoo", "error")
		s.fail(w, r, &upstreamError{err: err})
		return
	}
	s.metrics.RecordUpstream("yahoo", "ok")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}

func (s *Server) handleAlpacaBars(w http.ResponseWriter, r *http.Request) {
	if s.alpaca == nil {
		s.fail(w, r, quotes.ErrNotConfigured)
		return
	}

	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	timeframe := q.Get("timeframe")
	if _, err := quotes.ParseTimeFrame(timeframe); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var start, end time.Time
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid start date %q", v))
			return
		}
		start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid end date %q", v))
			return
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		writeError(w, http.StatusBadRequest, "end is before start")
		return
	}

	bars, err := s.alpaca.Bars(r.Context(), symbol, timeframe, start, end)
	if err != nil {
		if errors.Is(err, quotes.ErrNotConfigured) {
			s.fail(w, r, err)
			return
		}
		s.metrics.RecordUpstream("alpaca", "error")
		s.fail(w, r, &upstreamError{err: err})
		return
	}
	s.metrics.RecordUpstream("alpaca", "ok")

	if bars == nil {
		bars = []domain.Bar{}
	}
	writeJSON(w, BarsResponse{Symbol: strings.ToUpper(symbol), Bars: bars})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.backtester.Strategies()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StatusResponse{Status: "ok"})
}
