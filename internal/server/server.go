package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SwingScanner/internal/model"
)

// ScanRunner is the part of the scheduler the HTTP surface needs.
type ScanRunner interface {
	RunNow() *model.BatchResult
	Last() *model.BatchResult
}

// Handler serves scan results over HTTP.
type Handler struct {
	runner   ScanRunner
	gatherer prometheus.Gatherer
	chartDir string
}

// NewHandler creates a new Handler. A nil gatherer serves the default registry.
func NewHandler(runner ScanRunner, gatherer prometheus.Gatherer, chartDir string) *Handler {
	return &Handler{runner: runner, gatherer: gatherer, chartDir: chartDir}
}

// NewRouter creates a Chi router with all routes.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HandleHealth)

	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/scan", func(r chi.Router) {
		r.Get("/latest", h.HandleLatest)
		r.Post("/", h.HandleRunScan)
	})

	if h.chartDir != "" {
		r.Handle("/charts/*", http.StripPrefix("/charts/", http.FileServer(http.Dir(h.chartDir))))
	}

	return r
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLatest returns the most recent scan.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	res := h.runner.Last()
	if res == nil {
		jsonError(w, "no scan has run yet", http.StatusNotFound)
		return
	}
	jsonResponse(w, http.StatusOK, NewScanResponse(res))
}

// HandleRunScan runs a scan synchronously and returns its result.
func (h *Handler) HandleRunScan(w http.ResponseWriter, r *http.Request) {
	res := h.runner.RunNow()
	if res == nil {
		jsonError(w, "scan did not complete", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, http.StatusOK, NewScanResponse(res))
}

// ScanResponse is the JSON view of a BatchResult.
type ScanResponse struct {
	ScanID     string            `json:"scan_id"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMS int64             `json:"duration_ms"`
	Processed  int               `json:"processed"`
	Failed     int               `json:"failed"`
	Signals    []SignalResponse  `json:"signals"`
	Outcomes   []OutcomeResponse `json:"outcomes"`
}

// SignalResponse is the JSON view of a Signal.
type SignalResponse struct {
	Symbol    string    `json:"symbol"`
	AsOf      time.Time `json:"as_of"`
	Close     float64   `json:"close"`
	Score     int       `json:"score"`
	MaxScore  int       `json:"max_score"`
	StopLoss  float64   `json:"stop_loss,omitempty"`
	Qualifies bool      `json:"qualifies"`
	Passed    []string  `json:"passed"`
}

// OutcomeResponse is the JSON view of an Outcome.
type OutcomeResponse struct {
	Symbol string          `json:"symbol"`
	Status string          `json:"status"`
	Kind   string          `json:"failure_kind,omitempty"`
	Error  string          `json:"error,omitempty"`
	Signal *SignalResponse `json:"signal,omitempty"`
}

// NewScanResponse converts a BatchResult for the wire.
func NewScanResponse(res *model.BatchResult) ScanResponse {
	out := ScanResponse{
		ScanID:     res.ScanID.String(),
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
		Processed:  res.Processed,
		Failed:     res.Failed,
		Signals:    make([]SignalResponse, 0, len(res.Signals)),
		Outcomes:   make([]OutcomeResponse, 0, len(res.Outcomes)),
	}
	for _, s := range res.Signals {
		out.Signals = append(out.Signals, newSignalResponse(s))
	}
	for _, o := range res.Outcomes {
		item := OutcomeResponse{Symbol: o.Symbol, Status: string(o.Status), Kind: string(o.Kind)}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		if o.Signal != nil {
			s := newSignalResponse(*o.Signal)
			item.Signal = &s
		}
		out.Outcomes = append(out.Outcomes, item)
	}
	return out
}

func newSignalResponse(s model.Signal) SignalResponse {
	passed := s.Passed
	if passed == nil {
		passed = []string{}
	}
	return SignalResponse{
		Symbol:    s.Symbol,
		AsOf:      s.AsOf,
		Close:     s.Close,
		Score:     s.Score,
		MaxScore:  s.MaxScore,
		StopLoss:  s.StopLoss,
		Qualifies: s.Qualifies,
		Passed:    passed,
	}
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, status, map[string]string{"error": message})
}
