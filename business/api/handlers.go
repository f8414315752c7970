package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/session"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
)

var errBadRequest = errors.New("bad request")

type speechRequest struct {
	AudioURI string `json:"audio_uri"`
}

type heartRateRequest struct {
	HeartRate   int     `json:"heart_rate"`
	Variability float64 `json:"variability"`
}

type fusionRequest struct {
	AudioURI    string  `json:"audio_uri"`
	HeartRate   int     `json:"heart_rate"`
	Variability float64 `json:"variability"`
}

type healthResponse struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Services: make(map[string]bool, len(state.Services))}
	for _, svc := range state.Services {
		resp.Services[svc.String()] = h.state.Get(svc)
	}
	if !resp.Services[state.Store.String()] {
		resp.Status = "degraded"
	}
	h.respond(w, http.StatusOK, resp)
}

func (h *handlers) predictSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.AudioURI == "" {
		h.fail(w, r, fmt.Errorf("%w: audio_uri is required", errBadRequest))
		return
	}

	res, err := h.analyzer.PredictSpeech(r.Context(), req.AudioURI)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, res)
	h.respond(w, http.StatusOK, res)
}

func (h *handlers) predictHeartRate(w http.ResponseWriter, r *http.Request) {
	var req heartRateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validateHeartRate(req.HeartRate, req.Variability); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.analyzer.PredictHeartRate(r.Context(), req.HeartRate, req.Variability)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, res)
	h.respond(w, http.StatusOK, res)
}

func (h *handlers) predictFusion(w http.ResponseWriter, r *http.Request) {
	var req fusionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.AudioURI == "" {
		h.fail(w, r, fmt.Errorf("%w: audio_uri is required", errBadRequest))
		return
	}
	if err := validateHeartRate(req.HeartRate, req.Variability); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.analyzer.PredictFusion(r.Context(), req.AudioURI, req.HeartRate, req.Variability)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.record(r, res, emotion.Metadata{
		AudioPath:   req.AudioURI,
		HeartRate:   req.HeartRate,
		Variability: req.Variability,
	})
	h.respond(w, http.StatusOK, res)
}

func (h *handlers) runSession(w http.ResponseWriter, r *http.Request) {
	source, err := emotion.ParseSource(mux.Vars(r)["source"])
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	s, err := session.New(source, h.sessions)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer s.Close()

	out, err := s.Run(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, out)
}

func (h *handlers) listHistory(w http.ResponseWriter, r *http.Request) {
	source, err := sourceParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.fail(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, v))
			return
		}
	}

	recs, err := h.history.List(r.Context(), limit, source)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []emotion.Record{}
	}

	h.respond(w, http.StatusOK, recs)
}

func (h *handlers) historyStats(w http.ResponseWriter, r *http.Request) {
	source, err := sourceParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	st, err := h.history.Stats(r.Context(), source)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, st)
}

const (
	defaultHistoryDays = 7
	maxHistoryDays     = 365
)

type connectResponse struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
}

// heartRateHistory serves simulated past readings for the last ?days= days.
func (h *handlers) heartRateHistory(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.fail(w, r, fmt.Errorf("%w: heart-rate monitor not configured", analysis.ErrIncomplete))
		return
	}

	days := defaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryDays {
			h.fail(w, r, fmt.Errorf("%w: invalid days %q", errBadRequest, v))
			return
		}
		days = n
	}

	end := h.now()
	readings := h.monitor.History(end.Add(-time.Duration(days)*24*time.Hour), end)
	if readings == nil {
		readings = []heartrate.Reading{}
	}

	h.respond(w, http.StatusOK, readings)
}

// connectProvider links the monitor to a health-data provider.
func (h *handlers) connectProvider(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		h.fail(w, r, fmt.Errorf("%w: heart-rate monitor not configured", analysis.ErrIncomplete))
		return
	}

	provider := mux.Vars(r)["provider"]

	var connect func(context.Context) (bool, error)
	switch heartrate.ReadingSource(provider) {
	case heartrate.GoogleFit:
		connect = h.monitor.ConnectGoogleFit
	case heartrate.AppleHealth:
		connect = h.monitor.ConnectAppleHealth
	default:
		h.fail(w, r, fmt.Errorf("%w: unknown provider %q", errBadRequest, provider))
		return
	}

	ok, err := connect(r.Context())
	if err != nil {
		h.fail(w, r, analysis.Incomplete(provider, err))
		return
	}

	h.respond(w, http.StatusOK, connectResponse{Provider: provider, Connected: ok})
}

// =================================================================================================================

// record saves res to history. Failures are logged only.
func (h *handlers) record(r *http.Request, res emotion.Result, inputs ...emotion.Metadata) {
	if h.history == nil {
		return
	}
	if _, err := h.history.Record(r.Context(), res, inputs...); err != nil {
		h.logger.Errorw("api: record", "path", r.URL.Path, "ERROR", err)
	}
}

func (h *handlers) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorw("api: respond", "ERROR", err)
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, analysis.ErrIncomplete):
		status = http.StatusServiceUnavailable
	}

	h.logger.Errorw("api: request failed", "path", r.URL.Path, "status", status, "ERROR", err)
	h.respond(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func sourceParam(r *http.Request) (emotion.Source, error) {
	v := r.URL.Query().Get("source")
	if v == "" || v == "all" {
		return "", nil
	}
	source, err := emotion.ParseSource(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return source, nil
}

func validateHeartRate(bpm int, variability float64) error {
	if bpm <= 0 {
		return fmt.Errorf("%w: heart_rate must be positive", errBadRequest)
	}
	if variability < 0 {
		return fmt.Errorf("%w: variability must not be negative", errBadRequest)
	}
	return nil
}
