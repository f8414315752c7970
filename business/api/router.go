// Package api exposes the analysis flows, capture sessions, history and the
// live heart-rate stream over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/history"
	"github.com/superfeelapi/goEmotionFusion/business/session"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
	"go.uber.org/zap"
)

type Config struct {
	Analyzer *analysis.Analyzer
	History  *history.Service
	Monitor  *heartrate.Monitor
	Sessions session.Deps
	State    *state.State
	Clock    func() time.Time
	Logger   *zap.SugaredLogger
}

type handlers struct {
	analyzer *analysis.Analyzer
	history  *history.Service
	monitor  *heartrate.Monitor
	sessions session.Deps
	state    *state.State
	now      func() time.Time
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewRouter(cfg Config) *mux.Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.State == nil {
		cfg.State = state.NewState()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	h := &handlers{
		analyzer: cfg.Analyzer,
		history:  cfg.History,
		monitor:  cfg.Monitor,
		sessions: cfg.Sessions,
		state:    cfg.State,
		now:      cfg.Clock,
		logger:   cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/predict/speech", h.predictSpeech).Methods(http.MethodPost)
	v1.HandleFunc("/predict/heart-rate", h.predictHeartRate).Methods(http.MethodPost)
	v1.HandleFunc("/predict/fusion", h.predictFusion).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{source}", h.runSession).Methods(http.MethodPost)
	v1.HandleFunc("/history", h.listHistory).Methods(http.MethodGet)
	v1.HandleFunc("/history/stats", h.historyStats).Methods(http.MethodGet)
	v1.HandleFunc("/heart-rate/history", h.heartRateHistory).Methods(http.MethodGet)
	v1.HandleFunc("/heart-rate/connect/{provider}", h.connectProvider).Methods(http.MethodPost)
	v1.HandleFunc("/stream/heart-rate", h.streamHeartRate).Methods(http.MethodGet)

	return r
}
