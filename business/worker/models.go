package worker

import (
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/history"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
	"github.com/superfeelapi/goEmotionFusion/foundation/redis"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
	"go.uber.org/zap"
)

type Settings struct {
	Config
	Logger   *zap.SugaredLogger
	State    *state.State
	Analyzer *analysis.Analyzer
	Monitor  *heartrate.Monitor
	History  history.Sink

	// Redis is optional. When set, records published by any instance are
	// tailed and logged.
	Redis *redis.Redis
}

type Config struct {
	UserID string

	// SpeechInterval is the pause between two speech captures.
	SpeechInterval time.Duration
	Capture        config.Capture
	AudioDir       string

	// WriteAudio stores each speech capture as a file, for producers that
	// read it.
	WriteAudio bool
}
