// Package worker runs the continuous analysis pipeline: heart-rate
// classification, periodic speech captures, fusion of the two and history
// persistence, each in its own goroutine connected by channels.
package worker

import (
	"sync"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/history"
	"github.com/superfeelapi/goEmotionFusion/business/speech"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
	"github.com/superfeelapi/goEmotionFusion/foundation/redis"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
	"go.uber.org/zap"
)

const defaultSpeechInterval = 30 * time.Second

type Worker struct {
	config   Config
	state    *state.State
	logger   *zap.SugaredLogger
	analyzer *analysis.Analyzer
	monitor  *heartrate.Monitor
	history  history.Sink
	redis    *redis.Redis
	recorder *speech.Recorder

	wg       sync.WaitGroup
	shut     chan struct{}
	error    chan error
	shutOnce sync.Once

	heartRateCh chan emotion.HeartRateResult
	speechCh    chan emotion.SpeechResult
	historyCh   chan emotion.Result
}

// Run starts every operation and returns once they are all running.
func Run(s Settings) *Worker {
	if s.Logger == nil {
		s.Logger = zap.NewNop().Sugar()
	}
	if s.State == nil {
		s.State = state.NewState()
	}
	if s.UserID == "" {
		s.UserID = history.SimulatedUserID
	}
	if s.SpeechInterval <= 0 {
		s.SpeechInterval = defaultSpeechInterval
	}
	if s.Capture.HeartRateWindowMillis <= 0 {
		s.Capture = config.DefaultProfile().Capture
	}

	w := &Worker{
		config:   s.Config,
		state:    s.State,
		logger:   s.Logger,
		analyzer: s.Analyzer,
		monitor:  s.Monitor,
		history:  s.History,
		redis:    s.Redis,
		recorder: speech.NewRecorder(speech.RecorderOptions{
			AudioDir:   s.AudioDir,
			WriteAudio: s.WriteAudio,
			Logger:     s.Logger,
		}),
		shut:        make(chan struct{}),
		error:       make(chan error, 1),
		heartRateCh: make(chan emotion.HeartRateResult, 1),
		speechCh:    make(chan emotion.SpeechResult, 1),
		historyCh:   make(chan emotion.Result, 10),
	}

	operations := []func(){
		w.heartRateOperation,
		w.speechOperation,
		w.fusionOperation,
		w.historyOperation,
	}
	if w.redis != nil {
		operations = append(operations, w.tailOperation)
	}

	g := len(operations)
	w.wg.Add(g)

	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return w
}

// Errors receives the error that stopped the worker, then closes.
func (w *Worker) Errors() <-chan error {
	return w.error
}

// Shutdown stops every operation and waits for them. It must not be called
// from an operation goroutine.
func (w *Worker) Shutdown(err error) {
	w.shutOnce.Do(func() {
		w.logger.Infow("worker: shutdown: started")
		defer w.logger.Infow("worker: shutdown: completed")

		if err != nil {
			w.logger.Errorw("worker: shutdown", "ERROR", err)
		}
		w.logger.Infow("worker: shutdown: terminate goroutines")
		close(w.shut)

		w.wg.Wait()
		w.recorder.Cleanup()

		if err != nil {
			w.error <- err
		}
		close(w.error)
	})
}

// =================================================================================================================

func send[T any](w *Worker, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-w.shut:
		return false
	}
}

// offer replaces any unread value in a one-slot channel with v.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
