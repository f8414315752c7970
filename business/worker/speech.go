package worker

import (
	"context"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
)

// speechOperation records a speech window every SpeechInterval, predicts its
// emotion and hands the result to fusion and history.
func (w *Worker) speechOperation() {
	w.logger.Infow("worker: speechOperation: G started")
	defer w.logger.Infow("worker: speechOperation: G completed")

	interval := time.NewTicker(w.config.SpeechInterval)
	defer interval.Stop()

	w.logger.Infow("worker: speechOperation: G listening")
	for {
		select {
		case <-interval.C:
			if !w.state.Get(state.Recorder) {
				continue
			}

			result, ok := w.captureSpeech()
			if !ok {
				continue
			}

			offer(w.speechCh, result)
			if !send[emotion.Result](w, w.historyCh, result) {
				return
			}

		case <-w.shut:
			w.logger.Infow("worker: speechOperation: received shut signal")
			return
		}
	}
}

func (w *Worker) captureSpeech() (emotion.SpeechResult, bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.recorder.Start(ctx); err != nil {
		w.logger.Errorw("worker: speechOperation: recorder.Start", "ERROR", err)
		return emotion.SpeechResult{}, false
	}

	window := time.NewTimer(w.config.Capture.SpeechWindow())
	defer window.Stop()

	select {
	case <-window.C:
	case <-w.shut:
		w.recorder.Cleanup()
		return emotion.SpeechResult{}, false
	}

	rec, err := w.recorder.Stop()
	if err != nil {
		w.logger.Errorw("worker: speechOperation: recorder.Stop", "ERROR", err)
		return emotion.SpeechResult{}, false
	}

	result, err := w.analyzer.PredictSpeech(ctx, rec.URI)
	if err != nil {
		w.logger.Errorw("worker: speechOperation", "ERROR", err)
		return emotion.SpeechResult{}, false
	}
	result.Duration = rec.Duration

	w.logger.Infow("worker: speechOperation:", "emotion", result.Label, "confidence", result.Confidence)
	return result, true
}
