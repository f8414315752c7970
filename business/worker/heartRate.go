package worker

import (
	"context"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
)

// heartRateOperation classifies the monitor readings once per heart-rate
// window and hands the latest result to fusion and history.
func (w *Worker) heartRateOperation() {
	w.logger.Infow("worker: heartRateOperation: G started")
	defer w.logger.Infow("worker: heartRateOperation: G completed")

	if w.monitor == nil || !w.state.Get(state.Monitor) {
		w.logger.Infow("worker: heartRateOperation: monitor disabled")
		return
	}

	sub, err := w.monitor.Subscribe(context.Background(), 0)
	if err != nil {
		w.logger.Errorw("worker: heartRateOperation: monitor.Subscribe", "ERROR", err)
		w.state.Set(state.Monitor, false)
		return
	}
	defer sub.Unsubscribe()

	window := time.NewTicker(w.config.Capture.HeartRateWindow())
	defer window.Stop()

	var readings []int

	w.logger.Infow("worker: heartRateOperation: G listening")
	for {
		select {
		case reading, ok := <-sub.C():
			if !ok {
				return
			}
			readings = append(readings, reading.HeartRate)

		case <-window.C:
			if len(readings) == 0 || !w.state.Get(state.Monitor) {
				continue
			}

			bpm := readings[len(readings)-1]
			variability := heartrate.Variability(readings)
			readings = readings[:0]

			result, err := w.analyzer.PredictHeartRate(context.Background(), bpm, variability)
			if err != nil {
				w.logger.Errorw("worker: heartRateOperation", "ERROR", err)
				continue
			}

			offer(w.heartRateCh, result)
			if !send[emotion.Result](w, w.historyCh, result) {
				return
			}

		case <-w.shut:
			w.logger.Infow("worker: heartRateOperation: received shut signal")
			return
		}
	}
}
