package worker

import (
	"context"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/fusion"
)

// fusionOperation fuses every speech result with the latest heart-rate
// result. Until a heart-rate result arrives the configured fallback heart
// rate is classified instead.
func (w *Worker) fusionOperation() {
	w.logger.Infow("worker: fusionOperation: G started")
	defer w.logger.Infow("worker: fusionOperation: G completed")

	var (
		latest emotion.HeartRateResult
		known  bool
	)

	w.logger.Infow("worker: fusionOperation: G listening")
	for {
		select {
		case hr := <-w.heartRateCh:
			latest, known = hr, true

		case sp := <-w.speechCh:
			if !known {
				hr, ok := w.fallbackHeartRate()
				if !ok {
					continue
				}
				latest = hr
			}

			result := fusion.Score(sp.Estimate(), latest.Estimate())
			w.logger.Infow("worker: fusionOperation:",
				"emotion", result.Label,
				"confidence", result.Confidence,
				"speech", sp.Label,
				"heart_rate", latest.Label,
				"heart_rate_age", time.Since(latest.Timestamp).Round(time.Millisecond),
			)

			if !send[emotion.Result](w, w.historyCh, result) {
				return
			}

		case <-w.shut:
			w.logger.Infow("worker: fusionOperation: received shut signal")
			return
		}
	}
}

func (w *Worker) fallbackHeartRate() (emotion.HeartRateResult, bool) {
	c := w.config.Capture
	hr, err := w.analyzer.PredictHeartRate(context.Background(), c.FallbackHeartRate, c.FallbackVariability)
	if err != nil {
		w.logger.Errorw("worker: fusionOperation: fallback", "ERROR", err)
		return emotion.HeartRateResult{}, false
	}
	return hr, true
}
