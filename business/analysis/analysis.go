// Package analysis runs the one-shot prediction flows on top of pluggable
// speech and heart-rate producers.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/fusion"
	"go.uber.org/zap"
)

// ErrIncomplete is returned when a producer fails and the analysis could not
// complete. The producer error is wrapped alongside it.
var ErrIncomplete = errors.New("analysis could not complete")

type SpeechProducer interface {
	PredictSpeech(ctx context.Context, audioURI string) (emotion.SpeechResult, error)
}

type HeartRateProducer interface {
	PredictHeartRate(ctx context.Context, bpm int, variability float64) (emotion.HeartRateResult, error)
}

type Analyzer struct {
	speech    SpeechProducer
	heartRate HeartRateProducer
	logger    *zap.SugaredLogger
}

func New(speech SpeechProducer, heartRate HeartRateProducer, logger *zap.SugaredLogger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Analyzer{
		speech:    speech,
		heartRate: heartRate,
		logger:    logger,
	}
}

func (a *Analyzer) PredictSpeech(ctx context.Context, audioURI string) (emotion.SpeechResult, error) {
	r, err := a.speech.PredictSpeech(ctx, audioURI)
	if err != nil {
		a.logger.Errorw("analysis: PredictSpeech", "audio", audioURI, "ERROR", err)
		return emotion.SpeechResult{}, Incomplete("speech", err)
	}

	a.logger.Infow("analysis: PredictSpeech", "emotion", r.Label, "confidence", r.Confidence)
	return r, nil
}

func (a *Analyzer) PredictHeartRate(ctx context.Context, bpm int, variability float64) (emotion.HeartRateResult, error) {
	r, err := a.heartRate.PredictHeartRate(ctx, bpm, variability)
	if err != nil {
		a.logger.Errorw("analysis: PredictHeartRate", "heart_rate", bpm, "ERROR", err)
		return emotion.HeartRateResult{}, Incomplete("heart rate", err)
	}

	a.logger.Infow("analysis: PredictHeartRate", "emotion", r.Label, "confidence", r.Confidence)
	return r, nil
}

// PredictFusion runs both producers and fuses their estimates.
func (a *Analyzer) PredictFusion(ctx context.Context, audioURI string, bpm int, variability float64) (emotion.FusionResult, error) {
	s, err := a.PredictSpeech(ctx, audioURI)
	if err != nil {
		return emotion.FusionResult{}, err
	}

	h, err := a.PredictHeartRate(ctx, bpm, variability)
	if err != nil {
		return emotion.FusionResult{}, err
	}

	r := fusion.Score(s.Estimate(), h.Estimate())

	a.logger.Infow("analysis: PredictFusion",
		"emotion", r.Label,
		"confidence", r.Confidence,
		"speech", s.Label,
		"heart_rate", h.Label,
	)
	return r, nil
}

// Incomplete marks err, raised while producing the named stage, as
// ErrIncomplete. Context cancellation is returned unchanged.
func Incomplete(stage string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrIncomplete, stage, err)
}
