package emotion

import (
	"fmt"
	"time"
)

// Source discriminates the result variants.
type Source string

const (
	SourceSpeech    Source = "speech"
	SourceHeartRate Source = "heart_rate"
	SourceFusion    Source = "fusion"
)

var Sources = [...]Source{SourceSpeech, SourceHeartRate, SourceFusion}

func ParseSource(s string) (Source, error) {
	for _, v := range Sources {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("emotion: unknown source %q", s)
}

// Result is implemented only by SpeechResult, HeartRateResult and
// FusionResult.
type Result interface {
	Source() Source
	Estimate() Estimate
	isResult()
}

type SpeechResult struct {
	Label         Label         `json:"emotion"`
	Confidence    float64       `json:"confidence"`
	Probabilities Distribution  `json:"probabilities"`
	AudioPath     string        `json:"audio_path"`
	Duration      time.Duration `json:"duration"`
}

func (SpeechResult) Source() Source { return SourceSpeech }
func (SpeechResult) isResult()      {}

func (r SpeechResult) Estimate() Estimate {
	return Estimate{Label: r.Label, Confidence: r.Confidence, Distribution: r.Probabilities}
}

type HeartRateResult struct {
	Label       Label     `json:"emotion"`
	Confidence  float64   `json:"confidence"`
	HeartRate   int       `json:"heart_rate"`
	Variability float64   `json:"variability"`
	Timestamp   time.Time `json:"timestamp"`
}

func (HeartRateResult) Source() Source { return SourceHeartRate }
func (HeartRateResult) isResult()      {}

func (r HeartRateResult) Estimate() Estimate {
	return Estimate{Label: r.Label, Confidence: r.Confidence}
}

// FusionResult combines a speech and a heart-rate estimate. The two
// contributions are diagnostic and need not add up to Confidence.
type FusionResult struct {
	Label                 Label   `json:"emotion"`
	Confidence            float64 `json:"confidence"`
	SpeechContribution    float64 `json:"speech_contribution"`
	HeartRateContribution float64 `json:"heart_rate_contribution"`
	FusionScore           float64 `json:"fusion_score"`
}

func (FusionResult) Source() Source { return SourceFusion }
func (FusionResult) isResult()      {}

func (r FusionResult) Estimate() Estimate {
	return Estimate{Label: r.Label, Confidence: r.Confidence}
}
