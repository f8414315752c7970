// Package fusion combines a speech estimate and a heart-rate estimate into
// a single prediction.
//
// The speech weight adapts to the speech confidence:
//
//	wSpeech = 0.55 + (speechConfidence - 0.5) * 0.2
//	wHR     = 1 - wSpeech
//
// Heart rate contributes a pseudo-distribution holding its confidence on its
// own label only. Every label is scored as the weighted sum of both, the
// best label wins with ties going to the speech label, and agreement between
// the two modalities boosts the confidence by 15% up to 0.98.
//
// Score is pure and safe for concurrent use.
package fusion

import (
	"math"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
)

const (
	baseSpeechWeight = 0.55
	confidencePivot  = 0.5
	confidenceGain   = 0.2

	agreementBoost = 1.15
	agreementCap   = 0.98
)

// Weights returns the speech and heart-rate weights for a speech confidence.
func Weights(speechConfidence float64) (wSpeech, wHeartRate float64) {
	wSpeech = baseSpeechWeight + (speechConfidence-confidencePivot)*confidenceGain
	return wSpeech, 1 - wSpeech
}

// Scores returns the fused score of every label.
func Scores(speech, heartRate emotion.Estimate) emotion.Distribution {
	wSpeech, wHeartRate := Weights(speech.Confidence)

	fused := make(emotion.Distribution, len(emotion.Labels))
	for _, l := range emotion.Labels {
		hr := 0.0
		if l == heartRate.Label {
			hr = heartRate.Confidence
		}
		fused[l] = speech.Distribution.Get(l)*wSpeech + hr*wHeartRate
	}
	return fused
}

// Score fuses speech and heartRate. speech.Distribution is expected to
// cover all labels; missing labels count as 0. Inputs are not validated.
func Score(speech, heartRate emotion.Estimate) emotion.FusionResult {
	wSpeech, wHeartRate := Weights(speech.Confidence)
	fused := Scores(speech, heartRate)

	best, bestScore := speech.Label, fused.Get(speech.Label)
	for _, l := range emotion.Labels {
		if s := fused[l]; s > bestScore {
			best, bestScore = l, s
		}
	}

	confidence := bestScore
	if speech.Label == heartRate.Label {
		confidence = math.Min(confidence*agreementBoost, agreementCap)
	}

	return emotion.FusionResult{
		Label:                 best,
		Confidence:            confidence,
		SpeechContribution:    wSpeech * speech.Confidence,
		HeartRateContribution: wHeartRate * heartRate.Confidence,
		FusionScore:           confidence,
	}
}
