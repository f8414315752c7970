package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/foundation/external/voiceAnalysis"
)

// VoiceAnalyzer is the remote voice-emotion API.
type VoiceAnalyzer interface {
	VoiceEmotion(ctx context.Context, audioPath string) (voiceAnalysis.Result, error)
}

// Remote is a speech producer that delegates to a voice-emotion API.
type Remote struct {
	api VoiceAnalyzer
}

func NewRemote(api VoiceAnalyzer) *Remote {
	return &Remote{api: api}
}

func (r *Remote) PredictSpeech(ctx context.Context, audioURI string) (emotion.SpeechResult, error) {
	resp, err := r.api.VoiceEmotion(ctx, audioURI)
	if err != nil {
		return emotion.SpeechResult{}, fmt.Errorf("speech: remote: %w", err)
	}

	probs, err := distributionOf(resp.Percentage)
	if err != nil {
		return emotion.SpeechResult{}, fmt.Errorf("speech: remote: %w", err)
	}
	label, confidence := probs.Argmax()

	return emotion.SpeechResult{
		Label:         label,
		Confidence:    confidence,
		Probabilities: probs,
		AudioPath:     audioURI,
		Duration:      time.Duration(resp.AudioLength * float64(time.Second)),
	}, nil
}

// distributionOf averages the per-segment percentages and normalizes them.
func distributionOf(segments []voiceAnalysis.EmotionPercentage) (emotion.Distribution, error) {
	if len(segments) == 0 {
		return nil, errors.New("no emotion percentages in response")
	}

	d := make(emotion.Distribution, len(emotion.Labels))
	for _, p := range segments {
		d[emotion.Neutral] += p.Neutral
		d[emotion.Happy] += p.Happy
		d[emotion.Calm] += p.Calm
		d[emotion.Sad] += p.Sad
		d[emotion.Angry] += p.Angry
		d[emotion.Fearful] += p.Fearful
		d[emotion.Disgusted] += p.Disgust
		d[emotion.Surprised] += p.Surprised
	}
	return d.Normalize(), nil
}
