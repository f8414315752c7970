package heartrate

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
)

// Classifier maps a heart rate to an emotion using fixed BPM bands. Inside a
// band the label and the confidence are drawn at random.
type Classifier struct {
	bands config.Bands
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewClassifier(bands config.Bands, seed uint64, clock func() time.Time) *Classifier {
	if clock == nil {
		clock = time.Now
	}
	return &Classifier{
		bands: bands,
		now:   clock,
		rng:   rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// Classify returns the band label and confidence for bpm.
func (c *Classifier) Classify(bpm int) (emotion.Label, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pick := func(a, b emotion.Label) emotion.Label {
		if c.rng.Float64() > 0.5 {
			return a
		}
		return b
	}

	switch {
	case bpm > c.bands.High:
		return pick(emotion.Fearful, emotion.Surprised), 0.75 + c.rng.Float64()*0.15

	case bpm > c.bands.Elevated:
		return pick(emotion.Happy, emotion.Angry), 0.70 + c.rng.Float64()*0.15

	case bpm < c.bands.Low:
		return pick(emotion.Calm, emotion.Sad), 0.65 + c.rng.Float64()*0.15

	default:
		return emotion.Neutral, 0.60 + c.rng.Float64()*0.20
	}
}

// PredictHeartRate classifies bpm. variability is carried through but does
// not affect the label.
func (c *Classifier) PredictHeartRate(ctx context.Context, bpm int, variability float64) (emotion.HeartRateResult, error) {
	if err := ctx.Err(); err != nil {
		return emotion.HeartRateResult{}, err
	}

	label, confidence := c.Classify(bpm)

	return emotion.HeartRateResult{
		Label:       label,
		Confidence:  confidence,
		HeartRate:   bpm,
		Variability: variability,
		Timestamp:   c.now(),
	}, nil
}
