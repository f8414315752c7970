package speech

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"go.uber.org/zap"
)

const (
	mfccCoefficients = 40
	mfccFrames       = 174

	simulatedClipDuration = 3500 * time.Millisecond
)

// ExtractMFCC returns a mock 40x174 coefficient matrix with values in [-1, 1).
func ExtractMFCC(rng *rand.Rand) [][]float64 {
	m := make([][]float64, mfccCoefficients)
	for i := range m {
		row := make([]float64, mfccFrames)
		for j := range row {
			row[j] = rng.Float64()*2 - 1
		}
		m[i] = row
	}
	return m
}

// Simulator is a speech producer backed by a random number generator.
type Simulator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *zap.SugaredLogger
}

func NewSimulator(seed uint64, logger *zap.SugaredLogger) *Simulator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Simulator{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger: logger,
	}
}

func (s *Simulator) PredictSpeech(ctx context.Context, audioURI string) (emotion.SpeechResult, error) {
	if err := ctx.Err(); err != nil {
		return emotion.SpeechResult{}, err
	}

	s.mu.Lock()
	mfcc := ExtractMFCC(s.rng)
	probs := s.predict(mfcc)
	s.mu.Unlock()

	label, confidence := probs.Argmax()

	s.logger.Infow("speech: simulator: predicted", "uri", audioURI, "emotion", label, "confidence", confidence)

	return emotion.SpeechResult{
		Label:         label,
		Confidence:    confidence,
		Probabilities: probs,
		AudioPath:     audioURI,
		Duration:      simulatedClipDuration,
	}, nil
}

// predict ignores the features and draws a random normalized distribution.
// It must be called with s.mu held.
func (s *Simulator) predict(_ [][]float64) emotion.Distribution {
	d := make(emotion.Distribution, len(emotion.Labels))
	for _, l := range emotion.Labels {
		d[l] = s.rng.Float64()
	}
	return d.Normalize()
}
