package analysis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/fusion"
)

type fakeSpeech struct {
	result emotion.SpeechResult
	err    error
}

func (f fakeSpeech) PredictSpeech(_ context.Context, uri string) (emotion.SpeechResult, error) {
	r := f.result
	r.AudioPath = uri
	return r, f.err
}

type fakeHeartRate struct {
	result emotion.HeartRateResult
	err    error
}

func (f fakeHeartRate) PredictHeartRate(_ context.Context, bpm int, variability float64) (emotion.HeartRateResult, error) {
	r := f.result
	r.HeartRate, r.Variability = bpm, variability
	return r, f.err
}

func speechResult() emotion.SpeechResult {
	probs := emotion.Distribution{
		emotion.Happy: 0.7, emotion.Sad: 0.05, emotion.Angry: 0.05, emotion.Fearful: 0.05,
		emotion.Disgusted: 0.05, emotion.Surprised: 0.05, emotion.Neutral: 0.03, emotion.Calm: 0.02,
	}
	return emotion.SpeechResult{Label: emotion.Happy, Confidence: 0.7, Probabilities: probs}
}

func TestPredictFusion(t *testing.T) {
	s := speechResult()
	h := emotion.HeartRateResult{Label: emotion.Happy, Confidence: 0.8}

	a := analysis.New(fakeSpeech{result: s}, fakeHeartRate{result: h}, nil)

	got, err := a.PredictFusion(context.Background(), "clip.wav", 90, 30)
	if err != nil {
		t.Fatal(err)
	}

	want := fusion.Score(s.Estimate(), h.Estimate())
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if got.Label != emotion.Happy {
		t.Fatalf("label = %s", got.Label)
	}
}

func TestProducerFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		a    *analysis.Analyzer
		run  func(*analysis.Analyzer) error
	}{
		{
			name: "speech",
			a:    analysis.New(fakeSpeech{err: boom}, fakeHeartRate{}, nil),
			run: func(a *analysis.Analyzer) error {
				_, err := a.PredictSpeech(context.Background(), "clip.wav")
				return err
			},
		},
		{
			name: "heart rate",
			a:    analysis.New(fakeSpeech{}, fakeHeartRate{err: boom}, nil),
			run: func(a *analysis.Analyzer) error {
				_, err := a.PredictHeartRate(context.Background(), 70, 0)
				return err
			},
		},
		{
			name: "fusion speech",
			a:    analysis.New(fakeSpeech{err: boom}, fakeHeartRate{}, nil),
			run: func(a *analysis.Analyzer) error {
				_, err := a.PredictFusion(context.Background(), "clip.wav", 70, 0)
				return err
			},
		},
		{
			name: "fusion heart rate",
			a:    analysis.New(fakeSpeech{result: speechResult()}, fakeHeartRate{err: boom}, nil),
			run: func(a *analysis.Analyzer) error {
				_, err := a.PredictFusion(context.Background(), "clip.wav", 70, 0)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(tt.a)
			if !errors.Is(err, analysis.ErrIncomplete) {
				t.Fatalf("expected ErrIncomplete, got %v", err)
			}
			if !errors.Is(err, boom) {
				t.Fatalf("expected producer error to be wrapped, got %v", err)
			}
		})
	}
}

func TestIncomplete(t *testing.T) {
	err := analysis.Incomplete("recording", errors.New("microphone busy"))
	if !errors.Is(err, analysis.ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}

	for _, cause := range []error{context.Canceled, context.DeadlineExceeded} {
		if err := analysis.Incomplete("recording", cause); errors.Is(err, analysis.ErrIncomplete) || !errors.Is(err, cause) {
			t.Fatalf("%v: got %v", cause, err)
		}
	}
}
