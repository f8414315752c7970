// Package session runs timed capture flows: record and/or monitor for a
// window, predict, then save the outcome to history. A Session is created
// per capture and must be closed.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/history"
	"github.com/superfeelapi/goEmotionFusion/business/speech"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
	"go.uber.org/zap"
)

var (
	ErrClosed           = errors.New("session: closed")
	ErrRecorderDisabled = errors.New("session: recorder disabled")
)

type Deps struct {
	Analyzer *analysis.Analyzer
	Monitor  *heartrate.Monitor
	History  history.Sink
	State    *state.State
	Capture  config.Capture
	AudioDir string
	Clock    func() time.Time
	Logger   *zap.SugaredLogger

	// WriteAudio stores each recording as a file, for producers that read it.
	WriteAudio bool
}

// Outcome is what a capture produced. Record is empty when saving failed.
type Outcome struct {
	Result emotion.Result `json:"result"`
	Record emotion.Record `json:"record"`
}

type Session struct {
	source emotion.Source
	deps   Deps

	recorder *speech.Recorder
	sub      *heartrate.Subscription

	// inputs of a fusion capture, merged into its record.
	inputs emotion.Metadata

	mu     sync.Mutex
	closed bool
}

func New(source emotion.Source, d Deps) (*Session, error) {
	if _, err := emotion.ParseSource(string(source)); err != nil {
		return nil, err
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.State == nil {
		d.State = state.NewState()
	}

	s := Session{
		source: source,
		deps:   d,
	}

	if source != emotion.SourceHeartRate {
		s.recorder = speech.NewRecorder(speech.RecorderOptions{
			AudioDir:   d.AudioDir,
			WriteAudio: d.WriteAudio,
			Clock:      d.Clock,
			Logger:     d.Logger,
		})
	}

	return &s, nil
}

func (s *Session) Source() emotion.Source {
	return s.source
}

// Run performs the capture. A Session runs at most once.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, ErrClosed
	}
	s.mu.Unlock()

	s.deps.Logger.Infow("session: Run: started", "source", s.source)
	defer s.deps.Logger.Infow("session: Run: completed", "source", s.source)

	var (
		r   emotion.Result
		err error
	)

	switch s.source {
	case emotion.SourceSpeech:
		r, err = s.runSpeech(ctx)

	case emotion.SourceHeartRate:
		r, err = s.runHeartRate(ctx)

	case emotion.SourceFusion:
		r, err = s.runFusion(ctx)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("session: %s: %w", s.source, err)
	}

	return Outcome{Result: r, Record: s.save(ctx, r)}, nil
}

// Close releases the recorder and the session's hold on the monitor. Close
// is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.recorder != nil {
		s.recorder.Cleanup()
	}
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}

// =================================================================================================================

func (s *Session) runSpeech(ctx context.Context) (emotion.Result, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return nil, err
	}

	r, err := s.deps.Analyzer.PredictSpeech(ctx, rec.URI)
	if err != nil {
		return nil, err
	}
	r.Duration = rec.Duration
	return r, nil
}

func (s *Session) runHeartRate(ctx context.Context) (emotion.Result, error) {
	bpm, variability, err := s.monitor(ctx)
	if err != nil {
		return nil, err
	}

	return s.deps.Analyzer.PredictHeartRate(ctx, bpm, variability)
}

// runFusion monitors the heart rate for its window, then records speech
// for its window, then fuses both.
func (s *Session) runFusion(ctx context.Context) (emotion.Result, error) {
	bpm, variability, err := s.monitor(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.record(ctx)
	if err != nil {
		return nil, err
	}

	s.inputs = emotion.Metadata{
		AudioPath:   rec.URI,
		Duration:    rec.Duration.Seconds(),
		HeartRate:   bpm,
		Variability: variability,
	}

	return s.deps.Analyzer.PredictFusion(ctx, rec.URI, bpm, variability)
}

func (s *Session) record(ctx context.Context) (speech.Recording, error) {
	if !s.deps.State.Get(state.Recorder) {
		return speech.Recording{}, analysis.Incomplete("recording", ErrRecorderDisabled)
	}

	if err := s.recorder.Start(ctx); err != nil {
		return speech.Recording{}, analysis.Incomplete("recording", err)
	}

	if err := wait(ctx, s.deps.Capture.SpeechWindow()); err != nil {
		s.recorder.Cleanup()
		return speech.Recording{}, err
	}

	rec, err := s.recorder.Stop()
	if err != nil {
		return speech.Recording{}, analysis.Incomplete("recording", err)
	}
	return rec, nil
}

// monitor holds the shared monitor for the heart-rate window and returns the
// last reading's heart rate and variability. Without readings it falls back
// to the configured defaults.
func (s *Session) monitor(ctx context.Context) (int, float64, error) {
	bpm, variability := s.deps.Capture.FallbackHeartRate, s.deps.Capture.FallbackVariability

	if s.deps.Monitor == nil || !s.deps.State.Get(state.Monitor) {
		s.deps.Logger.Infow("session: monitor: using fallback", "heart_rate", bpm, "variability", variability)
		return bpm, variability, nil
	}

	sub, err := s.deps.Monitor.Subscribe(ctx, 0)
	if err != nil {
		return 0, 0, analysis.Incomplete("heart rate monitor", err)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	var (
		last heartrate.Reading
		seen bool
	)

	timer := time.NewTimer(s.deps.Capture.HeartRateWindow())
	defer timer.Stop()

loop:
	for {
		select {
		case r, ok := <-sub.C():
			if !ok {
				break loop
			}
			last, seen = r, true

		case <-timer.C:
			break loop

		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}

	if !seen {
		s.deps.Logger.Infow("session: monitor: no readings, using fallback", "heart_rate", bpm, "variability", variability)
		return bpm, variability, nil
	}
	return last.HeartRate, last.Variability, nil
}

func (s *Session) save(ctx context.Context, r emotion.Result) emotion.Record {
	if s.deps.History == nil {
		return emotion.Record{}
	}

	rec := emotion.NewRecord(history.SimulatedUserID, r, s.deps.Clock())
	rec.ID = uuid.NewString()

	if s.source == emotion.SourceFusion {
		rec.Metadata = rec.Metadata.WithInputs(s.inputs)
	}

	if err := s.deps.History.Save(ctx, rec); err != nil {
		s.deps.Logger.Errorw("session: save", "source", s.source, "ERROR", err)
		return emotion.Record{}
	}
	return rec
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
