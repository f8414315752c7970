package session_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/session"
	"github.com/superfeelapi/goEmotionFusion/business/speech"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
	"github.com/superfeelapi/goEmotionFusion/foundation/external/voiceAnalysis"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
)

type memorySink struct {
	mu      sync.Mutex
	records []emotion.Record
	err     error
}

func (m *memorySink) Save(_ context.Context, rec emotion.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func deps(sink *memorySink, monitor *heartrate.Monitor) session.Deps {
	profile := config.DefaultProfile()
	profile.Capture.SpeechWindowMillis = 10
	profile.Capture.HeartRateWindowMillis = 60

	return session.Deps{
		Analyzer: analysis.New(speech.NewSimulator(1, nil), heartrate.NewClassifier(profile.Bands, 1, nil), nil),
		Monitor:  monitor,
		History:  sink,
		State:    state.NewState(),
		Capture:  profile.Capture,
		AudioDir: "audio",
	}
}

func newMonitor() *heartrate.Monitor {
	sim := config.DefaultProfile().Simulator
	sim.IntervalMillis = 5
	return heartrate.NewMonitor(heartrate.MonitorOptions{Simulator: sim, Seed: 9})
}

func TestSpeechSession(t *testing.T) {
	sink := &memorySink{}
	s, err := session.New(emotion.SourceSpeech, deps(sink, nil))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	r, ok := out.Result.(emotion.SpeechResult)
	if !ok {
		t.Fatalf("result type %T", out.Result)
	}
	if r.Duration < 10*time.Millisecond {
		t.Fatalf("duration = %v", r.Duration)
	}
	if len(sink.records) != 1 {
		t.Fatalf("saved %d records", len(sink.records))
	}

	rec := sink.records[0]
	if rec.ID == "" || rec.ID != out.Record.ID || rec.Source != emotion.SourceSpeech {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Metadata.AudioPath != r.AudioPath || len(rec.Metadata.Probabilities) != len(emotion.Labels) {
		t.Fatalf("metadata = %+v", rec.Metadata)
	}
}

// fileVoice answers like the voice-emotion API, but only for files that
// exist.
type fileVoice struct{}

func (fileVoice) VoiceEmotion(_ context.Context, path string) (voiceAnalysis.Result, error) {
	if _, err := os.Stat(path); err != nil {
		return voiceAnalysis.Result{}, err
	}
	return voiceAnalysis.Result{
		Percentage:  []voiceAnalysis.EmotionPercentage{{Happy: 0.7, Neutral: 0.3}},
		AudioLength: 0.01,
	}, nil
}

func TestRemoteSpeechSession(t *testing.T) {
	profile := config.DefaultProfile()
	remote := analysis.New(speech.NewRemote(fileVoice{}), heartrate.NewClassifier(profile.Bands, 1, nil), nil)

	t.Run("recording written", func(t *testing.T) {
		d := deps(&memorySink{}, nil)
		d.Analyzer = remote
		d.AudioDir = t.TempDir()
		d.WriteAudio = true

		s, err := session.New(emotion.SourceSpeech, d)
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		out, err := s.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		r := out.Result.(emotion.SpeechResult)
		if r.Label != emotion.Happy {
			t.Fatalf("label = %s", r.Label)
		}
		if _, err := os.Stat(r.AudioPath); err != nil {
			t.Fatalf("recording not on disk: %v", err)
		}
	})

	t.Run("recording not written", func(t *testing.T) {
		d := deps(&memorySink{}, nil)
		d.Analyzer = remote
		d.AudioDir = t.TempDir()

		s, err := session.New(emotion.SourceSpeech, d)
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		if _, err := s.Run(context.Background()); !errors.Is(err, analysis.ErrIncomplete) {
			t.Fatalf("expected ErrIncomplete, got %v", err)
		}
	})
}

func TestHeartRateSession(t *testing.T) {
	sink := &memorySink{}
	m := newMonitor()

	s, err := session.New(emotion.SourceHeartRate, deps(sink, m))
	if err != nil {
		t.Fatal(err)
	}

	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	r, ok := out.Result.(emotion.HeartRateResult)
	if !ok {
		t.Fatalf("result type %T", out.Result)
	}
	if r.HeartRate < 62 || r.HeartRate > 77 {
		t.Fatalf("heart rate %d not from the monitor", r.HeartRate)
	}
	if r.Variability < 20 || r.Variability >= 70 {
		t.Fatalf("variability %v not reported by the sensor", r.Variability)
	}

	if !m.IsMonitoring() {
		t.Fatal("monitor should run until the session closes")
	}
	s.Close()
	s.Close()
	if m.IsMonitoring() {
		t.Fatal("monitor should stop once the session releases it")
	}

	if _, err := s.Run(context.Background()); !errors.Is(err, session.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSessionSharesMonitor(t *testing.T) {
	m := newMonitor()

	other, err := m.Subscribe(context.Background(), 64)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Unsubscribe()

	s, err := session.New(emotion.SourceHeartRate, deps(&memorySink{}, m))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	if !m.IsMonitoring() {
		t.Fatal("closing the session stopped a monitor still in use")
	}

	for len(other.C()) > 0 {
		<-other.C()
	}
	select {
	case <-other.C():
	case <-time.After(2 * time.Second):
		t.Fatal("other subscriber stopped receiving readings")
	}
}

func TestConcurrentHeartRateSessions(t *testing.T) {
	m := newMonitor()
	sink := &memorySink{}

	var wg sync.WaitGroup
	errs := make(chan error, 4)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			s, err := session.New(emotion.SourceHeartRate, deps(sink, m))
			if err != nil {
				errs <- err
				return
			}
			defer s.Close()

			out, err := s.Run(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if hr := out.Result.(emotion.HeartRateResult); hr.Variability < 20 || hr.Variability >= 70 {
				errs <- errors.New("session fell back instead of reading the monitor")
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	if m.IsMonitoring() {
		t.Fatal("monitor should stop after the last session closes")
	}
}

func TestFusionSessionFallback(t *testing.T) {
	sink := &memorySink{}
	d := deps(sink, newMonitor())
	d.State.Set(state.Monitor, false)

	s, err := session.New(emotion.SourceFusion, d)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.Result.(emotion.FusionResult); !ok {
		t.Fatalf("result type %T", out.Result)
	}

	md := out.Record.Metadata
	if md.HeartRate != 75 || md.Variability != 35 {
		t.Fatalf("fallback not used: %+v", md)
	}
	if md.AudioPath == "" || md.SpeechContribution == 0 || md.HeartRateContribution == 0 {
		t.Fatalf("metadata = %+v", md)
	}
}

func TestSessionErrors(t *testing.T) {
	if _, err := session.New("video", deps(&memorySink{}, nil)); err == nil {
		t.Fatal("expected unknown source error")
	}

	t.Run("recorder disabled", func(t *testing.T) {
		d := deps(&memorySink{}, nil)
		d.State.Set(state.Recorder, false)

		s, err := session.New(emotion.SourceSpeech, d)
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		_, err = s.Run(context.Background())
		if !errors.Is(err, analysis.ErrIncomplete) || !errors.Is(err, session.ErrRecorderDisabled) {
			t.Fatalf("expected ErrIncomplete, got %v", err)
		}
	})

	t.Run("sensor unavailable", func(t *testing.T) {
		sim := config.DefaultProfile().Simulator
		sim.IntervalMillis = 5
		web := heartrate.NewMonitor(heartrate.MonitorOptions{Simulator: sim, Platform: "web"})

		for _, source := range []emotion.Source{emotion.SourceHeartRate, emotion.SourceFusion} {
			s, err := session.New(source, deps(&memorySink{}, web))
			if err != nil {
				t.Fatal(err)
			}

			_, err = s.Run(context.Background())
			s.Close()
			if !errors.Is(err, analysis.ErrIncomplete) || !errors.Is(err, heartrate.ErrPermissionDenied) {
				t.Fatalf("%s: expected ErrIncomplete, got %v", source, err)
			}
		}
	})

	t.Run("save failure is not fatal", func(t *testing.T) {
		sink := &memorySink{err: errors.New("disk full")}
		s, err := session.New(emotion.SourceSpeech, deps(sink, nil))
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		out, err := s.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if out.Result == nil || out.Record.ID != "" {
			t.Fatalf("outcome = %+v", out)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		s, err := session.New(emotion.SourceSpeech, deps(&memorySink{}, nil))
		if err != nil {
			t.Fatal(err)
		}
		defer s.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
