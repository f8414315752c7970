package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/superfeelapi/goEmotionFusion/business/analysis"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/business/history"
	"github.com/superfeelapi/goEmotionFusion/business/speech"
	"github.com/superfeelapi/goEmotionFusion/business/worker"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
	"github.com/superfeelapi/goEmotionFusion/foundation/kv"
	"github.com/superfeelapi/goEmotionFusion/foundation/redis"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
)

type memorySink struct {
	mu      sync.Mutex
	records []emotion.Record
}

func (m *memorySink) Save(_ context.Context, rec emotion.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) sources() map[emotion.Source]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[emotion.Source]int)
	for _, r := range m.records {
		out[r.Source]++
	}
	return out
}

func settings(sink *memorySink, st *state.State) worker.Settings {
	profile := config.DefaultProfile()
	profile.Simulator.IntervalMillis = 5
	profile.Capture.HeartRateWindowMillis = 20
	profile.Capture.SpeechWindowMillis = 5

	return worker.Settings{
		Config: worker.Config{
			SpeechInterval: 15 * time.Millisecond,
			Capture:        profile.Capture,
			AudioDir:       "audio",
		},
		State:    st,
		Analyzer: analysis.New(speech.NewSimulator(5, nil), heartrate.NewClassifier(profile.Bands, 5, nil), nil),
		Monitor:  heartrate.NewMonitor(heartrate.MonitorOptions{Simulator: profile.Simulator, Seed: 5}),
		History:  sink,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPipeline(t *testing.T) {
	sink := &memorySink{}
	s := settings(sink, state.NewState())
	w := worker.Run(s)

	waitFor(t, func() bool {
		got := sink.sources()
		return got[emotion.SourceSpeech] > 0 && got[emotion.SourceHeartRate] > 0 && got[emotion.SourceFusion] > 0
	})

	w.Shutdown(nil)
	w.Shutdown(nil)

	if s.Monitor.IsMonitoring() {
		t.Fatal("monitor should stop with the worker")
	}
	if err, ok := <-w.Errors(); ok {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPipelineWithoutMonitor(t *testing.T) {
	st := state.NewState()
	st.Set(state.Monitor, false)

	sink := &memorySink{}
	w := worker.Run(settings(sink, st))
	defer w.Shutdown(nil)

	waitFor(t, func() bool {
		return sink.sources()[emotion.SourceFusion] > 0
	})

	if n := sink.sources()[emotion.SourceHeartRate]; n != 0 {
		t.Fatalf("heart-rate results without a monitor: %d", n)
	}
}

func TestPipelineTailsRedis(t *testing.T) {
	srv := miniredis.RunT(t)

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core).Sugar()

	rc, err := redis.New(context.Background(), srv.Addr(), "", "emotion:history", log)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	st := state.NewState()
	s := settings(&memorySink{}, st)
	s.Logger = log
	s.Redis = rc
	s.History = history.New(history.Options{
		Store:     kv.NewMemory(),
		Publisher: rc,
		State:     st,
		Logger:    log,
	})

	w := worker.Run(s)

	waitFor(t, func() bool {
		return logs.FilterMessage("worker: tailOperation:").Len() > 0
	})

	w.Shutdown(nil)

	entry := logs.FilterMessage("worker: tailOperation:").All()[0]
	if id, _ := entry.ContextMap()["id"].(string); id == "" {
		t.Fatalf("tailed record fields = %v", entry.ContextMap())
	}
	if !st.Get(state.Redis) {
		t.Fatal("redis toggle should stay on")
	}
	if logs.FilterMessage("worker: tailOperation: G completed").Len() != 1 {
		t.Fatal("tail operation did not stop with the worker")
	}
}
