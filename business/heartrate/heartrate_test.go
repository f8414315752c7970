package heartrate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/business/heartrate"
	"github.com/superfeelapi/goEmotionFusion/foundation/config"
)

func TestVariability(t *testing.T) {
	tests := []struct {
		name     string
		readings []int
		want     float64
	}{
		{"empty", nil, 0},
		{"single", []int{80}, 0},
		{"steady", []int{70, 70, 70}, 0},
		{"mixed", []int{70, 75, 72, 80}, (5.0 + 3 + 8) / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := heartrate.Variability(tt.readings); got != tt.want {
				t.Fatalf("Variability(%v) = %v, want %v", tt.readings, got, tt.want)
			}
		})
	}
}

func TestClassifier(t *testing.T) {
	c := heartrate.NewClassifier(config.DefaultProfile().Bands, 3, nil)

	tests := []struct {
		bpm    int
		labels []emotion.Label
		lo, hi float64
	}{
		{110, []emotion.Label{emotion.Fearful, emotion.Surprised}, 0.75, 0.90},
		{101, []emotion.Label{emotion.Fearful, emotion.Surprised}, 0.75, 0.90},
		{100, []emotion.Label{emotion.Happy, emotion.Angry}, 0.70, 0.85},
		{90, []emotion.Label{emotion.Happy, emotion.Angry}, 0.70, 0.85},
		{85, []emotion.Label{emotion.Neutral}, 0.60, 0.80},
		{60, []emotion.Label{emotion.Neutral}, 0.60, 0.80},
		{59, []emotion.Label{emotion.Calm, emotion.Sad}, 0.65, 0.80},
		{40, []emotion.Label{emotion.Calm, emotion.Sad}, 0.65, 0.80},
	}

	for _, tt := range tests {
		for i := 0; i < 100; i++ {
			label, conf := c.Classify(tt.bpm)
			found := false
			for _, l := range tt.labels {
				found = found || l == label
			}
			if !found {
				t.Fatalf("bpm %d: label %s not in %v", tt.bpm, label, tt.labels)
			}
			if conf < tt.lo || conf >= tt.hi {
				t.Fatalf("bpm %d: confidence %v outside [%v, %v)", tt.bpm, conf, tt.lo, tt.hi)
			}
		}
	}
}

func TestPredictHeartRate(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := heartrate.NewClassifier(config.DefaultProfile().Bands, 1, func() time.Time { return at })

	r, err := c.PredictHeartRate(context.Background(), 72, 31.5)
	if err != nil {
		t.Fatal(err)
	}
	if r.Label != emotion.Neutral || r.HeartRate != 72 || r.Variability != 31.5 || !r.Timestamp.Equal(at) {
		t.Fatalf("result = %+v", r)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.PredictHeartRate(ctx, 72, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMonitorPermissionDenied(t *testing.T) {
	m := heartrate.NewMonitor(heartrate.MonitorOptions{Platform: "web"})

	if err := m.Start(context.Background()); !errors.Is(err, heartrate.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := m.Subscribe(context.Background(), 1); !errors.Is(err, heartrate.ErrPermissionDenied) {
		t.Fatalf("subscribe: expected ErrPermissionDenied, got %v", err)
	}
	if m.IsMonitoring() {
		t.Fatal("monitor should not be running")
	}

	denied := heartrate.NewMonitor(heartrate.MonitorOptions{
		Authorizer: func(context.Context, heartrate.Platform) (bool, error) {
			return false, errors.New("sensor unavailable")
		},
	})
	if err := denied.Start(context.Background()); !errors.Is(err, heartrate.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func fastMonitor(seed uint64) *heartrate.Monitor {
	sim := config.DefaultProfile().Simulator
	sim.IntervalMillis = 5
	return heartrate.NewMonitor(heartrate.MonitorOptions{Simulator: sim, Platform: heartrate.IOS, Seed: seed})
}

func receive(t *testing.T, sub *heartrate.Subscription) heartrate.Reading {
	t.Helper()

	select {
	case r, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reading")
	}
	return heartrate.Reading{}
}

func TestMonitorStream(t *testing.T) {
	m := fastMonitor(11)

	sub, err := m.Subscribe(context.Background(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsMonitoring() {
		t.Fatal("subscribing should start the monitor")
	}

	for i := 0; i < 3; i++ {
		r := receive(t, sub)
		if r.HeartRate < 62 || r.HeartRate > 77 {
			t.Fatalf("heart rate %d outside simulator range", r.HeartRate)
		}
		if r.Variability < 20 || r.Variability >= 70 {
			t.Fatalf("variability %v outside [20, 70)", r.Variability)
		}
		if r.Source != heartrate.AppleHealth {
			t.Fatalf("source = %s", r.Source)
		}
	}
	if m.Current() == 0 {
		t.Fatal("current heart rate not recorded")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	if m.IsMonitoring() {
		t.Fatal("monitor should stop with its last subscriber")
	}
	for range sub.C() {
	}
}

func TestMonitorSharedSubscribers(t *testing.T) {
	m := fastMonitor(12)
	ctx := context.Background()

	first, err := m.Subscribe(ctx, 64)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Subscribe(ctx, 64)
	if err != nil {
		t.Fatal(err)
	}

	receive(t, first)
	first.Unsubscribe()

	if !m.IsMonitoring() {
		t.Fatal("monitor stopped while a subscriber remains")
	}

	// Drain what was buffered before the first subscriber left.
	for len(second.C()) > 0 {
		<-second.C()
	}
	receive(t, second)

	second.Unsubscribe()
	if m.IsMonitoring() {
		t.Fatal("monitor should stop with its last subscriber")
	}
}

func TestMonitorStartPins(t *testing.T) {
	m := fastMonitor(13)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}

	sub, err := m.Subscribe(ctx, 8)
	if err != nil {
		t.Fatal(err)
	}
	sub.Unsubscribe()

	if !m.IsMonitoring() {
		t.Fatal("pinned monitor stopped when its subscriber left")
	}

	m.Stop()
	m.Stop()
	if m.IsMonitoring() {
		t.Fatal("monitor should be stopped")
	}
}

func TestMonitorHistory(t *testing.T) {
	m := heartrate.NewMonitor(heartrate.MonitorOptions{Seed: 5})
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		days int
		want int
	}{
		{1, 5},
		{3, 15},
		{30, 50},
	}

	for _, tt := range tests {
		got := m.History(start, start.Add(time.Duration(tt.days)*24*time.Hour))
		if len(got) != tt.want {
			t.Fatalf("%d days: got %d readings, want %d", tt.days, len(got), tt.want)
		}
		for i, r := range got {
			if r.HeartRate < 65 || r.HeartRate >= 95 {
				t.Fatalf("heart rate %d outside [65, 95)", r.HeartRate)
			}
			if want := start.Add(time.Duration(i) * 4 * time.Hour); !r.Timestamp.Equal(want) {
				t.Fatalf("timestamp %v, want %v", r.Timestamp, want)
			}
		}
	}
}
