package heartrate

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/superfeelapi/goEmotionFusion/foundation/config"
	"github.com/superfeelapi/goEmotionFusion/foundation/pubsub"
	"go.uber.org/zap"
)

const readingTopic = "heartRate"

var ErrPermissionDenied = errors.New("heartrate: monitoring permission not granted")

// Authorizer asks the platform for body-sensor access.
type Authorizer func(ctx context.Context, p Platform) (bool, error)

// DefaultAuthorizer grants access on Android and iOS only.
func DefaultAuthorizer(_ context.Context, p Platform) (bool, error) {
	return p == Android || p == IOS, nil
}

type MonitorOptions struct {
	Simulator  config.Simulator
	Platform   Platform
	Authorizer Authorizer
	Seed       uint64
	Clock      func() time.Time
	Logger     *zap.SugaredLogger
}

// Monitor simulates a wearable heart-rate sensor. Readings are fanned out to
// subscribers through bounded, drop-oldest channels.
type Monitor struct {
	sim       config.Simulator
	platform  Platform
	authorize Authorizer
	now       func() time.Time
	logger    *zap.SugaredLogger
	broker    *pubsub.Broker[Reading]

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	users   int
	pinned  bool
	current int
}

func NewMonitor(opts MonitorOptions) *Monitor {
	if opts.Authorizer == nil {
		opts.Authorizer = DefaultAuthorizer
	}
	if opts.Platform == "" {
		opts.Platform = Android
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Simulator.IntervalMillis <= 0 {
		opts.Simulator = config.DefaultProfile().Simulator
	}

	return &Monitor{
		sim:       opts.Simulator,
		platform:  opts.Platform,
		authorize: opts.Authorizer,
		now:       opts.Clock,
		logger:    opts.Logger,
		broker:    pubsub.NewBroker[Reading](),
		rng:       rand.New(rand.NewPCG(opts.Seed, opts.Seed+7)),
	}
}

func (m *Monitor) RequestPermissions(ctx context.Context) (bool, error) {
	ok, err := m.authorize(ctx, m.platform)
	if err != nil {
		m.logger.Errorw("heartrate: monitor: permissions", "ERROR", err)
		return false, nil
	}
	return ok, nil
}

// Start pins the monitor on: readings are emitted, one immediately and then
// one per interval, until Stop is called and no subscriber remains. Starting
// a pinned monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.authorized(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pinned {
		return nil
	}
	m.pinned = true
	m.startLocked()
	return nil
}

// Stop releases the pin taken by Start. Sampling halts once no subscriber
// holds the monitor either; Stop then waits for the sampling goroutine.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.pinned {
		m.mu.Unlock()
		return
	}
	m.pinned = false
	done := m.stopIdleLocked()
	m.mu.Unlock()

	m.await(done)
}

func (m *Monitor) IsMonitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// Current returns the most recent heart rate, 0 before the first reading.
func (m *Monitor) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe returns a subscription buffering up to capacity readings and
// keeps the monitor sampling until every subscription is released.
// capacity < 1 uses the simulator buffer size.
func (m *Monitor) Subscribe(ctx context.Context, capacity int) (*Subscription, error) {
	if err := m.authorized(ctx); err != nil {
		return nil, err
	}
	if capacity < 1 {
		capacity = m.sim.BufferSize
	}

	sub := pubsub.NewSubscriber[Reading](capacity)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.broker.Subscribe(readingTopic, sub)
	m.users++
	m.startLocked()

	return &Subscription{monitor: m, sub: sub}, nil
}

// History returns simulated past readings between start and end: five per
// day, at most fifty, spaced four hours apart.
func (m *Monitor) History(start, end time.Time) []Reading {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	n := min(days*5, 50)

	m.rngMu.Lock()
	defer m.rngMu.Unlock()

	out := make([]Reading, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, Reading{
			HeartRate:   int(math.Floor(65 + m.rng.Float64()*30)),
			Timestamp:   start.Add(time.Duration(i) * 4 * time.Hour),
			Variability: m.rng.Float64()*50 + 20,
			Source:      m.platform.Source(),
		})
	}
	return out
}

func (m *Monitor) ConnectGoogleFit(context.Context) (bool, error) {
	return true, nil
}

func (m *Monitor) ConnectAppleHealth(context.Context) (bool, error) {
	return true, nil
}

// =================================================================================================================

func (m *Monitor) authorized(ctx context.Context) error {
	ok, err := m.RequestPermissions(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// startLocked launches the sampling goroutine unless it is running.
func (m *Monitor) startLocked() {
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx, m.done)

	m.logger.Infow("heartrate: monitor: started", "platform", m.platform, "interval", m.sim.Interval())
}

// stopIdleLocked cancels sampling when nothing holds the monitor and returns
// the channel closed once the goroutine exits.
func (m *Monitor) stopIdleLocked() chan struct{} {
	if m.users > 0 || m.pinned || m.cancel == nil {
		return nil
	}

	m.cancel()
	done := m.done
	m.cancel, m.done = nil, nil
	return done
}

func (m *Monitor) await(done chan struct{}) {
	if done == nil {
		return
	}
	<-done
	m.logger.Infow("heartrate: monitor: stopped")
}

func (m *Monitor) release(sub *pubsub.Subscriber[Reading]) {
	m.mu.Lock()
	_ = m.broker.UnSubscribe(readingTopic, sub)
	m.users--
	done := m.stopIdleLocked()
	m.mu.Unlock()

	m.await(done)
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.sim.Interval())
	defer ticker.Stop()

	for {
		m.emit()

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) emit() {
	m.rngMu.Lock()
	bpm := int(math.Floor(float64(m.sim.BaseHeartRate) + (m.rng.Float64()-0.5)*float64(m.sim.Variation)))
	variability := m.rng.Float64()*50 + 20
	m.rngMu.Unlock()

	r := Reading{
		HeartRate:   bpm,
		Timestamp:   m.now(),
		Variability: variability,
		Source:      m.platform.Source(),
	}

	m.mu.Lock()
	m.current = bpm
	m.mu.Unlock()

	// No subscribers is fine; readings are simply not delivered.
	_, _ = m.broker.Publish(readingTopic, r)
}

// =================================================================================================================

// Subscription is a live feed of readings. Unsubscribe closes C and releases
// the subscription's hold on the monitor.
type Subscription struct {
	monitor *Monitor
	sub     *pubsub.Subscriber[Reading]
	once    sync.Once
}

func (s *Subscription) C() <-chan Reading {
	return s.sub.GetChannel()
}

// Dropped reports readings discarded because the reader fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.sub.Dropped()
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.monitor.release(s.sub)
	})
}
