package speech

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotRecording     = errors.New("speech: no active recording to stop")
	ErrAlreadyRecording = errors.New("speech: recording already in progress")
)

// Recording describes a finished capture.
type Recording struct {
	URI      string        `json:"uri"`
	Duration time.Duration `json:"duration"`
	Size     int64         `json:"size"`
}

type RecorderOptions struct {
	AudioDir string
	// WriteAudio makes Stop write a silent WAV file at the recording URI.
	WriteAudio bool
	Clock      func() time.Time
	Logger     *zap.SugaredLogger
}

// Recorder simulates a microphone capture. It produces a URI and timing
// information; with WriteAudio the URI also names a silent WAV file.
type Recorder struct {
	mu     sync.Mutex
	dir    string
	write  bool
	now    func() time.Time
	logger *zap.SugaredLogger

	recording bool
	paused    bool
	startTime time.Time
	pausedAt  time.Time
	pausedFor time.Duration
	uri       string
}

func NewRecorder(opts RecorderOptions) *Recorder {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Recorder{
		dir:    opts.AudioDir,
		write:  opts.WriteAudio,
		now:    now,
		logger: logger,
	}
}

// RequestPermissions always grants microphone access.
func (r *Recorder) RequestPermissions(context.Context) (bool, error) {
	return true, nil
}

func (r *Recorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return ErrAlreadyRecording
	}

	r.recording = true
	r.paused = false
	r.pausedFor = 0
	r.startTime = r.now()
	r.uri = filepath.Join(r.dir, fmt.Sprintf("simulated_recording_%d.wav", r.startTime.UnixMilli()))

	r.logger.Infow("speech: recorder: started", "uri", r.uri)
	return nil
}

func (r *Recorder) Stop() (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return Recording{}, ErrNotRecording
	}

	duration := r.elapsed()
	r.recording = false
	r.paused = false

	rec := Recording{
		URI:      r.uri,
		Duration: duration,
		Size:     int64(float64(duration.Milliseconds()) * 0.1),
	}

	if r.write {
		size, err := writeSilence(rec.URI, duration)
		if err != nil {
			return Recording{}, fmt.Errorf("speech: recorder: write %s: %w", rec.URI, err)
		}
		rec.Size = size
	}

	r.logger.Infow("speech: recorder: stopped", "uri", rec.URI, "duration", rec.Duration)
	return rec, nil
}

// Duration returns the captured time so far, 0 when idle.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return 0
	}
	return r.elapsed()
}

func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return ErrNotRecording
	}
	if !r.paused {
		r.paused = true
		r.pausedAt = r.now()
		r.logger.Infow("speech: recorder: paused")
	}
	return nil
}

func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return ErrNotRecording
	}
	if r.paused {
		r.pausedFor += r.now().Sub(r.pausedAt)
		r.paused = false
		r.logger.Infow("speech: recorder: resumed")
	}
	return nil
}

func (r *Recorder) Play(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.logger.Infow("speech: recorder: playing", "uri", uri)
	return nil
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Cleanup drops any in-flight recording.
func (r *Recorder) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recording = false
	r.paused = false
	r.pausedFor = 0
	r.startTime = time.Time{}
	r.uri = ""
}

// elapsed must be called with r.mu held.
func (r *Recorder) elapsed() time.Duration {
	now := r.now()
	d := now.Sub(r.startTime) - r.pausedFor
	if r.paused {
		d -= now.Sub(r.pausedAt)
	}
	return d
}
