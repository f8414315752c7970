// Package history persists prediction records and summarises them.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/superfeelapi/goEmotionFusion/business/emotion"
	"github.com/superfeelapi/goEmotionFusion/foundation/kv"
	"github.com/superfeelapi/goEmotionFusion/foundation/state"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SimulatedUserID owns every record until real authentication exists.
const SimulatedUserID = "simulated_user_123"

const (
	DefaultLimit = 50

	keyRoot = "history"
)

// Sink accepts records. Callers log a failing Save and carry on.
type Sink interface {
	Save(ctx context.Context, rec emotion.Record) error
}

// Publisher fans saved records out to other consumers.
type Publisher interface {
	Produce(ctx context.Context, data any) error
}

type Options struct {
	Store     kv.Store
	Publisher Publisher
	State     *state.State
	UserID    string
	Clock     func() time.Time
	Logger    *zap.SugaredLogger
}

type Service struct {
	store     kv.Store
	publisher Publisher
	state     *state.State
	userID    string
	now       func() time.Time
	logger    *zap.SugaredLogger
}

func New(opts Options) *Service {
	if opts.UserID == "" {
		opts.UserID = SimulatedUserID
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.State == nil {
		opts.State = state.NewState()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	return &Service{
		store:     opts.Store,
		publisher: opts.Publisher,
		state:     opts.State,
		userID:    opts.UserID,
		now:       opts.Clock,
		logger:    opts.Logger,
	}
}

// Record stores r for the current user and returns the saved record.
func (s *Service) Record(ctx context.Context, r emotion.Result, inputs ...emotion.Metadata) (emotion.Record, error) {
	rec := emotion.NewRecord(s.userID, r, s.now())
	rec.ID = uuid.NewString()
	for _, in := range inputs {
		rec.Metadata = rec.Metadata.WithInputs(in)
	}

	if err := s.Save(ctx, rec); err != nil {
		return emotion.Record{}, err
	}
	return rec, nil
}

// Save stores rec, assigning an ID, user and timestamp when missing. When
// the redis toggle is on the record is also published; a publish failure
// turns the toggle off and does not fail the save.
func (s *Service) Save(ctx context.Context, rec emotion.Record) error {
	if !s.state.Get(state.Store) {
		return fmt.Errorf("history: save: store disabled")
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.UserID == "" {
		rec.UserID = s.userID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: save: %w", err)
	}

	if err := s.store.Set(ctx, recordKey(rec), data); err != nil {
		return fmt.Errorf("history: save: %w", err)
	}
	s.logger.Infow("history: Save", "id", rec.ID, "source", rec.Source, "emotion", rec.Label)

	if s.publisher != nil && s.state.Get(state.Redis) {
		if err := s.publisher.Produce(ctx, rec); err != nil {
			s.state.Set(state.Redis, false)
			s.logger.Errorw("history: Save: redis", "ERROR", err)
		}
	}

	return nil
}

// List returns the user's records newest first. limit <= 0 means
// DefaultLimit; an empty source returns every source.
func (s *Service) List(ctx context.Context, limit int, source emotion.Source) ([]emotion.Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var out []emotion.Record
	for rec, err := range s.records(ctx) {
		if err != nil {
			return nil, fmt.Errorf("history: list: %w", err)
		}
		if source != "" && rec.Source != source {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// LabelCount is how often one label occurs in the history.
type LabelCount struct {
	Label emotion.Label `json:"emotion"`
	Name  string        `json:"name"`
	Count int           `json:"count"`
}

type Stats struct {
	Total             int          `json:"total"`
	AverageConfidence float64      `json:"average_confidence"`
	Labels            []LabelCount `json:"labels"`
}

// MostFrequent returns the top label, false when the history is empty.
func (s Stats) MostFrequent() (LabelCount, bool) {
	if len(s.Labels) == 0 {
		return LabelCount{}, false
	}
	return s.Labels[0], true
}

// Stats counts the user's records per label, most frequent first. Equal
// counts keep canonical label order.
func (s *Service) Stats(ctx context.Context, source emotion.Source) (Stats, error) {
	counts := make(map[emotion.Label]int)
	var st Stats
	var confidence float64

	for rec, err := range s.records(ctx) {
		if err != nil {
			return Stats{}, fmt.Errorf("history: stats: %w", err)
		}
		if source != "" && rec.Source != source {
			continue
		}
		counts[rec.Label]++
		confidence += rec.Confidence
		st.Total++
	}

	if st.Total > 0 {
		st.AverageConfidence = confidence / float64(st.Total)
	}

	title := cases.Title(language.English)
	for _, l := range emotion.Labels {
		if n := counts[l]; n > 0 {
			st.Labels = append(st.Labels, LabelCount{Label: l, Name: title.String(string(l)), Count: n})
		}
	}
	slices.SortStableFunc(st.Labels, func(a, b LabelCount) int {
		return b.Count - a.Count
	})

	return st, nil
}

// =================================================================================================================

// records yields the user's records newest first. Keys hold the inverted
// creation time so ascending key order is newest first.
func (s *Service) records(ctx context.Context) iter.Seq2[emotion.Record, error] {
	return func(yield func(emotion.Record, error) bool) {
		for entry, err := range s.store.List(ctx, kv.Key{keyRoot, s.userID}) {
			if err != nil {
				yield(emotion.Record{}, err)
				return
			}

			var rec emotion.Record
			if err := json.Unmarshal(entry.Value, &rec); err != nil {
				s.logger.Errorw("history: decode", "key", entry.Key.String(), "ERROR", err)
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func recordKey(rec emotion.Record) kv.Key {
	inverted := uint64(math.MaxInt64 - rec.CreatedAt.UnixNano())
	return kv.Key{keyRoot, rec.UserID, fmt.Sprintf("%020d", inverted), rec.ID}
}
