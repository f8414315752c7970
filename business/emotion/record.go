package emotion

import "time"

// Metadata carries the variant-specific details of a persisted prediction.
type Metadata struct {
	AudioPath             string       `json:"audio_path,omitempty"`
	Duration              float64      `json:"duration_seconds,omitempty"`
	Probabilities         Distribution `json:"probabilities,omitempty"`
	HeartRate             int          `json:"heart_rate,omitempty"`
	Variability           float64      `json:"variability,omitempty"`
	SpeechContribution    float64      `json:"speech_contribution,omitempty"`
	HeartRateContribution float64      `json:"heart_rate_contribution,omitempty"`
}

// Record is one row of the prediction history.
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Label      Label     `json:"emotion"`
	Confidence float64   `json:"confidence"`
	Source     Source    `json:"source"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRecord flattens r into a Record. ID is left for the store to assign.
func NewRecord(userID string, r Result, createdAt time.Time) Record {
	est := r.Estimate()
	rec := Record{
		UserID:     userID,
		Label:      est.Label,
		Confidence: est.Confidence,
		Source:     r.Source(),
		CreatedAt:  createdAt,
	}

	switch v := r.(type) {
	case SpeechResult:
		rec.Metadata = Metadata{
			AudioPath:     v.AudioPath,
			Duration:      v.Duration.Seconds(),
			Probabilities: v.Probabilities,
		}

	case HeartRateResult:
		rec.Metadata = Metadata{
			HeartRate:   v.HeartRate,
			Variability: v.Variability,
		}

	case FusionResult:
		rec.Metadata = Metadata{
			SpeechContribution:    v.SpeechContribution,
			HeartRateContribution: v.HeartRateContribution,
		}
	}

	return rec
}

// WithInputs fills the capture inputs of m (audio, duration, heart rate and
// variability) from in where m leaves them unset.
func (m Metadata) WithInputs(in Metadata) Metadata {
	if m.AudioPath == "" {
		m.AudioPath = in.AudioPath
	}
	if m.Duration == 0 {
		m.Duration = in.Duration
	}
	if m.HeartRate == 0 {
		m.HeartRate = in.HeartRate
	}
	if m.Variability == 0 {
		m.Variability = in.Variability
	}
	return m
}
