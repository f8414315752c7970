// Package emotion holds the vocabulary shared by every analysis flow: the
// closed label set, probability distributions over it, and the result
// variants produced by the speech, heart-rate and fusion flows.
package emotion

import (
	"errors"
	"fmt"
	"math"
)

// Label is one of the eight recognised emotions.
type Label string

const (
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Fearful   Label = "fearful"
	Disgusted Label = "disgusted"
	Surprised Label = "surprised"
	Neutral   Label = "neutral"
	Calm      Label = "calm"
)

// Labels is the closed label set in canonical order. Scans over labels
// follow this order.
var Labels = [...]Label{Happy, Sad, Angry, Fearful, Disgusted, Surprised, Neutral, Calm}

var ErrUnknownLabel = errors.New("emotion: unknown label")

func ParseLabel(s string) (Label, error) {
	l := Label(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
	return l, nil
}

func (l Label) Valid() bool {
	for _, v := range Labels {
		if v == l {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

// =====================================================================================================================

// Distribution maps labels to probabilities. A label absent from the map
// has probability 0.
type Distribution map[Label]float64

const distributionTolerance = 1e-6

// Get returns the probability of l, 0 when absent.
func (d Distribution) Get(l Label) float64 {
	return d[l]
}

// Argmax returns the most probable label, scanning in canonical order from
// a {Neutral, 0} seed and replacing only on a strictly greater value.
func (d Distribution) Argmax() (Label, float64) {
	best, bestP := Neutral, 0.0
	for _, l := range Labels {
		if p := d.Get(l); p > bestP {
			best, bestP = l, p
		}
	}
	return best, bestP
}

// Normalize returns a copy of d scaled to sum to 1. A zero-sum
// distribution becomes uniform.
func (d Distribution) Normalize() Distribution {
	total := 0.0
	for _, l := range Labels {
		total += d.Get(l)
	}

	out := make(Distribution, len(Labels))
	for _, l := range Labels {
		if total == 0 {
			out[l] = 1 / float64(len(Labels))
			continue
		}
		out[l] = d.Get(l) / total
	}
	return out
}

// Validate reports whether d covers every label with a non-negative value
// and sums to 1.
func (d Distribution) Validate() error {
	total := 0.0
	for _, l := range Labels {
		p, ok := d[l]
		if !ok {
			return fmt.Errorf("emotion: distribution missing %s", l)
		}
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("emotion: distribution %s=%v is negative", l, p)
		}
		total += p
	}
	for l := range d {
		if !l.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownLabel, string(l))
		}
	}
	if math.Abs(total-1) > distributionTolerance {
		return fmt.Errorf("emotion: distribution sums to %v", total)
	}
	return nil
}

// Complete returns a copy of d with every label present.
func (d Distribution) Complete() Distribution {
	out := make(Distribution, len(Labels))
	for _, l := range Labels {
		out[l] = d.Get(l)
	}
	return out
}

// Estimate is a single-modality prediction. Distribution is set for speech
// only.
type Estimate struct {
	Label        Label        `json:"label"`
	Confidence   float64      `json:"confidence"`
	Distribution Distribution `json:"distribution,omitempty"`
}
