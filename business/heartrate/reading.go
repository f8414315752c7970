package heartrate

import (
	"math"
	"time"
)

type ReadingSource string

const (
	GoogleFit   ReadingSource = "google_fit"
	AppleHealth ReadingSource = "apple_health"
	Manual      ReadingSource = "manual"
)

// Platform is the device family the sensor runs on.
type Platform string

const (
	Android Platform = "android"
	IOS     Platform = "ios"
)

func (p Platform) Source() ReadingSource {
	switch p {
	case Android:
		return GoogleFit
	case IOS:
		return AppleHealth
	}
	return Manual
}

type Reading struct {
	HeartRate   int           `json:"heart_rate"`
	Timestamp   time.Time     `json:"timestamp"`
	Variability float64       `json:"variability"`
	Source      ReadingSource `json:"source"`
}

// Variability is the mean absolute difference between consecutive readings,
// 0 with fewer than two readings.
func Variability(readings []int) float64 {
	if len(readings) < 2 {
		return 0
	}

	sum := 0.0
	for i := 1; i < len(readings); i++ {
		sum += math.Abs(float64(readings[i] - readings[i-1]))
	}
	return sum / float64(len(readings)-1)
}
