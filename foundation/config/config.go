package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultProfileID = "default"

// DefaultProfile mirrors the behaviour of the mobile application.
func DefaultProfile() Profile {
	return Profile{
		ID:   DefaultProfileID,
		Name: "Default",
		Bands: Bands{
			High:     100,
			Elevated: 85,
			Low:      60,
		},
		Simulator: Simulator{
			BaseHeartRate:  70,
			Variation:      15,
			IntervalMillis: 1000,
			BufferSize:     16,
		},
		Capture: Capture{
			HeartRateWindowMillis: 5000,
			SpeechWindowMillis:    3000,
			FallbackHeartRate:     75,
			FallbackVariability:   35,
		},
	}
}

// GetProfile loads the profile file at path and returns the profile with
// the given id. Zero-valued fields inherit from DefaultProfile. A missing
// file yields the default profile when id is DefaultProfileID.
func GetProfile(path string, profileID string) (Profile, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && profileID == DefaultProfileID {
			return DefaultProfile(), nil
		}
		return Profile{}, err
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Profile{}, err
	}

	var config Config

	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return Profile{}, fmt.Errorf("parse %s: %w", path, err)
	}

	profile, exists := profileExists(config.Profiles, profileID)
	if !exists {
		if profileID == DefaultProfileID {
			return DefaultProfile(), nil
		}
		return Profile{}, fmt.Errorf("profile[%s] does not exist", profileID)
	}

	return withDefaults(profile), nil
}

func (c Capture) HeartRateWindow() time.Duration {
	return time.Duration(c.HeartRateWindowMillis) * time.Millisecond
}

func (c Capture) SpeechWindow() time.Duration {
	return time.Duration(c.SpeechWindowMillis) * time.Millisecond
}

func (s Simulator) Interval() time.Duration {
	return time.Duration(s.IntervalMillis) * time.Millisecond
}

// =================================================================================================================

func profileExists(p []Profile, profileID string) (Profile, bool) {
	for _, profile := range p {
		if profile.ID == profileID {
			return profile, true
		}
	}
	return Profile{}, false
}

func withDefaults(p Profile) Profile {
	d := DefaultProfile()

	setInt(&p.Bands.High, d.Bands.High)
	setInt(&p.Bands.Elevated, d.Bands.Elevated)
	setInt(&p.Bands.Low, d.Bands.Low)

	setInt(&p.Simulator.BaseHeartRate, d.Simulator.BaseHeartRate)
	setInt(&p.Simulator.Variation, d.Simulator.Variation)
	setInt(&p.Simulator.IntervalMillis, d.Simulator.IntervalMillis)
	setInt(&p.Simulator.BufferSize, d.Simulator.BufferSize)

	setInt(&p.Capture.HeartRateWindowMillis, d.Capture.HeartRateWindowMillis)
	setInt(&p.Capture.SpeechWindowMillis, d.Capture.SpeechWindowMillis)
	setInt(&p.Capture.FallbackHeartRate, d.Capture.FallbackHeartRate)
	if p.Capture.FallbackVariability == 0 {
		p.Capture.FallbackVariability = d.Capture.FallbackVariability
	}

	return p
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
