package config

type Config struct {
	Profiles []Profile `yaml:"profiles"`
}

// Profile groups the tuning knobs of one analysis setup.
type Profile struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Bands     Bands     `yaml:"bands"`
	Simulator Simulator `yaml:"simulator"`
	Capture   Capture   `yaml:"capture"`
}

// Bands are the heart-rate thresholds, in BPM, used by the classifier.
type Bands struct {
	High     int `yaml:"high"`
	Elevated int `yaml:"elevated"`
	Low      int `yaml:"low"`
}

// Simulator drives the simulated heart-rate sensor.
type Simulator struct {
	BaseHeartRate  int `yaml:"base_heart_rate"`
	Variation      int `yaml:"variation"`
	IntervalMillis int `yaml:"interval_ms"`
	BufferSize     int `yaml:"buffer_size"`
}

// Capture controls the one-shot session windows.
type Capture struct {
	HeartRateWindowMillis int     `yaml:"heart_rate_window_ms"`
	SpeechWindowMillis    int     `yaml:"speech_window_ms"`
	FallbackHeartRate     int     `yaml:"fallback_heart_rate"`
	FallbackVariability   float64 `yaml:"fallback_variability"`
}
