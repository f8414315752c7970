package voiceAnalysis

type Emotion struct {
	Confidence float64 `json:"confidence"`
	Result     string  `json:"result"`
}

// EmotionPercentage is the per-class score of one analysed segment.
type EmotionPercentage struct {
	Neutral   float64 `json:"neutral"`
	Happy     float64 `json:"happy"`
	Calm      float64 `json:"calm"`
	Sad       float64 `json:"sad"`
	Angry     float64 `json:"angry"`
	Fearful   float64 `json:"fearful"`
	Disgust   float64 `json:"disgust"`
	Surprised float64 `json:"surprised"`
}

type ErrorDetail struct {
	Message string `json:"message"`
}

type Result struct {
	Emotion     []Emotion           `json:"emotion"`
	Percentage  []EmotionPercentage `json:"percentage"`
	Error       ErrorDetail         `json:"detail"`
	AudioLength float64             `json:"audio_length_seconds"`
}
