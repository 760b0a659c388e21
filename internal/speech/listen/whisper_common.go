package listen

import "errors"

// ErrWhisperDisabled is returned by whisper features in builds without the
// whisper tag.
var ErrWhisperDisabled = errors.New("build with '-tags whisper' to enable local speech recognition")

// WhisperOptions configures the local whisper.cpp recognizer.
type WhisperOptions struct {
	ModelPath      string
	DeviceName     string
	SampleRate     int
	FrameMS        int
	SilenceMS      int
	MaxSegmentMS   int
	Aggressiveness int
}

// Microphone describes one capture device.
type Microphone struct {
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Channels  int     `json:"channels"`
	LatencyMs float64 `json:"latency_ms"`
	Default   bool    `json:"default"`
}

// PCMToFloat converts signed 16-bit samples to [-1, 1) floats.
func PCMToFloat(pcm []int16) []float32 {
	out := make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}
