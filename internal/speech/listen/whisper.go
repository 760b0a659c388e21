//go:build whisper

package listen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/gordonklaus/portaudio"
	vad "github.com/maxhawkins/go-webrtcvad"
	"github.com/sirupsen/logrus"
)

// WhisperRecognizer captures one utterance from the microphone, segments it
// with webrtc VAD and transcribes it locally with whisper.cpp.
type WhisperRecognizer struct {
	opts   WhisperOptions
	logger *logrus.Logger
}

var _ Recognizer = (*WhisperRecognizer)(nil)

func NewWhisperRecognizer(opts WhisperOptions, logger *logrus.Logger) (*WhisperRecognizer, error) {
	if opts.FrameMS != 10 && opts.FrameMS != 20 && opts.FrameMS != 30 {
		return nil, fmt.Errorf("frame_ms must be 10, 20, or 30 (got %d)", opts.FrameMS)
	}
	switch opts.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		return nil, fmt.Errorf("sample_rate must be 8k/16k/32k/48k for webrtc VAD (got %d)", opts.SampleRate)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WhisperRecognizer{opts: opts, logger: logger}, nil
}

func (r *WhisperRecognizer) Supported() bool {
	if _, err := os.Stat(r.opts.ModelPath); err != nil {
		return false
	}
	if err := portaudio.Initialize(); err != nil {
		return false
	}
	defer func() { _ = portaudio.Terminate() }()
	dev, err := selectDevice(r.opts.DeviceName)
	return err == nil && dev != nil
}

func (r *WhisperRecognizer) Recognize(ctx context.Context, locale string) (<-chan Event, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	model, err := whisper.New(r.opts.ModelPath)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("load model: %w", err)
	}
	v, err := vad.New()
	if err != nil {
		_ = model.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("vad init: %w", err)
	}
	if err := v.SetMode(r.opts.Aggressiveness); err != nil {
		_ = model.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("vad mode: %w", err)
	}

	out := make(chan Event, 2)
	go func() {
		defer close(out)
		defer func() { _ = portaudio.Terminate() }()
		defer func() { _ = model.Close() }()

		pcm, err := r.captureSegment(ctx, v)
		if err != nil {
			if ctx.Err() != nil {
				out <- Event{Kind: EventEnd}
				return
			}
			out <- Event{Kind: EventError, Err: err}
			return
		}
		if len(pcm) == 0 {
			out <- Event{Kind: EventEnd}
			return
		}
		lang, _, _ := strings.Cut(locale, "-")
		text, err := transcribe(model, lang, PCMToFloat(pcm))
		if err != nil {
			out <- Event{Kind: EventError, Err: err}
			return
		}
		if text = strings.TrimSpace(text); text != "" {
			out <- Event{Kind: EventResult, Text: text}
		}
		out <- Event{Kind: EventEnd}
	}()
	return out, nil
}

// captureSegment reads frames until one speech segment is complete.
func (r *WhisperRecognizer) captureSegment(ctx context.Context, v *vad.VAD) ([]int16, error) {
	dev, err := selectDevice(r.opts.DeviceName)
	if err != nil {
		return nil, err
	}
	frameSamples := r.opts.SampleRate * r.opts.FrameMS / 1000
	if ok := v.ValidRateAndFrameLength(r.opts.SampleRate, frameSamples); !ok {
		return nil, fmt.Errorf("invalid frame_ms %d for sample_rate %d", r.opts.FrameMS, r.opts.SampleRate)
	}

	buf := make([]int16, frameSamples)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(r.opts.SampleRate),
		FramesPerBuffer: frameSamples,
	}, &buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}
	defer stream.Stop()

	var (
		chunk       []int16
		inSpeech    bool
		lastVoice   time.Time
		speechBegan time.Time
		silenceDur  = time.Duration(r.opts.SilenceMS) * time.Millisecond
		maxSegDur   = time.Duration(r.opts.MaxSegmentMS) * time.Millisecond
	)
	r.logger.Infof("listening on mic: %s @ %d Hz", dev.Name, r.opts.SampleRate)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				r.logger.Warn("input overflow")
				continue
			}
			return nil, fmt.Errorf("stream read: %w", err)
		}
		voice, err := v.Process(r.opts.SampleRate, int16Bytes(buf))
		if err != nil {
			return nil, fmt.Errorf("vad: %w", err)
		}
		now := time.Now()
		if voice {
			if !inSpeech {
				inSpeech = true
				speechBegan = now
				chunk = chunk[:0]
			}
			chunk = append(chunk, buf...)
			lastVoice = now
			continue
		}
		if inSpeech && ((now.Sub(lastVoice) >= silenceDur && len(chunk) > 0) ||
			(maxSegDur > 0 && now.Sub(speechBegan) >= maxSegDur)) {
			out := make([]int16, len(chunk))
			copy(out, chunk)
			return out, nil
		}
	}
}

// TranscribeSamples loads the model at modelPath and transcribes 16 kHz mono
// samples.
func TranscribeSamples(modelPath, lang string, samples []float32) (string, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return "", fmt.Errorf("load model: %w", err)
	}
	defer func() { _ = model.Close() }()
	text, err := transcribe(model, lang, samples)
	return strings.TrimSpace(text), err
}

func transcribe(model whisper.Model, lang string, samples []float32) (string, error) {
	wctx, err := model.NewContext()
	if err != nil {
		return "", err
	}
	wctx.SetThreads(uint(runtime.NumCPU()))
	if lang = strings.TrimSpace(lang); lang != "" {
		_ = wctx.SetLanguage(lang)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		seg, err := wctx.NextSegment()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		b.WriteString(seg.Text)
		if !strings.HasSuffix(seg.Text, " ") {
			b.WriteByte(' ')
		}
	}
	return b.String(), nil
}

func int16Bytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

func selectDevice(preferred string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if preferred != "" {
		for _, d := range devs {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), strings.ToLower(preferred)) {
				return d, nil
			}
		}
	}
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		return def, nil
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input devices found")
}

// ListMicrophones returns the input devices portaudio can open.
func ListMicrophones() ([]Microphone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	def, _ := portaudio.DefaultInputDevice()
	out := []Microphone{}
	for i, d := range devs {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, Microphone{
			Index:     i,
			Name:      d.Name,
			Channels:  d.MaxInputChannels,
			LatencyMs: d.DefaultLowInputLatency.Seconds() * 1000,
			Default:   def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}
