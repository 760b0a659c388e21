package listen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestReadWAVMono16k(t *testing.T) {
	path := writeWAV(t, 16000, 1, []int{0, 16384, -32768, 8192})
	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []float32{0, 0.5, -1, 0.25}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadWAVDownmixAndResample(t *testing.T) {
	// 8 stereo frames at 8 kHz: left 16384, right 0.
	data := make([]int, 0, 16)
	for i := 0; i < 8; i++ {
		data = append(data, 16384, 0)
	}
	got, err := ReadWAV(writeWAV(t, 8000, 2, data))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("len = %d, want 16", len(got))
	}
	for i, s := range got {
		if s != 0.25 {
			t.Fatalf("sample %d = %v, want 0.25", i, s)
		}
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAV(path); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestResampleLinearLength(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	if out := resampleLinear(in, 16000, 8000); len(out) != 2 {
		t.Fatalf("downsample length got %d", len(out))
	}
	if out := resampleLinear(in, 8000, 16000); len(out) != 8 {
		t.Fatalf("upsample length got %d", len(out))
	}
	out := resampleLinear([]float32{0, 10}, 1000, 2000)
	if out[0] != 0 || out[len(out)-1] != 10 {
		t.Fatalf("endpoints not preserved: %v", out)
	}
}
