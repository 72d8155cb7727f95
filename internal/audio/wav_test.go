package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	samples := []float32{0, 0.5, -0.5, 2, -2}
	if err := WriteWAV(f, samples, 16000); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	f.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to reopen file: %v", err)
	}
	defer in.Close()

	dec := wav.NewDecoder(in)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("failed to decode wav: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("unexpected format: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Data))
	}
	if buf.Data[1] != 16383 {
		t.Fatalf("expected 0.5 to encode as 16383, got %d", buf.Data[1])
	}
	if buf.Data[3] != 32767 || buf.Data[4] != -32767 {
		t.Fatalf("expected clamped extremes, got %d and %d", buf.Data[3], buf.Data[4])
	}
}
