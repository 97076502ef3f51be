package audio_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/reflections-ai/reflections/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestRMSLevelSilence(t *testing.T) {
	pcm := samplesToBytes(make([]int16, 160))
	if got := audio.RMSLevel(pcm); got != 0 {
		t.Errorf("silence RMS: got %v, want 0", got)
	}
}

func TestRMSLevelFullScale(t *testing.T) {
	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = 32767
	}
	got := audio.RMSLevel(samplesToBytes(samples))
	want := 32767.0 / 32768.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("full-scale RMS: got %v, want %v", got, want)
	}
}

func TestRMSLevelSquareWave(t *testing.T) {
	// Alternating ±1000 has RMS exactly 1000/32768.
	samples := make([]int16, 100)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 1000
		} else {
			samples[i] = -1000
		}
	}
	got := audio.RMSLevel(samplesToBytes(samples))
	want := 1000.0 / 32768.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("square wave RMS: got %v, want %v", got, want)
	}
}

func TestRMSLevelEmpty(t *testing.T) {
	if got := audio.RMSLevel(nil); got != 0 {
		t.Errorf("nil RMS: got %v, want 0", got)
	}
	if got := audio.RMSLevel([]byte{0x01}); got != 0 {
		t.Errorf("single byte RMS: got %v, want 0", got)
	}
}

func TestDurationSeconds(t *testing.T) {
	// 32000 bytes at 16 kHz mono 16-bit = 1 second.
	if got := audio.DurationSeconds(32000, 16000); got != 1.0 {
		t.Errorf("duration: got %v, want 1.0", got)
	}
	if got := audio.DurationSeconds(160, 16000); math.Abs(got-0.005) > 1e-9 {
		t.Errorf("duration: got %v, want 0.005", got)
	}
	if got := audio.DurationSeconds(100, 0); got != 0 {
		t.Errorf("zero rate duration: got %v, want 0", got)
	}
}
