package audio

import "math"

// RMSLevel returns the root-mean-square energy of a 16-bit signed
// little-endian PCM buffer, normalised to [0, 1]. Returns 0 for buffers
// shorter than one sample. A trailing odd byte is ignored.
func RMSLevel(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < samples*2; i += 2 {
		s := float64(int16(pcm[i]) | int16(pcm[i+1])<<8)
		sum += s * s
	}
	return math.Sqrt(sum/float64(samples)) / 32768.0
}

// DurationSeconds returns the playback duration of a 16-bit mono PCM buffer
// of the given byte length at sampleRate Hz.
func DurationSeconds(byteLen int64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(byteLen) / float64(sampleRate*2)
}
