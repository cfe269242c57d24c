package audio

import "math"

// windowSamples is the analysis window used by SilenceRatio, 20ms at 44.1kHz
// mono 16-bit PCM.
const windowSamples = 882

// dbfs converts a window of 16-bit PCM samples to dBFS (0 dBFS == full scale).
// Silent input reports math.Inf(-1).
func dbfs(samples []int16) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	var sumSq float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sumSq += f * f
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))
	if rms <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms)
}

func pcmToSamples(pcm []byte) []int16 {
	n := len(pcm) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(pcm[2*i]) | int16(pcm[2*i+1])<<8
	}
	return samples
}

// SilenceRatio reports the fraction of 20ms windows in pcm (16-bit
// little-endian mono) whose dBFS falls below thresholdDBFS. It is the Go
// counterpart of calculate_silence_ratio/pydub.silence.detect_silence:
// the TTS worker re-synthesizes when this exceeds 0.5, catching empty or
// truncated audio from a flaky synthesis backend.
func SilenceRatio(pcm []byte, thresholdDBFS float64) float64 {
	samples := pcmToSamples(pcm)
	if len(samples) == 0 {
		return 1.0
	}

	windows := 0
	silent := 0
	for start := 0; start < len(samples); start += windowSamples {
		end := start + windowSamples
		if end > len(samples) {
			end = len(samples)
		}
		windows++
		if dbfs(samples[start:end]) < thresholdDBFS {
			silent++
		}
	}
	if windows == 0 {
		return 1.0
	}
	return float64(silent) / float64(windows)
}
