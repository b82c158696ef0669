package audio

import "math"

// Windows slices a waveform into analysis windows of windowSec seconds
// advancing by hopSec seconds. Only fully covered windows are produced;
// a track shorter than one window yields a single zero-padded window so
// every non-empty input is scorable.
func Windows(pcm []float32, sampleRate int, windowSec, hopSec float64) [][]float32 {
	if len(pcm) == 0 || sampleRate <= 0 || windowSec <= 0 || hopSec <= 0 {
		return nil
	}
	win := int(math.Round(windowSec * float64(sampleRate)))
	hop := int(math.Round(hopSec * float64(sampleRate)))
	if win <= 0 || hop <= 0 {
		return nil
	}

	var out [][]float32
	for start := 0; start+win <= len(pcm); start += hop {
		out = append(out, pcm[start:start+win])
	}
	if len(out) == 0 {
		padded := make([]float32, win)
		copy(padded, pcm)
		out = append(out, padded)
	}
	return out
}

// WindowCount reports how many windows Windows would produce for a waveform
// of the given sample count.
func WindowCount(samples, sampleRate int, windowSec, hopSec float64) int {
	if samples <= 0 || sampleRate <= 0 || windowSec <= 0 || hopSec <= 0 {
		return 0
	}
	win := int(math.Round(windowSec * float64(sampleRate)))
	hop := int(math.Round(hopSec * float64(sampleRate)))
	if win <= 0 || hop <= 0 {
		return 0
	}
	if samples < win {
		return 1
	}
	return (samples-win)/hop + 1
}
