package audio_test

import (
	"testing"

	"tutti/internal/audio"
)

func TestWindows(t *testing.T) {
	const rate = 10 // samples per second keeps fixtures small

	cases := []struct {
		name       string
		samples    int
		windowSec  float64
		hopSec     float64
		wantCount  int
		wantLength int
	}{
		{"exact single window", 50, 5.0, 2.5, 1, 50},
		{"two windows with hop overlap", 75, 5.0, 2.5, 2, 50},
		{"long track", 200, 5.0, 2.5, 7, 50},
		{"short track padded", 30, 5.0, 2.5, 1, 50},
		{"empty input", 0, 5.0, 2.5, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pcm := make([]float32, tc.samples)
			for i := range pcm {
				pcm[i] = 1.0
			}
			windows := audio.Windows(pcm, rate, tc.windowSec, tc.hopSec)
			if len(windows) != tc.wantCount {
				t.Fatalf("window count = %d, want %d", len(windows), tc.wantCount)
			}
			for i, w := range windows {
				if len(w) != tc.wantLength {
					t.Errorf("window %d length = %d, want %d", i, len(w), tc.wantLength)
				}
			}
		})
	}
}

func TestWindowsShortTrackZeroPadding(t *testing.T) {
	pcm := []float32{0.5, 0.5, 0.5}
	windows := audio.Windows(pcm, 10, 1.0, 0.5)
	if len(windows) != 1 {
		t.Fatalf("window count = %d, want 1", len(windows))
	}
	w := windows[0]
	if len(w) != 10 {
		t.Fatalf("padded window length = %d, want 10", len(w))
	}
	for i := 0; i < 3; i++ {
		if w[i] != 0.5 {
			t.Errorf("sample %d = %v, want 0.5", i, w[i])
		}
	}
	for i := 3; i < 10; i++ {
		if w[i] != 0 {
			t.Errorf("padding sample %d = %v, want 0", i, w[i])
		}
	}
}

func TestWindowCountMatchesWindows(t *testing.T) {
	for _, samples := range []int{0, 10, 30, 50, 75, 100, 225} {
		pcm := make([]float32, samples)
		got := audio.WindowCount(samples, 10, 5.0, 2.5)
		want := len(audio.Windows(pcm, 10, 5.0, 2.5))
		if got != want {
			t.Errorf("WindowCount(%d) = %d, Windows produced %d", samples, got, want)
		}
	}
}
