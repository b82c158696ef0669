package evidence_test

import (
	"math"
	"testing"

	"tutti/internal/evidence"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name   string
		series []float64
		gate   float64
		want   evidence.Stats
	}{
		{
			name:   "empty series yields zeros",
			series: nil,
			gate:   0.05,
			want:   evidence.Stats{},
		},
		{
			name:   "mean and ratio",
			series: []float64{0.1, 0.0, 0.3, 0.0},
			gate:   0.05,
			want:   evidence.Stats{Mean: 0.1, PosRatio: 0.5},
		},
		{
			name:   "gate comparison is inclusive",
			series: []float64{0.045, 0.044},
			gate:   0.045,
			want:   evidence.Stats{Mean: 0.0445, PosRatio: 0.5},
		},
		{
			name:   "all silent",
			series: []float64{0, 0, 0},
			gate:   0.018,
			want:   evidence.Stats{Mean: 0, PosRatio: 0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := evidence.Aggregate(tc.series, tc.gate)
			if !almostEqual(got.Mean, tc.want.Mean) || !almostEqual(got.PosRatio, tc.want.PosRatio) {
				t.Errorf("Aggregate(%v, %v) = %+v, want %+v", tc.series, tc.gate, got, tc.want)
			}
		})
	}
}

func TestSetAbsentKeyReadsZero(t *testing.T) {
	set := evidence.NewSet()
	set.Put("panns", "piano", evidence.Stats{Mean: 0.2, PosRatio: 0.4})

	if got := set.Get("panns", "oboe"); got != (evidence.Stats{}) {
		t.Errorf("absent key = %+v, want zero", got)
	}
	if got := set.Get("yamnet", "piano"); got != (evidence.Stats{}) {
		t.Errorf("absent model = %+v, want zero", got)
	}
}

func TestCombinedSumsAcrossModels(t *testing.T) {
	set := evidence.NewSet()
	set.Put("panns", "piano", evidence.Stats{Mean: 0.2, PosRatio: 0.4})
	set.Put("yamnet", "piano", evidence.Stats{Mean: 0.1, PosRatio: 0.3})

	got := set.Combined("piano")
	if !almostEqual(got.Mean, 0.3) || !almostEqual(got.PosRatio, 0.7) {
		t.Errorf("Combined(piano) = %+v, want {0.3 0.7}", got)
	}

	// One-sided evidence keeps full weight.
	set.Put("panns", "flute", evidence.Stats{Mean: 0.05, PosRatio: 0.1})
	got = set.Combined("flute")
	if !almostEqual(got.Mean, 0.05) || !almostEqual(got.PosRatio, 0.1) {
		t.Errorf("Combined(flute) = %+v, want {0.05 0.1}", got)
	}
}

func TestMaxTakesPerFieldMaximum(t *testing.T) {
	set := evidence.NewSet()
	set.Put("panns", "strings", evidence.Stats{Mean: 0.12, PosRatio: 0.05})
	set.Put("yamnet", "strings", evidence.Stats{Mean: 0.08, PosRatio: 0.20})

	got := set.Max("strings")
	if !almostEqual(got.Mean, 0.12) || !almostEqual(got.PosRatio, 0.20) {
		t.Errorf("Max(strings) = %+v, want {0.12 0.20}", got)
	}
}

func TestAlignWindows(t *testing.T) {
	cases := []struct {
		name   string
		counts []int
		want   int
	}{
		{"equal", []int{10, 10}, 10},
		{"min wins", []int{12, 9}, 9},
		{"one empty", []int{12, 0}, 0},
		{"no counts", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := evidence.AlignWindows(tc.counts...); got != tc.want {
				t.Errorf("AlignWindows(%v) = %d, want %d", tc.counts, got, tc.want)
			}
		})
	}
}
