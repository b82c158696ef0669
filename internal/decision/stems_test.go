package decision_test

import (
	"math"
	"testing"

	"tutti/internal/decision"
	"tutti/internal/evidence"
)

func stemSet(stats map[string]evidence.Stats) *evidence.Set {
	set := evidence.NewSet()
	for key, st := range stats {
		set.Put("panns", key, st)
	}
	return set
}

func TestPoolStemsWeightNormalization(t *testing.T) {
	byStem := map[string]*evidence.Set{
		"other": stemSet(map[string]evidence.Stats{"electric_guitar": {Mean: 0.10, PosRatio: 0.20}}),
		"mix":   stemSet(map[string]evidence.Stats{"electric_guitar": {Mean: 0.04, PosRatio: 0.10}}),
	}
	score := decision.PoolStems("Electric Guitar", "electric_guitar", byStem)

	// other weight 1.0, mix weight 0.5 per the priors table.
	wantMean := (1.0*0.10 + 0.5*0.04) / 1.5
	wantPos := (1.0*0.20 + 0.5*0.10) / 1.5
	if math.Abs(score.Mean-wantMean) > 1e-9 {
		t.Errorf("Mean = %v, want %v", score.Mean, wantMean)
	}
	if math.Abs(score.PosRatio-wantPos) > 1e-9 {
		t.Errorf("PosRatio = %v, want %v", score.PosRatio, wantPos)
	}
	if score.Max != 0.10 {
		t.Errorf("Max = %v, want 0.10", score.Max)
	}
}

func TestPoolStemsDefaultWeightForUnlistedStem(t *testing.T) {
	// Piano has no "bass" prior; the stem still contributes at the default
	// weight rather than being dropped.
	byStem := map[string]*evidence.Set{
		"bass": stemSet(map[string]evidence.Stats{"piano": {Mean: 0.10, PosRatio: 0.10}}),
	}
	score := decision.PoolStems("Piano", "piano", byStem)
	if math.Abs(score.Mean-0.10) > 1e-9 {
		t.Errorf("single-stem pooled mean = %v, want 0.10", score.Mean)
	}
}

func TestPoolStemsEmpty(t *testing.T) {
	if got := decision.PoolStems("Piano", "piano", nil); got != (decision.StemScore{}) {
		t.Errorf("empty pooling = %+v, want zero", got)
	}
}

func TestDecideWithStems(t *testing.T) {
	th := decision.StemThresholds{Mean: 0.035, Pos: 0.10, SingleHigh: 0.18}
	cases := []struct {
		name  string
		score decision.StemScore
		want  bool
	}{
		{"weighted path", decision.StemScore{Mean: 0.035, PosRatio: 0.10}, true},
		{"best stem override", decision.StemScore{Mean: 0.01, PosRatio: 0.01, Max: 0.18}, true},
		{"below everything", decision.StemScore{Mean: 0.034, PosRatio: 0.09, Max: 0.17}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := decision.DecideWithStems(tc.score, th)
			if got != tc.want {
				t.Errorf("DecideWithStems(%+v) = %v (%s), want %v", tc.score, got, reason, tc.want)
			}
		})
	}
}

func TestHornStemBoost(t *testing.T) {
	byStem := map[string]*evidence.Set{
		"other": stemSet(map[string]evidence.Stats{"trumpet": {Mean: 0.021, PosRatio: 0.05}}),
	}
	pooled := map[string]decision.StemScore{
		"Trumpet": {Mean: 0.016, PosRatio: 0.03},
	}
	accepted := map[string]bool{}
	boosted := decision.HornStemBoost(byStem, pooled, accepted, decision.DefaultStemThresholds())
	if !accepted["Trumpet"] {
		t.Error("trumpet should be boosted via the other stem")
	}
	if _, ok := boosted["Trumpet"]; !ok {
		t.Error("boost reason missing for trumpet")
	}

	// Below the other-stem energy floor nothing fires.
	weak := map[string]*evidence.Set{
		"other": stemSet(map[string]evidence.Stats{"trombone": {Mean: 0.019}}),
	}
	accepted = map[string]bool{}
	boosted = decision.HornStemBoost(weak, map[string]decision.StemScore{
		"Trombone": {Mean: 0.015, PosRatio: 0.03},
	}, accepted, decision.DefaultStemThresholds())
	if len(boosted) != 0 || accepted["Trombone"] {
		t.Errorf("trombone boosted below the stem energy floor: %v", boosted)
	}

	// No other stem, no boost.
	if got := decision.HornStemBoost(map[string]*evidence.Set{}, pooled, map[string]bool{}, decision.DefaultStemThresholds()); got != nil {
		t.Errorf("boost without other stem = %v, want nil", got)
	}
}
