package decision

import (
	"fmt"

	"tutti/internal/evidence"
)

// DefaultStemWeight applies to stems without an explicit prior.
const DefaultStemWeight = 0.2

// StemPriors weight each stem's evidence per instrument display name,
// reflecting where that instrument's energy lands after separation.
// Weights are relative, not probabilities.
var StemPriors = map[string]map[string]float64{
	"Electric Guitar":      {"other": 1.0, "mix": 0.5, "vocals": 0.1, "drums": 0.1, "bass": 0.1},
	"Bass Guitar":          {"bass": 1.0, "mix": 0.6, "other": 0.2, "drums": 0.1, "vocals": 0.1},
	"Drum Kit (acoustic)":  {"drums": 1.0, "mix": 0.6, "other": 0.2, "bass": 0.1, "vocals": 0.1},
	"Piano":                {"other": 1.0, "mix": 0.5, "vocals": 0.1, "drums": 0.1, "bass": 0.1},
	"Trumpet":              {"other": 1.0, "mix": 0.4, "vocals": 0.2, "drums": 0.1, "bass": 0.1},
	"Trombone":             {"other": 1.0, "mix": 0.4, "vocals": 0.2, "drums": 0.1, "bass": 0.1},
	"Saxophone":            {"other": 1.0, "mix": 0.4, "vocals": 0.2, "drums": 0.1, "bass": 0.1},
}

// StemThresholds are the stem-aware acceptance gates. Looser than the
// mixture thresholds because isolated evidence is cleaner.
type StemThresholds struct {
	Mean       float64 `toml:"mean" json:"mean"`
	Pos        float64 `toml:"pos" json:"pos"`
	SingleHigh float64 `toml:"single_high" json:"single_high"`
}

// FallbackStemThresholds applies to instruments without a calibrated entry.
var FallbackStemThresholds = StemThresholds{Mean: 0.06, Pos: 0.12, SingleHigh: 0.22}

// DefaultStemThresholds returns the calibrated stem-aware table, keyed by
// display name.
func DefaultStemThresholds() map[string]StemThresholds {
	return map[string]StemThresholds{
		"Electric Guitar":     {Mean: 0.055, Pos: 0.12, SingleHigh: 0.22},
		"Bass Guitar":         {Mean: 0.040, Pos: 0.12, SingleHigh: 0.20},
		"Drum Kit (acoustic)": {Mean: 0.070, Pos: 0.16, SingleHigh: 0.22},
		"Piano":               {Mean: 0.035, Pos: 0.10, SingleHigh: 0.18},
		"Trumpet":             {Mean: 0.016, Pos: 0.03, SingleHigh: 0.028},
		"Trombone":            {Mean: 0.015, Pos: 0.03, SingleHigh: 0.027},
		"Saxophone":           {Mean: 0.009, Pos: 0.02, SingleHigh: 0.018},
	}
}

// StemScore is the prior-weighted pooling of one instrument's evidence
// across stems.
type StemScore struct {
	Mean     float64 `json:"mean"`
	PosRatio float64 `json:"pos_ratio"`
	// Max is the best single-stem score, used for the "very confident
	// anywhere" acceptance path.
	Max float64 `json:"max"`
}

// stemStat reduces one stem's evidence for a key to a single (mean, ratio)
// pair: the per-field maximum across models.
func stemStat(ev *evidence.Set, key string) evidence.Stats {
	if ev == nil {
		return evidence.Stats{}
	}
	return ev.Max(key)
}

// PoolStems computes the prior-weighted stem score for one instrument.
// Weights are normalized by the sum of weights for stems actually present,
// so a missing stem redistributes rather than deflates.
func PoolStems(display, key string, byStem map[string]*evidence.Set) StemScore {
	priors := StemPriors[display]
	var weightedMean, weightedPos, totalWeight, best float64
	for stem, ev := range byStem {
		weight := DefaultStemWeight
		if priors != nil {
			if w, ok := priors[stem]; ok {
				weight = w
			}
		}
		st := stemStat(ev, key)
		weightedMean += weight * st.Mean
		weightedPos += weight * st.PosRatio
		totalWeight += weight
		if st.Mean > best {
			best = st.Mean
		}
	}
	if totalWeight <= 0 {
		return StemScore{}
	}
	return StemScore{
		Mean:     weightedMean / totalWeight,
		PosRatio: weightedPos / totalWeight,
		Max:      best,
	}
}

// DecideWithStems applies the stem-aware acceptance rule.
func DecideWithStems(score StemScore, th StemThresholds) (bool, string) {
	if score.Max >= th.SingleHigh {
		return true, fmt.Sprintf("max>=%v", th.SingleHigh)
	}
	if score.Mean >= th.Mean && score.PosRatio >= th.Pos {
		return true, fmt.Sprintf("mean>=%v & pos>=%v", th.Mean, th.Pos)
	}
	return false, fmt.Sprintf("below (%.3f,%.3f,%.3f)", score.Mean, score.PosRatio, score.Max)
}

// hornStemFloor is the tangible-energy requirement in the "other" stem
// before the horn re-check may fire.
const hornStemFloor = 0.020

// HornStemBoost re-checks the three specific horns against their calibrated
// stem thresholds when the "other" stem carries tangible horn energy.
// Returns the display names newly accepted, with per-horn reasons.
func HornStemBoost(byStem map[string]*evidence.Set, pooled map[string]StemScore, accepted map[string]bool, thresholds map[string]StemThresholds) map[string]string {
	other, ok := byStem["other"]
	if !ok || other == nil {
		return nil
	}

	horns := map[string]string{
		"Trumpet":   "trumpet",
		"Trombone":  "trombone",
		"Saxophone": "saxophone",
	}
	boosted := make(map[string]string)
	for display, key := range horns {
		if accepted[display] {
			continue
		}
		th, ok := thresholds[display]
		if !ok {
			continue
		}
		otherStat := stemStat(other, key)
		if otherStat.Mean < hornStemFloor {
			continue
		}
		score := pooled[display]
		if (score.Mean >= th.Mean && score.PosRatio >= th.Pos) || score.Max >= th.SingleHigh {
			accepted[display] = true
			boosted[display] = fmt.Sprintf("horn-boost: other stem strong (mean=%.3f)", otherStat.Mean)
		}
	}
	return boosted
}
