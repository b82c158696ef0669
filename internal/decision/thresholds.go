package decision

// Thresholds holds the calibrated per-instrument gates for track decisions.
type Thresholds struct {
	// Mean is the minimum per-model mean probability.
	Mean float64 `toml:"mean" json:"mean"`
	// Ratio is the minimum per-model positive-window ratio.
	Ratio float64 `toml:"ratio" json:"ratio"`
	// SingleHigh accepts on one very confident model regardless of policy.
	SingleHigh float64 `toml:"single_high" json:"single_high"`
	// RequireBoth demands both models positive instead of either.
	RequireBoth bool `toml:"require_both" json:"require_both"`
}

// BaseThresholds applies to any instrument key without a calibrated entry.
var BaseThresholds = Thresholds{Mean: 0.012, Ratio: 0.015, SingleHigh: 0.12, RequireBoth: true}

// singleOverrideRatio is the minimum positive-window ratio accompanying a
// SingleHigh mean override.
const singleOverrideRatio = 0.05

// Woodwind keys get their mean/ratio gates capped so quiet orchestral
// passages are not priced out entirely.
const (
	woodwindMeanCap  = 0.009
	woodwindRatioCap = 0.010
)

var woodwindKeys = map[string]struct{}{
	"flute":    {},
	"clarinet": {},
	"oboe":     {},
	"bassoon":  {},
}

// DefaultThresholds returns the calibrated per-instrument threshold table.
// The rhythm section accepts on either model; commonly confused orchestral
// families require both models or a strong single hit.
func DefaultThresholds() map[string]Thresholds {
	return map[string]Thresholds{
		"electric_guitar": {Mean: 0.06, Ratio: 0.12, SingleHigh: 0.20, RequireBoth: false},
		"bass_guitar":     {Mean: 0.06, Ratio: 0.12, SingleHigh: 0.20, RequireBoth: false},
		"drum_kit":        {Mean: 0.06, Ratio: 0.12, SingleHigh: 0.18, RequireBoth: false},
		"acoustic_guitar": {Mean: 0.07, Ratio: 0.15, SingleHigh: 0.22, RequireBoth: false},
		"piano":           {Mean: 0.07, Ratio: 0.15, SingleHigh: 0.22, RequireBoth: false},
		"organ":           {Mean: 0.08, Ratio: 0.15, SingleHigh: 0.25, RequireBoth: false},

		"strings":   {Mean: 0.10, Ratio: 0.18, SingleHigh: 0.30, RequireBoth: true},
		"trumpet":   {Mean: 0.10, Ratio: 0.15, SingleHigh: 0.30, RequireBoth: true},
		"trombone":  {Mean: 0.10, Ratio: 0.15, SingleHigh: 0.30, RequireBoth: true},
		"saxophone": {Mean: 0.10, Ratio: 0.15, SingleHigh: 0.30, RequireBoth: true},
		"brass":     {Mean: 0.12, Ratio: 0.20, SingleHigh: 0.35, RequireBoth: true},

		"flute":    {Mean: 0.009, Ratio: 0.010, SingleHigh: 0.15, RequireBoth: true},
		"clarinet": {Mean: 0.009, Ratio: 0.010, SingleHigh: 0.15, RequireBoth: true},
		"oboe":     {Mean: 0.009, Ratio: 0.010, SingleHigh: 0.15, RequireBoth: true},
		"bassoon":  {Mean: 0.009, Ratio: 0.010, SingleHigh: 0.15, RequireBoth: true},
	}
}

// BrassGates holds the conservative brass-section rules.
type BrassGates struct {
	// GenericGate is the combined generic-brass mean that substitutes for a
	// positive specific member.
	GenericGate float64 `toml:"generic_gate" json:"generic_gate"`
	// PianoVetoCeiling bounds the generic evidence below which the piano
	// veto may still revoke brass.
	PianoVetoCeiling float64 `toml:"piano_veto_ceiling" json:"piano_veto_ceiling"`
	// PianoStrongMean and PianoStrongRatio define "piano dominates".
	PianoStrongMean  float64 `toml:"piano_strong_mean" json:"piano_strong_mean"`
	PianoStrongRatio float64 `toml:"piano_strong_ratio" json:"piano_strong_ratio"`
}

// DefaultBrassGates returns the calibrated brass gate values.
func DefaultBrassGates() BrassGates {
	return BrassGates{
		GenericGate:      0.45,
		PianoVetoCeiling: 0.50,
		PianoStrongMean:  0.60,
		PianoStrongRatio: 0.30,
	}
}
