package cascade

import "tutti/internal/tagging"

// coreBandV2 recovers the rhythm section in mixes where the strict track
// thresholds were too hot. Drum kit carries extra admit paths for sparse
// and transient-heavy kits.
type coreBandV2 struct{}

func (coreBandV2) Name() string { return "mix_only_core_v2" }

// Calibrated core-band gates.
var coreBandGates = map[string]struct{ mean, pos float64 }{
	"acoustic_guitar": {0.006, 0.023},
	"electric_guitar": {0.006, 0.023},
	"drum_kit":        {0.006, 0.030},
	"bass_guitar":     {0.004, 0.000},
}

const (
	drumRescuePos        = 0.015
	drumRescueMean       = 0.008
	drumRescueTransient  = 0.02
	drumSparseComboPANNs = 0.008
	drumSparseComboYAM   = 0.00025
	drumSparseStrict     = 0.010
	drumMeanOnlyRescue   = 0.0065
	drumMeanOnlyPANNs    = 0.0080
)

func (coreBandV2) Apply(state *State, ctx *Context) error {
	type decisionEntry struct {
		Mean    float64  `json:"mean"`
		Pos     float64  `json:"pos"`
		Added   bool     `json:"added"`
		Reasons []string `json:"reasons,omitempty"`
	}
	decisions := make(map[string]decisionEntry, len(coreBandGates))
	var added []string

	record := func(key, display string, pass bool, mean, pos float64, reasons []string) {
		newlyAdded := pass && state.Add(display)
		decisions[key] = decisionEntry{Mean: mean, Pos: pos, Added: newlyAdded, Reasons: reasons}
		if newlyAdded {
			added = append(added, display)
		}
	}

	// Drum kit: main gate, transient rescue, then sparse admit when the
	// positive ratio is exactly zero.
	drumMean := ctx.Combined("drum_kit").Mean
	drumPos := maxFloat(ctx.Model(tagging.ModelPANNs, "drum_kit").PosRatio, ctx.Model(tagging.ModelYAMNet, "drum_kit").PosRatio)
	drumPANNsMean := ctx.Model(tagging.ModelPANNs, "drum_kit").Mean
	drumYAMMean := ctx.Model(tagging.ModelYAMNet, "drum_kit").Mean
	gate := coreBandGates["drum_kit"]

	var drumReasons []string
	passDrums := false
	switch {
	case drumMean >= gate.mean && drumPos >= gate.pos:
		passDrums = true
		drumReasons = append(drumReasons, "main gate (mean+pos)")
	case drumPos >= drumRescuePos || drumMean >= drumRescueMean || ctx.WindowPeak("drum_kit") >= drumRescueTransient:
		passDrums = true
		drumReasons = append(drumReasons, "transient rescue")
	case drumPos == 0 && drumPANNsMean >= drumSparseComboPANNs && drumYAMMean >= drumSparseComboYAM:
		passDrums = true
		drumReasons = append(drumReasons, "sparse-combo admit (mean-only cross-model)")
	case drumPos == 0 && drumPANNsMean >= drumSparseStrict:
		passDrums = true
		drumReasons = append(drumReasons, "sparse-single admit (panns mean)")
	case drumMean >= drumMeanOnlyRescue && (drumYAMMean >= drumSparseComboYAM || drumPANNsMean >= drumMeanOnlyPANNs):
		passDrums = true
		drumReasons = append(drumReasons, "mean-only rescue")
	}
	record("drum_kit", "Drum Kit (acoustic)", passDrums, drumMean, drumPos, drumReasons)

	for _, inst := range []struct{ key, display string }{
		{"electric_guitar", "Electric Guitar"},
		{"acoustic_guitar", "Acoustic Guitar"},
		{"bass_guitar", "Bass Guitar"},
	} {
		g := coreBandGates[inst.key]
		mean := ctx.Combined(inst.key).Mean
		pos := maxFloat(ctx.Model(tagging.ModelPANNs, inst.key).PosRatio, ctx.Model(tagging.ModelYAMNet, inst.key).PosRatio)
		record(inst.key, inst.display, mean >= g.mean && pos >= g.pos, mean, pos, nil)
	}

	state.RecordBoost("mix_only_core_v2", map[string]any{
		"decisions": decisions,
		"added":     added,
	})
	return nil
}

// softDrumsRescueV1 improves recall for brush kits with intermittent
// positives: a faint PANNs mean corroborated by YAMNet window hits, or a
// decent PANNs positive ratio on its own.
type softDrumsRescueV1 struct{}

func (softDrumsRescueV1) Name() string { return "soft_drums_rescue_v1" }

func (softDrumsRescueV1) Apply(state *State, ctx *Context) error {
	pannsMean := ctx.Model(tagging.ModelPANNs, "drum_kit").Mean
	pannsPos := ctx.Model(tagging.ModelPANNs, "drum_kit").PosRatio
	yamnetPos := ctx.Model(tagging.ModelYAMNet, "drum_kit").PosRatio

	corroborated := pannsMean >= 0.0032 && yamnetPos >= 0.018
	pannsAlone := pannsPos >= 0.035

	if (corroborated || pannsAlone) && !state.Has("Drum Kit (acoustic)") {
		state.Add("Drum Kit (acoustic)")
		state.RecordBoost("soft_drums_rescue_v1", map[string]any{
			"conditions": map[string]any{
				"panns_mean":   pannsMean,
				"panns_pos":    pannsPos,
				"yamnet_pos":   yamnetPos,
				"corroborated": corroborated,
				"panns_alone":  pannsAlone,
			},
			"added": []string{"Drum Kit (acoustic)"},
		})
	}
	return nil
}

// delicateDrumsV2 accepts strong PANNs drum evidence even when YAMNet is
// silent, on piano-led tracks where brushes disappear under sustain.
type delicateDrumsV2 struct{}

func (delicateDrumsV2) Name() string { return "delicate_drums_v2" }

func (delicateDrumsV2) Apply(state *State, ctx *Context) error {
	if state.Has("Drum Kit (acoustic)") {
		return nil
	}
	pannsDrum := ctx.Model(tagging.ModelPANNs, "drum_kit").Mean
	yamDrum := ctx.Model(tagging.ModelYAMNet, "drum_kit").Mean
	pannsPiano := ctx.Model(tagging.ModelPANNs, "piano").Mean
	combined := ctx.Combined("drum_kit").Mean

	pianoContext := pannsPiano >= 0.008
	if pannsDrum >= 0.0075 && yamDrum <= 0.0005 && (combined >= 0.006 || pianoContext) {
		state.Add("Drum Kit (acoustic)")
		state.RecordBoost("delicate_drums_v2", map[string]any{
			"panns_drum_mean":  pannsDrum,
			"yamnet_drum_mean": yamDrum,
			"piano_context":    pianoContext,
			"added":            []string{"Drum Kit (acoustic)"},
		})
	}
	return nil
}

// bassTrumpetNudge applies the two narrow mix-only tuning rules: bass when a
// drum kit anchors the rhythm section, trumpet when a brass section already
// passed.
type bassTrumpetNudge struct{}

func (bassTrumpetNudge) Name() string { return "mix_only_tune" }

func (bassTrumpetNudge) Apply(state *State, ctx *Context) error {
	entry := map[string]any{}
	var added []string

	if !state.Has("Bass Guitar") && state.Has("Drum Kit (acoustic)") {
		combined := ctx.Combined("bass_guitar").Mean
		panns := ctx.Model(tagging.ModelPANNs, "bass_guitar").Mean
		if combined >= 0.0048 || panns >= 0.0035 {
			state.Add("Bass Guitar")
			added = append(added, "Bass Guitar")
		}
		entry["bass"] = map[string]any{"combined_mean": combined, "panns_mean": panns}
	}

	if !state.Has("Trumpet") && state.Has("Brass (section)") {
		combined := ctx.Combined("trumpet").Mean
		pos := maxFloat(ctx.Model(tagging.ModelPANNs, "trumpet").PosRatio, ctx.Model(tagging.ModelYAMNet, "trumpet").PosRatio)
		if combined >= 0.0022 && pos >= 0.0050 {
			state.Add("Trumpet")
			added = append(added, "Trumpet")
		}
		entry["trumpet"] = map[string]any{"combined_mean": combined, "any_pos": pos}
	}

	if len(entry) > 0 {
		entry["added"] = added
		state.RecordBoost("mix_only_tune", entry)
	}
	return nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
