package cascade

import (
	"sort"

	"tutti/internal/instruments"
	"tutti/internal/tagging"
)

// stringsSectionV1 admits the string section from combined mean evidence
// alone. Strings pads never produce window positives at the track gates, so
// there is no positive-ratio requirement here; the pad guard demotion and
// the roll-up revocation keep the false positives in check.
type stringsSectionV1 struct{}

func (stringsSectionV1) Name() string { return "mix_only_strings_v1" }

const (
	stringsMeanOrchestral = 0.0065
	stringsMeanDefault    = 0.0085
	stringsPianoCeiling   = 0.0050
	stringsBrassContext   = 0.0060
	stringsMemberMicro    = 0.0008
)

func (stringsSectionV1) Apply(state *State, ctx *Context) error {
	generic := ctx.Combined("strings").Mean
	brassMean := ctx.Combined("brass").Mean
	pianoMean := ctx.Combined("piano").Mean

	var memberBest float64
	for _, key := range []string{"violin", "viola", "cello", "double_bass"} {
		if m := ctx.Combined(key).Mean; m > memberBest {
			memberBest = m
		}
	}

	// The relaxed gate only applies in an orchestral context: brass energy
	// in the mix, or a member label showing micro evidence. Piano-led
	// tracks keep the stricter gate.
	orchestral := brassMean >= stringsBrassContext || memberBest >= stringsMemberMicro
	gate := stringsMeanDefault
	if orchestral && pianoMean < stringsPianoCeiling {
		gate = stringsMeanOrchestral
	}

	if generic >= gate && !state.Has(instruments.SectionStrings) {
		state.Add(instruments.SectionStrings)
		state.Authorize(instruments.SectionStrings)
		state.RecordBoost("mix_only_strings_v1", map[string]any{
			"generic_mean": generic,
			"gate":         gate,
			"orchestral":   orchestral,
			"member_best":  memberBest,
			"added":        []string{instruments.SectionStrings},
		})
	}
	return nil
}

// woodwindsV2 promotes individual woodwinds in orchestral contexts. The
// admit requires cross-model agreement at very low levels and caps the
// number of additions per track; saxophone runs against scaled gates since
// PANNs confuses it with trumpet and clarinet.
type woodwindsV2 struct{}

func (woodwindsV2) Name() string { return "mix_only_woodwinds_v2" }

const (
	woodwindSumMean  = 0.0045
	woodwindSumPos   = 0.015
	woodwindAnyPos   = 0.010
	woodwindContext  = 0.005
	woodwindSaxScale = 1.4
	woodwindMaxAdds  = 2
)

func (woodwindsV2) Apply(state *State, ctx *Context) error {
	orchestral := state.Has(instruments.SectionStrings) || state.Has(instruments.SectionBrass) ||
		ctx.Combined("strings").Mean >= woodwindContext || ctx.Combined("brass").Mean >= woodwindContext
	if !orchestral {
		return nil
	}

	type candidate struct {
		key     string
		display string
		score   float64
		mean    float64
		pos     float64
	}
	var candidates []candidate
	for _, key := range []string{"flute", "clarinet", "oboe", "bassoon", "saxophone"} {
		display := instruments.DisplayName(key)
		if state.Has(display) {
			continue
		}
		mean := ctx.Combined(key).Mean
		sumPos := ctx.Model(tagging.ModelPANNs, key).PosRatio + ctx.Model(tagging.ModelYAMNet, key).PosRatio
		anyPos := maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio)

		meanGate, posGate, anyGate := woodwindSumMean, woodwindSumPos, woodwindAnyPos
		if key == "saxophone" {
			meanGate *= woodwindSaxScale
			posGate *= woodwindSaxScale
			anyGate *= woodwindSaxScale
		}
		if mean >= meanGate && (sumPos >= posGate || anyPos >= anyGate) {
			candidates = append(candidates, candidate{
				key:     key,
				display: display,
				score:   mean*0.7 + anyPos*0.3,
				mean:    mean,
				pos:     anyPos,
			})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > woodwindMaxAdds {
		candidates = candidates[:woodwindMaxAdds]
	}

	var added []string
	evidenceTrace := make(map[string]any, len(candidates))
	for _, c := range candidates {
		if state.Add(c.display) {
			added = append(added, c.display)
		}
		evidenceTrace[c.key] = map[string]float64{"sum_mean": c.mean, "any_pos": c.pos, "score": c.score}
	}
	state.RecordBoost("mix_only_woodwinds_v2", map[string]any{
		"candidates": evidenceTrace,
		"added":      added,
	})
	return nil
}

// percussionColorV1 covers timpani and harp, which only occur in orchestral
// material and never clear the base track thresholds.
type percussionColorV1 struct{}

func (percussionColorV1) Name() string { return "mix_only_timpani_harp_v1" }

const (
	colorMean    = 0.004
	colorPos     = 0.012
	colorContext = 0.005
)

func (percussionColorV1) Apply(state *State, ctx *Context) error {
	orchestral := state.Has(instruments.SectionStrings) || state.Has(instruments.SectionBrass) ||
		ctx.Combined("strings").Mean >= colorContext || ctx.Combined("brass").Mean >= colorContext
	if !orchestral {
		return nil
	}

	var added []string
	trace := make(map[string]any, 2)
	for _, key := range []string{"timpani", "harp"} {
		display := instruments.DisplayName(key)
		mean := ctx.Combined(key).Mean
		pos := maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio)
		pass := mean >= colorMean && pos >= colorPos
		trace[key] = map[string]any{"mean": mean, "pos": pos, "pass": pass}
		if pass && state.Add(display) {
			added = append(added, display)
		}
	}
	if len(added) > 0 {
		trace["added"] = added
		state.RecordBoost("mix_only_timpani_harp_v1", trace)
	}
	return nil
}

// brassSectionV1 admits the brass section from faint combined evidence: the
// generic label with any window support, or the horn labels summing high
// enough even when none passes alone. A successful admit carries an
// authorization so the roll-up does not immediately revoke it.
type brassSectionV1 struct{}

func (brassSectionV1) Name() string { return "mix_only_brass_v1" }

const (
	brassGenericMean = 0.005
	brassGenericPos  = 0.005
	brassHornSum     = 0.008
)

func (brassSectionV1) Apply(state *State, ctx *Context) error {
	if state.Has(instruments.SectionBrass) {
		return nil
	}
	genericMean := ctx.Combined("brass").Mean
	genericPos := maxFloat(ctx.Model(tagging.ModelPANNs, "brass").PosRatio, ctx.Model(tagging.ModelYAMNet, "brass").PosRatio)

	var hornSum float64
	for _, key := range []string{"trumpet", "trombone", "french_horn", "tuba"} {
		hornSum += ctx.Combined(key).Mean
	}

	genericPath := genericMean >= brassGenericMean && genericPos >= brassGenericPos
	hornPath := hornSum >= brassHornSum
	if genericPath || hornPath {
		state.Add(instruments.SectionBrass)
		state.Authorize(instruments.SectionBrass)
		state.RecordBoost("mix_only_brass_v1", map[string]any{
			"generic_mean": genericMean,
			"generic_pos":  genericPos,
			"horn_sum":     hornSum,
			"generic_path": genericPath,
			"horn_path":    hornPath,
			"added":        []string{instruments.SectionBrass},
		})
	}
	return nil
}

// hornsSpecificV1 names the individual horns once a brass context exists.
// Saxophone evidence vetoes a horn whose own evidence it dwarfs, since the
// models bleed sax energy into the trumpet and trombone labels.
type hornsSpecificV1 struct{}

func (hornsSpecificV1) Name() string { return "mix_only_horns_specific_v1" }

const (
	hornContextMean = 0.006
	hornMean        = 0.0025
	hornPos         = 0.0050
	hornSaxGuard    = 1.3
)

func (hornsSpecificV1) Apply(state *State, ctx *Context) error {
	if !state.Has(instruments.SectionBrass) && ctx.Combined("brass").Mean < hornContextMean {
		return nil
	}
	saxMean := ctx.Combined("saxophone").Mean

	var added []string
	trace := make(map[string]any)
	for _, key := range []string{"trumpet", "trombone", "french_horn"} {
		display := instruments.DisplayName(key)
		if state.Has(display) {
			continue
		}
		mean := ctx.Combined(key).Mean
		pos := maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio)
		saxVeto := saxMean > mean*hornSaxGuard
		pass := mean >= hornMean && pos >= hornPos && !saxVeto
		trace[key] = map[string]any{"mean": mean, "pos": pos, "sax_veto": saxVeto, "pass": pass}
		if pass && state.Add(display) {
			added = append(added, display)
		}
	}
	if len(added) > 0 {
		trace["added"] = added
		state.RecordBoost("mix_only_horns_specific_v1", trace)
	}
	return nil
}

// woodwindsSectionAnyV1 raises the section label from any single woodwind
// showing PANNs evidence, without naming the instrument.
type woodwindsSectionAnyV1 struct{}

func (woodwindsSectionAnyV1) Name() string { return "woodwinds_section_any_v1" }

func (woodwindsSectionAnyV1) Apply(state *State, ctx *Context) error {
	if state.Has(instruments.SectionWoodwinds) {
		return nil
	}
	var bestMean, bestPos float64
	for _, key := range []string{"flute", "clarinet", "saxophone"} {
		if m := ctx.Model(tagging.ModelPANNs, key).Mean; m > bestMean {
			bestMean = m
		}
		if p := ctx.Model(tagging.ModelPANNs, key).PosRatio; p > bestPos {
			bestPos = p
		}
	}
	if bestMean >= 0.0015 || bestPos >= 0.008 {
		state.Add(instruments.SectionWoodwinds)
		state.RecordBoost("woodwinds_section_any_v1", map[string]any{
			"best_panns_mean": bestMean,
			"best_panns_pos":  bestPos,
			"added":           []string{instruments.SectionWoodwinds},
		})
	}
	return nil
}

// robustFamilyRollupV1 admits the woodwind section from the family average
// when another orchestral section is already on the track. The average runs
// over the four classical woodwinds only.
type robustFamilyRollupV1 struct{}

func (robustFamilyRollupV1) Name() string { return "robust_family_rollup_v1" }

func (robustFamilyRollupV1) Apply(state *State, ctx *Context) error {
	if state.Has(instruments.SectionWoodwinds) {
		return nil
	}
	if !state.Has(instruments.SectionStrings) && !state.Has(instruments.SectionBrass) {
		return nil
	}
	keys := []string{"flute", "clarinet", "oboe", "bassoon"}
	var sum float64
	for _, key := range keys {
		sum += ctx.Combined(key).Mean
	}
	avg := sum / float64(len(keys))
	if avg >= 0.0004 {
		state.Add(instruments.SectionWoodwinds)
		state.RecordBoost("robust_family_rollup_v1", map[string]any{
			"family_avg_mean": avg,
			"added":           []string{instruments.SectionWoodwinds},
		})
	}
	return nil
}

// stringsPadGuardV1 demotes a string section that looks like a synth pad:
// no PANNs window positives on the generic label, no member positives, and
// a keyboard instrument carrying the track.
type stringsPadGuardV1 struct{}

func (stringsPadGuardV1) Name() string { return "strings_pad_guard_v1" }

func (stringsPadGuardV1) Apply(state *State, ctx *Context) error {
	if !state.Has(instruments.SectionStrings) {
		return nil
	}
	keyboardPresent := false
	for _, display := range instruments.KeyboardDisplays {
		if state.Has(display) {
			keyboardPresent = true
			break
		}
	}
	if !keyboardPresent {
		return nil
	}

	genericPos := ctx.Model(tagging.ModelPANNs, "strings").PosRatio
	var memberPos float64
	for _, key := range []string{"violin", "viola", "cello", "double_bass"} {
		if p := maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio); p > memberPos {
			memberPos = p
		}
	}

	if genericPos < 0.025 && memberPos < 0.012 {
		state.Remove(instruments.SectionStrings)
		state.RecordBoost("strings_pad_guard_v1", map[string]any{
			"generic_panns_pos": genericPos,
			"member_best_pos":   memberPos,
			"removed":           []string{instruments.SectionStrings},
		})
	}
	return nil
}
