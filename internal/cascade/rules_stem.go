package cascade

import (
	"tutti/internal/instruments"
	"tutti/internal/separation"
	"tutti/internal/tagging"
)

// orchestralHornV1 recovers the french horn from stem evidence. Horn energy
// lands almost entirely in the "other" stem; the mixture floor keeps random
// stem bleed from promoting anything.
type orchestralHornV1 struct{}

func (orchestralHornV1) Name() string { return "stem_orchestral_horn_v1" }

const (
	hornStemSum      = 0.010
	hornStemMix      = 0.0012
	hornStemOtherTpt = 0.0020
	hornStemOtherTbn = 0.0028
)

func (orchestralHornV1) Apply(state *State, ctx *Context) error {
	if !ctx.UsedStems {
		return nil
	}
	var added []string
	trace := make(map[string]any)

	frhnSum := ctx.StemSum("french_horn")
	frhnMix := ctx.StemCombined(separation.MixStem, "french_horn").Mean
	trace["french_horn"] = map[string]float64{"stem_sum": frhnSum, "mix_mean": frhnMix}
	if frhnSum >= hornStemSum && frhnMix >= hornStemMix {
		if state.Add(instruments.DisplayName("french_horn")) {
			added = append(added, instruments.DisplayName("french_horn"))
		}
	}

	for _, horn := range []struct {
		key  string
		gate float64
	}{
		{"trumpet", hornStemOtherTpt},
		{"trombone", hornStemOtherTbn},
	} {
		other := ctx.StemCombined("other", horn.key).Mean
		trace[horn.key] = map[string]float64{"other_mean": other}
		if other >= horn.gate {
			display := instruments.DisplayName(horn.key)
			if state.Add(display) {
				added = append(added, display)
			}
		}
	}

	if len(added) > 0 {
		trace["added"] = added
		state.RecordBoost("stem_orchestral_horn_v1", trace)
	}
	return nil
}

// hornBoostV2 raises the brass section when the three horn labels together
// carry enough stem energy, even when no single horn clears its own gate.
type hornBoostV2 struct{}

func (hornBoostV2) Name() string { return "stem_horn_boost_v2" }

const (
	hornBoostSum3         = 0.012
	hornBoostFrhnMix      = 0.0008
	hornBoostFrhnOther    = 0.0012
	hornBoostSectionCount = 2
)

func (hornBoostV2) Apply(state *State, ctx *Context) error {
	if !ctx.UsedStems {
		return nil
	}
	hornKeys := []string{"trumpet", "trombone", "french_horn"}
	var sum3 float64
	for _, key := range hornKeys {
		sum3 += ctx.StemSum(key)
	}

	frhnMix := ctx.StemCombined(separation.MixStem, "french_horn").Mean
	frhnOther := ctx.StemCombined("other", "french_horn").Mean

	var added []string
	if sum3 >= hornBoostSum3 && frhnMix >= hornBoostFrhnMix && frhnOther >= hornBoostFrhnOther {
		display := instruments.DisplayName("french_horn")
		if state.Add(display) {
			added = append(added, display)
		}
	}

	hornCount := 0
	for _, key := range hornKeys {
		if state.Has(instruments.DisplayName(key)) {
			hornCount++
		}
	}
	if hornCount >= hornBoostSectionCount && !state.Has(instruments.SectionBrass) {
		state.Add(instruments.SectionBrass)
		state.Authorize(instruments.SectionBrass)
		added = append(added, instruments.SectionBrass)
	}

	if len(added) > 0 {
		state.RecordBoost("stem_horn_boost_v2", map[string]any{
			"horn_sum3":         sum3,
			"french_horn_mix":   frhnMix,
			"french_horn_other": frhnOther,
			"horn_count":        hornCount,
			"added":             added,
		})
	}
	return nil
}

// stringsSectionBoostV1 admits the string section from stem evidence:
// either the generic label alone, or enough member labels agreeing across
// the mixture and the "other" stem.
type stringsSectionBoostV1 struct{}

func (stringsSectionBoostV1) Name() string { return "stem_strings_section_boost_v1" }

const (
	stringsStemSumAll     = 0.022
	stringsStemInstMix    = 0.0015
	stringsStemInstOther  = 0.0020
	stringsStemGenMix     = 0.0025
	stringsStemGenOther   = 0.0035
	stringsStemCount      = 2
	stringsStemGenOnlySum = 0.028
)

func (stringsSectionBoostV1) Apply(state *State, ctx *Context) error {
	if !ctx.UsedStems || state.Has(instruments.SectionStrings) {
		return nil
	}
	memberKeys := []string{"violin", "viola", "cello", "double_bass"}

	sumAll := ctx.StemSum("strings")
	for _, key := range memberKeys {
		sumAll += ctx.StemSum(key)
	}

	genMix := ctx.StemCombined(separation.MixStem, "strings").Mean
	genOther := ctx.StemCombined("other", "strings").Mean
	genericPass := genMix >= stringsStemGenMix && genOther >= stringsStemGenOther

	memberHits := 0
	for _, key := range memberKeys {
		mix := ctx.StemCombined(separation.MixStem, key).Mean
		other := ctx.StemCombined("other", key).Mean
		if mix >= stringsStemInstMix && other >= stringsStemInstOther {
			memberHits++
		}
	}

	pass := sumAll >= stringsStemSumAll && (genericPass || memberHits >= stringsStemCount)
	genericOnly := ctx.StemSum("strings") >= stringsStemGenOnlySum
	if pass || genericOnly {
		state.Add(instruments.SectionStrings)
		state.Authorize(instruments.SectionStrings)
		state.RecordBoost("stem_strings_section_boost_v1", map[string]any{
			"sum_all":      sumAll,
			"generic_pass": genericPass,
			"member_hits":  memberHits,
			"generic_only": genericOnly,
			"added":        []string{instruments.SectionStrings},
		})
	}
	return nil
}

// woodwindsStemV1 promotes woodwinds from stem evidence, with a dedicated
// relaxed path for solo flute which separates cleanly into the other stem.
type woodwindsStemV1 struct{}

func (woodwindsStemV1) Name() string { return "stem_woodwinds_v1" }

const (
	wwStemSum    = 0.010
	wwStemMix    = 0.0009
	wwStemOther  = 0.0011
	wwStemPosAny = 0.015
	wwStemCount  = 2

	fluteStemSum    = 0.006
	fluteStemMix    = 0.0022
	fluteStemOther  = 0.0030
	fluteStemPosAny = 0.025
)

func (woodwindsStemV1) Apply(state *State, ctx *Context) error {
	if !ctx.UsedStems {
		return nil
	}
	keys := []string{"flute", "clarinet", "oboe", "bassoon"}

	var added []string
	hits := 0
	trace := make(map[string]any)
	for _, key := range keys {
		sum := ctx.StemSum(key)
		mix := ctx.StemCombined(separation.MixStem, key).Mean
		other := ctx.StemCombined("other", key).Mean
		posAny := maxFloat(ctx.StemCombined("other", key).PosRatio, ctx.StemCombined(separation.MixStem, key).PosRatio)

		pass := sum >= wwStemSum && mix >= wwStemMix && other >= wwStemOther && posAny >= wwStemPosAny
		if !pass && key == "flute" {
			pass = sum >= fluteStemSum && mix >= fluteStemMix && other >= fluteStemOther && posAny >= fluteStemPosAny
		}
		trace[key] = map[string]any{"stem_sum": sum, "mix_mean": mix, "other_mean": other, "pos_any": posAny, "pass": pass}
		if pass {
			hits++
			display := instruments.DisplayName(key)
			if state.Add(display) {
				added = append(added, display)
			}
		}
	}

	if hits >= wwStemCount && !state.Has(instruments.SectionWoodwinds) {
		state.Add(instruments.SectionWoodwinds)
		added = append(added, instruments.SectionWoodwinds)
	}

	if len(added) > 0 {
		trace["added"] = added
		state.RecordBoost("stem_woodwinds_v1", trace)
	}
	return nil
}

// timpaniStemV1 admits timpani from drum-stem evidence. Timpani rolls land
// in the drums stem with window positives that the mixture path smears away.
type timpaniStemV1 struct{}

func (timpaniStemV1) Name() string { return "stem_timpani_v1" }

const (
	timpStemSum    = 0.0065
	timpStemMix    = 0.0040
	timpStemDrums  = 0.0040
	timpStemPosAny = 0.020
)

func (timpaniStemV1) Apply(state *State, ctx *Context) error {
	if !ctx.UsedStems || state.Has(instruments.DisplayName("timpani")) {
		return nil
	}
	sum := ctx.StemSum("timpani")
	mix := ctx.StemCombined(separation.MixStem, "timpani").Mean
	drums := ctx.StemCombined("drums", "timpani").Mean
	posAny := maxFloat(ctx.StemCombined("drums", "timpani").PosRatio, ctx.StemCombined(separation.MixStem, "timpani").PosRatio)

	if sum >= timpStemSum && mix >= timpStemMix && drums >= timpStemDrums && posAny >= timpStemPosAny {
		state.Add(instruments.DisplayName("timpani"))
		state.RecordBoost("stem_timpani_v1", map[string]any{
			"stem_sum":   sum,
			"mix_mean":   mix,
			"drums_mean": drums,
			"pos_any":    posAny,
			"added":      []string{instruments.DisplayName("timpani")},
		})
	}
	return nil
}

// brassSectionMetaV1 infers the section label from two horns showing real
// window positives with enough combined mean between them.
type brassSectionMetaV1 struct{}

func (brassSectionMetaV1) Name() string { return "stem_brass_section_meta_v1" }

func (brassSectionMetaV1) Apply(state *State, ctx *Context) error {
	if state.Has(instruments.SectionBrass) {
		return nil
	}
	hornKeys := []string{"trumpet", "trombone", "french_horn", "tuba"}
	positives := 0
	var meanSum float64
	for _, key := range hornKeys {
		pos := maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio)
		if pos >= 0.03 {
			positives++
		}
		meanSum += ctx.Combined(key).Mean
	}
	if positives >= 2 && meanSum >= 0.040 {
		state.Add(instruments.SectionBrass)
		state.Authorize(instruments.SectionBrass)
		state.RecordBoost("stem_brass_section_meta_v1", map[string]any{
			"horn_positives": positives,
			"horn_mean_sum":  meanSum,
			"added":          []string{instruments.SectionBrass},
		})
	}
	return nil
}

// saxStemAssistV1 names the saxophone from other-stem evidence when the
// mixture path missed it.
type saxStemAssistV1 struct{}

func (saxStemAssistV1) Name() string { return "stem_sax_assist_v1" }

func (saxStemAssistV1) Apply(state *State, ctx *Context) error {
	if !ctx.UsedStems || state.Has(instruments.DisplayName("saxophone")) {
		return nil
	}
	other := ctx.StemCombined("other", "saxophone")
	if other.Mean >= 0.006 && other.PosRatio >= 0.015 {
		state.Add(instruments.DisplayName("saxophone"))
		state.RecordBoost("stem_sax_assist_v1", map[string]any{
			"other_mean": other.Mean,
			"other_pos":  other.PosRatio,
			"added":      []string{instruments.DisplayName("saxophone")},
		})
	}
	return nil
}
