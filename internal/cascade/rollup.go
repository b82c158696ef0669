package cascade

import (
	"tutti/internal/instruments"
	"tutti/internal/tagging"
)

// familyRollup groups positive family members under their section labels and
// revokes sections that no member or authorization supports.
type familyRollup struct{}

func (familyRollup) Name() string { return "family_rollup_v1" }

const (
	rollupChildPos    = 0.01
	rollupChildMean   = 0.006
	rollupPromotePos  = 0.005
	rollupPromoteMean = 0.003
)

func (familyRollup) Apply(state *State, ctx *Context) error {
	trace := make(map[string]any)

	// Woodwind children raise the section label. A strong positive ratio is
	// enough alone; a decent mean needs at least one window positive.
	if !state.Has(instruments.SectionWoodwinds) {
		for _, key := range instruments.FamilyMembers(instruments.SectionWoodwinds) {
			pos := maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio)
			mean := ctx.Combined(key).Mean
			promoted := pos >= rollupChildPos || (mean >= rollupChildMean && pos > 0) ||
				(state.Has(instruments.DisplayName(key)) && (pos >= rollupPromotePos || (mean >= rollupPromoteMean && pos > 0)))
			if promoted {
				state.Add(instruments.SectionWoodwinds)
				trace["woodwinds_promoted_by"] = key
				break
			}
		}
	}

	// Brass (section) needs a horn member with window positives, unless a
	// booster authorized it from generic evidence.
	if state.Has(instruments.SectionBrass) && !state.Authorized(instruments.SectionBrass) {
		supported := false
		for _, key := range instruments.FamilyMembers(instruments.SectionBrass) {
			if key == "brass" {
				continue
			}
			if maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio) > 0 {
				supported = true
				break
			}
		}
		if !supported {
			state.Remove(instruments.SectionBrass)
			trace["brass_revoked"] = true
		}
	}

	// Same shape for strings, against the generic label's own positives.
	if state.Has(instruments.SectionStrings) && !state.Authorized(instruments.SectionStrings) {
		genericPos := maxFloat(ctx.Model(tagging.ModelPANNs, "strings").PosRatio, ctx.Model(tagging.ModelYAMNet, "strings").PosRatio)
		if genericPos == 0 {
			state.Remove(instruments.SectionStrings)
			trace["strings_revoked"] = true
		}
	}

	if len(trace) > 0 {
		state.RecordBoost("family_rollup_v1", trace)
	}
	return nil
}

// Collapse hides family members behind their present section labels and
// returns the final list. Non-section instruments keep their insertion
// order; sections come last in a stable Strings, Brass, Woodwinds order.
func Collapse(state *State) []string {
	sections := make(map[string]bool, 3)
	hidden := make(map[string]struct{})
	for _, section := range instruments.SectionLabels() {
		if !state.Has(section) {
			continue
		}
		sections[section] = true
		for _, key := range instruments.FamilyMembers(section) {
			hidden[instruments.DisplayName(key)] = struct{}{}
		}
	}

	var out []string
	for _, name := range state.Instruments() {
		if instruments.IsSection(name) {
			continue
		}
		if _, ok := hidden[name]; ok {
			continue
		}
		out = append(out, name)
	}
	for _, section := range []string{instruments.SectionStrings, instruments.SectionBrass, instruments.SectionWoodwinds} {
		if sections[section] {
			out = append(out, section)
		}
	}
	return out
}
