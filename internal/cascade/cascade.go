package cascade

import "log/slog"

// DefaultRules returns the booster catalogue in application order:
// promotions first, then demotions, then the bounded rescue, then the
// family roll-up. Stem rules are included always and gate themselves on
// Context.UsedStems.
func DefaultRules() []Rule {
	return []Rule{
		coreBandV2{},
		softDrumsRescueV1{},
		delicateDrumsV2{},
		stringsSectionV1{},
		brassSectionV1{},
		hornsSpecificV1{},
		woodwindsV2{},
		percussionColorV1{},
		woodwindsSectionAnyV1{},
		robustFamilyRollupV1{},
		orchestralHornV1{},
		hornBoostV2{},
		stringsSectionBoostV1{},
		woodwindsStemV1{},
		timpaniStemV1{},
		brassSectionMetaV1{},
		saxStemAssistV1{},
		bassTrumpetNudge{},
		stringsPadGuardV1{},
		rescueIfEmpty{},
		familyRollup{},
	}
}

// Apply runs the default catalogue over the engine's accepted instruments
// and returns the final collapsed list.
func Apply(logger *slog.Logger, initial []string, ctx *Context) ([]string, *State) {
	state := NewState(initial)
	Run(logger, state, ctx, DefaultRules())
	return Collapse(state), state
}
