package cascade

import (
	"sort"

	"tutti/internal/instruments"
	"tutti/internal/tagging"
)

// rescueIfEmpty keeps clearly musical tracks from coming back with nothing.
// It only runs when every earlier rule left the list empty, picks from a
// short list of common instruments, and is bounded to a handful of adds.
type rescueIfEmpty struct{}

func (rescueIfEmpty) Name() string { return "rescue_if_empty_v1" }

const (
	rescueMeanAny  = 0.006
	rescuePosAny   = 0.02
	rescuePANNsPos = 0.06
	rescueMaxPicks = 4
	rescuePianoDom = 2.0
)

var rescueKeys = []string{
	"acoustic_guitar", "electric_guitar", "bass_guitar",
	"drum_kit", "piano", "organ",
	"strings", "brass",
}

func (rescueIfEmpty) Apply(state *State, ctx *Context) error {
	if len(state.Instruments()) > 0 {
		return nil
	}

	pianoMean := ctx.Combined("piano").Mean

	type candidate struct {
		key   string
		score float64
	}
	var candidates []candidate
	trace := make(map[string]any)
	for _, key := range rescueKeys {
		combined := ctx.Combined(key)
		anyPos := maxFloat(ctx.Model(tagging.ModelPANNs, key).PosRatio, ctx.Model(tagging.ModelYAMNet, key).PosRatio)
		pannsPos := ctx.Model(tagging.ModelPANNs, key).PosRatio

		pass := combined.Mean >= rescueMeanAny || anyPos >= rescuePosAny || pannsPos >= rescuePANNsPos
		// Piano bleeds into the section labels; a section only qualifies
		// when piano does not dwarf its evidence.
		if pass && instruments.IsSection(instruments.DisplayName(key)) && pianoMean >= combined.Mean*rescuePianoDom {
			pass = false
		}
		trace[key] = map[string]any{"mean": combined.Mean, "any_pos": anyPos, "panns_pos": pannsPos, "pass": pass}
		if pass {
			candidates = append(candidates, candidate{key: key, score: combined.Mean + anyPos})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > rescueMaxPicks {
		candidates = candidates[:rescueMaxPicks]
	}

	var added []string
	for _, c := range candidates {
		display := instruments.DisplayName(c.key)
		if state.Add(display) {
			added = append(added, display)
		}
	}
	trace["added"] = added
	state.RecordBoost("rescue_if_empty_v1", trace)
	return nil
}
