package decision

import (
	"tutti/internal/evidence"
	"tutti/internal/instruments"
)

// Engine applies the calibrated thresholds to aggregated evidence.
type Engine struct {
	base       Thresholds
	thresholds map[string]Thresholds
	brass      BrassGates
}

// NewEngine builds an engine. Nil maps fall back to the calibrated defaults.
func NewEngine(thresholds map[string]Thresholds, brass BrassGates) *Engine {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	if brass == (BrassGates{}) {
		brass = DefaultBrassGates()
	}
	return &Engine{base: BaseThresholds, thresholds: thresholds, brass: brass}
}

// WithBase overrides the fallback gates for instruments absent from the
// calibrated table. The zero value keeps the default base.
func (e *Engine) WithBase(base Thresholds) *Engine {
	if base != (Thresholds{}) {
		e.base = base
	}
	return e
}

// ThresholdsFor returns the effective gates for a key, including the
// woodwind relaxation caps.
func (e *Engine) ThresholdsFor(key string) Thresholds {
	th, ok := e.thresholds[key]
	if !ok {
		th = e.base
	}
	if _, woodwind := woodwindKeys[key]; woodwind {
		if th.Mean > woodwindMeanCap {
			th.Mean = woodwindMeanCap
		}
		if th.Ratio > woodwindRatioCap {
			th.Ratio = woodwindRatioCap
		}
	}
	return th
}

// DecideTrack evaluates every target instrument against the evidence set.
// Per model: positive when mean and ratio both clear the key's gates. With
// RequireBoth all models must be positive; otherwise any model suffices.
// Either policy also accepts a strong single hit (max mean >= SingleHigh
// with max ratio >= 0.05).
func (e *Engine) DecideTrack(ev *evidence.Set) map[string]bool {
	models := ev.Models()
	out := make(map[string]bool, len(instruments.Targets))
	for _, target := range instruments.Targets {
		th := e.ThresholdsFor(target.Key)

		allPositive := len(models) > 0
		anyPositive := false
		max := ev.Max(target.Key)
		for _, model := range models {
			st := ev.Get(model, target.Key)
			positive := st.Mean >= th.Mean && st.PosRatio >= th.Ratio
			if positive {
				anyPositive = true
			} else {
				allPositive = false
			}
		}

		singleHit := max.Mean >= th.SingleHigh && max.PosRatio >= singleOverrideRatio
		if th.RequireBoth {
			out[target.Key] = allPositive || singleHit
		} else {
			out[target.Key] = anyPositive || singleHit
		}
	}
	return out
}

// BrassGateResult records what the gate did, for the decision trace.
type BrassGateResult struct {
	FamilyPositive bool    `json:"family_positive"`
	GenericMean    float64 `json:"generic_mean"`
	GateRevoked    bool    `json:"gate_revoked"`
	PianoVetoed    bool    `json:"piano_vetoed"`
}

// ApplyBrassGate enforces the conservative brass rules in place. Generic
// brass survives only with a positive specific member or strong combined
// generic evidence; the piano veto additionally revokes member-less brass
// when piano dominates the track.
func (e *Engine) ApplyBrassGate(decisions map[string]bool, ev *evidence.Set) BrassGateResult {
	family := decisions["trumpet"] || decisions["trombone"] || decisions["saxophone"]
	generic := ev.Combined("brass").Mean
	piano := ev.Combined("piano")

	result := BrassGateResult{FamilyPositive: family, GenericMean: generic}

	if !family && generic < e.brass.GenericGate {
		if decisions["brass"] {
			result.GateRevoked = true
		}
		decisions["brass"] = false
	}

	if decisions["brass"] && !family && generic < e.brass.PianoVetoCeiling {
		if piano.Mean >= e.brass.PianoStrongMean || piano.PosRatio >= e.brass.PianoStrongRatio {
			decisions["brass"] = false
			result.PianoVetoed = true
		}
	}
	return result
}
