package decision_test

import (
	"testing"

	"tutti/internal/decision"
	"tutti/internal/evidence"
)

func newEvidence(entries map[string]map[string]evidence.Stats) *evidence.Set {
	set := evidence.NewSet()
	for model, keys := range entries {
		for key, st := range keys {
			set.Put(model, key, st)
		}
	}
	return set
}

func TestDecideTrackEitherPolicy(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})

	cases := []struct {
		name  string
		panns evidence.Stats
		yam   evidence.Stats
		want  bool
	}{
		{"one model clears gates", evidence.Stats{Mean: 0.06, PosRatio: 0.12}, evidence.Stats{}, true},
		{"inclusive boundary", evidence.Stats{Mean: 0.06, PosRatio: 0.12}, evidence.Stats{Mean: 0.001}, true},
		{"just below mean", evidence.Stats{Mean: 0.0599, PosRatio: 0.5}, evidence.Stats{}, false},
		{"ratio missing", evidence.Stats{Mean: 0.10, PosRatio: 0.119}, evidence.Stats{}, false},
		{"single high override", evidence.Stats{Mean: 0.21, PosRatio: 0.05}, evidence.Stats{}, true},
		{"single high needs ratio floor", evidence.Stats{Mean: 0.21, PosRatio: 0.049}, evidence.Stats{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := newEvidence(map[string]map[string]evidence.Stats{
				"panns":  {"electric_guitar": tc.panns},
				"yamnet": {"electric_guitar": tc.yam},
			})
			got := engine.DecideTrack(ev)
			if got["electric_guitar"] != tc.want {
				t.Errorf("electric_guitar = %v, want %v", got["electric_guitar"], tc.want)
			}
		})
	}
}

func TestDecideTrackRequireBoth(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})

	// strings requires both models positive.
	ev := newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"strings": {Mean: 0.11, PosRatio: 0.20}},
		"yamnet": {"strings": {Mean: 0.01, PosRatio: 0.01}},
	})
	if engine.DecideTrack(ev)["strings"] {
		t.Error("strings accepted with one positive model under require-both")
	}

	ev = newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"strings": {Mean: 0.11, PosRatio: 0.20}},
		"yamnet": {"strings": {Mean: 0.10, PosRatio: 0.18}},
	})
	if !engine.DecideTrack(ev)["strings"] {
		t.Error("strings rejected with both models positive")
	}

	// Strong single hit bypasses the policy.
	ev = newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"strings": {Mean: 0.31, PosRatio: 0.06}},
		"yamnet": {"strings": {}},
	})
	if !engine.DecideTrack(ev)["strings"] {
		t.Error("strings rejected despite single-high override")
	}
}

func TestDecideTrackMonotonicUnderStrongerEvidence(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})

	// Accepted at the calibrated gates; scaling its own evidence up must
	// never flip the decision back to rejected.
	base := evidence.Stats{Mean: 0.06, PosRatio: 0.12}
	for _, scale := range []float64{1, 1.5, 2, 4, 8} {
		st := evidence.Stats{
			Mean:     min(base.Mean*scale, 1),
			PosRatio: min(base.PosRatio*scale, 1),
		}
		ev := newEvidence(map[string]map[string]evidence.Stats{
			"panns":  {"electric_guitar": st},
			"yamnet": {"electric_guitar": {}},
		})
		if !engine.DecideTrack(ev)["electric_guitar"] {
			t.Errorf("electric_guitar rejected at scale %v (stats %+v)", scale, st)
		}
	}
}

func TestDecideTrackWoodwindRelaxation(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})
	th := engine.ThresholdsFor("flute")
	if th.Mean > 0.009 || th.Ratio > 0.010 {
		t.Fatalf("flute thresholds = %+v, want mean<=0.009 ratio<=0.010", th)
	}

	ev := newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"flute": {Mean: 0.009, PosRatio: 0.010}},
		"yamnet": {"flute": {Mean: 0.009, PosRatio: 0.010}},
	})
	if !engine.DecideTrack(ev)["flute"] {
		t.Error("flute rejected at exactly the relaxed gates")
	}
}

func TestDecideTrackUnknownKeyUsesBase(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})
	th := engine.ThresholdsFor("timpani")
	if th != decision.BaseThresholds {
		t.Errorf("timpani thresholds = %+v, want base %+v", th, decision.BaseThresholds)
	}
}

func TestBrassGateRequiresFamilyOrStrongGeneric(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})

	// Generic brass with no family member and weak generic evidence loses.
	ev := newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"brass": {Mean: 0.20, PosRatio: 0.3}},
		"yamnet": {"brass": {Mean: 0.10, PosRatio: 0.2}},
	})
	decisions := map[string]bool{"brass": true}
	result := engine.ApplyBrassGate(decisions, ev)
	if decisions["brass"] {
		t.Error("brass survived without family member or strong generic evidence")
	}
	if !result.GateRevoked {
		t.Error("trace should record the revocation")
	}

	// Family member keeps brass alive.
	decisions = map[string]bool{"brass": true, "trumpet": true}
	engine.ApplyBrassGate(decisions, ev)
	if !decisions["brass"] {
		t.Error("brass revoked despite positive trumpet")
	}

	// Strong combined generic evidence also suffices.
	ev = newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"brass": {Mean: 0.30, PosRatio: 0.3}},
		"yamnet": {"brass": {Mean: 0.25, PosRatio: 0.2}},
	})
	decisions = map[string]bool{"brass": true}
	engine.ApplyBrassGate(decisions, ev)
	if !decisions["brass"] {
		t.Error("brass revoked despite combined generic mean >= gate")
	}
}

func TestBrassGatePianoVeto(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})

	// Generic evidence clears the gate (>= 0.45) but sits below the veto
	// ceiling (< 0.50) while piano dominates.
	ev := newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"brass": {Mean: 0.30}, "piano": {Mean: 0.40, PosRatio: 0.35}},
		"yamnet": {"brass": {Mean: 0.17}, "piano": {Mean: 0.25, PosRatio: 0.10}},
	})
	decisions := map[string]bool{"brass": true}
	result := engine.ApplyBrassGate(decisions, ev)
	if decisions["brass"] {
		t.Error("piano veto should revoke member-less brass")
	}
	if !result.PianoVetoed {
		t.Error("trace should record the piano veto")
	}

	// A positive family member disables the veto entirely.
	decisions = map[string]bool{"brass": true, "saxophone": true}
	engine.ApplyBrassGate(decisions, ev)
	if !decisions["brass"] {
		t.Error("piano veto fired despite positive saxophone")
	}
}

func TestBrassGatePianoVetoCeilingIsExclusive(t *testing.T) {
	engine := decision.NewEngine(nil, decision.BrassGates{})
	piano := evidence.Stats{Mean: 0.65, PosRatio: 0.35}

	// Combined generic mean sitting exactly on the veto ceiling is outside
	// the veto band: member-less brass survives even with dominant piano.
	ev := newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"brass": {Mean: 0.30}, "piano": piano},
		"yamnet": {"brass": {Mean: 0.20}},
	})
	decisions := map[string]bool{"brass": true}
	result := engine.ApplyBrassGate(decisions, ev)
	if !decisions["brass"] {
		t.Error("brass revoked at exactly the veto ceiling")
	}
	if result.PianoVetoed {
		t.Error("trace recorded a veto at exactly the ceiling")
	}

	// Just below the ceiling the veto fires.
	ev = newEvidence(map[string]map[string]evidence.Stats{
		"panns":  {"brass": {Mean: 0.30}, "piano": piano},
		"yamnet": {"brass": {Mean: 0.19}},
	})
	decisions = map[string]bool{"brass": true}
	result = engine.ApplyBrassGate(decisions, ev)
	if decisions["brass"] {
		t.Error("brass survived just below the veto ceiling with dominant piano")
	}
	if !result.PianoVetoed {
		t.Error("trace should record the piano veto below the ceiling")
	}
}
