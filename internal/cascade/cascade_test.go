package cascade_test

import (
	"errors"
	"reflect"
	"testing"

	"tutti/internal/cascade"
	"tutti/internal/evidence"
	"tutti/internal/logging"
)

func evidenceSet(entries map[string]map[string]evidence.Stats) *evidence.Set {
	set := evidence.NewSet()
	for model, keys := range entries {
		for key, st := range keys {
			set.Put(model, key, st)
		}
	}
	return set
}

func mixContext(entries map[string]map[string]evidence.Stats) *cascade.Context {
	return &cascade.Context{Evidence: evidenceSet(entries)}
}

type panicRule struct{}

func (panicRule) Name() string { return "panic_rule" }
func (panicRule) Apply(*cascade.State, *cascade.Context) error {
	panic("boom")
}

type errorRule struct{}

func (errorRule) Name() string { return "error_rule" }
func (errorRule) Apply(*cascade.State, *cascade.Context) error {
	return errors.New("rule broke")
}

type addRule struct{ name string }

func (r addRule) Name() string { return "add_rule" }
func (r addRule) Apply(s *cascade.State, _ *cascade.Context) error {
	s.Add(r.name)
	return nil
}

func TestRunContainsFailures(t *testing.T) {
	state := cascade.NewState(nil)
	ctx := mixContext(nil)
	cascade.Run(logging.NewNop(), state, ctx, []cascade.Rule{
		panicRule{},
		errorRule{},
		addRule{name: "Piano"},
	})

	if len(state.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2 entries", state.Warnings)
	}
	if !state.Has("Piano") {
		t.Error("rule after a failure did not run")
	}
}

func TestCoreBandPromotions(t *testing.T) {
	cases := []struct {
		name    string
		entries map[string]map[string]evidence.Stats
		want    string
		present bool
	}{
		{
			"electric guitar main gate",
			map[string]map[string]evidence.Stats{
				"panns":  {"electric_guitar": {Mean: 0.004, PosRatio: 0.023}},
				"yamnet": {"electric_guitar": {Mean: 0.002}},
			},
			"Electric Guitar", true,
		},
		{
			"electric guitar below pos gate",
			map[string]map[string]evidence.Stats{
				"panns": {"electric_guitar": {Mean: 0.010, PosRatio: 0.022}},
			},
			"Electric Guitar", false,
		},
		{
			"bass guitar has no pos requirement",
			map[string]map[string]evidence.Stats{
				"panns": {"bass_guitar": {Mean: 0.004}},
			},
			"Bass Guitar", true,
		},
		{
			"drum sparse cross-model admit at zero pos",
			map[string]map[string]evidence.Stats{
				"panns":  {"drum_kit": {Mean: 0.008}},
				"yamnet": {"drum_kit": {Mean: 0.00025}},
			},
			"Drum Kit (acoustic)", true,
		},
		{
			"drum below every admit path",
			map[string]map[string]evidence.Stats{
				"panns": {"drum_kit": {Mean: 0.001, PosRatio: 0.001}},
			},
			"Drum Kit (acoustic)", false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			final, _ := cascade.Apply(logging.NewNop(), nil, mixContext(tc.entries))
			got := false
			for _, name := range final {
				if name == tc.want {
					got = true
				}
			}
			if got != tc.present {
				t.Errorf("final = %v, want %s present=%v", final, tc.want, tc.present)
			}
		})
	}
}

func TestDrumTransientRescueUsesWindowPeak(t *testing.T) {
	ctx := mixContext(map[string]map[string]evidence.Stats{
		"panns": {"drum_kit": {Mean: 0.001, PosRatio: 0.001}},
	})
	ctx.PerWindow = map[string]map[string][]float64{
		"panns": {"drum_kit": {0.001, 0.021, 0.002}},
	}
	final, _ := cascade.Apply(logging.NewNop(), nil, ctx)
	found := false
	for _, name := range final {
		if name == "Drum Kit (acoustic)" {
			found = true
		}
	}
	if !found {
		t.Errorf("final = %v, want drum kit via transient peak", final)
	}
}

func TestSoftDrumsRescue(t *testing.T) {
	ctx := mixContext(map[string]map[string]evidence.Stats{
		"panns":  {"drum_kit": {Mean: 0.0032, PosRatio: 0.001}},
		"yamnet": {"drum_kit": {Mean: 0.0001, PosRatio: 0.018}},
	})
	final, state := cascade.Apply(logging.NewNop(), nil, ctx)
	found := false
	for _, name := range final {
		if name == "Drum Kit (acoustic)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("final = %v, want soft drums rescue to fire", final)
	}
	if _, ok := state.Boosts["soft_drums_rescue_v1"]; !ok {
		t.Error("missing soft_drums_rescue_v1 trace entry")
	}
}

func TestBrassAuthorizationSurvivesRollup(t *testing.T) {
	// Generic brass evidence with zero horn member positives: the section
	// admit authorizes itself, so the roll-up must not revoke it.
	ctx := mixContext(map[string]map[string]evidence.Stats{
		"panns":  {"brass": {Mean: 0.004, PosRatio: 0.006}},
		"yamnet": {"brass": {Mean: 0.002, PosRatio: 0.005}},
	})
	final, state := cascade.Apply(logging.NewNop(), nil, ctx)
	if !state.Authorized("Brass (section)") {
		t.Fatal("brass admit did not record an authorization")
	}
	found := false
	for _, name := range final {
		if name == "Brass (section)" {
			found = true
		}
	}
	if !found {
		t.Errorf("final = %v, authorized brass section was revoked", final)
	}
}

func TestUnauthorizedBrassRevoked(t *testing.T) {
	// Seeded from the track decisions without booster authorization and with
	// no horn member positives, the section does not survive the roll-up.
	ctx := mixContext(nil)
	final, _ := cascade.Apply(logging.NewNop(), []string{"Brass (section)"}, ctx)
	for _, name := range final {
		if name == "Brass (section)" {
			t.Errorf("final = %v, unauthorized brass section survived", final)
		}
	}
}

func TestStringsPadGuardDemotion(t *testing.T) {
	// Keyboard present, generic strings without window positives: demoted.
	ctx := mixContext(map[string]map[string]evidence.Stats{
		"panns": {"strings": {Mean: 0.02, PosRatio: 0.0}},
	})
	final, state := cascade.Apply(logging.NewNop(), []string{"Piano", "Strings (section)"}, ctx)
	for _, name := range final {
		if name == "Strings (section)" {
			t.Errorf("final = %v, pad guard should have removed the section", final)
		}
	}
	if _, ok := state.Boosts["strings_pad_guard_v1"]; !ok {
		t.Error("missing strings_pad_guard_v1 trace entry")
	}
}

func TestRescueIfEmptyBounded(t *testing.T) {
	// Five keys qualify for the rescue while sitting below every promotion
	// gate; the rescue caps at four picks ranked by evidence.
	entries := map[string]map[string]evidence.Stats{
		"panns": {
			"piano":           {Mean: 0.010, PosRatio: 0.001},
			"organ":           {Mean: 0.009, PosRatio: 0.001},
			"strings":         {Mean: 0.007, PosRatio: 0.001},
			"brass":           {Mean: 0.0059, PosRatio: 0.001},
			"electric_guitar": {Mean: 0.0065, PosRatio: 0.010},
		},
	}
	final, state := cascade.Apply(logging.NewNop(), nil, mixContext(entries))
	if _, ok := state.Boosts["rescue_if_empty_v1"]; !ok {
		t.Fatalf("rescue did not run; final = %v, boosts = %v", final, state.Boosts)
	}
	if len(final) > 4 {
		t.Errorf("rescue produced %d instruments, cap is 4: %v", len(final), final)
	}
	found := false
	for _, name := range final {
		if name == "Piano" {
			found = true
		}
	}
	if !found {
		t.Errorf("final = %v, strongest candidate missing", final)
	}
}

func TestRescueSkippedWhenNonEmpty(t *testing.T) {
	_, state := cascade.Apply(logging.NewNop(), []string{"Piano"}, mixContext(nil))
	if _, ok := state.Boosts["rescue_if_empty_v1"]; ok {
		t.Error("rescue ran on a non-empty instrument list")
	}
}

func TestRescuePianoDominanceGuard(t *testing.T) {
	// Strings evidence qualifies on its own but piano dwarfs it, so the
	// section is not rescued while piano is.
	entries := map[string]map[string]evidence.Stats{
		"panns": {
			"piano":   {Mean: 0.020, PosRatio: 0.03},
			"strings": {Mean: 0.007, PosRatio: 0.001},
		},
	}
	state := cascade.NewState(nil)
	ctx := mixContext(entries)
	cascade.Run(logging.NewNop(), state, ctx, []cascade.Rule{rescueOnly(t)})
	if state.Has("Strings (section)") {
		t.Errorf("instruments = %v, piano dominance should block the section", state.Instruments())
	}
	if !state.Has("Piano") {
		t.Errorf("instruments = %v, piano should be rescued", state.Instruments())
	}
}

// rescueOnly pulls the rescue rule out of the default catalogue so guard
// behavior can be tested without the promotion rules interfering.
func rescueOnly(t *testing.T) cascade.Rule {
	t.Helper()
	for _, rule := range cascade.DefaultRules() {
		if rule.Name() == "rescue_if_empty_v1" {
			return rule
		}
	}
	t.Fatal("rescue rule missing from the default catalogue")
	return nil
}

func TestCascadeIdempotent(t *testing.T) {
	entries := map[string]map[string]evidence.Stats{
		"panns": {
			"electric_guitar": {Mean: 0.010, PosRatio: 0.030},
			"drum_kit":        {Mean: 0.007, PosRatio: 0.035},
			"bass_guitar":     {Mean: 0.005, PosRatio: 0.010},
		},
		"yamnet": {
			"electric_guitar": {Mean: 0.002, PosRatio: 0.010},
		},
	}
	ctx := mixContext(entries)
	first, _ := cascade.Apply(logging.NewNop(), nil, ctx)
	second, _ := cascade.Apply(logging.NewNop(), first, ctx)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-applying the cascade changed the result: %v -> %v", first, second)
	}
}

func TestCollapseHidesMembersAndOrdersSections(t *testing.T) {
	state := cascade.NewState([]string{"Piano", "Trumpet", "Brass (section)", "Strings (section)", "Violin"})
	state.Authorize("Brass (section)")
	state.Authorize("Strings (section)")
	got := cascade.Collapse(state)
	want := []string{"Piano", "Strings (section)", "Brass (section)"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collapse = %v, want %v", got, want)
	}
}

func TestStemRulesGateOnUsedStems(t *testing.T) {
	stems := map[string]*evidence.Set{
		"other": evidenceSet(map[string]map[string]evidence.Stats{
			"panns": {"saxophone": {Mean: 0.007, PosRatio: 0.02}},
		}),
	}

	// Without the flag the stem evidence is ignored.
	ctx := &cascade.Context{Evidence: evidence.NewSet(), ByStem: stems}
	_, state := cascade.Apply(logging.NewNop(), []string{"Piano"}, ctx)
	if state.Has("Saxophone") {
		t.Error("stem rule fired with UsedStems unset")
	}

	ctx.UsedStems = true
	final, _ := cascade.Apply(logging.NewNop(), []string{"Piano"}, ctx)
	found := false
	for _, name := range final {
		if name == "Saxophone" {
			found = true
		}
	}
	if !found {
		t.Errorf("final = %v, want saxophone from the other stem", final)
	}
}
