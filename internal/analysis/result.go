package analysis

import (
	"tutti/internal/config"
	"tutti/internal/decision"
	"tutti/internal/evidence"
)

// Result is the complete output of one analysis run.
type Result struct {
	// Instruments is the final display-name list after the rule cascade and
	// family collapse.
	Instruments []string `json:"instruments"`
	// Scores maps target keys to combined means, rounded per config.
	Scores map[string]float64 `json:"scores"`
	// DecisionTrace explains every accept, boost, and revocation.
	DecisionTrace *Trace `json:"decision_trace"`
	// UsedDemucs reports whether stem refinement contributed.
	UsedDemucs bool `json:"used_demucs"`
}

// ModelTrace echoes one model's aggregated evidence.
type ModelTrace struct {
	Mean map[string]float64 `json:"mean"`
	Pos  map[string]float64 `json:"pos"`
}

// Trace records how the decision was reached.
type Trace struct {
	WindowSec  float64 `json:"window_sec"`
	HopSec     float64 `json:"hop_sec"`
	NumWindows int     `json:"num_windows"`
	// PerModel holds the aggregated mean/pos maps per model.
	PerModel map[string]ModelTrace `json:"per_model"`
	// Rules echoes the effective thresholds per target key.
	Rules map[string]decision.Thresholds `json:"rules"`
	// BrassGate records the conservative brass rules' outcome.
	BrassGate decision.BrassGateResult `json:"brass_gate"`
	// Stems records per-instrument stem refinement outcomes.
	Stems map[string]string `json:"stems,omitempty"`
	// Boosts holds the per-rule cascade trace entries, keyed by rule name.
	Boosts map[string]any `json:"boosts,omitempty"`
	// Warnings collects degraded-path notes (model failures, separation
	// failures, contained rule errors).
	Warnings []string `json:"warnings,omitempty"`
	// PerWindowSeries is included only in diagnostics runs.
	PerWindowSeries map[string]map[string][]float64 `json:"per_window,omitempty"`
}

func newTrace(cfg *config.Config) *Trace {
	return &Trace{
		WindowSec: cfg.Analysis.WindowSeconds,
		HopSec:    cfg.Analysis.HopSeconds,
		PerModel:  make(map[string]ModelTrace),
		Rules:     make(map[string]decision.Thresholds),
	}
}

func modelTraceFrom(ev *evidence.Set, model string) ModelTrace {
	stats := ev.ModelStats(model)
	mt := ModelTrace{
		Mean: make(map[string]float64, len(stats)),
		Pos:  make(map[string]float64, len(stats)),
	}
	for key, st := range stats {
		mt.Mean[key] = st.Mean
		mt.Pos[key] = st.PosRatio
	}
	return mt
}
