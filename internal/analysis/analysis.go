package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tutti/internal/audio"
	"tutti/internal/cascade"
	"tutti/internal/config"
	"tutti/internal/decision"
	"tutti/internal/evidence"
	"tutti/internal/instruments"
	"tutti/internal/logging"
	"tutti/internal/services"
	"tutti/internal/tagging"
)

// Options control one analysis run.
type Options struct {
	// StemSeparation requests Demucs refinement when the config enables it.
	StemSeparation bool
	// Diagnostics includes raw per-window series in the trace.
	Diagnostics bool
}

// Analyzer runs the classification pipeline over injected scorers.
type Analyzer struct {
	cfg     *config.Config
	logger  *slog.Logger
	scorers []tagging.Scorer
}

// New builds an analyzer. Scorers are injected so tests can run the full
// pipeline with synthetic models.
func New(cfg *config.Config, logger *slog.Logger, scorers ...tagging.Scorer) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "analysis"),
		scorers: scorers,
	}
}

// Analyze classifies one track. Only a mixture decode failure is fatal;
// every other failure degrades the run with a trace warning, and the
// returned Result is always well-formed.
func (a *Analyzer) Analyze(ctx context.Context, path string, opts Options) (*Result, error) {
	ctx = services.WithStage(ctx, "score")
	started := time.Now()

	trace := newTrace(a.cfg)
	ev, perWindow, numWindows, err := a.scoreMixture(ctx, path, trace)
	if err != nil {
		return nil, err
	}
	trace.NumWindows = numWindows

	engine := decision.NewEngine(a.cfg.Thresholds.Instruments, a.cfg.Thresholds.Brass).
		WithBase(a.cfg.Thresholds.Base)
	decisions := engine.DecideTrack(ev)
	trace.BrassGate = engine.ApplyBrassGate(decisions, ev)
	gateResult, gateReason := brassGateOutcome(trace.BrassGate)
	a.logger.Debug("brass gate evaluated",
		logging.Args(logging.DecisionAttrs("brass_gate", gateResult, gateReason)...)...)
	for _, target := range instruments.Targets {
		trace.Rules[target.Key] = engine.ThresholdsFor(target.Key)
	}

	accepted := make(map[string]bool, len(decisions))
	for _, target := range instruments.Targets {
		if decisions[target.Key] {
			accepted[target.Display] = true
		}
	}

	var byStem map[string]*evidence.Set
	usedStems := false
	if opts.StemSeparation && a.cfg.Separation.Enabled {
		byStem = a.refineWithStems(ctx, path, ev, accepted, trace)
		usedStems = byStem != nil
	}

	initial := make([]string, 0, len(accepted))
	for _, target := range instruments.Targets {
		if accepted[target.Display] {
			initial = append(initial, target.Display)
		}
	}

	cascadeCtx := &cascade.Context{
		Evidence:  ev,
		PerWindow: perWindow,
		ByStem:    byStem,
		UsedStems: usedStems,
	}
	final, state := cascade.Apply(a.logger, initial, cascadeCtx)
	trace.Boosts = state.Boosts
	trace.Warnings = append(trace.Warnings, state.Warnings...)
	if opts.Diagnostics {
		trace.PerWindowSeries = perWindow
	}

	result := &Result{
		Instruments:   final,
		Scores:        a.roundedScores(ev),
		DecisionTrace: trace,
		UsedDemucs:    usedStems,
	}

	a.logger.Info("analysis complete",
		"path", path,
		"instruments", len(final),
		"used_demucs", usedStems,
		"duration", time.Since(started).Round(time.Millisecond).String(),
	)
	return result, nil
}

// scoreMixture decodes the track once per scorer at the model's native rate
// and aggregates window scores into an evidence set. Decode failure is
// fatal; a scorer failure drops that model with a warning.
func (a *Analyzer) scoreMixture(ctx context.Context, path string, trace *Trace) (*evidence.Set, map[string]map[string][]float64, int, error) {
	type modelResult struct {
		name   string
		series map[string][]float64
		count  int
	}

	var mu sync.Mutex
	results := make([]modelResult, 0, len(a.scorers))

	g, gctx := errgroup.WithContext(ctx)
	for _, scorer := range a.scorers {
		scorer := scorer
		g.Go(func() error {
			pcm, err := decodePCM(gctx, a.cfg.FFmpegBinary(), path, scorer.SampleRate())
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "decode", "ffmpeg",
					fmt.Sprintf("decode %s for %s", path, scorer.Name()), err)
			}
			windows := audio.Windows(pcm, scorer.SampleRate(), a.cfg.Analysis.WindowSeconds, a.cfg.Analysis.HopSeconds)
			series, count, err := scoreWindows(gctx, scorer, windows)
			if err != nil {
				mu.Lock()
				trace.Warnings = append(trace.Warnings, fmt.Sprintf("%s scoring failed: %v", scorer.Name(), err))
				mu.Unlock()
				logging.WarnWithContext(a.logger, "model scoring failed", "model_scoring_failed",
					logging.String("model", scorer.Name()),
					logging.Error(err),
					logging.String(logging.FieldImpact, "evidence limited to the remaining models"))
				return nil
			}
			mu.Lock()
			results = append(results, modelResult{name: scorer.Name(), series: series, count: count})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}

	counts := make([]int, 0, len(results))
	for _, r := range results {
		counts = append(counts, r.count)
	}
	aligned := evidence.AlignWindows(counts...)

	ev := evidence.NewSet()
	perWindow := make(map[string]map[string][]float64, len(results))
	for _, r := range results {
		gate := a.gateFor(r.name)
		perWindow[r.name] = make(map[string][]float64, len(r.series))
		for key, s := range r.series {
			if len(s) > aligned {
				s = s[:aligned]
			}
			perWindow[r.name][key] = s
			ev.Put(r.name, key, evidence.Aggregate(s, gate))
		}
		trace.PerModel[r.name] = modelTraceFrom(ev, r.name)
	}
	return ev, perWindow, aligned, nil
}

// scoreWindows resolves the scorer's vocabulary against the target table and
// reduces each window's probability vector to one value per target key (max
// across that key's resolved label indices).
func scoreWindows(ctx context.Context, scorer tagging.Scorer, windows [][]float32) (map[string][]float64, int, error) {
	probs, err := scorer.ScoreWindows(ctx, windows)
	if err != nil {
		return nil, 0, err
	}
	resolved := instruments.Resolve(scorer.Vocabulary())
	series := make(map[string][]float64, len(resolved))
	for key, indices := range resolved {
		s := make([]float64, len(probs))
		for w, vec := range probs {
			var best float64
			for _, idx := range indices {
				if idx < len(vec) && vec[idx] > best {
					best = vec[idx]
				}
			}
			s[w] = best
		}
		series[key] = s
	}
	return series, len(probs), nil
}

// brassGateOutcome reduces the gate result to a decision result/reason pair.
func brassGateOutcome(gate decision.BrassGateResult) (string, string) {
	switch {
	case gate.PianoVetoed:
		return "revoked", "piano dominates a member-less brass call"
	case gate.GateRevoked:
		return "revoked", "no positive member and weak generic evidence"
	case gate.FamilyPositive:
		return "kept", "specific brass member positive"
	default:
		return "kept", fmt.Sprintf("generic brass mean %.4f clears the gate", gate.GenericMean)
	}
}

func (a *Analyzer) gateFor(model string) float64 {
	switch model {
	case tagging.ModelYAMNet:
		return a.cfg.Analysis.YAMNetGate
	default:
		return a.cfg.Analysis.PANNsGate
	}
}

func (a *Analyzer) roundedScores(ev *evidence.Set) map[string]float64 {
	factor := math.Pow(10, float64(a.cfg.Analysis.RoundDigits))
	scores := make(map[string]float64)
	for _, key := range ev.Keys() {
		scores[key] = math.Round(ev.Combined(key).Mean*factor) / factor
	}
	return scores
}
