package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tutti/internal/audio"
	"tutti/internal/decision"
	"tutti/internal/evidence"
	"tutti/internal/instruments"
	"tutti/internal/logging"
	"tutti/internal/separation"
	"tutti/internal/services"
)

// refineWithStems runs Demucs, scores every produced stem, and promotes
// instruments whose prior-weighted stem evidence clears the stem
// thresholds. Any failure degrades the run: a nil return means the mixture
// decision stands alone.
func (a *Analyzer) refineWithStems(ctx context.Context, path string, ev *evidence.Set, accepted map[string]bool, trace *Trace) map[string]*evidence.Set {
	ctx = services.WithStage(ctx, "separate")

	sepCfg := separation.Config{
		Binary:       a.cfg.Separation.Binary,
		Model:        a.cfg.Separation.Model,
		Timeout:      time.Duration(a.cfg.Separation.TimeoutSeconds) * time.Second,
		MinFreeBytes: uint64(a.cfg.Separation.MinFreeGiB) << 30,
	}
	res, err := separateTrack(ctx, sepCfg, path, a.cfg.StemWorkspaceDir())
	if err != nil {
		trace.Warnings = append(trace.Warnings, fmt.Sprintf("stem separation failed: %v", err))
		logging.WarnWithContext(a.logger, "stem separation failed", "stem_separation_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "mixture-only decision, no stem refinement"))
		return nil
	}
	defer func() {
		if cleanupErr := res.Cleanup(); cleanupErr != nil {
			a.logger.Warn("stem workspace cleanup failed", "error", cleanupErr)
		}
	}()
	for _, missing := range res.Missing {
		trace.Warnings = append(trace.Warnings, fmt.Sprintf("stem %s missing from separation output", missing))
	}

	byStem := a.scoreStems(ctx, res.Stems, trace)
	// The unseparated track participates in pooling as the mix stem.
	byStem[separation.MixStem] = ev

	stemThresholds := decision.DefaultStemThresholds()
	keyByDisplay := make(map[string]string, len(instruments.Targets))
	for _, target := range instruments.Targets {
		keyByDisplay[target.Display] = target.Key
	}

	if trace.Stems == nil {
		trace.Stems = make(map[string]string)
	}
	pooled := make(map[string]decision.StemScore, len(stemThresholds))
	for display, th := range stemThresholds {
		key, ok := keyByDisplay[display]
		if !ok {
			continue
		}
		score := decision.PoolStems(display, key, byStem)
		pooled[display] = score
		pass, reason := decision.DecideWithStems(score, th)
		trace.Stems[display] = reason
		if pass {
			accepted[display] = true
		}
	}

	for display, reason := range decision.HornStemBoost(byStem, pooled, accepted, stemThresholds) {
		trace.Stems[display] = "horn boost: " + reason
	}
	return byStem
}

// scoreStems aggregates each stem's window scores per model. Per-stem decode
// or scoring failures drop that stem/model pair with a warning.
func (a *Analyzer) scoreStems(ctx context.Context, stems map[string]string, trace *Trace) map[string]*evidence.Set {
	byStem := make(map[string]*evidence.Set, len(stems)+1)
	for stem := range stems {
		byStem[stem] = evidence.NewSet()
	}

	var mu sync.Mutex
	warn := func(format string, args ...any) {
		mu.Lock()
		trace.Warnings = append(trace.Warnings, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	// One goroutine per scorer: the model runtimes are not safe for
	// concurrent invocation, stems within a model run sequentially.
	g, gctx := errgroup.WithContext(ctx)
	for _, scorer := range a.scorers {
		scorer := scorer
		g.Go(func() error {
			gate := a.gateFor(scorer.Name())
			for stem, stemPath := range stems {
				pcm, err := decodePCM(gctx, a.cfg.FFmpegBinary(), stemPath, scorer.SampleRate())
				if err != nil {
					warn("decode stem %s for %s failed: %v", stem, scorer.Name(), err)
					continue
				}
				windows := audio.Windows(pcm, scorer.SampleRate(), a.cfg.Analysis.WindowSeconds, a.cfg.Analysis.HopSeconds)
				series, _, err := scoreWindows(gctx, scorer, windows)
				if err != nil {
					warn("score stem %s with %s failed: %v", stem, scorer.Name(), err)
					continue
				}
				mu.Lock()
				for key, s := range series {
					byStem[stem].Put(scorer.Name(), key, evidence.Aggregate(s, gate))
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		warn("stem scoring aborted: %v", err)
	}
	return byStem
}
