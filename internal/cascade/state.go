package cascade

import (
	"fmt"
	"log/slog"

	"tutti/internal/evidence"
)

// State is the mutable instrument list threaded through the cascade,
// plus the per-rule trace entries and warnings the rules produce.
type State struct {
	instruments []string
	present     map[string]struct{}
	authorized  map[string]struct{}

	// Boosts holds one keyed entry per rule that ran, overwritten by name.
	Boosts map[string]any
	// Warnings collects contained rule failures.
	Warnings []string
}

// NewState seeds the cascade with the decision engine's accepted display names.
func NewState(initial []string) *State {
	s := &State{
		present:    make(map[string]struct{}),
		authorized: make(map[string]struct{}),
		Boosts:     make(map[string]any),
	}
	for _, name := range initial {
		s.Add(name)
	}
	return s
}

// Add appends a display name if absent. Reports whether it was added.
func (s *State) Add(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := s.present[name]; ok {
		return false
	}
	s.present[name] = struct{}{}
	s.instruments = append(s.instruments, name)
	return true
}

// Remove deletes a display name, preserving order of the rest.
func (s *State) Remove(name string) bool {
	if _, ok := s.present[name]; !ok {
		return false
	}
	delete(s.present, name)
	for i, existing := range s.instruments {
		if existing == name {
			s.instruments = append(s.instruments[:i], s.instruments[i+1:]...)
			break
		}
	}
	return true
}

// Has reports presence of a display name.
func (s *State) Has(name string) bool {
	_, ok := s.present[name]
	return ok
}

// Instruments returns the current list in insertion order.
func (s *State) Instruments() []string {
	out := make([]string, len(s.instruments))
	copy(out, s.instruments)
	return out
}

// Authorize marks a section label as explicitly justified by generic
// evidence, exempting it from the roll-up's member-evidence revocation.
func (s *State) Authorize(section string) {
	s.authorized[section] = struct{}{}
}

// Authorized reports whether a section carries an explicit authorization.
func (s *State) Authorized(section string) bool {
	_, ok := s.authorized[section]
	return ok
}

// RecordBoost writes a rule's trace entry, replacing any previous entry
// under the same name.
func (s *State) RecordBoost(rule string, entry any) {
	s.Boosts[rule] = entry
}

// Warn records a contained failure.
func (s *State) Warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Context is the read-only evidence the rules consult.
type Context struct {
	// Evidence is the mixture-path aggregated evidence.
	Evidence *evidence.Set
	// PerWindow holds the raw per-window probability series by model and
	// key, for rules that look at single-window peaks.
	PerWindow map[string]map[string][]float64
	// ByStem holds per-stem evidence when separation succeeded.
	ByStem map[string]*evidence.Set
	// UsedStems gates the stem-aware rules.
	UsedStems bool
}

// WindowPeak returns the strongest single-window probability for a key
// across all models, zero when no series is present.
func (c *Context) WindowPeak(key string) float64 {
	var best float64
	for _, series := range c.PerWindow {
		for _, p := range series[key] {
			if p > best {
				best = p
			}
		}
	}
	return best
}

// Combined sums the mixture evidence for a key across models.
func (c *Context) Combined(key string) evidence.Stats {
	if c.Evidence == nil {
		return evidence.Stats{}
	}
	return c.Evidence.Combined(key)
}

// Model returns one model's mixture statistics for a key.
func (c *Context) Model(model, key string) evidence.Stats {
	if c.Evidence == nil {
		return evidence.Stats{}
	}
	return c.Evidence.Get(model, key)
}

// StemCombined sums one stem's evidence for a key across models.
func (c *Context) StemCombined(stem, key string) evidence.Stats {
	if c.ByStem == nil {
		return evidence.Stats{}
	}
	ev, ok := c.ByStem[stem]
	if !ok || ev == nil {
		return evidence.Stats{}
	}
	return ev.Combined(key)
}

// StemSum totals combined means for a key across every stem.
func (c *Context) StemSum(key string) float64 {
	var total float64
	for stem := range c.ByStem {
		total += c.StemCombined(stem, key).Mean
	}
	return total
}

// Rule is one cascade step.
type Rule interface {
	Name() string
	Apply(state *State, ctx *Context) error
}

// Run executes rules in order with per-rule containment: an error or panic
// becomes a state warning and the cascade continues.
func Run(logger *slog.Logger, state *State, ctx *Context, rules []Rule) {
	for _, rule := range rules {
		runRule(logger, state, ctx, rule)
	}
}

func runRule(logger *slog.Logger, state *State, ctx *Context, rule Rule) {
	defer func() {
		if r := recover(); r != nil {
			state.Warn("%s: panic: %v", rule.Name(), r)
			if logger != nil {
				logger.Warn("cascade rule panicked", "rule", rule.Name(), "panic", fmt.Sprint(r))
			}
		}
	}()
	if err := rule.Apply(state, ctx); err != nil {
		state.Warn("%s: %v", rule.Name(), err)
		if logger != nil {
			logger.Warn("cascade rule failed", "rule", rule.Name(), "error", err)
		}
	}
}
