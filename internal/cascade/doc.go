// Package cascade applies the ordered booster rule catalogue on top of the
// conservative track decisions: recall promotions for instruments the strict
// thresholds missed, demotion guards against known confusions, and a bounded
// rescue pass that keeps clearly musical tracks from returning an empty
// instrument list. The family roll-up and final section grouping live here
// too.
//
// Every rule is contained: a rule error or panic becomes a trace warning and
// the cascade continues. Each rule writes exactly one trace entry under its
// own name, overwriting on re-application, so re-running the cascade on its
// own output is a no-op.
package cascade
