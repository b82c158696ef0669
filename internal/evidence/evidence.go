package evidence

import "sort"

// Stats holds the track-level aggregate for one (model, instrument) pair.
type Stats struct {
	Mean     float64
	PosRatio float64
}

// Aggregate reduces a per-window probability series to track statistics.
// The gate is the model's activation threshold; a window counts as positive
// when its probability is at or above the gate. An empty series yields zeros.
func Aggregate(series []float64, gate float64) Stats {
	if len(series) == 0 {
		return Stats{}
	}
	var sum float64
	positives := 0
	for _, p := range series {
		sum += p
		if p >= gate {
			positives++
		}
	}
	n := float64(len(series))
	return Stats{
		Mean:     sum / n,
		PosRatio: float64(positives) / n,
	}
}

// Set stores aggregated statistics keyed by model name and instrument key.
// Lookups never fail: absent entries read as zero evidence.
type Set struct {
	models map[string]map[string]Stats
}

// NewSet returns an empty evidence set.
func NewSet() *Set {
	return &Set{models: make(map[string]map[string]Stats)}
}

// Put records the statistics for one model/instrument pair.
func (s *Set) Put(model, key string, stats Stats) {
	bucket, ok := s.models[model]
	if !ok {
		bucket = make(map[string]Stats)
		s.models[model] = bucket
	}
	bucket[key] = stats
}

// Get returns the statistics for a model/instrument pair, zero when absent.
func (s *Set) Get(model, key string) Stats {
	if bucket, ok := s.models[model]; ok {
		return bucket[key]
	}
	return Stats{}
}

// Combined sums the per-model statistics for an instrument across every
// model in the set. Sums, not averages: a strong single-model signal keeps
// its full weight.
func (s *Set) Combined(key string) Stats {
	var out Stats
	for _, bucket := range s.models {
		st := bucket[key]
		out.Mean += st.Mean
		out.PosRatio += st.PosRatio
	}
	return out
}

// Max returns the per-model maximum of mean and ratio for an instrument.
// The two maxima may come from different models.
func (s *Set) Max(key string) Stats {
	var out Stats
	for _, bucket := range s.models {
		st := bucket[key]
		if st.Mean > out.Mean {
			out.Mean = st.Mean
		}
		if st.PosRatio > out.PosRatio {
			out.PosRatio = st.PosRatio
		}
	}
	return out
}

// Models returns the model names present, sorted for deterministic output.
func (s *Set) Models() []string {
	out := make([]string, 0, len(s.models))
	for model := range s.models {
		out = append(out, model)
	}
	sort.Strings(out)
	return out
}

// Keys returns every instrument key present in any model, sorted.
func (s *Set) Keys() []string {
	seen := make(map[string]struct{})
	for _, bucket := range s.models {
		for key := range bucket {
			seen[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ModelStats returns a copy of one model's instrument statistics.
func (s *Set) ModelStats(model string) map[string]Stats {
	bucket, ok := s.models[model]
	if !ok {
		return map[string]Stats{}
	}
	out := make(map[string]Stats, len(bucket))
	for key, st := range bucket {
		out[key] = st
	}
	return out
}

// AlignWindows returns the number of windows usable when pairing models that
// produced different window counts: the minimum across all counts, zero when
// any model produced none.
func AlignWindows(counts ...int) int {
	if len(counts) == 0 {
		return 0
	}
	min := counts[0]
	for _, c := range counts[1:] {
		if c < min {
			min = c
		}
	}
	if min < 0 {
		return 0
	}
	return min
}
