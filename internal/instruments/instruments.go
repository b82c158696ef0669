package instruments

import (
	"strings"

	"golang.org/x/text/cases"
)

// Target couples a canonical instrument key with its display name and the
// classifier vocabulary synonyms that map onto it.
type Target struct {
	Key      string
	Display  string
	Synonyms []string
}

// Targets is the canonical instrument table, ordered for stable output.
var Targets = []Target{
	{Key: "piano", Display: "Piano", Synonyms: []string{"piano"}},
	{Key: "trumpet", Display: "Trumpet", Synonyms: []string{"trumpet"}},
	{Key: "trombone", Display: "Trombone", Synonyms: []string{"trombone"}},
	{Key: "saxophone", Display: "Saxophone", Synonyms: []string{"saxophone"}},
	{Key: "french_horn", Display: "French Horn", Synonyms: []string{"french horn"}},
	{Key: "tuba", Display: "Tuba", Synonyms: []string{"tuba"}},
	{Key: "brass", Display: "Brass (section)", Synonyms: []string{"brass instrument", "horn (instrument)"}},
	{Key: "electric_guitar", Display: "Electric Guitar", Synonyms: []string{"electric guitar", "guitar, electric", "distorted electric guitar"}},
	{Key: "acoustic_guitar", Display: "Acoustic Guitar", Synonyms: []string{"acoustic guitar", "guitar, acoustic"}},
	{Key: "bass_guitar", Display: "Bass Guitar", Synonyms: []string{"bass guitar", "electric bass", "bass (musical instrument)"}},
	{Key: "drum_kit", Display: "Drum Kit (acoustic)", Synonyms: []string{"drum kit", "drum set", "drums"}},
	{Key: "organ", Display: "Organ", Synonyms: []string{"organ", "electronic organ", "hammond organ"}},
	{Key: "synthesizer", Display: "Synthesizer", Synonyms: []string{"synthesizer", "keyboard (musical)"}},
	{Key: "violin", Display: "Violin", Synonyms: []string{"violin", "fiddle", "violin, fiddle"}},
	{Key: "viola", Display: "Viola", Synonyms: []string{"viola"}},
	{Key: "cello", Display: "Cello", Synonyms: []string{"cello"}},
	{Key: "double_bass", Display: "Double Bass", Synonyms: []string{"double bass", "contrabass", "upright bass"}},
	{Key: "strings", Display: "Strings", Synonyms: []string{"string section", "string orchestra", "violin", "cello", "viola"}},
	{Key: "flute", Display: "Flute", Synonyms: []string{"flute", "piccolo", "alto flute", "recorder"}},
	{Key: "clarinet", Display: "Clarinet", Synonyms: []string{"clarinet", "bass clarinet"}},
	{Key: "oboe", Display: "Oboe", Synonyms: []string{"oboe", "english horn"}},
	{Key: "bassoon", Display: "Bassoon", Synonyms: []string{"bassoon"}},
	{Key: "harp", Display: "Harp", Synonyms: []string{"harp"}},
	{Key: "timpani", Display: "Timpani", Synonyms: []string{"timpani", "kettledrum"}},
	{Key: "glockenspiel", Display: "Glockenspiel", Synonyms: []string{"glockenspiel", "mallet percussion"}},
}

var byKey = func() map[string]Target {
	m := make(map[string]Target, len(Targets))
	for _, t := range Targets {
		m[t.Key] = t
	}
	return m
}()

// Lookup returns the target for a canonical key.
func Lookup(key string) (Target, bool) {
	t, ok := byKey[key]
	return t, ok
}

// DisplayName returns the display name for a key, falling back to the key
// itself for unknown identifiers.
func DisplayName(key string) string {
	if t, ok := byKey[key]; ok {
		return t.Display
	}
	return key
}

// Keys returns all canonical keys in table order.
func Keys() []string {
	out := make([]string, 0, len(Targets))
	for _, t := range Targets {
		out = append(out, t.Key)
	}
	return out
}

var folder = cases.Fold()

func normalizeLabel(label string) string {
	return strings.TrimSpace(folder.String(label))
}

// Resolve maps a classifier vocabulary onto canonical keys. For each key it
// collects the indices of vocabulary labels that match a synonym, preferring
// exact matches and falling back to substring containment. Keys with no
// matching label are absent from the result.
func Resolve(vocabulary []string) map[string][]int {
	normalized := make([]string, len(vocabulary))
	for i, label := range vocabulary {
		normalized[i] = normalizeLabel(label)
	}

	resolved := make(map[string][]int, len(Targets))
	for _, target := range Targets {
		var exact, partial []int
		for _, syn := range target.Synonyms {
			needle := normalizeLabel(syn)
			for i, label := range normalized {
				if label == needle {
					exact = appendIndex(exact, i)
				} else if strings.Contains(label, needle) {
					partial = appendIndex(partial, i)
				}
			}
		}
		switch {
		case len(exact) > 0:
			resolved[target.Key] = exact
		case len(partial) > 0:
			resolved[target.Key] = partial
		}
	}
	return resolved
}

func appendIndex(indices []int, idx int) []int {
	for _, existing := range indices {
		if existing == idx {
			return indices
		}
	}
	return append(indices, idx)
}
