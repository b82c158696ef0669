package instruments

// Section labels for the orchestral family groups.
const (
	SectionStrings   = "Strings (section)"
	SectionBrass     = "Brass (section)"
	SectionWoodwinds = "Woodwinds (section)"
)

// Family describes an orchestral section and the canonical member keys that
// roll up into it.
type Family struct {
	Label   string
	Members []string
}

// Families lists the orchestral sections in stable roll-up order.
var Families = []Family{
	{Label: SectionStrings, Members: []string{"violin", "viola", "cello", "double_bass", "strings"}},
	{Label: SectionBrass, Members: []string{"trumpet", "trombone", "french_horn", "tuba", "brass"}},
	{Label: SectionWoodwinds, Members: []string{"flute", "clarinet", "oboe", "bassoon", "saxophone"}},
}

// FamilyFor returns the section a member key belongs to, if any.
func FamilyFor(key string) (Family, bool) {
	for _, f := range Families {
		for _, member := range f.Members {
			if member == key {
				return f, true
			}
		}
	}
	return Family{}, false
}

// FamilyMembers returns the member keys for a section label, nil for
// anything else.
func FamilyMembers(label string) []string {
	for _, f := range Families {
		if f.Label == label {
			return f.Members
		}
	}
	return nil
}

// SectionLabels returns the section display labels in roll-up order.
func SectionLabels() []string {
	out := make([]string, 0, len(Families))
	for _, f := range Families {
		out = append(out, f.Label)
	}
	return out
}

// IsSection reports whether a display label names an orchestral section.
func IsSection(label string) bool {
	for _, f := range Families {
		if f.Label == label {
			return true
		}
	}
	return false
}

// KeyboardDisplays lists the keyboard display names used by demotion guards
// that distinguish sustained keyboard pads from genuine string sections.
var KeyboardDisplays = []string{"Organ", "Piano", "Synthesizer"}
