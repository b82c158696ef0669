package analysis

import (
	"tutti/internal/audio"
	"tutti/internal/separation"
)

// Indirection points for tests to substitute the external tools.
var (
	decodePCM     = audio.DecodePCM
	separateTrack = separation.Separate
)
