package tagging

import "context"

// Model names used as evidence-set keys and in decision traces.
const (
	ModelPANNs  = "panns"
	ModelYAMNet = "yamnet"
)

// Native input sample rates.
const (
	PANNsSampleRate  = 32000
	YAMNetSampleRate = 16000
)

// Scorer scores fixed-size audio windows against a label vocabulary.
type Scorer interface {
	// Name identifies the model in evidence sets and traces.
	Name() string
	// SampleRate is the model's native input rate; callers decode at this rate.
	SampleRate() int
	// Vocabulary returns the model's output labels in output-index order.
	Vocabulary() []string
	// ScoreWindows returns one probability vector per window, each of
	// Vocabulary() length.
	ScoreWindows(ctx context.Context, windows [][]float32) ([][]float64, error)
	// Close releases model resources.
	Close() error
}
