package tagging

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"tutti/internal/services"
)

// PANNsConfig configures the CNN14 ONNX runner.
type PANNsConfig struct {
	ModelPath  string
	LabelsPath string
	// SharedLibraryPath points at the ONNX Runtime shared library. Empty
	// falls back to the library default search.
	SharedLibraryPath string
}

// ortInitOnce ensures the ONNX Runtime environment is initialized once per process.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initONNXRuntime(libraryPath string) error {
	ortInitOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// PANNs scores windows with the CNN14 audio tagger over ONNX Runtime.
type PANNs struct {
	session    *ort.DynamicAdvancedSession
	vocabulary []string
	inputName  string
	outputName string
}

// NewPANNs loads the CNN14 model and its label vocabulary.
func NewPANNs(cfg PANNsConfig) (*PANNs, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "score", "panns", "model file unavailable", err)
	}
	vocabulary, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "score", "panns", "label file unavailable", err)
	}
	if err := initONNXRuntime(cfg.SharedLibraryPath); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "score", "panns", "onnxruntime init failed", err)
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect panns model: %w", err)
	}
	if len(inputInfo) < 1 || len(outputInfo) < 1 {
		return nil, fmt.Errorf("panns model exposes %d inputs and %d outputs, need at least one each", len(inputInfo), len(outputInfo))
	}
	inputName := inputInfo[0].Name
	outputName := outputInfo[0].Name

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputName},
		[]string{outputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create panns session: %w", err)
	}

	return &PANNs{
		session:    session,
		vocabulary: vocabulary,
		inputName:  inputName,
		outputName: outputName,
	}, nil
}

func (p *PANNs) Name() string { return ModelPANNs }

func (p *PANNs) SampleRate() int { return PANNsSampleRate }

func (p *PANNs) Vocabulary() []string { return p.vocabulary }

// ScoreWindows runs each window through the model and returns clipwise
// probabilities per window.
func (p *PANNs) ScoreWindows(ctx context.Context, windows [][]float32) ([][]float64, error) {
	out := make([][]float64, 0, len(windows))
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probs, err := p.scoreWindow(window)
		if err != nil {
			return nil, err
		}
		out = append(out, probs)
	}
	return out, nil
}

func (p *PANNs) scoreWindow(window []float32) ([]float64, error) {
	inputShape := ort.NewShape(1, int64(len(window)))
	inputTensor, err := ort.NewTensor(inputShape, window)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := p.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("panns inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("panns inference produced no output")
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected panns output tensor type")
	}
	data := outputTensor.GetData()
	if len(data) < len(p.vocabulary) {
		return nil, fmt.Errorf("panns output has %d values, vocabulary has %d labels", len(data), len(p.vocabulary))
	}
	// Batch dimension is 1; take the first vocabulary-length slice.
	probs := make([]float64, len(p.vocabulary))
	for i := range probs {
		probs[i] = float64(data[i])
	}
	return probs, nil
}

// Close releases the ONNX session.
func (p *PANNs) Close() error {
	if p.session != nil {
		p.session.Destroy()
		p.session = nil
	}
	return nil
}
