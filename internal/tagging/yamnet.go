package tagging

import (
	"context"
	"fmt"
	"os"

	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"tutti/internal/services"
)

// YAMNetConfig configures the TensorFlow Lite runner.
type YAMNetConfig struct {
	ModelPath  string
	LabelsPath string
	Threads    int
	UseXNNPACK bool
}

// YAMNet scores windows with the YAMNet audio tagger over TensorFlow Lite.
// The model emits one score vector per ~0.96 s patch; patches within a
// window are averaged into a single per-window vector.
type YAMNet struct {
	model       *tflite.Model
	interpreter *tflite.Interpreter
	delegate    delegates.Delegater
	vocabulary  []string
	inputLen    int
}

// NewYAMNet loads the YAMNet model and its label vocabulary.
func NewYAMNet(cfg YAMNetConfig) (*YAMNet, error) {
	modelData, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "score", "yamnet", "model file unavailable", err)
	}
	vocabulary, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "score", "yamnet", "label file unavailable", err)
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, services.Wrap(services.ErrConfiguration, "score", "yamnet", "model parse failed", nil)
	}

	options := tflite.NewInterpreterOptions()
	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	options.SetNumThread(threads)

	var delegate delegates.Delegater
	if cfg.UseXNNPACK {
		delegate = xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(threads)})
		if delegate != nil {
			options.AddDelegate(delegate)
		}
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("create yamnet interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("allocate yamnet tensors: status %d", status)
	}

	runner := &YAMNet{
		model:       model,
		interpreter: interpreter,
		delegate:    delegate,
		vocabulary:  vocabulary,
	}
	if err := runner.validateOutputDim(); err != nil {
		runner.Close()
		return nil, err
	}
	return runner, nil
}

// validateOutputDim checks the label count against the model's class axis.
func (y *YAMNet) validateOutputDim() error {
	output := y.interpreter.GetOutputTensor(0)
	if output == nil {
		return fmt.Errorf("yamnet model has no output tensor")
	}
	classes := output.Dim(output.NumDims() - 1)
	if classes != len(y.vocabulary) {
		return services.Wrap(services.ErrConfiguration, "score", "yamnet",
			fmt.Sprintf("label count mismatch: model emits %d classes, label file has %d", classes, len(y.vocabulary)), nil)
	}
	return nil
}

func (y *YAMNet) Name() string { return ModelYAMNet }

func (y *YAMNet) SampleRate() int { return YAMNetSampleRate }

func (y *YAMNet) Vocabulary() []string { return y.vocabulary }

// ScoreWindows runs each window through the model and averages patch scores
// into one probability vector per window.
func (y *YAMNet) ScoreWindows(ctx context.Context, windows [][]float32) ([][]float64, error) {
	out := make([][]float64, 0, len(windows))
	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		probs, err := y.scoreWindow(window)
		if err != nil {
			return nil, err
		}
		out = append(out, probs)
	}
	return out, nil
}

func (y *YAMNet) scoreWindow(window []float32) ([]float64, error) {
	if err := y.ensureInputLength(len(window)); err != nil {
		return nil, err
	}

	input := y.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, fmt.Errorf("yamnet model has no input tensor")
	}
	copy(input.Float32s(), window)

	if status := y.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("yamnet inference: status %d", status)
	}

	output := y.interpreter.GetOutputTensor(0)
	if output == nil {
		return nil, fmt.Errorf("yamnet model has no output tensor")
	}
	classes := output.Dim(output.NumDims() - 1)
	scores := output.Float32s()
	patches := len(scores) / classes
	if patches == 0 {
		return make([]float64, len(y.vocabulary)), nil
	}

	probs := make([]float64, classes)
	for p := 0; p < patches; p++ {
		base := p * classes
		for c := 0; c < classes; c++ {
			probs[c] += float64(scores[base+c])
		}
	}
	for c := range probs {
		probs[c] /= float64(patches)
	}
	return probs, nil
}

func (y *YAMNet) ensureInputLength(length int) error {
	if y.inputLen == length {
		return nil
	}
	if status := y.interpreter.ResizeInputTensor(0, []int32{int32(length)}); status != tflite.OK {
		return fmt.Errorf("resize yamnet input to %d samples: status %d", length, status)
	}
	if status := y.interpreter.AllocateTensors(); status != tflite.OK {
		return fmt.Errorf("reallocate yamnet tensors: status %d", status)
	}
	y.inputLen = length
	return nil
}

// Close releases interpreter and model resources.
func (y *YAMNet) Close() error {
	if y.interpreter != nil {
		y.interpreter.Delete()
		y.interpreter = nil
	}
	if y.delegate != nil {
		y.delegate.Delete()
		y.delegate = nil
	}
	if y.model != nil {
		y.model.Delete()
		y.model = nil
	}
	return nil
}
