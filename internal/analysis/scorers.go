package analysis

import (
	"tutti/internal/config"
	"tutti/internal/tagging"
)

// Scorers constructs the model runners described by the configuration. Both
// models are required; a partial load closes what succeeded and fails.
func Scorers(cfg *config.Config) ([]tagging.Scorer, error) {
	panns, err := tagging.NewPANNs(tagging.PANNsConfig{
		ModelPath:         cfg.Models.PANNsModelPath,
		LabelsPath:        cfg.Models.PANNsLabelsPath,
		SharedLibraryPath: cfg.Models.ONNXRuntimeLibrary,
	})
	if err != nil {
		return nil, err
	}
	yamnet, err := tagging.NewYAMNet(tagging.YAMNetConfig{
		ModelPath:  cfg.Models.YAMNetModelPath,
		LabelsPath: cfg.Models.YAMNetLabelsPath,
		Threads:    cfg.Models.Threads,
		UseXNNPACK: cfg.Models.XNNPACK,
	})
	if err != nil {
		_ = panns.Close()
		return nil, err
	}
	return []tagging.Scorer{panns, yamnet}, nil
}

// CloseScorers releases model resources, keeping the first error.
func CloseScorers(scorers []tagging.Scorer) error {
	var firstErr error
	for _, scorer := range scorers {
		if err := scorer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
