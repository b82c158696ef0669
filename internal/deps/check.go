package deps

import (
	"fmt"
	"os"
	"strings"

	"tutti/internal/config"
)

// Check evaluates every external requirement of the current configuration:
// decode and probe binaries, the Demucs separator when enabled, and the
// model artifacts the scorers load at startup.
func Check(cfg *config.Config) []Status {
	if cfg == nil {
		return nil
	}

	requirements := []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Decodes tracks and stems to PCM"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Probes container metadata", Optional: true},
	}
	if cfg.Separation.Enabled {
		requirements = append(requirements, Requirement{
			Name:        "Demucs",
			Command:     cfg.Separation.Binary,
			Description: "Separates tracks into stems for refinement",
		})
	}
	statuses := CheckBinaries(requirements)

	statuses = append(statuses,
		checkFile("PANNs model", cfg.Models.PANNsModelPath, "ONNX checkpoint for the PANNs scorer"),
		checkFile("PANNs labels", cfg.Models.PANNsLabelsPath, "Class vocabulary for the PANNs scorer"),
		checkFile("YAMNet model", cfg.Models.YAMNetModelPath, "TFLite checkpoint for the YAMNet scorer"),
		checkFile("YAMNet labels", cfg.Models.YAMNetLabelsPath, "Class vocabulary for the YAMNet scorer"),
	)
	if lib := strings.TrimSpace(cfg.Models.ONNXRuntimeLibrary); lib != "" {
		statuses = append(statuses, checkFile("ONNX Runtime", lib, "Shared library backing the PANNs scorer"))
	}
	return statuses
}

func checkFile(name, path, description string) Status {
	status := Status{
		Name:        name,
		Command:     strings.TrimSpace(path),
		Description: description,
	}
	if status.Command == "" {
		status.Detail = "path not configured"
		return status
	}
	info, err := os.Stat(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("file %q not found", status.Command)
		return status
	}
	if info.IsDir() {
		status.Detail = fmt.Sprintf("path %q is a directory", status.Command)
		return status
	}
	status.Available = true
	return status
}
