package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"tutti/internal/decision"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// InboxDir is watched for new audio files by the daemon.
	InboxDir string `toml:"inbox_dir"`
	// WorkspaceDir holds the queue database and stem separation scratch space.
	WorkspaceDir string `toml:"workspace_dir"`
	LogDir       string `toml:"log_dir"`
	// OutputDir receives per-track result sidecar files.
	OutputDir string `toml:"output_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Models contains the classifier model file locations and runtime knobs.
type Models struct {
	PANNsModelPath   string `toml:"panns_model_path"`
	PANNsLabelsPath  string `toml:"panns_labels_path"`
	YAMNetModelPath  string `toml:"yamnet_model_path"`
	YAMNetLabelsPath string `toml:"yamnet_labels_path"`
	// ONNXRuntimeLibrary points at libonnxruntime.so for the PANNs runner.
	ONNXRuntimeLibrary string `toml:"onnxruntime_library"`
	Threads            int    `toml:"threads"`
	XNNPACK            bool   `toml:"xnnpack"`
}

// Analysis contains the sliding-window and aggregation settings.
type Analysis struct {
	WindowSeconds float64 `toml:"window_seconds"`
	HopSeconds    float64 `toml:"hop_seconds"`
	// PANNsGate and YAMNetGate are the per-model activation gates used when
	// counting positive windows.
	PANNsGate  float64 `toml:"panns_gate"`
	YAMNetGate float64 `toml:"yamnet_gate"`
	// RoundDigits controls score rounding in results.
	RoundDigits int `toml:"round_digits"`
}

// Separation contains Demucs stem separation settings.
type Separation struct {
	Enabled        bool   `toml:"enabled"`
	Binary         string `toml:"binary"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// MinFreeGiB aborts separation when the workspace filesystem has less
	// free space than this.
	MinFreeGiB int `toml:"min_free_gib"`
}

// Thresholds carries the calibrated decision gates. Instruments omitted from
// the table fall back to Base.
type Thresholds struct {
	Base        decision.Thresholds            `toml:"base"`
	Instruments map[string]decision.Thresholds `toml:"instruments"`
	Brass       decision.BrassGates            `toml:"brass"`
}

// Daemon contains worker loop timing and retry settings.
type Daemon struct {
	PollIntervalSeconds float64 `toml:"poll_interval_seconds"`
	// FileSettleSeconds is how long an inbox file must stop growing before
	// it is queued.
	FileSettleSeconds float64 `toml:"file_settle_seconds"`
	MaxRetries        int     `toml:"max_retries"`
}

// Config encapsulates all configuration values for tutti.
//
// Configuration sections by subsystem:
//   - Paths: inbox, workspace, log, and output directories
//   - Logging: log format and level
//   - Models: PANNs / YAMNet model and label files, runtime knobs
//   - Analysis: window geometry and per-model activation gates
//   - Separation: Demucs stem separation
//   - Thresholds: per-instrument decision gates and brass rules
//   - Daemon: worker polling and retry settings
type Config struct {
	Paths      Paths      `toml:"paths"`
	Logging    Logging    `toml:"logging"`
	Models     Models     `toml:"models"`
	Analysis   Analysis   `toml:"analysis"`
	Separation Separation `toml:"separation"`
	Thresholds Thresholds `toml:"thresholds"`
	Daemon     Daemon     `toml:"daemon"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tutti/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tutti.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InboxDir, c.Paths.WorkspaceDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDatabasePath returns the SQLite database location inside the workspace.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.WorkspaceDir, "queue.db")
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "tutti.sock")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "tutti.lock")
}

// StemWorkspaceDir returns the scratch directory for Demucs output.
func (c *Config) StemWorkspaceDir() string {
	return filepath.Join(c.Paths.WorkspaceDir, "stems")
}

// FFmpegBinary returns the ffmpeg executable name used for PCM decoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
