package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeModels(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeSeparation()
	c.normalizeThresholds()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeModels() error {
	var err error
	for name, field := range map[string]*string{
		"models.panns_model_path":    &c.Models.PANNsModelPath,
		"models.panns_labels_path":   &c.Models.PANNsLabelsPath,
		"models.yamnet_model_path":   &c.Models.YAMNetModelPath,
		"models.yamnet_labels_path":  &c.Models.YAMNetLabelsPath,
		"models.onnxruntime_library": &c.Models.ONNXRuntimeLibrary,
	} {
		*field = strings.TrimSpace(*field)
		if *field == "" {
			continue
		}
		if *field, err = expandPath(*field); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Models.Threads <= 0 {
		c.Models.Threads = defaultModelThreads
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	if c.Analysis.WindowSeconds <= 0 {
		c.Analysis.WindowSeconds = defaultWindowSeconds
	}
	if c.Analysis.HopSeconds <= 0 {
		c.Analysis.HopSeconds = defaultHopSeconds
	}
	if c.Analysis.PANNsGate <= 0 {
		c.Analysis.PANNsGate = defaultPANNsGate
	}
	if c.Analysis.YAMNetGate <= 0 {
		c.Analysis.YAMNetGate = defaultYAMNetGate
	}
	if c.Analysis.RoundDigits <= 0 {
		c.Analysis.RoundDigits = defaultRoundDigits
	}
}

func (c *Config) normalizeSeparation() {
	c.Separation.Binary = strings.TrimSpace(c.Separation.Binary)
	if c.Separation.Binary == "" {
		c.Separation.Binary = defaultDemucsBinary
	}
	c.Separation.Model = strings.TrimSpace(c.Separation.Model)
	if c.Separation.Model == "" {
		c.Separation.Model = defaultDemucsModel
	}
	if c.Separation.TimeoutSeconds <= 0 {
		c.Separation.TimeoutSeconds = defaultDemucsTimeout
	}
	if c.Separation.MinFreeGiB <= 0 {
		c.Separation.MinFreeGiB = defaultSeparationGiB
	}
}

// normalizeThresholds merges by section: a partial [thresholds.instruments]
// table overrides only the keys it names.
func (c *Config) normalizeThresholds() {
	defaults := Default().Thresholds
	if c.Thresholds.Base.Mean == 0 && c.Thresholds.Base.Ratio == 0 {
		c.Thresholds.Base = defaults.Base
	}
	merged := defaults.Instruments
	for key, th := range c.Thresholds.Instruments {
		merged[key] = th
	}
	c.Thresholds.Instruments = merged
	if c.Thresholds.Brass.GenericGate == 0 {
		c.Thresholds.Brass = defaults.Brass
	}
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.PollIntervalSeconds <= 0 {
		c.Daemon.PollIntervalSeconds = defaultPollInterval
	}
	if c.Daemon.FileSettleSeconds <= 0 {
		c.Daemon.FileSettleSeconds = defaultFileSettleSecs
	}
	if c.Daemon.MaxRetries < 0 {
		c.Daemon.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
