package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateSeparation(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.InboxDir == "" {
		return errors.New("paths.inbox_dir must be set")
	}
	if c.Paths.WorkspaceDir == "" {
		return errors.New("paths.workspace_dir must be set")
	}
	if c.Paths.InboxDir == c.Paths.OutputDir {
		return errors.New("paths.inbox_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.HopSeconds > c.Analysis.WindowSeconds {
		return fmt.Errorf("analysis.hop_seconds %.2f must not exceed analysis.window_seconds %.2f",
			c.Analysis.HopSeconds, c.Analysis.WindowSeconds)
	}
	if c.Analysis.PANNsGate >= 1 || c.Analysis.YAMNetGate >= 1 {
		return errors.New("analysis activation gates are probabilities and must be below 1")
	}
	return nil
}

func (c *Config) validateSeparation() error {
	if !c.Separation.Enabled {
		return nil
	}
	if c.Separation.Binary == "" {
		return errors.New("separation.binary must be set when separation.enabled is true")
	}
	if c.Separation.Model == "" {
		return errors.New("separation.model must be set when separation.enabled is true")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	check := func(name string, mean, ratio, single float64) error {
		for field, v := range map[string]float64{"mean": mean, "ratio": ratio, "single_high": single} {
			if v < 0 || v > 1 {
				return fmt.Errorf("thresholds.%s.%s = %v out of [0,1]", name, field, v)
			}
		}
		return nil
	}
	if err := check("base", c.Thresholds.Base.Mean, c.Thresholds.Base.Ratio, c.Thresholds.Base.SingleHigh); err != nil {
		return err
	}
	for key, th := range c.Thresholds.Instruments {
		if err := check("instruments."+key, th.Mean, th.Ratio, th.SingleHigh); err != nil {
			return err
		}
	}
	return nil
}
