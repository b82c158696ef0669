package config

import "tutti/internal/decision"

const (
	defaultInboxDir     = "~/.local/share/tutti/inbox"
	defaultWorkspaceDir = "~/.local/share/tutti/workspace"
	defaultLogDir       = "~/.local/share/tutti/logs"
	defaultOutputDir    = "~/.local/share/tutti/results"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultModelThreads = 2

	defaultWindowSeconds = 5.0
	defaultHopSeconds    = 2.5
	defaultPANNsGate     = 0.045
	defaultYAMNetGate    = 0.018
	defaultRoundDigits   = 4

	defaultDemucsBinary   = "demucs"
	defaultDemucsModel    = "htdemucs"
	defaultDemucsTimeout  = 1800
	defaultSeparationGiB  = 2
	defaultPollInterval   = 5
	defaultFileSettleSecs = 3
	defaultMaxRetries     = 2
)

// Default returns a Config populated with repository defaults. Every tuned
// numeric gate in the decision engine has its calibrated value here so a
// bare config file runs the full pipeline.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir:     defaultInboxDir,
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
			OutputDir:    defaultOutputDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Models: Models{
			Threads: defaultModelThreads,
			XNNPACK: true,
		},
		Analysis: Analysis{
			WindowSeconds: defaultWindowSeconds,
			HopSeconds:    defaultHopSeconds,
			PANNsGate:     defaultPANNsGate,
			YAMNetGate:    defaultYAMNetGate,
			RoundDigits:   defaultRoundDigits,
		},
		Separation: Separation{
			Enabled:        false,
			Binary:         defaultDemucsBinary,
			Model:          defaultDemucsModel,
			TimeoutSeconds: defaultDemucsTimeout,
			MinFreeGiB:     defaultSeparationGiB,
		},
		Thresholds: Thresholds{
			Base:        decision.BaseThresholds,
			Instruments: decision.DefaultThresholds(),
			Brass:       decision.DefaultBrassGates(),
		},
		Daemon: Daemon{
			PollIntervalSeconds: defaultPollInterval,
			FileSettleSeconds:   defaultFileSettleSecs,
			MaxRetries:          defaultMaxRetries,
		},
	}
}
