package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"tutti/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantInbox := filepath.Join(tempHome, ".local", "share", "tutti", "inbox")
	if cfg.Paths.InboxDir != wantInbox {
		t.Fatalf("unexpected inbox dir: got %q want %q", cfg.Paths.InboxDir, wantInbox)
	}
	if cfg.Separation.Enabled {
		t.Fatal("expected separation disabled by default")
	}
	if cfg.Analysis.WindowSeconds != 5.0 || cfg.Analysis.HopSeconds != 2.5 {
		t.Fatalf("unexpected window geometry: %v/%v", cfg.Analysis.WindowSeconds, cfg.Analysis.HopSeconds)
	}
	if cfg.Analysis.PANNsGate != 0.045 || cfg.Analysis.YAMNetGate != 0.018 {
		t.Fatalf("unexpected activation gates: %v/%v", cfg.Analysis.PANNsGate, cfg.Analysis.YAMNetGate)
	}
	if len(cfg.Thresholds.Instruments) == 0 {
		t.Fatal("expected calibrated threshold table by default")
	}
	if got := cfg.Thresholds.Instruments["electric_guitar"]; got.Mean != 0.06 || got.RequireBoth {
		t.Fatalf("unexpected electric_guitar thresholds: %+v", got)
	}
	if cfg.Thresholds.Brass.GenericGate != 0.45 {
		t.Fatalf("unexpected brass generic gate: %v", cfg.Thresholds.Brass.GenericGate)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.InboxDir, cfg.Paths.WorkspaceDir, cfg.Paths.LogDir, cfg.Paths.OutputDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathMergesBySection(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tutti.toml")

	body := `
[analysis]
window_seconds = 4.0
hop_seconds = 2.0

[separation]
enabled = true
model = "htdemucs_ft"

[thresholds.instruments.piano]
mean = 0.05
ratio = 0.10
single_high = 0.20
require_both = false
`
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Analysis.WindowSeconds != 4.0 {
		t.Fatalf("expected window override, got %v", cfg.Analysis.WindowSeconds)
	}
	if cfg.Analysis.PANNsGate != 0.045 {
		t.Fatalf("expected default panns gate to survive, got %v", cfg.Analysis.PANNsGate)
	}
	if cfg.Separation.Model != "htdemucs_ft" {
		t.Fatalf("expected model override, got %q", cfg.Separation.Model)
	}
	if cfg.Separation.Binary != "demucs" {
		t.Fatalf("expected default binary to survive, got %q", cfg.Separation.Binary)
	}
	if got := cfg.Thresholds.Instruments["piano"]; got.Mean != 0.05 {
		t.Fatalf("expected piano threshold override, got %+v", got)
	}
	if got := cfg.Thresholds.Instruments["drum_kit"]; got.Mean != 0.06 {
		t.Fatalf("expected drum_kit defaults to survive a partial table, got %+v", got)
	}
}

func TestDaemonTimingsAcceptFractionalSeconds(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tutti.toml")
	body := `
[daemon]
poll_interval_seconds = 0.5
file_settle_seconds = 0.25
`
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Daemon.PollIntervalSeconds != 0.5 {
		t.Fatalf("poll interval = %v, want 0.5", cfg.Daemon.PollIntervalSeconds)
	}
	if cfg.Daemon.FileSettleSeconds != 0.25 {
		t.Fatalf("file settle = %v, want 0.25", cfg.Daemon.FileSettleSeconds)
	}
	if got := time.Duration(cfg.Daemon.PollIntervalSeconds * float64(time.Second)); got != 500*time.Millisecond {
		t.Fatalf("poll duration = %v, want 500ms", got)
	}

	cfg = func() *config.Config { c := config.Default(); return &c }()
	cfg.Daemon.PollIntervalSeconds = 0
	cfg.Daemon.FileSettleSeconds = -1
	reloaded, _, _, err := config.Load(writeTempConfig(t, cfg))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if reloaded.Daemon.PollIntervalSeconds != 5 || reloaded.Daemon.FileSettleSeconds != 3 {
		t.Fatalf("expected defaults for non-positive timings, got %v/%v",
			reloaded.Daemon.PollIntervalSeconds, reloaded.Daemon.FileSettleSeconds)
	}
}

func writeTempConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "tutti.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[analysis]") {
		t.Fatalf("sample config missing analysis section: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.HopSeconds = cfg.Analysis.WindowSeconds + 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when hop exceeds window")
	}

	cfg = config.Default()
	cfg.Thresholds.Base.Mean = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range base threshold")
	}

	cfg = config.Default()
	cfg.Separation.Enabled = true
	cfg.Separation.Binary = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when separation enabled without binary")
	}

	cfg = config.Default()
	cfg.Paths.OutputDir = cfg.Paths.InboxDir
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when inbox and output collide")
	}
}
