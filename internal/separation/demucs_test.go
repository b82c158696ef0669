package separation_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tutti/internal/separation"
)

// stubDemucs writes a shell script that fabricates stem WAV files the way the
// real binary lays them out: <out>/<model>/<track>/<stem>.wav.
func stubDemucs(t *testing.T, stems []string) string {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\n" +
		"# args: -n MODEL -o OUT SOURCE\n" +
		"model=$2\nout=$4\nsrc=$5\n" +
		"track=$(basename \"$src\")\ntrack=${track%.*}\n" +
		"mkdir -p \"$out/$model/$track\"\n"
	for _, stem := range stems {
		script += "touch \"$out/$model/$track/" + stem + ".wav\"\n"
	}
	path := filepath.Join(dir, "demucs")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestSeparateCollectsStems(t *testing.T) {
	source := filepath.Join(t.TempDir(), "track.flac")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	cfg := separation.Config{
		Binary: stubDemucs(t, []string{"drums", "bass", "other", "vocals"}),
		Model:  "htdemucs",
	}
	result, err := separation.Separate(context.Background(), cfg, source, t.TempDir())
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	defer result.Cleanup()

	if len(result.Stems) != 4 {
		t.Fatalf("got %d stems, want 4", len(result.Stems))
	}
	if len(result.Missing) != 0 {
		t.Fatalf("missing stems: %v", result.Missing)
	}
	if _, err := os.Stat(filepath.Join(result.Workspace, "track.flac")); err != nil {
		t.Errorf("expected staged source inside workspace: %v", err)
	}
	for _, stem := range separation.StemNames {
		path, ok := result.Stems[stem]
		if !ok {
			t.Errorf("stem %q absent", stem)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("stem %q path %q: %v", stem, path, err)
		}
	}
}

func TestSeparateReportsMissingStems(t *testing.T) {
	source := filepath.Join(t.TempDir(), "track.mp3")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	cfg := separation.Config{Binary: stubDemucs(t, []string{"drums", "other"})}
	result, err := separation.Separate(context.Background(), cfg, source, t.TempDir())
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	defer result.Cleanup()

	if len(result.Stems) != 2 {
		t.Fatalf("got %d stems, want 2", len(result.Stems))
	}
	if len(result.Missing) != 2 {
		t.Fatalf("missing = %v, want two entries", result.Missing)
	}
}

func TestSeparateFailureRemovesWorkspace(t *testing.T) {
	dir := t.TempDir()
	failing := filepath.Join(dir, "demucs")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	source := filepath.Join(dir, "track.wav")
	if err := os.WriteFile(source, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	workDir := t.TempDir()
	if _, err := separation.Separate(context.Background(), separation.Config{Binary: failing}, source, workDir); err == nil {
		t.Fatal("expected error from failing separation")
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("workspace not cleaned up: %v", entries)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if err := separation.CheckDiskSpace(dir, 1); err != nil {
		t.Errorf("tiny floor should pass: %v", err)
	}
	if err := separation.CheckDiskSpace(dir, 1<<62); err == nil {
		t.Error("absurd floor should fail")
	}
	if err := separation.CheckDiskSpace(dir, 0); err != nil {
		t.Errorf("zero floor disables the check: %v", err)
	}
}
