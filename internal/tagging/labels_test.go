package tagging_test

import (
	"os"
	"path/filepath"
	"testing"

	"tutti/internal/tagging"
)

func writeLabelFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write label file: %v", err)
	}
	return path
}

func TestLoadLabelsPlainText(t *testing.T) {
	path := writeLabelFile(t, "labels.txt", "Speech\nElectric guitar\nDrum kit\n")
	labels, err := tagging.LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	want := []string{"Speech", "Electric guitar", "Drum kit"}
	if len(labels) != len(want) {
		t.Fatalf("got %d labels, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestLoadLabelsClassMapCSV(t *testing.T) {
	content := "index,mid,display_name\n0,/m/09x0r,Speech\n1,/m/02sgy,Electric guitar\n2,/m/026t6,\"Guitar, acoustic\"\n"
	path := writeLabelFile(t, "class_map.csv", content)
	labels, err := tagging.LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	want := []string{"Speech", "Electric guitar", "Guitar, acoustic"}
	if len(labels) != len(want) {
		t.Fatalf("got %d labels, want %d", len(labels), len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestLoadLabelsEmptyFile(t *testing.T) {
	path := writeLabelFile(t, "empty.txt", "\n\n")
	if _, err := tagging.LoadLabels(path); err == nil {
		t.Fatal("expected error for empty label file")
	}
}

func TestLoadLabelsMissingFile(t *testing.T) {
	if _, err := tagging.LoadLabels(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing label file")
	}
}
