package main

import (
	"path/filepath"
	"testing"

	"tutti/internal/testsupport"
)

func TestQueueAddListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	track := filepath.Join(env.cfg.Paths.InboxDir, "sonata.flac")
	testsupport.WriteFile(t, track, 256)

	out, _, err := runCLI(t, []string{"queue", "add", track}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "sonata.flac")
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, []string{"queue", "show", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, track)
	requireContains(t, out, "pending")
}

func TestQueueAddRejectsNonAudio(t *testing.T) {
	env := setupCLITestEnv(t)

	notes := filepath.Join(env.cfg.Paths.InboxDir, "notes.txt")
	testsupport.WriteFile(t, notes, 16)

	if _, _, err := runCLI(t, []string{"queue", "add", notes}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for non-audio file")
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "list", "--status", "bogus"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for unknown status filter")
	}
}

func TestQueueClearRemovesItems(t *testing.T) {
	env := setupCLITestEnv(t)

	track := filepath.Join(env.cfg.Paths.InboxDir, "etude.flac")
	testsupport.WriteFile(t, track, 256)
	if _, _, err := runCLI(t, []string{"queue", "add", track}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 1 item(s)")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueClearFlagsAreExclusive(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "clear", "--completed", "--failed"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for conflicting clear flags")
	}
}

func TestQueueHealthReportsDatabase(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "total")
	requireContains(t, out, "Database:")
}
