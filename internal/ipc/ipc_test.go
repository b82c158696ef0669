package ipc_test

import (
	"context"
	"path/filepath"
	"testing"

	"tutti/internal/analysis"
	"tutti/internal/config"
	"tutti/internal/daemon"
	"tutti/internal/ipc"
	"tutti/internal/logging"
	"tutti/internal/queue"
	"tutti/internal/testsupport"
)

type nopAnalyzer struct{}

func (nopAnalyzer) Analyze(context.Context, string, analysis.Options) (*analysis.Result, error) {
	return &analysis.Result{}, nil
}

func newTestServer(t *testing.T) (*ipc.Client, *queue.Store, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, nopAnalyzer{}, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socketPath := filepath.Join(t.TempDir(), "tutti.sock")
	server, err := ipc.NewServer(ctx, socketPath, d, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(socketPath)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, store, cfg
}

func TestQueueAddEnqueuesAudioFiles(t *testing.T) {
	client, _, cfg := newTestServer(t)

	track := filepath.Join(cfg.Paths.InboxDir, "waltz.flac")
	testsupport.WriteFile(t, track, 128)

	resp, err := client.QueueAdd([]string{track})
	if err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].SourcePath != track {
		t.Fatalf("unexpected add response: %#v", resp.Items)
	}
	if resp.Items[0].Status != "pending" {
		t.Errorf("expected pending, got %s", resp.Items[0].Status)
	}

	if _, err := client.QueueAdd([]string{filepath.Join(cfg.Paths.InboxDir, "missing.flac")}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := client.QueueAdd(nil); err == nil {
		t.Error("expected error for empty path list")
	}
}

func TestStatusRoundTrip(t *testing.T) {
	client, store, _ := newTestServer(t)

	testsupport.Enqueue(t, store, "/inbox/a.flac")

	resp, err := client.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if resp.Running {
		t.Error("daemon loops were never started, running should be false")
	}
	if resp.QueueStats["pending"] != 1 {
		t.Errorf("queue stats = %v, want 1 pending", resp.QueueStats)
	}
	if resp.QueueDBPath == "" || resp.LockPath == "" {
		t.Errorf("expected paths in status, got %#v", resp)
	}
}

func TestQueueListDescribeAndRetry(t *testing.T) {
	client, store, _ := newTestServer(t)
	ctx := context.Background()

	item := testsupport.Enqueue(t, store, "/inbox/a.flac")
	failed := testsupport.Enqueue(t, store, "/inbox/b.flac")
	failed.Status = queue.StatusFailed
	failed.ErrorMessage = "decode failed"
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	list, err := client.QueueList(nil)
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list.Items))
	}

	onlyFailed, err := client.QueueList([]string{"failed"})
	if err != nil {
		t.Fatalf("QueueList(failed) failed: %v", err)
	}
	if len(onlyFailed.Items) != 1 || onlyFailed.Items[0].ID != failed.ID {
		t.Fatalf("unexpected failed listing: %#v", onlyFailed.Items)
	}

	if _, err := client.QueueList([]string{"bogus"}); err == nil {
		t.Error("expected error for unknown status filter")
	}

	describe, err := client.QueueDescribe(item.ID)
	if err != nil {
		t.Fatalf("QueueDescribe failed: %v", err)
	}
	if describe.Item.SourcePath != "/inbox/a.flac" || describe.Item.Status != "pending" {
		t.Fatalf("unexpected describe payload: %#v", describe.Item)
	}
	if _, err := client.QueueDescribe(9999); err == nil {
		t.Error("expected error for unknown id")
	}

	retry, err := client.QueueRetry(nil)
	if err != nil {
		t.Fatalf("QueueRetry failed: %v", err)
	}
	if retry.Updated != 1 {
		t.Fatalf("expected 1 retried item, got %d", retry.Updated)
	}
	restored, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if restored.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", restored.Status)
	}
}

func TestQueueHealthAndClear(t *testing.T) {
	client, store, _ := newTestServer(t)
	ctx := context.Background()

	testsupport.Enqueue(t, store, "/inbox/a.flac")
	done := testsupport.Enqueue(t, store, "/inbox/b.flac")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Completed != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}

	dbHealth, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.IntegrityCheck {
		t.Fatalf("unexpected database health: %#v", dbHealth)
	}

	cleared, err := client.QueueClearCompleted()
	if err != nil {
		t.Fatalf("QueueClearCompleted failed: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected 1 removed, got %d", cleared.Removed)
	}

	all, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear failed: %v", err)
	}
	if all.Removed != 1 {
		t.Fatalf("expected 1 removed, got %d", all.Removed)
	}
}
