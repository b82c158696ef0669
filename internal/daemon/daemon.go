package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tutti/internal/analysis"
	"tutti/internal/config"
	"tutti/internal/logging"
	"tutti/internal/queue"
)

// Analyzer runs the classification pipeline for a single track.
type Analyzer interface {
	Analyze(ctx context.Context, path string, opts analysis.Options) (*analysis.Result, error)
}

var audioFileExtensions = map[string]struct{}{
	".flac": {},
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".aac":  {},
	".ogg":  {},
	".opus": {},
	".aiff": {},
	".aif":  {},
}

// IsAudioFile reports whether the path carries a recognized audio extension.
func IsAudioFile(path string) bool {
	_, ok := audioFileExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Daemon watches the inbox, claims queue items, and runs analysis. A file
// lock enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	analyzer Analyzer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// wake nudges the worker loop when the watcher enqueues new work.
	wake chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	QueueStats   map[queue.Status]int
	QueueDBPath  string
	LockFilePath string
	PID          int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, analyzer Analyzer, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || analyzer == nil {
		return nil, errors.New("daemon requires config, store, and analyzer")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		analyzer: analyzer,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		wake:     make(chan struct{}, 1),
	}, nil
}

// Start acquires the daemon lock and launches the watcher and worker loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tutti daemon instance is already running")
	}

	// Items left analyzing by an unclean shutdown go back to pending.
	if reset, err := d.store.ResetStuck(ctx, queue.DaemonStopReason); err != nil {
		d.logger.Warn("reset stuck items failed", logging.Error(err))
	} else if reset > 0 {
		d.logger.Info("reset stuck items", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.watchInbox(runCtx)
	}()
	go func() {
		defer d.wg.Done()
		d.runWorker(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("inbox", d.cfg.Paths.InboxDir))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
		stats = nil
	}
	return Status{
		Running:      d.running.Load(),
		QueueStats:   stats,
		QueueDBPath:  d.cfg.QueueDatabasePath(),
		LockFilePath: d.lockPath,
		PID:          os.Getpid(),
	}
}

// AddFile enqueues a track for analysis after validating the path.
func (d *Daemon) AddFile(ctx context.Context, sourcePath string) (*queue.Item, error) {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, errors.New("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path %q is a directory", absPath)
	}
	if !IsAudioFile(absPath) {
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(absPath))
	}
	item, err := d.store.NewFile(ctx, absPath)
	if err != nil {
		return nil, fmt.Errorf("enqueue file: %w", err)
	}
	d.notifyWorker()
	d.logger.Info("file queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("source", absPath))
	return item, nil
}

func (d *Daemon) notifyWorker() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	return d.store.List(ctx, statuses...)
}

// GetQueueItem returns a single queue item by id.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	return d.store.GetByID(ctx, id)
}

// RetryFailed resets failed or review items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		items, err := d.store.List(ctx, queue.StatusFailed, queue.StatusReview)
		if err != nil {
			return 0, err
		}
		for _, item := range items {
			ids = append(ids, item.ID)
		}
	}
	var updated int64
	for _, id := range ids {
		if _, err := d.store.Retry(ctx, id); err != nil {
			return updated, err
		}
		updated++
	}
	if updated > 0 {
		d.notifyWorker()
	}
	return updated, nil
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes failed and review queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// ResetStuck transitions analyzing items back to pending.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	count, err := d.store.ResetStuck(ctx, "Reset by operator")
	if count > 0 {
		d.notifyWorker()
	}
	return count, err
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}
