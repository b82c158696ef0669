package daemon

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"tutti/internal/logging"
)

// settlePollInterval bounds how often the settle wait re-stats a file.
const settlePollInterval = 250 * time.Millisecond

// watchInbox enqueues audio files appearing in the inbox directory. A
// periodic rescan catches files the notify events missed (network mounts,
// files present before startup).
func (d *Daemon) watchInbox(ctx context.Context) {
	inbox := d.cfg.Paths.InboxDir

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Warn("inbox watcher unavailable, relying on rescan", logging.Error(err))
	} else {
		defer watcher.Close()
		if err := watcher.Add(inbox); err != nil {
			d.logger.Warn("watch inbox failed, relying on rescan",
				logging.String("inbox", inbox), logging.Error(err))
			watcher.Close()
			watcher = nil
		}
	}

	poll := time.Duration(d.cfg.Daemon.PollIntervalSeconds * float64(time.Second))
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	// Pick up anything already sitting in the inbox.
	d.scanInbox(ctx)

	var events chan fsnotify.Event
	var watchErrs chan error
	if watcher != nil {
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			d.maybeEnqueue(ctx, event.Name)
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			d.logger.Warn("inbox watch error", logging.Error(err))
		case <-ticker.C:
			d.scanInbox(ctx)
		}
	}
}

func (d *Daemon) scanInbox(ctx context.Context) {
	entries, err := os.ReadDir(d.cfg.Paths.InboxDir)
	if err != nil {
		d.logger.Warn("inbox scan failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		d.maybeEnqueue(ctx, filepath.Join(d.cfg.Paths.InboxDir, entry.Name()))
	}
}

func (d *Daemon) maybeEnqueue(ctx context.Context, path string) {
	if !IsAudioFile(path) {
		return
	}
	settle := time.Duration(d.cfg.Daemon.FileSettleSeconds * float64(time.Second))
	if err := WaitUntilSettled(ctx, path, settlePollInterval, settle); err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("file never settled",
				logging.String("path", path), logging.Error(err))
		}
		return
	}
	if _, err := d.AddFile(ctx, path); err != nil {
		d.logger.Warn("enqueue failed",
			logging.String("path", path), logging.Error(err))
	}
}

// WaitUntilSettled blocks until the file's size and mtime have been stable
// for the settle duration, indicating the writer has finished.
func WaitUntilSettled(ctx context.Context, path string, poll, settle time.Duration) error {
	if poll <= 0 {
		poll = settlePollInterval
	}
	if settle <= 0 {
		return nil
	}

	var (
		lastSize  int64 = -1
		lastMod   time.Time
		stableFor time.Duration
	)
	for {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize && info.ModTime().Equal(lastMod) {
			stableFor += poll
			if stableFor >= settle {
				return nil
			}
		} else {
			lastSize = info.Size()
			lastMod = info.ModTime()
			stableFor = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}
