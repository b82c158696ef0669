package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutti/internal/analysis"
	"tutti/internal/logging"
	"tutti/internal/queue"
	"tutti/internal/services"
)

// runWorker drains pending queue items until the context is canceled. The
// loop wakes on enqueue notifications and on the poll ticker.
func (d *Daemon) runWorker(ctx context.Context) {
	poll := time.Duration(d.cfg.Daemon.PollIntervalSeconds * float64(time.Second))
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		d.drainPending(ctx)
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-ticker.C:
		}
	}
}

func (d *Daemon) drainPending(ctx context.Context) {
	for ctx.Err() == nil {
		correlationID := uuid.NewString()
		item, err := d.store.NextPending(ctx, correlationID)
		if err != nil {
			d.logger.Warn("claim pending item failed", logging.Error(err))
			return
		}
		if item == nil {
			return
		}
		d.processItem(ctx, item)
	}
}

func (d *Daemon) processItem(ctx context.Context, item *queue.Item) {
	itemCtx := services.WithItemID(ctx, item.ID)
	itemCtx = services.WithRequestID(itemCtx, item.CorrelationID)
	logger := logging.WithContext(itemCtx, d.logger)

	logger.Info("analysis started",
		logging.String("source", item.SourcePath),
		logging.Int("attempt", item.Attempts))

	item.ProgressStage = "analyzing"
	item.ProgressMessage = filepath.Base(item.SourcePath)
	item.ProgressPercent = 0
	if err := d.store.Update(itemCtx, item); err != nil {
		logger.Warn("progress update failed", logging.Error(err))
	}

	opts := analysis.Options{StemSeparation: d.cfg.Separation.Enabled}
	result, err := d.analyzer.Analyze(itemCtx, item.SourcePath, opts)
	if err != nil {
		d.failItem(itemCtx, item, err)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		d.failItem(itemCtx, item, fmt.Errorf("%w: marshal result: %v", services.ErrValidation, err))
		return
	}

	sidecar, err := d.writeSidecar(item.SourcePath, payload)
	if err != nil {
		logger.Warn("sidecar write failed", logging.Error(err))
	}

	item.Status = queue.StatusCompleted
	item.ResultJSON = string(payload)
	item.ErrorMessage = ""
	item.ProgressStage = "completed"
	item.ProgressPercent = 100
	item.ProgressMessage = strings.Join(result.Instruments, ", ")
	if err := d.store.Update(itemCtx, item); err != nil {
		logger.Error("completion update failed", logging.Error(err))
		return
	}
	logger.Info("analysis completed",
		logging.Any("instruments", result.Instruments),
		logging.Bool("used_demucs", result.UsedDemucs),
		logging.String("sidecar", sidecar))
}

// failItem records a failure, requeueing transient failures until the
// attempts cap is reached. Review failures never requeue.
func (d *Daemon) failItem(ctx context.Context, item *queue.Item, cause error) {
	logger := logging.WithContext(ctx, d.logger)
	status := services.FailureStatus(cause)

	if status == queue.StatusFailed && item.Attempts <= d.cfg.Daemon.MaxRetries {
		item.Status = queue.StatusPending
		item.ErrorMessage = cause.Error()
		item.ProgressStage = ""
		item.ProgressPercent = 0
		item.ProgressMessage = ""
		if err := d.store.Update(ctx, item); err != nil {
			logger.Error("requeue update failed", logging.Error(err))
			return
		}
		logging.WarnWithContext(logger, "analysis failed, will retry", "analysis_retry",
			logging.Error(cause),
			logging.Int("attempt", item.Attempts),
			logging.Int("max_retries", d.cfg.Daemon.MaxRetries),
			logging.String(logging.FieldErrorHint, "item returns to pending automatically"),
			logging.String(logging.FieldImpact, "result delayed by one retry cycle"))
		return
	}

	item.Status = status
	item.ErrorMessage = cause.Error()
	item.ProgressStage = "failed"
	if err := d.store.Update(ctx, item); err != nil {
		logger.Error("failure update failed", logging.Error(err))
		return
	}
	logging.ErrorWithContext(logger, "analysis failed", "analysis_failed",
		logging.Error(cause),
		logging.String("status", string(status)),
		logging.Int("attempt", item.Attempts),
		logging.String(logging.FieldErrorHint, "fix the cause, then run 'tutti queue retry'"))
}

// writeSidecar places the result JSON next to the track name in the output
// directory and returns the sidecar path.
func (d *Daemon) writeSidecar(sourcePath string, payload []byte) (string, error) {
	outDir := d.cfg.Paths.OutputDir
	if outDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	target := filepath.Join(outDir, base+".tutti.json")
	if err := os.WriteFile(target, payload, 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return target, nil
}
