package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const itemColumns = `id, source_path, status, created_at, updated_at, attempts,
    error_message, result_json, correlation_id,
    progress_stage, progress_percent, progress_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item            Item
		status          string
		createdAt       string
		updatedAt       string
		errorMessage    sql.NullString
		resultJSON      sql.NullString
		correlationID   sql.NullString
		progressStage   sql.NullString
		progressMessage sql.NullString
	)
	if err := row.Scan(
		&item.ID,
		&item.SourcePath,
		&status,
		&createdAt,
		&updatedAt,
		&item.Attempts,
		&errorMessage,
		&resultJSON,
		&correlationID,
		&progressStage,
		&item.ProgressPercent,
		&progressMessage,
	); err != nil {
		return nil, err
	}

	item.Status = Status(status)
	item.ErrorMessage = errorMessage.String
	item.ResultJSON = resultJSON.String
	item.CorrelationID = correlationID.String
	item.ProgressStage = progressStage.String
	item.ProgressMessage = progressMessage.String

	var err error
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &item, nil
}

// NewFile enqueues a track for analysis. Enqueueing is idempotent: if a
// pending or analyzing item already exists for the path, that item is
// returned instead of inserting a duplicate.
func (s *Store) NewFile(ctx context.Context, sourcePath string) (*Item, error) {
	if existing, err := s.liveItemForPath(ctx, sourcePath); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            source_path, status, created_at, updated_at, attempts,
            progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sourcePath,
		StatusPending,
		timestamp,
		timestamp,
		0,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		if isLiveSourceConflict(err) {
			// Lost a race with another enqueue of the same path.
			return s.liveItemForPath(ctx, sourcePath)
		}
		return nil, fmt.Errorf("insert file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// modernc/sqlite surfaces constraint failures through the error message.
func isLiveSourceConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

func (s *Store) liveItemForPath(ctx context.Context, sourcePath string) (*Item, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+itemColumns+` FROM queue_items
         WHERE source_path = ? AND status IN (?, ?) ORDER BY id LIMIT 1`,
		sourcePath, StatusPending, StatusAnalyzing,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find live item: %w", err)
	}
	return item, nil
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items
         SET source_path = ?, status = ?, error_message = ?, result_json = ?,
             correlation_id = ?, updated_at = ?, attempts = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?
         WHERE id = ?`,
		item.SourcePath,
		item.Status,
		nullableString(item.ErrorMessage),
		nullableString(item.ResultJSON),
		nullableString(item.CorrelationID),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.Attempts,
		nullableString(item.ProgressStage),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		item.ID,
	); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// List returns queue items filtered by status set (or all items when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM queue_items`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NextPending atomically claims the oldest pending item for analysis. The
// claim transitions the item to analyzing and bumps its attempt counter. A
// nil item means the queue has no pending work.
func (s *Store) NextPending(ctx context.Context, correlationID string) (*Item, error) {
	ctx = ensureContext(ctx)

	var claimed *Item
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(
			ctx,
			`SELECT `+itemColumns+` FROM queue_items WHERE status = ? ORDER BY created_at LIMIT 1`,
			StatusPending,
		)
		item, err := scanItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			claimed = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("select pending: %w", err)
		}

		item.Status = StatusAnalyzing
		item.Attempts++
		item.CorrelationID = correlationID
		item.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE queue_items SET status = ?, attempts = ?, correlation_id = ?, updated_at = ? WHERE id = ?`,
			item.Status, item.Attempts, nullableString(item.CorrelationID),
			item.UpdatedAt.Format(time.RFC3339Nano), item.ID,
		); err != nil {
			return fmt.Errorf("claim item: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit claim: %w", err)
		}
		claimed = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Retry moves a failed or review item back to pending and clears its error.
func (s *Store) Retry(ctx context.Context, id int64) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("queue item %d not found", id)
	}
	if item.Status != StatusFailed && item.Status != StatusReview {
		return nil, fmt.Errorf("queue item %d is %s, only failed or review items can be retried", id, item.Status)
	}

	item.Status = StatusPending
	item.ErrorMessage = ""
	item.ProgressStage = ""
	item.ProgressPercent = 0
	item.ProgressMessage = ""
	if err := s.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// ResetStuck returns analyzing items to pending, typically after an unclean
// daemon shutdown. It reports how many items were reset.
func (s *Store) ResetStuck(ctx context.Context, reason string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusPending, nullableString(reason), timestamp, StatusAnalyzing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all items from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed items from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed and review items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status IN (?, ?)`, StatusFailed, StatusReview)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
