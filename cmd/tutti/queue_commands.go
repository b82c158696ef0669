package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tutti/internal/ipc"
	"tutti/internal/queue"
)

const queueOpTimeout = 5 * time.Second

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the analysis queue",
	}
	cmd.AddCommand(newQueueAddCommand(ctx))
	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueShowCommand(ctx))
	cmd.AddCommand(newQueueRetryCommand(ctx))
	cmd.AddCommand(newQueueClearCommand(ctx))
	cmd.AddCommand(newQueueResetCommand(ctx))
	cmd.AddCommand(newQueueHealthCommand(ctx))
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file> [file...]",
		Short: "Enqueue audio files for analysis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				paths = append(paths, path)
			}
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				if client != nil {
					resp, err := client.QueueAdd(paths)
					if err != nil {
						return err
					}
					for _, item := range resp.Items {
						fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item %d\n", item.SourcePath, item.ID)
					}
					return nil
				}
				opCtx, cancel := context.WithTimeout(cmd.Context(), queueOpTimeout)
				defer cancel()
				for _, path := range paths {
					item, err := store.NewFile(opCtx, path)
					if err != nil {
						return fmt.Errorf("enqueue %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as item %d\n", path, item.ID)
				}
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var items []ipc.QueueItem
				if client != nil {
					resp, err := client.QueueList(statusFilter)
					if err != nil {
						return err
					}
					items = resp.Items
				} else {
					statuses, err := parseStatuses(statusFilter)
					if err != nil {
						return err
					}
					opCtx, cancel := context.WithTimeout(cmd.Context(), queueOpTimeout)
					defer cancel()
					stored, err := store.List(opCtx, statuses...)
					if err != nil {
						return err
					}
					for _, item := range stored {
						items = append(items, ipc.FromQueueItem(item))
					}
				}
				printQueueItems(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFilter, "status", nil, "Filter by status (pending, analyzing, completed, failed, review)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var showResult bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queue item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid queue item id %q", args[0])
			}
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var item ipc.QueueItem
				if client != nil {
					resp, err := client.QueueDescribe(id)
					if err != nil {
						return err
					}
					item = resp.Item
				} else {
					opCtx, cancel := context.WithTimeout(cmd.Context(), queueOpTimeout)
					defer cancel()
					stored, err := store.GetByID(opCtx, id)
					if err != nil {
						return err
					}
					if stored == nil {
						return fmt.Errorf("queue item %d not found", id)
					}
					item = ipc.FromQueueItem(stored)
				}
				printQueueItemDetail(cmd.OutOrStdout(), item, showResult)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showResult, "result", false, "Include the stored analysis result JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed or review items (all of them when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid queue item id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				if client != nil {
					resp, err := client.QueueRetry(ids)
					if err != nil {
						return err
					}
					updated = resp.Updated
				} else {
					opCtx, cancel := context.WithTimeout(cmd.Context(), queueOpTimeout)
					defer cancel()
					count, err := retryDirect(opCtx, store, ids)
					if err != nil {
						return err
					}
					updated = count
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d item(s)\n", updated)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completedOnly bool
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if completedOnly && failedOnly {
				return fmt.Errorf("--completed and --failed are mutually exclusive")
			}
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var removed int64
				var err error
				opCtx, cancel := context.WithTimeout(cmd.Context(), queueOpTimeout)
				defer cancel()
				switch {
				case completedOnly:
					if client != nil {
						var resp *ipc.QueueClearCompletedResponse
						if resp, err = client.QueueClearCompleted(); err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearCompleted(opCtx)
					}
				case failedOnly:
					if client != nil {
						var resp *ipc.QueueClearFailedResponse
						if resp, err = client.QueueClearFailed(); err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.ClearFailed(opCtx)
					}
				default:
					if client != nil {
						var resp *ipc.QueueClearResponse
						if resp, err = client.QueueClear(); err == nil {
							removed = resp.Removed
						}
					} else {
						removed, err = store.Clear(opCtx)
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d item(s)\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&completedOnly, "completed", false, "Remove only completed items")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Remove only failed and review items")
	return cmd
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return items stuck in analyzing to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				var updated int64
				if client != nil {
					resp, err := client.QueueReset()
					if err != nil {
						return err
					}
					updated = resp.Updated
				} else {
					opCtx, cancel := context.WithTimeout(cmd.Context(), queueOpTimeout)
					defer cancel()
					count, err := store.ResetStuck(opCtx, "Reset by operator")
					if err != nil {
						return err
					}
					updated = count
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d item(s)\n", updated)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue and database diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(client *ipc.Client, store *queue.Store) error {
				out := cmd.OutOrStdout()
				var health ipc.QueueHealthResponse
				var db ipc.DatabaseHealthResponse
				opCtx, cancel := context.WithTimeout(cmd.Context(), queueOpTimeout)
				defer cancel()
				if client != nil {
					healthResp, err := client.QueueHealth()
					if err != nil {
						return err
					}
					health = *healthResp
					dbResp, err := client.DatabaseHealth()
					if err != nil {
						return err
					}
					db = *dbResp
				} else {
					summary, err := store.Health(opCtx)
					if err != nil {
						return err
					}
					health = ipc.QueueHealthResponse{
						Total:     summary.Total,
						Pending:   summary.Pending,
						Analyzing: summary.Analyzing,
						Failed:    summary.Failed,
						Review:    summary.Review,
						Completed: summary.Completed,
					}
					checked, err := store.CheckHealth(opCtx)
					if err != nil {
						return err
					}
					db = ipc.DatabaseHealthResponse{
						DBPath:           checked.DBPath,
						DatabaseExists:   checked.DatabaseExists,
						DatabaseReadable: checked.DatabaseReadable,
						SchemaVersion:    checked.SchemaVersion,
						TableExists:      checked.TableExists,
						IntegrityCheck:   checked.IntegrityCheck,
						TotalItems:       checked.TotalItems,
						Error:            checked.Error,
					}
				}
				printQueueHealth(out, health, db)
				return nil
			})
		},
	}
}

func parseStatuses(raw []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(raw))
	for _, value := range raw {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed == "" {
			continue
		}
		if !queue.ValidStatus(trimmed) {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		statuses = append(statuses, queue.Status(trimmed))
	}
	return statuses, nil
}

func retryDirect(ctx context.Context, store *queue.Store, ids []int64) (int64, error) {
	if len(ids) == 0 {
		items, err := store.List(ctx, queue.StatusFailed, queue.StatusReview)
		if err != nil {
			return 0, err
		}
		for _, item := range items {
			ids = append(ids, item.ID)
		}
	}
	var updated int64
	for _, id := range ids {
		if _, err := store.Retry(ctx, id); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func printQueueItems(out io.Writer, items []ipc.QueueItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		message := item.ErrorMessage
		if message == "" {
			message = item.ProgressMessage
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Status,
			filepath.Base(item.SourcePath),
			strconv.Itoa(item.Attempts),
			item.UpdatedAt,
			message,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Status", "File", "Attempts", "Updated", "Message"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func printQueueItemDetail(out io.Writer, item ipc.QueueItem, showResult bool) {
	fmt.Fprintf(out, "ID:          %d\n", item.ID)
	fmt.Fprintf(out, "Source:      %s\n", item.SourcePath)
	fmt.Fprintf(out, "Status:      %s\n", item.Status)
	fmt.Fprintf(out, "Attempts:    %d\n", item.Attempts)
	fmt.Fprintf(out, "Created:     %s\n", item.CreatedAt)
	fmt.Fprintf(out, "Updated:     %s\n", item.UpdatedAt)
	if item.CorrelationID != "" {
		fmt.Fprintf(out, "Correlation: %s\n", item.CorrelationID)
	}
	if item.ProgressStage != "" {
		fmt.Fprintf(out, "Progress:    %s (%.0f%%) %s\n", item.ProgressStage, item.ProgressPercent, item.ProgressMessage)
	}
	if item.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", item.ErrorMessage)
	}
	if showResult && item.ResultJSON != "" {
		var pretty json.RawMessage = []byte(item.ResultJSON)
		encoded, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			fmt.Fprintf(out, "Result:      %s\n", item.ResultJSON)
			return
		}
		fmt.Fprintf(out, "Result:\n%s\n", string(encoded))
	}
}

func printQueueHealth(out io.Writer, health ipc.QueueHealthResponse, db ipc.DatabaseHealthResponse) {
	rows := [][]string{
		{"total", strconv.Itoa(health.Total)},
		{"pending", strconv.Itoa(health.Pending)},
		{"analyzing", strconv.Itoa(health.Analyzing)},
		{"completed", strconv.Itoa(health.Completed)},
		{"failed", strconv.Itoa(health.Failed)},
		{"review", strconv.Itoa(health.Review)},
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Status", "Count"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))

	fmt.Fprintf(out, "Database:  %s\n", db.DBPath)
	fmt.Fprintf(out, "Schema:    %s\n", db.SchemaVersion)
	fmt.Fprintf(out, "Readable:  %t  Integrity: %t\n", db.DatabaseReadable, db.IntegrityCheck)
	if db.Error != "" {
		fmt.Fprintf(out, "Error:     %s\n", db.Error)
	}
}
