package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/amqp"
	"budget/internal/services"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// Worker consumes ledger change events off the interactive path: it mirrors
// newly created expenses to an external sheet and writes periodic JSON
// backups of the whole ledger.
type Worker struct {
	storage        *storage.Repository
	mirror         sheets.ExpenseMirror
	backups        *services.BackupService
	backupDir      string
	backupInterval time.Duration
}

func New(storage *storage.Repository, mirror sheets.ExpenseMirror, backups *services.BackupService, backupDir string, backupInterval time.Duration) *Worker {
	return &Worker{
		storage:        storage,
		mirror:         mirror,
		backups:        backups,
		backupDir:      backupDir,
		backupInterval: backupInterval,
	}
}

// HandleChangeEvent processes a single change event from AMQP. Only expense
// creations reach the mirror; everything else is acknowledged without work.
func (w *Worker) HandleChangeEvent(ctx context.Context, event *amqp.ChangeEvent) error {
	slog.InfoContext(ctx, "Processing change event",
		"entity", event.Entity,
		"id", event.ID,
		"op", event.Op)

	if event.Entity != amqp.EntityExpense || event.Op != amqp.OpCreate {
		return nil
	}
	if w.mirror == nil {
		slog.WarnContext(ctx, "No expense mirror configured, skipping", "id", event.ID)
		return nil
	}
	return w.mirrorExpense(ctx, event.ID)
}

func (w *Worker) mirrorExpense(ctx context.Context, id int64) error {
	tx, err := w.storage.GetExpenseTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted before we got to it; nothing to mirror.
			slog.WarnContext(ctx, "Expense vanished before mirroring", "id", id)
			return nil
		}
		return fmt.Errorf("get expense from storage: %w", err)
	}

	categoryName := ""
	if tx.CategoryID != nil {
		cat, err := w.storage.GetCategoryByID(ctx, *tx.CategoryID)
		if err == nil {
			categoryName = cat.Name
		}
	}

	ref, err := w.mirror.AppendExpense(ctx, *tx, categoryName)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored expense",
		"id", id,
		"row_ref", ref,
		"category", categoryName)
	return nil
}

// RunPeriodicBackups writes a full ledger snapshot on every interval tick
// until the context is cancelled. A failed snapshot is logged and retried on
// the next tick.
func (w *Worker) RunPeriodicBackups(ctx context.Context) error {
	ticker := time.NewTicker(w.backupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			path, err := w.WriteBackupFile(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to write backup", "error", err)
				continue
			}
			slog.InfoContext(ctx, "Wrote periodic backup", "path", path)
		}
	}
}

// WriteBackupFile snapshots the ledger into a timestamped JSON file under the
// backup directory and returns its path.
func (w *Worker) WriteBackupFile(ctx context.Context) (string, error) {
	if err := os.MkdirAll(w.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("budget-%s.json", time.Now().Format("20060102-150405"))
	path := filepath.Join(w.backupDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	if err := w.backups.Export(ctx, f); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
