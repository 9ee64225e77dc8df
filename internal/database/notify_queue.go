package database

import (
	"context"
	"fmt"
	"time"

	"zanara/internal/models"
)

func (db *DB) CreateNotifyTask(ctx context.Context, task *models.NotifyTask) error {
	query := `INSERT INTO notification_queue (task_type, entity_id, recipient_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	if task.Status == "" {
		task.Status = "pending"
	}
	result, err := db.ExecContext(ctx, query,
		task.TaskType,
		task.EntityID,
		task.RecipientID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notify task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

func (db *DB) GetPendingNotifyTasks(ctx context.Context, limit int) ([]models.NotifyTask, error) {
	query := `SELECT id, task_type, entity_id, recipient_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM notification_queue
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notify tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.NotifyTask
	for rows.Next() {
		var t models.NotifyTask
		err := rows.Scan(
			&t.ID, &t.TaskType, &t.EntityID, &t.RecipientID, &t.Payload, &t.Status,
			&t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *DB) MarkNotifyTaskDone(ctx context.Context, id int64) error {
	query := `UPDATE notification_queue SET status = 'done', processed_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, time.Now().UTC(), id)
	return err
}

func (db *DB) MarkNotifyTaskRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error {
	query := `UPDATE notification_queue SET status = 'retry', retry_count = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, retryCount, lastError, nextRetryAt.UTC(), id)
	return err
}

func (db *DB) MarkNotifyTaskFailed(ctx context.Context, id int64, lastError string) error {
	query := `UPDATE notification_queue SET status = 'failed', last_error = ?, processed_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, lastError, time.Now().UTC(), id)
	return err
}
