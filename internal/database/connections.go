package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zanara/internal/models"
)

const connectionColumns = `id, sender_id, receiver_id, status, message, sender_type, created_at, connected_at`

// CreateConnectionRequest inserts a pending request. The duplicate check and
// the insert run inside one transaction so two racing requests between the
// same pair cannot both slip past the uniqueness invariant.
func (db *DB) CreateConnectionRequest(ctx context.Context, req *models.ConnectionRequest) error {
	if req.SenderID == req.ReceiverID {
		return ErrInvalidTarget
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. No active (pending or accepted) request may exist in either direction.
	var active int
	queryCount := `SELECT COUNT(*) FROM connections
                   WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
                   AND status IN (?, ?)`
	err = tx.QueryRowContext(ctx, queryCount,
		req.SenderID, req.ReceiverID, req.ReceiverID, req.SenderID,
		models.ConnectionPending, models.ConnectionAccepted).Scan(&active)
	if err != nil {
		return fmt.Errorf("failed to check for active request in tx: %w", err)
	}
	if active > 0 {
		return ErrDuplicateRequest
	}

	// 2. Insert the pending record.
	now := time.Now().UTC()
	queryInsert := `INSERT INTO connections (sender_id, receiver_id, status, message, sender_type, created_at)
                    VALUES (?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, queryInsert,
		req.SenderID,
		req.ReceiverID,
		models.ConnectionPending,
		req.Message,
		string(req.SenderType),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert connection request in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	req.ID = id
	req.Status = models.ConnectionPending
	req.CreatedAt = now

	return tx.Commit()
}

func (db *DB) GetConnection(ctx context.Context, id int64) (*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = ?`

	var c models.ConnectionRequest
	var senderType string
	var connectedAt sql.NullTime
	err := db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.SenderID, &c.ReceiverID, &c.Status, &c.Message, &senderType,
		&c.CreatedAt, &connectedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	c.SenderType = models.Role(senderType)
	if connectedAt.Valid {
		t := connectedAt.Time
		c.ConnectedAt = &t
	}
	return &c, nil
}

// UpdateConnectionStatus moves a pending request to accepted or rejected.
// The status check and the write are a single conditional UPDATE: the loser
// of a concurrent accept/reject race gets ErrInvalidState instead of
// overwriting the winner.
func (db *DB) UpdateConnectionStatus(ctx context.Context, id int64, status string) error {
	var result sql.Result
	var err error
	if status == models.ConnectionAccepted {
		query := `UPDATE connections SET status = ?, connected_at = ? WHERE id = ? AND status = ?`
		result, err = db.ExecContext(ctx, query, status, time.Now().UTC(), id, models.ConnectionPending)
	} else {
		query := `UPDATE connections SET status = ? WHERE id = ? AND status = ?`
		result, err = db.ExecContext(ctx, query, status, id, models.ConnectionPending)
	}
	if err != nil {
		return fmt.Errorf("failed to update connection status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetConnection(ctx, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

func (db *DB) DeleteConnection(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) listConnections(ctx context.Context, query string, args ...any) ([]*models.ConnectionRequest, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var out []*models.ConnectionRequest
	for rows.Next() {
		c := &models.ConnectionRequest{}
		var senderType string
		var connectedAt sql.NullTime
		err := rows.Scan(
			&c.ID, &c.SenderID, &c.ReceiverID, &c.Status, &c.Message, &senderType,
			&c.CreatedAt, &connectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		c.SenderType = models.Role(senderType)
		if connectedAt.Valid {
			t := connectedAt.Time
			c.ConnectedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConnections returns accepted connections where the user is either party.
// Reverse-chronological by acceptance time for UI convenience; callers should
// treat the result as a set.
func (db *DB) GetConnections(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections
              WHERE status = ? AND (sender_id = ? OR receiver_id = ?)
              ORDER BY connected_at DESC`
	return db.listConnections(ctx, query, models.ConnectionAccepted, userID, userID)
}

// GetPendingReceived returns pending requests addressed to the user.
func (db *DB) GetPendingReceived(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections
              WHERE status = ? AND receiver_id = ?
              ORDER BY created_at DESC`
	return db.listConnections(ctx, query, models.ConnectionPending, userID)
}

// GetPendingSent returns pending requests the user has sent.
func (db *DB) GetPendingSent(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections
              WHERE status = ? AND sender_id = ?
              ORDER BY created_at DESC`
	return db.listConnections(ctx, query, models.ConnectionPending, userID)
}
