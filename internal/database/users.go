package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zanara/internal/models"
)

func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.LastActivity.IsZero() {
		user.LastActivity = now
	}

	query := `
        INSERT INTO users (email, first_name, last_name, user_type, headline, city, is_active, last_activity, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(email) DO UPDATE SET
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            user_type = excluded.user_type,
            headline = COALESCE(NULLIF(excluded.headline, ''), headline),
            city = COALESCE(NULLIF(excluded.city, ''), city),
            is_active = excluded.is_active,
            last_activity = excluded.last_activity,
            updated_at = excluded.updated_at
    `

	_, err := db.ExecContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		string(user.UserType),
		user.Headline,
		user.City,
		user.IsActive,
		user.LastActivity,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	stored, err := db.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	user.ID = stored.ID
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

const userColumns = `id, email, first_name, last_name, user_type, headline, city, is_active, last_activity, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var userType string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&userType,
		&user.Headline,
		&user.City,
		&user.IsActive,
		&user.LastActivity,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	user.UserType = models.Role(userType)
	return &user, nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(db.QueryRowContext(ctx, query, id))
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(db.QueryRowContext(ctx, query, email))
}

func (db *DB) UpdateUserActivity(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	query := `UPDATE users SET last_activity = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, now, now, id)
	return err
}

func (db *DB) GetActiveUsers(ctx context.Context, days int) ([]*models.User, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	query := `SELECT ` + userColumns + ` FROM users WHERE last_activity >= ? ORDER BY last_activity DESC`

	rows, err := db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get active users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		var userType string
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.FirstName,
			&user.LastName,
			&userType,
			&user.Headline,
			&user.City,
			&user.IsActive,
			&user.LastActivity,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.UserType = models.Role(userType)
		users = append(users, &user)
	}
	return users, rows.Err()
}
