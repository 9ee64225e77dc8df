package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zanara/internal/models"
)

const bookingColumns = `id, reference, client_id, professional_id, title, description, service_type,
                 start_time, end_time, duration, venue, address, total_amount, currency,
                 status, cancel_reason, created_at, updated_at`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ClientID == booking.ProfessionalID {
		return ErrInvalidTarget
	}
	if !booking.StartTime.Before(booking.EndTime) {
		return ErrInvalidRange
	}

	now := time.Now().UTC()
	booking.StartTime = booking.StartTime.UTC()
	booking.EndTime = booking.EndTime.UTC()
	booking.Duration = int64(booking.EndTime.Sub(booking.StartTime) / time.Minute)
	booking.Status = models.StatusPending

	query := `INSERT INTO bookings (
				reference, client_id, professional_id, title, description, service_type,
				start_time, end_time, duration, venue, address, total_amount, currency,
				status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		booking.Reference,
		booking.ClientID,
		booking.ProfessionalID,
		booking.Title,
		booking.Description,
		booking.ServiceType,
		booking.StartTime,
		booking.EndTime,
		booking.Duration,
		booking.Location.Venue,
		booking.Location.Address,
		booking.Pricing.TotalAmount,
		booking.Pricing.Currency,
		booking.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func scanBooking(scan func(dest ...any) error) (*models.Booking, error) {
	b := &models.Booking{}
	// cancel_reason заполняется только при отмене, до этого в строке NULL.
	var cancelReason sql.NullString
	err := scan(
		&b.ID, &b.Reference, &b.ClientID, &b.ProfessionalID, &b.Title, &b.Description,
		&b.ServiceType, &b.StartTime, &b.EndTime, &b.Duration,
		&b.Location.Venue, &b.Location.Address,
		&b.Pricing.TotalAmount, &b.Pricing.Currency,
		&b.Status, &cancelReason, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}
	b.CancelReason = cancelReason.String
	return b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return scanBooking(db.QueryRowContext(ctx, query, id).Scan)
}

func (db *DB) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE reference = ?`
	return scanBooking(db.QueryRowContext(ctx, query, reference).Scan)
}

// UpdateBookingStatusFrom is a compare-and-swap on the status column: the row
// is written only when it still holds fromStatus. A losing concurrent writer
// sees zero affected rows and gets ErrInvalidTransition (or ErrNotFound when
// the id itself is unknown).
func (db *DB) UpdateBookingStatusFrom(ctx context.Context, id int64, fromStatus, toStatus, reason string) error {
	var result sql.Result
	var err error
	if toStatus == models.StatusCancelled && reason != "" {
		query := `UPDATE bookings SET status = ?, cancel_reason = ?, updated_at = ? WHERE id = ? AND status = ?`
		result, err = db.ExecContext(ctx, query, toStatus, reason, time.Now().UTC(), id, fromStatus)
	} else {
		query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
		result, err = db.ExecContext(ctx, query, toStatus, time.Now().UTC(), id, fromStatus)
	}
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := db.GetBooking(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// AppendBookingMessage adds one row to the booking's message thread. Existing
// rows are never touched.
func (db *DB) AppendBookingMessage(ctx context.Context, msg *models.BookingMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO booking_messages (booking_id, sender_id, message, created_at) VALUES (?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, msg.BookingID, msg.SenderID, msg.Message, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append booking message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// GetBookingMessages returns the thread in append order.
func (db *DB) GetBookingMessages(ctx context.Context, bookingID int64) ([]models.BookingMessage, error) {
	query := `SELECT id, booking_id, sender_id, message, created_at
              FROM booking_messages WHERE booking_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking messages: %w", err)
	}
	defer rows.Close()

	var messages []models.BookingMessage
	for rows.Next() {
		var m models.BookingMessage
		if err := rows.Scan(&m.ID, &m.BookingID, &m.SenderID, &m.Message, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan booking message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetUserBookings returns bookings where the user is client or professional,
// optionally filtered by status, most recently created first.
func (db *DB) GetUserBookings(ctx context.Context, userID int64, status string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE (client_id = ? OR professional_id = ?)`
	args := []any{userID, userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	return db.queryBookings(ctx, query, args...)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_time >= ? AND start_time < ? ORDER BY start_time ASC`
	return db.queryBookings(ctx, query, startDate.UTC(), endDate.UTC())
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// GetBookingStats recomputes the per-user aggregation from booking rows.
// now anchors the upcoming/today windows; today covers the caller's current
// calendar day in the zone now carries.
func (db *DB) GetBookingStats(ctx context.Context, userID int64, now time.Time) (*models.BookingStats, error) {
	stats := &models.BookingStats{ByStatus: make(map[string]int64)}

	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM bookings WHERE client_id = ? OR professional_id = ? GROUP BY status`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan booking stats: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
         WHERE (client_id = ? OR professional_id = ?) AND status IN (?, ?) AND start_time > ?`,
		userID, userID, models.StatusConfirmed, models.StatusDepositPaid, now.UTC()).Scan(&stats.Upcoming)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming bookings: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings
         WHERE (client_id = ? OR professional_id = ?) AND start_time >= ? AND start_time < ?`,
		userID, userID, dayStart.UTC(), dayEnd.UTC()).Scan(&stats.Today)
	if err != nil {
		return nil, fmt.Errorf("failed to count today bookings: %w", err)
	}

	return stats, nil
}
