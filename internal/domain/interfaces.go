package domain

import (
	"context"
	"time"

	"zanara/internal/models"
)

type Repository interface {
	CreateConnectionRequest(ctx context.Context, req *models.ConnectionRequest) error
	GetConnection(ctx context.Context, id int64) (*models.ConnectionRequest, error)
	UpdateConnectionStatus(ctx context.Context, id int64, status string) error
	DeleteConnection(ctx context.Context, id int64) error
	GetConnections(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error)
	GetPendingReceived(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error)
	GetPendingSent(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	UpdateBookingStatusFrom(ctx context.Context, id int64, fromStatus, toStatus, reason string) error
	AppendBookingMessage(ctx context.Context, msg *models.BookingMessage) error
	GetBookingMessages(ctx context.Context, bookingID int64) ([]models.BookingMessage, error)
	GetUserBookings(ctx context.Context, userID int64, status string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetBookingStats(ctx context.Context, userID int64, now time.Time) (*models.BookingStats, error)

	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserActivity(ctx context.Context, id int64) error
	GetActiveUsers(ctx context.Context, days int) ([]*models.User, error)

	CreateNotifyTask(ctx context.Context, task *models.NotifyTask) error
	GetPendingNotifyTasks(ctx context.Context, limit int) ([]models.NotifyTask, error)
	MarkNotifyTaskDone(ctx context.Context, id int64) error
	MarkNotifyTaskRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error
	MarkNotifyTaskFailed(ctx context.Context, id int64, lastError string) error
}

// StateRepository caches derived reads and tracks per-user request budgets.
// Implementations: redis, in-memory, and a failover wrapper over both.
type StateRepository interface {
	GetStats(ctx context.Context, userID int64) (*models.BookingStats, error)
	SetStats(ctx context.Context, userID int64, stats *models.BookingStats) error
	InvalidateStats(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// NotifyQueue accepts notification work without blocking the request path.
type NotifyQueue interface {
	EnqueueTask(ctx context.Context, taskType string, entityID, recipientID int64, payload any) error
}

// Notifier delivers one rendered notification to its recipient channel.
type Notifier interface {
	Notify(ctx context.Context, task *models.NotifyTask) error
}

type SheetsWriter interface {
	ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error
}

type ConnectionService interface {
	SendRequest(ctx context.Context, senderID, receiverID int64, message string) (*models.ConnectionRequest, error)
	AcceptRequest(ctx context.Context, connectionID, actingUserID int64) (*models.ConnectionRequest, error)
	RejectRequest(ctx context.Context, connectionID, actingUserID int64) error
	RemoveConnection(ctx context.Context, connectionID, actingUserID int64) error
	ListConnections(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error)
	ListPendingReceived(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error)
	ListPendingSent(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, clientID int64, booking *models.Booking) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID, actingUserID int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string, actingUserID int64) (*models.Booking, error)
	UpdateStatus(ctx context.Context, bookingID, actingUserID int64, newStatus, reason string) (*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	AppendMessage(ctx context.Context, bookingID, senderID int64, text string) (*models.Booking, error)
	ListBookings(ctx context.Context, userID int64, status string) ([]*models.Booking, error)
	ComputeStats(ctx context.Context, userID int64) (*models.BookingStats, error)
}

type UserService interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUserActivity(ctx context.Context, id int64) error
	GetActiveUsers(ctx context.Context, days int) ([]*models.User, error)
}
