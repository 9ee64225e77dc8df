package models

// Booking statuses.
const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusDepositPaid = "deposit-paid"
	StatusInProgress  = "in-progress"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusDisputed    = "disputed"
	StatusRefunded    = "refunded"
)

// Connection request statuses.
const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionRejected = "rejected"
)

const (
	// DefaultStatsCacheTTL время жизни кэша статистики в Redis
	DefaultStatsCacheTTL = 5 * 60 // 5 минут в секундах

	// NotifyQueueSize размер очереди воркера уведомлений
	NotifyQueueSize = 1000

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 60

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах

	// DefaultExportRangeMonthsBefore диапазон экспорта по умолчанию
	DefaultExportRangeMonthsBefore = 1
	DefaultExportRangeMonthsAfter  = 2

	// DefaultActiveUserDays окно активности пользователей по умолчанию
	DefaultActiveUserDays = 30
)

// IsTerminalStatus reports whether no further booking transition is permitted.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// ValidBookingStatus reports whether the string names a known booking status.
func ValidBookingStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusDepositPaid, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusDisputed, StatusRefunded:
		return true
	}
	return false
}
