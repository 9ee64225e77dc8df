package models

import "time"

type Booking struct {
	ID             int64     `json:"id"`
	Reference      string    `json:"booking_id"` // human-referenceable, e.g. BK-9F3A2C41
	ClientID       int64     `json:"client_id"`
	ProfessionalID int64     `json:"professional_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	ServiceType    string    `json:"service_type"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Duration       int64     `json:"duration"` // minutes
	Location       Location  `json:"location"`
	Pricing        Pricing   `json:"pricing"`
	Status         string    `json:"status"`
	CancelReason   string    `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Messages []BookingMessage `json:"messages,omitempty"`
}

type Location struct {
	Venue   string `json:"venue,omitempty"`
	Address string `json:"address,omitempty"`
}

type Pricing struct {
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency"`
}

// BookingMessage is one entry of a booking's append-only thread. Rows are
// never updated or removed; ordering is insertion order.
type BookingMessage struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"-"`
	SenderID  int64     `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Involves reports whether userID is the client or the professional.
func (b *Booking) Involves(userID int64) bool {
	return b.ClientID == userID || b.ProfessionalID == userID
}

// BookingStats is the derived per-user aggregation; it is always recomputed
// from booking rows, never maintained as mutable counters.
type BookingStats struct {
	Total    int64            `json:"total"`
	Upcoming int64            `json:"upcoming"`
	Today    int64            `json:"today"`
	ByStatus map[string]int64 `json:"by_status"`
}
