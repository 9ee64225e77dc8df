package models

import "time"

// ConnectionRequest is a directed request from Sender to Receiver. Once
// accepted, the same record doubles as the undirected connection edge; the
// status column is the single source of truth for which of the two it is.
type ConnectionRequest struct {
	ID          int64      `json:"id"`
	SenderID    int64      `json:"sender_id"`
	ReceiverID  int64      `json:"receiver_id"`
	Status      string     `json:"status"` // pending, accepted, rejected
	Message     string     `json:"message,omitempty"`
	SenderType  Role       `json:"sender_type"`
	CreatedAt   time.Time  `json:"created_at"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
}

// Active reports whether the request blocks a new one between the same pair.
func (c *ConnectionRequest) Active() bool {
	return c.Status == ConnectionPending || c.Status == ConnectionAccepted
}

// OtherParty returns the counterpart of userID on this request.
func (c *ConnectionRequest) OtherParty(userID int64) int64 {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}

// Involves reports whether userID is a party to the request.
func (c *ConnectionRequest) Involves(userID int64) bool {
	return c.SenderID == userID || c.ReceiverID == userID
}
