package models

import (
	"database/sql"
	"time"
)

// NotifyTask is a row of notification_queue, drained by the notify worker.
type NotifyTask struct {
	ID          int64
	TaskType    string
	EntityID    int64
	RecipientID int64
	Payload     string
	Status      string // pending, retry, done, failed
	RetryCount  int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt sql.NullTime
	NextRetryAt sql.NullTime
}

// ServiceType describes one bookable service from the catalog file.
type ServiceType struct {
	Key         string  `yaml:"key" json:"key"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	BaseRate    float64 `yaml:"base_rate" json:"base_rate"`
	Currency    string  `yaml:"currency" json:"currency"`
}
