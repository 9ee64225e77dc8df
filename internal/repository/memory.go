package repository

import (
	"context"
	"sync"
	"time"

	"zanara/internal/models"
)

// MemoryStateRepository is the process-local fallback when Redis is down.
type MemoryStateRepository struct {
	stats      sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

type statsEntry struct {
	stats     *models.BookingStats
	expiresAt time.Time
}

func (r *MemoryStateRepository) GetStats(ctx context.Context, userID int64) (*models.BookingStats, error) {
	val, ok := r.stats.Load(userID)
	if !ok {
		return nil, nil
	}
	entry := val.(*statsEntry)
	if time.Now().After(entry.expiresAt) {
		r.stats.Delete(userID)
		return nil, nil
	}
	return entry.stats, nil
}

func (r *MemoryStateRepository) SetStats(ctx context.Context, userID int64, stats *models.BookingStats) error {
	r.stats.Store(userID, &statsEntry{stats: stats, expiresAt: time.Now().Add(r.ttl)})
	return nil
}

func (r *MemoryStateRepository) InvalidateStats(ctx context.Context, userID int64) error {
	r.stats.Delete(userID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(userID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(userID, entry)
	return entry.count <= limit, nil
}
