package repository

import (
	"context"
	"sync/atomic"
	"time"

	"zanara/internal/domain"
	"zanara/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStateRepository prefers the primary (Redis) and falls back to the
// in-memory repository when the primary errors, probing for recovery after a
// minute.
type FailoverStateRepository struct {
	primary  domain.StateRepository
	fallback domain.StateRepository
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// unix nanos of the last failed primary probe
	lastCheck atomic.Int64
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverStateRepository) GetStats(ctx context.Context, userID int64) (*models.BookingStats, error) {
	if !r.isDown.Load() {
		stats, err := r.primary.GetStats(ctx, userID)
		if err == nil {
			return stats, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute {
		stats, err := r.primary.GetStats(ctx, userID)
		if err == nil {
			r.isDown.Store(false)
			return stats, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetStats(ctx, userID)
}

func (r *FailoverStateRepository) SetStats(ctx context.Context, userID int64, stats *models.BookingStats) error {
	if !r.isDown.Load() {
		err := r.primary.SetStats(ctx, userID, stats)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetStats(ctx, userID, stats)
}

func (r *FailoverStateRepository) InvalidateStats(ctx context.Context, userID int64) error {
	var primaryErr error
	if !r.isDown.Load() {
		primaryErr = r.primary.InvalidateStats(ctx, userID)
		if primaryErr != nil {
			r.markDown(primaryErr)
		}
	}

	// Invalidation must reach the fallback too, otherwise a stale entry
	// could be served after a failover.
	return r.fallback.InvalidateStats(ctx, userID)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}
