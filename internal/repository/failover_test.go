package repository

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"zanara/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStateRepo struct {
	mock.Mock
}

func (m *mockStateRepo) GetStats(ctx context.Context, userID int64) (*models.BookingStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingStats), args.Error(1)
}

func (m *mockStateRepo) SetStats(ctx context.Context, userID int64, stats *models.BookingStats) error {
	args := m.Called(ctx, userID, stats)
	return args.Error(0)
}

func (m *mockStateRepo) InvalidateStats(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStateRepo) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverStateRepository(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("PrimaryHealthy", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		stats := &models.BookingStats{Total: 3}
		primary.On("GetStats", ctx, int64(1)).Return(stats, nil)

		got, err := repo.GetStats(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, stats, got)
		fallback.AssertNotCalled(t, "GetStats", ctx, int64(1))
	})

	t.Run("FallbackOnPrimaryError", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		primary.On("GetStats", ctx, int64(2)).Return(nil, errors.New("connection refused"))
		fallback.On("GetStats", ctx, int64(2)).Return(&models.BookingStats{Total: 7}, nil)

		got, err := repo.GetStats(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), got.Total)

		// While down, the primary is skipped entirely.
		fallback.On("SetStats", ctx, int64(2), mock.Anything).Return(nil)
		err = repo.SetStats(ctx, 2, &models.BookingStats{Total: 8})
		assert.NoError(t, err)
		primary.AssertNotCalled(t, "SetStats", ctx, int64(2), mock.Anything)
	})

	t.Run("InvalidateReachesBoth", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		primary.On("InvalidateStats", ctx, int64(3)).Return(nil)
		fallback.On("InvalidateStats", ctx, int64(3)).Return(nil)

		err := repo.InvalidateStats(ctx, 3)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("ConcurrentFailover", func(t *testing.T) {
		primary := new(mockStateRepo)
		primary.On("GetStats", mock.Anything, mock.Anything).Return(nil, errors.New("down"))
		primary.On("SetStats", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("down"))
		fallback := NewMemoryStateRepository(time.Hour)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		// Несколько запросов одновременно роняют и прощупывают primary.
		var wg sync.WaitGroup
		for i := 1; i <= 16; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_ = repo.SetStats(ctx, id, &models.BookingStats{Total: id})
				_, err := repo.GetStats(ctx, id)
				assert.NoError(t, err)
			}(int64(i))
		}
		wg.Wait()
	})

	t.Run("RateLimitFallback", func(t *testing.T) {
		primary := new(mockStateRepo)
		fallback := new(mockStateRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		primary.On("CheckRateLimit", ctx, int64(4), 10, time.Second).Return(false, errors.New("down"))
		fallback.On("CheckRateLimit", ctx, int64(4), 10, time.Second).Return(true, nil)

		allowed, err := repo.CheckRateLimit(ctx, 4, 10, time.Second)
		assert.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestMemoryStateRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SetGetInvalidate", func(t *testing.T) {
		repo := NewMemoryStateRepository(time.Hour)

		got, err := repo.GetStats(ctx, 1)
		assert.NoError(t, err)
		assert.Nil(t, got)

		stats := &models.BookingStats{Total: 4, ByStatus: map[string]int64{models.StatusPending: 4}}
		assert.NoError(t, repo.SetStats(ctx, 1, stats))

		got, err = repo.GetStats(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, stats, got)

		assert.NoError(t, repo.InvalidateStats(ctx, 1))
		got, err = repo.GetStats(ctx, 1)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		repo := NewMemoryStateRepository(time.Millisecond)
		assert.NoError(t, repo.SetStats(ctx, 2, &models.BookingStats{Total: 1}))

		time.Sleep(5 * time.Millisecond)

		got, err := repo.GetStats(ctx, 2)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		repo := NewMemoryStateRepository(time.Hour)

		for i := 0; i < 3; i++ {
			allowed, err := repo.CheckRateLimit(ctx, 5, 3, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := repo.CheckRateLimit(ctx, 5, 3, time.Minute)
		assert.NoError(t, err)
		assert.False(t, allowed)
	})
}
