package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zanara/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

func createTestUser(t *testing.T, db *DB, email string, role models.Role) int64 {
	t.Helper()
	user := &models.User{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		UserType:  role,
		IsActive:  true,
	}
	err := db.CreateOrUpdateUser(context.Background(), user)
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	return user.ID
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_test_dir")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := db.PingContext(context.Background())
	assert.NoError(t, err)
}

func TestCreateOrUpdateUser_Upsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	user := &models.User{
		Email:     "anna@example.com",
		FirstName: "Anna",
		LastName:  "Petrova",
		UserType:  models.RoleModel,
		Headline:  "Editorial model",
		City:      "Milan",
		IsActive:  true,
	}
	require.NoError(t, db.CreateOrUpdateUser(ctx, user))
	firstID := user.ID

	// Second save with the same email must update in place, not insert.
	user.FirstName = "Anya"
	user.Headline = ""
	require.NoError(t, db.CreateOrUpdateUser(ctx, user))
	assert.Equal(t, firstID, user.ID)

	stored, err := db.GetUserByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Anya", stored.FirstName)
	// Empty headline on update keeps the previous value.
	assert.Equal(t, "Editorial model", stored.Headline)
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetUserByID(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetActiveUsers(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	freshID := createTestUser(t, db, "fresh@example.com", models.RolePhotographer)

	stale := &models.User{
		Email:        "stale@example.com",
		FirstName:    "Old",
		LastName:     "Timer",
		UserType:     models.RoleStylist,
		IsActive:     true,
		LastActivity: time.Now().UTC().AddDate(0, 0, -60),
	}
	require.NoError(t, db.CreateOrUpdateUser(ctx, stale))

	active, err := db.GetActiveUsers(ctx, 30)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, freshID, active[0].ID)
}

func TestNotifyQueue_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	task := &models.NotifyTask{
		TaskType:    "booking_created",
		EntityID:    1,
		RecipientID: 2,
		Payload:     `{"booking_id":1}`,
		Status:      "pending",
	}
	require.NoError(t, db.CreateNotifyTask(ctx, task))
	require.NotZero(t, task.ID)

	pending, err := db.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "booking_created", pending[0].TaskType)

	// Retry moves the task out of the due window until next_retry_at.
	next := time.Now().UTC().Add(time.Hour)
	require.NoError(t, db.MarkNotifyTaskRetry(ctx, task.ID, 1, "telegram timeout", next))

	pending, err = db.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, db.MarkNotifyTaskDone(ctx, task.ID))
}

func TestNotifyQueue_Failed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	task := &models.NotifyTask{TaskType: "booking_message", EntityID: 3, RecipientID: 4, Status: "pending"}
	require.NoError(t, db.CreateNotifyTask(ctx, task))

	require.NoError(t, db.MarkNotifyTaskFailed(ctx, task.ID, "chat not found"))

	pending, err := db.GetPendingNotifyTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
