package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"zanara/internal/database"
	"zanara/internal/events"
	"zanara/internal/models"
	"zanara/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = []models.ServiceType{
	{Key: "photoshoot", Name: "Photoshoot", BaseRate: 250, Currency: "USD"},
	{Key: "runway", Name: "Runway Show", BaseRate: 400, Currency: "EUR"},
}

type bookingFixture struct {
	svc    *BookingService
	db     *database.DB
	bus    *events.EventBus
	queue  *fakeNotifyQueue
	cache  *repository.MemoryStateRepository
	client int64
	pro    int64
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	db := setupServiceDB(t)
	bus := events.NewEventBus()
	queue := &fakeNotifyQueue{}
	cache := repository.NewMemoryStateRepository(5 * time.Minute)
	logger := zerolog.Nop()

	return &bookingFixture{
		svc:    NewBookingService(db, bus, queue, cache, testCatalog, &logger),
		db:     db,
		bus:    bus,
		queue:  queue,
		cache:  cache,
		client: createServiceUser(t, db, "client@example.com", models.RoleBrand),
		pro:    createServiceUser(t, db, "pro@example.com", models.RoleModel),
	}
}

func (f *bookingFixture) newBooking(t *testing.T, start, end time.Time) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		ProfessionalID: f.pro,
		Title:          "Campaign day",
		ServiceType:    "photoshoot",
		StartTime:      start,
		EndTime:        end,
		Location:       models.Location{Venue: "Studio 9"},
		Pricing:        models.Pricing{TotalAmount: 500},
	}
	created, err := f.svc.CreateBooking(context.Background(), f.client, booking)
	require.NoError(t, err)
	return created
}

type step struct {
	actor  int64
	status string
}

// advance walks a booking along lifecycle edges, asserting each step lands.
func (f *bookingFixture) advance(t *testing.T, bookingID int64, steps ...step) {
	t.Helper()
	for _, step := range steps {
		_, err := f.svc.UpdateStatus(context.Background(), bookingID, step.actor, step.status, "")
		require.NoError(t, err, "transition to %s by %d", step.status, step.actor)
	}
}

func TestCreateBooking_Service(t *testing.T) {
	f := newBookingFixture(t)
	start := time.Now().Add(48 * time.Hour)

	booking := f.newBooking(t, start, start.Add(2*time.Hour))

	assert.Equal(t, models.StatusPending, booking.Status)
	assert.True(t, strings.HasPrefix(booking.Reference, "BK-"), "reference %q", booking.Reference)
	assert.Len(t, booking.Reference, 11)
	assert.Equal(t, f.client, booking.ClientID)
	assert.Equal(t, int64(120), booking.Duration)
	// Currency falls back to the catalog entry.
	assert.Equal(t, "USD", booking.Pricing.Currency)

	notified := f.queue.byType(events.EventBookingCreated)
	require.Len(t, notified, 1)
	assert.Equal(t, f.pro, notified[0].recipientID)
}

func TestCreateBooking_ServiceGuards(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)

	_, err := f.svc.CreateBooking(ctx, f.client, &models.Booking{
		ProfessionalID: f.client, ServiceType: "photoshoot",
		StartTime: start, EndTime: start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, database.ErrInvalidTarget)

	_, err = f.svc.CreateBooking(ctx, f.client, &models.Booking{
		ProfessionalID: f.pro, ServiceType: "photoshoot",
		StartTime: start, EndTime: start.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, database.ErrInvalidRange)

	_, err = f.svc.CreateBooking(ctx, f.client, &models.Booking{
		ProfessionalID: 9999, ServiceType: "photoshoot",
		StartTime: start, EndTime: start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = f.svc.CreateBooking(ctx, f.client, &models.Booking{
		ProfessionalID: f.pro, ServiceType: "skydiving",
		StartTime: start, EndTime: start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, database.ErrUnknownService)
}

func TestUpdateStatus_HappyPath(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	// Started an hour ago so the in-progress gate is open.
	start := time.Now().Add(-time.Hour)
	booking := f.newBooking(t, start, start.Add(4*time.Hour))

	confirmed, err := f.svc.UpdateStatus(ctx, booking.ID, f.pro, models.StatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	paid, err := f.svc.UpdateStatus(ctx, booking.ID, f.client, models.StatusDepositPaid, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDepositPaid, paid.Status)

	inProgress, err := f.svc.UpdateStatus(ctx, booking.ID, f.pro, models.StatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, inProgress.Status)

	done, err := f.svc.UpdateStatus(ctx, booking.ID, f.client, models.StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)

	// Every hop notified the non-acting party.
	changes := f.queue.byType(events.EventBookingStatusChanged)
	assert.Len(t, changes, 4)
}

func TestUpdateStatus_RoleGates(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)
	booking := f.newBooking(t, start, start.Add(2*time.Hour))

	// Only the professional confirms.
	_, err := f.svc.UpdateStatus(ctx, booking.ID, f.client, models.StatusConfirmed, "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	f.advance(t, booking.ID, step{f.pro, models.StatusConfirmed})

	// Only the client pays the deposit.
	_, err = f.svc.UpdateStatus(ctx, booking.ID, f.pro, models.StatusDepositPaid, "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	f.advance(t, booking.ID, step{f.client, models.StatusDepositPaid})

	// No edge goes back to confirmed.
	_, err = f.svc.UpdateStatus(ctx, booking.ID, f.client, models.StatusConfirmed, "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestUpdateStatus_TerminalAndUnknown(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)
	booking := f.newBooking(t, start, start.Add(2*time.Hour))

	_, err := f.svc.UpdateStatus(ctx, booking.ID, f.client, "archived", "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, 9999, f.client, models.StatusCancelled, "")
	assert.ErrorIs(t, err, database.ErrNotFound)

	stranger := createServiceUser(t, f.db, "stranger@example.com", models.RoleStylist)
	_, err = f.svc.UpdateStatus(ctx, booking.ID, stranger, models.StatusCancelled, "")
	assert.ErrorIs(t, err, database.ErrForbidden)

	cancelled, err := f.svc.UpdateStatus(ctx, booking.ID, f.client, models.StatusCancelled, "schedule conflict")
	require.NoError(t, err)
	assert.Equal(t, "schedule conflict", cancelled.CancelReason)

	// Cancelled is terminal: nothing leaves it.
	_, err = f.svc.UpdateStatus(ctx, booking.ID, f.pro, models.StatusConfirmed, "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
	_, err = f.svc.UpdateStatus(ctx, booking.ID, f.client, models.StatusDisputed, "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestUpdateStatus_InProgressTimeGate(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	start := time.Now().Add(24 * time.Hour)
	booking := f.newBooking(t, start, start.Add(2*time.Hour))

	f.advance(t, booking.ID,
		step{f.pro, models.StatusConfirmed},
		step{f.client, models.StatusDepositPaid},
	)

	// Work cannot start a day before the booked window opens.
	_, err := f.svc.UpdateStatus(ctx, booking.ID, f.pro, models.StatusInProgress, "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestUpdateStatus_DisputeResolution(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := time.Now().Add(-2 * time.Hour)
	booking := f.newBooking(t, start, start.Add(4*time.Hour))

	f.advance(t, booking.ID,
		step{f.pro, models.StatusConfirmed},
		step{f.client, models.StatusDepositPaid},
		step{f.client, models.StatusDisputed},
	)

	refunded, err := f.svc.UpdateStatus(ctx, booking.ID, f.pro, models.StatusRefunded, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, refunded.Status)

	// Refunded is terminal.
	_, err = f.svc.UpdateStatus(ctx, booking.ID, f.client, models.StatusDisputed, "")
	assert.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestAppendMessage_Service(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)
	booking := f.newBooking(t, start, start.Add(2*time.Hour))

	stranger := createServiceUser(t, f.db, "stranger@example.com", models.RoleAgency)
	_, err := f.svc.AppendMessage(ctx, booking.ID, stranger, "let me in")
	assert.ErrorIs(t, err, database.ErrForbidden)

	withThread, err := f.svc.AppendMessage(ctx, booking.ID, f.client, "What's the call time?")
	require.NoError(t, err)
	require.Len(t, withThread.Messages, 1)

	withThread, err = f.svc.AppendMessage(ctx, booking.ID, f.pro, "9am sharp")
	require.NoError(t, err)
	require.Len(t, withThread.Messages, 2)
	assert.Equal(t, "What's the call time?", withThread.Messages[0].Message)

	// The other party hears about each message.
	notified := f.queue.byType(events.EventBookingMessage)
	require.Len(t, notified, 2)
	assert.Equal(t, f.pro, notified[0].recipientID)
	assert.Equal(t, f.client, notified[1].recipientID)
}

func TestGetBooking_Service(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)
	booking := f.newBooking(t, start, start.Add(2*time.Hour))

	got, err := f.svc.GetBooking(ctx, booking.ID, f.pro)
	require.NoError(t, err)
	assert.Equal(t, booking.Reference, got.Reference)

	byRef, err := f.svc.GetBookingByReference(ctx, booking.Reference, f.client)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, byRef.ID)

	stranger := createServiceUser(t, f.db, "stranger@example.com", models.RoleDesigner)
	_, err = f.svc.GetBooking(ctx, booking.ID, stranger)
	assert.ErrorIs(t, err, database.ErrForbidden)
	_, err = f.svc.GetBookingByReference(ctx, booking.Reference, stranger)
	assert.ErrorIs(t, err, database.ErrForbidden)
}

func TestListBookings_InvalidFilter(t *testing.T) {
	f := newBookingFixture(t)

	_, err := f.svc.ListBookings(context.Background(), f.client, "archived")
	assert.ErrorIs(t, err, database.ErrInvalidFilter)
}

func TestComputeStats_CacheInvalidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := time.Now().Add(24 * time.Hour)
	booking := f.newBooking(t, start, start.Add(2*time.Hour))

	stats, err := f.svc.ComputeStats(ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusPending])

	// A status change must not serve the stale cached aggregation.
	_, err = f.svc.UpdateStatus(ctx, booking.ID, f.pro, models.StatusConfirmed, "")
	require.NoError(t, err)

	stats, err = f.svc.ComputeStats(ctx, f.client)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusConfirmed])
	assert.Zero(t, stats.ByStatus[models.StatusPending])

	// Both parties' caches are invalidated.
	proStats, err := f.svc.ComputeStats(ctx, f.pro)
	require.NoError(t, err)
	assert.Equal(t, int64(1), proStats.Upcoming)
}

func TestSaveUser_UnknownRoleDefaults(t *testing.T) {
	db := setupServiceDB(t)
	logger := zerolog.Nop()
	svc := NewUserService(db, &logger)
	ctx := context.Background()

	user := &models.User{Email: "weird@example.com", FirstName: "W", UserType: "influencer"}
	require.NoError(t, svc.SaveUser(ctx, user))
	assert.Equal(t, models.RoleModel, user.UserType)

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModel, stored.UserType)
}
