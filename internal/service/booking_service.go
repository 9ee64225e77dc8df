package service

import (
	"context"
	"strings"
	"time"

	"zanara/internal/database"
	"zanara/internal/domain"
	"zanara/internal/events"
	"zanara/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// party identifies which side of a booking the acting user is on.
type party int

const (
	partyClient party = 1 << iota
	partyProfessional

	partyEither = partyClient | partyProfessional
)

type edge struct {
	from, to string
}

// transitions is the booking lifecycle graph keyed by (from, to) with the
// parties permitted to take the edge. Terminal statuses (completed,
// cancelled, refunded) have no outgoing edges.
var transitions = map[edge]party{
	{models.StatusPending, models.StatusConfirmed}: partyProfessional,
	{models.StatusPending, models.StatusCancelled}: partyEither,

	{models.StatusConfirmed, models.StatusDepositPaid}: partyClient,
	{models.StatusConfirmed, models.StatusCancelled}:   partyEither,

	{models.StatusDepositPaid, models.StatusInProgress}: partyEither,
	{models.StatusDepositPaid, models.StatusCancelled}:  partyEither,

	{models.StatusInProgress, models.StatusCompleted}: partyEither,

	{models.StatusPending, models.StatusDisputed}:     partyEither,
	{models.StatusConfirmed, models.StatusDisputed}:   partyEither,
	{models.StatusDepositPaid, models.StatusDisputed}: partyEither,
	{models.StatusInProgress, models.StatusDisputed}:  partyEither,

	// Resolution of a dispute; arbitration itself happens outside this core.
	{models.StatusDisputed, models.StatusRefunded}:  partyEither,
	{models.StatusDisputed, models.StatusCompleted}: partyEither,
}

type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	notify   domain.NotifyQueue
	cache    domain.StateRepository
	services map[string]models.ServiceType
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, notify domain.NotifyQueue, cache domain.StateRepository, catalog []models.ServiceType, logger *zerolog.Logger) *BookingService {
	services := make(map[string]models.ServiceType, len(catalog))
	for _, st := range catalog {
		services[st.Key] = st
	}
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		notify:   notify,
		cache:    cache,
		services: services,
		logger:   logger,
	}
}

// CreateBooking validates the time window and parties, assigns a reference
// and persists the booking in pending status.
func (s *BookingService) CreateBooking(ctx context.Context, clientID int64, booking *models.Booking) (*models.Booking, error) {
	booking.ClientID = clientID

	if booking.ClientID == booking.ProfessionalID {
		return nil, database.ErrInvalidTarget
	}
	if !booking.StartTime.Before(booking.EndTime) {
		return nil, database.ErrInvalidRange
	}
	if _, err := s.repo.GetUserByID(ctx, booking.ProfessionalID); err != nil {
		return nil, err
	}

	if len(s.services) > 0 {
		st, ok := s.services[booking.ServiceType]
		if !ok {
			return nil, database.ErrUnknownService
		}
		if booking.Pricing.Currency == "" {
			booking.Pricing.Currency = st.Currency
		}
	}
	if booking.Pricing.Currency == "" {
		booking.Pricing.Currency = "USD"
	}

	booking.Reference = newBookingReference()
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCreated, booking, "", clientID, "")
	s.enqueueNotify(ctx, events.EventBookingCreated, booking.ID, booking.ProfessionalID, booking)
	s.invalidateStats(ctx, booking)

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID, actingUserID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Involves(actingUserID) {
		return nil, database.ErrForbidden
	}
	return s.withMessages(ctx, booking)
}

// GetBookingByReference resolves a human-facing "BK-" reference the way
// GetBooking resolves a numeric id.
func (s *BookingService) GetBookingByReference(ctx context.Context, reference string, actingUserID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !booking.Involves(actingUserID) {
		return nil, database.ErrForbidden
	}
	return s.withMessages(ctx, booking)
}

// UpdateStatus applies one edge of the lifecycle graph. The write is a
// compare-and-swap on the current status, so two concurrent updates cannot
// both succeed: the loser gets ErrInvalidTransition.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID, actingUserID int64, newStatus, reason string) (*models.Booking, error) {
	if !models.ValidBookingStatus(newStatus) {
		return nil, database.ErrInvalidTransition
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Involves(actingUserID) {
		return nil, database.ErrForbidden
	}

	if models.IsTerminalStatus(booking.Status) {
		return nil, database.ErrInvalidTransition
	}

	role := partyClient
	if actingUserID == booking.ProfessionalID {
		role = partyProfessional
	}

	allowed, ok := transitions[edge{booking.Status, newStatus}]
	if !ok || allowed&role == 0 {
		return nil, database.ErrInvalidTransition
	}

	// Work cannot start before the booked window opens.
	if booking.Status == models.StatusDepositPaid && newStatus == models.StatusInProgress {
		if time.Now().Before(booking.StartTime) {
			return nil, database.ErrInvalidTransition
		}
	}

	if err := s.repo.UpdateBookingStatusFrom(ctx, bookingID, booking.Status, newStatus, reason); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingStatusChanged, updated, booking.Status, actingUserID, reason)
	s.enqueueNotify(ctx, events.EventBookingStatusChanged, updated.ID, otherParty(updated, actingUserID), updated)
	s.invalidateStats(ctx, updated)

	return s.withMessages(ctx, updated)
}

// AppendMessage adds to the booking's immutable thread and returns the
// booking with the full thread attached.
func (s *BookingService) AppendMessage(ctx context.Context, bookingID, senderID int64, text string) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.Involves(senderID) {
		return nil, database.ErrForbidden
	}

	msg := &models.BookingMessage{
		BookingID: bookingID,
		SenderID:  senderID,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}
	if err := s.repo.AppendBookingMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.enqueueNotify(ctx, events.EventBookingMessage, bookingID, otherParty(booking, senderID), msg)

	return s.withMessages(ctx, booking)
}

func (s *BookingService) ListBookings(ctx context.Context, userID int64, status string) ([]*models.Booking, error) {
	if status != "" && !models.ValidBookingStatus(status) {
		return nil, database.ErrInvalidFilter
	}
	return s.repo.GetUserBookings(ctx, userID, status)
}

// ComputeStats recomputes the aggregation from booking rows, with a
// short-TTL cache that mutations explicitly invalidate.
func (s *BookingService) ComputeStats(ctx context.Context, userID int64) (*models.BookingStats, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetStats(ctx, userID); err == nil && cached != nil {
			return cached, nil
		}
	}

	stats, err := s.repo.GetBookingStats(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetStats(ctx, userID, stats); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to cache stats")
		}
	}
	return stats, nil
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) withMessages(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	messages, err := s.repo.GetBookingMessages(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Messages = messages
	return booking, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, prevStatus string, actorID int64, reason string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:      booking.ID,
		Reference:      booking.Reference,
		ClientID:       booking.ClientID,
		ProfessionalID: booking.ProfessionalID,
		Status:         booking.Status,
		PrevStatus:     prevStatus,
		StartTime:      booking.StartTime,
		ActorID:        actorID,
		Reason:         reason,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueNotify(ctx context.Context, taskType string, entityID, recipientID int64, payload any) {
	if s.notify == nil {
		return
	}
	if err := s.notify.EnqueueTask(ctx, taskType, entityID, recipientID, payload); err != nil {
		s.logger.Error().Err(err).Str("task", taskType).Int64("entity_id", entityID).Msg("notify enqueue error")
	}
}

func (s *BookingService) invalidateStats(ctx context.Context, booking *models.Booking) {
	if s.cache == nil {
		return
	}
	for _, id := range []int64{booking.ClientID, booking.ProfessionalID} {
		if err := s.cache.InvalidateStats(ctx, id); err != nil {
			s.logger.Warn().Err(err).Int64("user_id", id).Msg("failed to invalidate stats cache")
		}
	}
}

func otherParty(b *models.Booking, userID int64) int64 {
	if b.ClientID == userID {
		return b.ProfessionalID
	}
	return b.ClientID
}

func newBookingReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BK-" + raw[:8]
}
