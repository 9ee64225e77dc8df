package service

import (
	"context"

	"zanara/internal/database"
	"zanara/internal/domain"
	"zanara/internal/events"
	"zanara/internal/models"

	"github.com/rs/zerolog"
)

type ConnectionService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	notify   domain.NotifyQueue
	logger   *zerolog.Logger
}

func NewConnectionService(repo domain.Repository, eventBus domain.EventPublisher, notify domain.NotifyQueue, logger *zerolog.Logger) *ConnectionService {
	return &ConnectionService{
		repo:     repo,
		eventBus: eventBus,
		notify:   notify,
		logger:   logger,
	}
}

// SendRequest creates a pending request from sender to receiver. The sender's
// profile role is snapshotted onto the record so lists render without a join.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, receiverID int64, message string) (*models.ConnectionRequest, error) {
	if senderID == receiverID {
		return nil, database.ErrInvalidTarget
	}

	sender, err := s.repo.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	req := &models.ConnectionRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    message,
		SenderType: sender.UserType,
	}
	if err := s.repo.CreateConnectionRequest(ctx, req); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventConnectionRequested, req, senderID)
	s.enqueueNotify(ctx, events.EventConnectionRequested, req.ID, receiverID, req)

	return req, nil
}

// AcceptRequest moves a pending request to accepted. Only the receiver may
// act; the status check rides on the same conditional write as the update, so
// a racing accept/reject loses with ErrInvalidState.
func (s *ConnectionService) AcceptRequest(ctx context.Context, connectionID, actingUserID int64) (*models.ConnectionRequest, error) {
	req, err := s.repo.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != actingUserID {
		return nil, database.ErrForbidden
	}
	if err := s.repo.UpdateConnectionStatus(ctx, connectionID, models.ConnectionAccepted); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventConnectionAccepted, updated, actingUserID)
	s.enqueueNotify(ctx, events.EventConnectionAccepted, updated.ID, updated.SenderID, updated)

	return updated, nil
}

// RejectRequest moves a pending request to rejected. A rejected record does
// not block the sender from trying again later.
func (s *ConnectionService) RejectRequest(ctx context.Context, connectionID, actingUserID int64) error {
	req, err := s.repo.GetConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if req.ReceiverID != actingUserID {
		return database.ErrForbidden
	}
	if err := s.repo.UpdateConnectionStatus(ctx, connectionID, models.ConnectionRejected); err != nil {
		return err
	}

	s.publishEvent(events.EventConnectionRejected, req, actingUserID)
	return nil
}

// RemoveConnection deletes the record whatever its status: the sender
// cancelling a pending request and either party severing an accepted
// connection share this path, but emit distinct event types.
func (s *ConnectionService) RemoveConnection(ctx context.Context, connectionID, actingUserID int64) error {
	req, err := s.repo.GetConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if !req.Involves(actingUserID) {
		return database.ErrForbidden
	}
	if err := s.repo.DeleteConnection(ctx, connectionID); err != nil {
		return err
	}

	eventType := events.EventConnectionRemoved
	if req.Status == models.ConnectionPending {
		eventType = events.EventConnectionCancelled
	}
	s.publishEvent(eventType, req, actingUserID)
	if req.Status == models.ConnectionAccepted {
		s.enqueueNotify(ctx, eventType, req.ID, req.OtherParty(actingUserID), req)
	}
	return nil
}

func (s *ConnectionService) ListConnections(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error) {
	return s.repo.GetConnections(ctx, userID)
}

func (s *ConnectionService) ListPendingReceived(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error) {
	return s.repo.GetPendingReceived(ctx, userID)
}

func (s *ConnectionService) ListPendingSent(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error) {
	return s.repo.GetPendingSent(ctx, userID)
}

func (s *ConnectionService) publishEvent(eventType string, req *models.ConnectionRequest, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.ConnectionEventPayload{
		ConnectionID: req.ID,
		SenderID:     req.SenderID,
		ReceiverID:   req.ReceiverID,
		Status:       req.Status,
		SenderType:   string(req.SenderType),
		ActorID:      actorID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("connection_id", req.ID).Msg("publish event error")
	}
}

func (s *ConnectionService) enqueueNotify(ctx context.Context, taskType string, entityID, recipientID int64, payload any) {
	if s.notify == nil {
		return
	}
	if err := s.notify.EnqueueTask(ctx, taskType, entityID, recipientID, payload); err != nil {
		s.logger.Error().Err(err).Str("task", taskType).Int64("entity_id", entityID).Msg("notify enqueue error")
	}
}
