package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zanara/internal/database"
	"zanara/internal/export"
	"zanara/internal/models"
)

type sendRequestPayload struct {
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
}

type updateStatusPayload struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type appendMessagePayload struct {
	Message string `json:"message"`
}

func (s *HTTPServer) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var payload sendRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := s.connections.SendRequest(r.Context(), userID, payload.ReceiverID, payload.Message)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *HTTPServer) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := s.connections.AcceptRequest(r.Context(), id, userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *HTTPServer) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.connections.RejectRequest(r.Context(), id, userID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": models.ConnectionRejected})
}

func (s *HTTPServer) handleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.connections.RemoveConnection(r.Context(), id, userID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *HTTPServer) handleMyConnections(w http.ResponseWriter, r *http.Request) {
	s.listConnections(w, r, s.connections.ListConnections)
}

func (s *HTTPServer) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	s.listConnections(w, r, s.connections.ListPendingReceived)
}

func (s *HTTPServer) handleSentRequests(w http.ResponseWriter, r *http.Request) {
	s.listConnections(w, r, s.connections.ListPendingSent)
}

func (s *HTTPServer) listConnections(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID int64) ([]*models.ConnectionRequest, error)) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	items, err := list(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []*models.ConnectionRequest{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var booking models.Booking
	if err := json.NewDecoder(r.Body).Decode(&booking); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.bookings.CreateBooking(r.Context(), userID, &booking)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	// Both numeric ids and "BK-" references resolve here.
	raw := r.PathValue("id")
	var (
		booking *models.Booking
		err     error
	)
	if strings.HasPrefix(raw, "BK-") {
		booking, err = s.bookings.GetBookingByReference(r.Context(), raw, userID)
	} else {
		var id int64
		id, err = pathID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		booking, err = s.bookings.GetBooking(r.Context(), id, userID)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload updateStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.UpdateStatus(r.Context(), id, userID, payload.Status, payload.Reason)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var payload appendMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	booking, err := s.bookings.AppendMessage(r.Context(), id, userID, payload.Message)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	status := r.URL.Query().Get("status")
	bookings, err := s.bookings.ListBookings(r.Context(), userID, status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleBookingStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	stats, err := s.bookings.ComputeStats(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.users.GetUser(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	// Отметка активности — best effort, профиль отдаём в любом случае.
	if err := s.users.UpdateUserActivity(r.Context(), userID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to update user activity")
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	existing, err := s.users.GetUser(r.Context(), userID)
	switch {
	case err == nil:
		// Email остаётся ключом профиля, из payload его менять нельзя.
		user.Email = existing.Email
	case errors.Is(err, database.ErrNotFound):
		if strings.TrimSpace(user.Email) == "" {
			writeError(w, http.StatusBadRequest, "email must not be empty")
			return
		}
	default:
		s.writeServiceError(w, err)
		return
	}
	user.IsActive = true

	if err := s.users.SaveUser(r.Context(), &user); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &user)
}

type activeUserEntry struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	UserType     models.Role `json:"user_type"`
	City         string      `json:"city,omitempty"`
	LastActivity time.Time   `json:"last_activity"`
}

func (s *HTTPServer) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	days := models.DefaultActiveUserDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	users, err := s.users.GetActiveUsers(r.Context(), days)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	entries := make([]activeUserEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, activeUserEntry{
			ID:           u.ID,
			Name:         u.FullName(),
			UserType:     u.UserType,
			City:         u.City,
			LastActivity: u.LastActivity,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// exportRange reads start/end query params; defaults cover the surrounding
// months when callers pass nothing.
func exportRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, -models.DefaultExportRangeMonthsBefore, 0)
	end := now.AddDate(0, models.DefaultExportRangeMonthsAfter, 0)

	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	return start, end, nil
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	start, end, err := exportRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	bookings, err := s.bookings.GetBookingsByDateRange(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	path, err := export.BookingsToExcel(s.cfg.Exports.Path, start, end, bookings)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to export bookings")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	s.log.Info().Str("file", path).Int("bookings", len(bookings)).Msg("bookings exported")
	http.ServeFile(w, r, path)
}

func (s *HTTPServer) handleSheetsSync(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "sheets sync is not configured")
		return
	}

	start, end, err := exportRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	bookings, err := s.bookings.GetBookingsByDateRange(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if err := s.sheets.ReplaceBookingsSheet(r.Context(), bookings); err != nil {
		s.log.Error().Err(err).Msg("failed to sync bookings to sheets")
		writeError(w, http.StatusBadGateway, "sheets sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"synced": len(bookings)})
}
