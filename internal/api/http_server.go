package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"zanara/internal/config"
	"zanara/internal/database"
	"zanara/internal/domain"
	"zanara/internal/metrics"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the connection and booking workflows as JSON endpoints.
type HTTPServer struct {
	cfg         *config.Config
	connections domain.ConnectionService
	bookings    domain.BookingService
	users       domain.UserService
	sheets      domain.SheetsWriter
	server      *http.Server
	log         zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, connections domain.ConnectionService, bookings domain.BookingService, users domain.UserService, sheets domain.SheetsWriter, state domain.StateRepository, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:         cfg,
		connections: connections,
		bookings:    bookings,
		users:       users,
		sheets:      sheets,
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	auth := NewHTTPAuth(cfg, state)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /connections", srv.handleSendRequest)
	mux.HandleFunc("PUT /connections/{id}/accept", srv.handleAcceptRequest)
	mux.HandleFunc("PUT /connections/{id}/reject", srv.handleRejectRequest)
	mux.HandleFunc("DELETE /connections/{id}", srv.handleRemoveConnection)
	mux.HandleFunc("GET /connections/my-connections", srv.handleMyConnections)
	mux.HandleFunc("GET /connections/pending-requests", srv.handlePendingRequests)
	mux.HandleFunc("GET /connections/sent-requests", srv.handleSentRequests)

	mux.HandleFunc("POST /bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /bookings/my-bookings", srv.handleMyBookings)
	mux.HandleFunc("GET /bookings/stats/overview", srv.handleBookingStats)
	mux.HandleFunc("GET /bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("PUT /bookings/{id}/status", srv.handleUpdateStatus)
	mux.HandleFunc("POST /bookings/{id}/messages", srv.handleAppendMessage)

	mux.HandleFunc("GET /profile", srv.handleGetProfile)
	mux.HandleFunc("PUT /profile", srv.handleSaveProfile)

	mux.HandleFunc("GET /admin/bookings/export", srv.handleExportBookings)
	mux.HandleFunc("POST /admin/bookings/sheets-sync", srv.handleSheetsSync)
	mux.HandleFunc("GET /admin/users/active", srv.handleActiveUsers)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", srv.handleHealth)
	root.Handle("/", auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.loggingMiddleware(root),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler; used by httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(r.URL.Path, strconv.Itoa(recorder.status))
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps guard failures to distinct status codes so callers
// can tell the error kinds apart.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, database.ErrInvalidTarget),
		errors.Is(err, database.ErrInvalidRange),
		errors.Is(err, database.ErrInvalidFilter),
		errors.Is(err, database.ErrUnknownService):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrDuplicateRequest),
		errors.Is(err, database.ErrInvalidState),
		errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
