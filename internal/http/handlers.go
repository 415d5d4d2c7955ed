package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the database before reporting ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status, code := "ready", http.StatusOK

	if s.db == nil {
		checks["database"] = "not configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["database"] = "unreachable"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Notifications.List(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationResponse(n))
	}
	NewJSONResponse().Body(out).Write(w)
}

// writeServiceError maps domain errors to HTTP responses. Anything
// unrecognized is logged and reported as a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var (
		validationErr *core.ValidationError
		configErr     *core.ConfigurationError
		stateErr      *core.InvalidStateError
	)

	switch {
	case errors.As(err, &validationErr):
		FieldErrorResponse(http.StatusBadRequest, validationErr.Field, validationErr.Message).Write(w)
	case errors.As(err, &configErr):
		logger.WarnContext(ctx, "Rejected invalid recurrence configuration",
			errorFields(r, log.ErrorTypeConfiguration, err).ToSlice()...)
		FieldErrorResponse(http.StatusUnprocessableEntity, configErr.Field, configErr.Reason).Write(w)
	case errors.As(err, &stateErr):
		BadRequestError(stateErr.Reason).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("not found").Write(w)
	default:
		logger.ErrorContext(ctx, "Request failed",
			errorFields(r, log.ErrorTypeInternal, err).ToSlice()...)
		InternalServerError("internal server error").Write(w)
	}
}

// errorFields names the failed operation by method and route pattern.
func errorFields(r *http.Request, errorType string, err error) log.LogFields {
	op := r.Method + " " + r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		op = r.Method + " " + rctx.RoutePattern()
	}
	return log.NewFields().WithOperation(op).WithErrorType(errorType).WithError(err)
}

// authorizedCron checks the Bearer token against the cron secret. With no
// secret configured every caller is accepted.
func (s *Server) authorizedCron(r *http.Request) bool {
	if s.cronSecret == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) == 1
}
