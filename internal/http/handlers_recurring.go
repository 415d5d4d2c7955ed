package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// handleProcessRecurring runs one batch over every due rule. It is the
// entry point for an external cron.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.authorizedCron(r) {
		log.FromContext(ctx).WarnContext(ctx, "Rejected recurring process call",
			log.FieldErrorType, log.ErrorTypeAuth)
		UnauthorizedError("unauthorized").Write(w)
		return
	}

	result, err := s.svc.Processor.ProcessDue(ctx, core.Today(s.location))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	NewJSONResponse().Body(processResponse{
		Success:        true,
		Processed:      result.Processed,
		TotalRecurring: result.TotalRules,
		Errors:         result.Errors,
	}).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	rules, err := s.svc.Rules.List(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]recurringResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRecurringResponse(rule))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	freq, err := core.ParseFrequency(req.Frequency)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rule, err := s.svc.Rules.Create(r.Context(), core.RecurringRule{
		UserID:      userID(r),
		Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Amount:      core.Money{Cents: req.AmountCents},
		Description: sanitizeInput(req.Description),
		CategoryID:  req.CategoryID,
		Notes:       sanitizeInput(req.Notes),
		Frequency:   freq,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		DayOfMonth:  req.DayOfMonth,
		DayOfWeek:   req.DayOfWeek,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	Created(toRecurringResponse(rule)).Write(w)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	rule, err := s.svc.Rules.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toRecurringResponse(rule)).Write(w)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringPatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	patch := services.RulePatch{
		IsActive:   req.IsActive,
		CategoryID: req.CategoryID,
	}
	if req.AmountCents != nil {
		patch.Amount = &core.Money{Cents: *req.AmountCents}
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		patch.Description = &d
	}
	if req.Notes != nil {
		n := sanitizeInput(*req.Notes)
		patch.Notes = &n
	}
	if req.EndDate != nil {
		end, err := parseOptionalDate("endDate", *req.EndDate)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		patch.EndDate = &end
	}

	rule, err := s.svc.Rules.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toRecurringResponse(rule)).Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Rules.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NoContent().Write(w)
}

// handlePendingRecurring previews the dates the next run would create.
func (s *Server) handlePendingRecurring(w http.ResponseWriter, r *http.Request) {
	dates, err := s.svc.Rules.Pending(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"dates": dates,
		"count": len(dates),
	}).Write(w)
}
