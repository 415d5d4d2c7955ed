package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query(), time.Now().In(s.location))

	list, err := s.svc.Transactions.List(r.Context(), userID(r), params.Year, params.Month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionResponse(t))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	t, err := s.svc.Transactions.Create(r.Context(), core.Transaction{
		UserID:      userID(r),
		Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Amount:      core.Money{Cents: req.AmountCents},
		Description: sanitizeInput(req.Description),
		Date:        req.Date,
		CategoryID:  req.CategoryID,
		Notes:       sanitizeInput(req.Notes),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	Created(toTransactionResponse(t)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Transactions.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toTransactionResponse(t)).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	patch := services.TransactionPatch{CategoryID: req.CategoryID}
	if req.Type != nil {
		typ := core.TransactionType(strings.ToUpper(strings.TrimSpace(*req.Type)))
		patch.Type = &typ
	}
	if req.AmountCents != nil {
		patch.Amount = &core.Money{Cents: *req.AmountCents}
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		patch.Description = &desc
	}
	if req.Notes != nil {
		notes := sanitizeInput(*req.Notes)
		patch.Notes = &notes
	}
	if req.Date != nil {
		date, err := parseOptionalDate("date", *req.Date)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		patch.Date = &date
	}

	t, err := s.svc.Transactions.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toTransactionResponse(t)).Write(w)
}

func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	months, err := ParseIntParam(r.URL.Query(), "months", services.DefaultStatsMonths)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	stats, err := s.svc.Transactions.Stats(r.Context(), userID(r), months, core.Today(s.location))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toStatsResponse(stats)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	typ := core.TransactionType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))))

	list, err := s.svc.Transactions.Categories(r.Context(), userID(r), typ)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCategoryResponse(c))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	c, err := s.svc.Transactions.CreateCategory(r.Context(), core.Category{
		UserID: userID(r),
		Name:   sanitizeInput(req.Name),
		Type:   core.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Color:  sanitizeInput(req.Color),
		Icon:   sanitizeInput(req.Icon),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	Created(toCategoryResponse(c)).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var patch core.CategoryPatch
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		patch.Name = &name
	}
	if req.Type != nil {
		typ := core.TransactionType(strings.ToUpper(strings.TrimSpace(*req.Type)))
		patch.Type = &typ
	}
	if req.Color != nil {
		color := sanitizeInput(*req.Color)
		patch.Color = &color
	}
	if req.Icon != nil {
		icon := sanitizeInput(*req.Icon)
		patch.Icon = &icon
	}

	c, err := s.svc.Transactions.UpdateCategory(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toCategoryResponse(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Transactions.DeleteCategory(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query(), time.Now().In(s.location))

	summary, err := s.svc.Dashboard.Summary(r.Context(), userID(r), params.Year, params.Month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toDashboardResponse(summary)).Write(w)
}

func (s *Server) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query(), time.Now().In(s.location))

	m, err := s.svc.Dashboard.Metrics(r.Context(), userID(r), params.Year, params.Month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toDashboardMetricsResponse(m)).Write(w)
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	params := ParseMonthParams(r.URL.Query(), time.Now().In(s.location))

	top, err := s.svc.Dashboard.TopCategories(r.Context(), userID(r), params.Year, params.Month)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(topCategoriesResponse{
		Expense: toCategoryShares(top.Expense),
		Income:  toCategoryShares(top.Income),
	}).Write(w)
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseIntParam(r.URL.Query(), "limit", services.DefaultRecentTransactions)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	list, err := s.svc.Dashboard.RecentTransactions(r.Context(), userID(r), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toRecentTransactionsResponse(list)).Write(w)
}
