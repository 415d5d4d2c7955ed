package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseGoalFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	goals, err := s.svc.Goals.List(r.Context(), userID(r), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	goal, err := s.svc.Goals.Create(r.Context(), core.Goal{
		UserID:       userID(r),
		Name:         sanitizeInput(req.Name),
		Description:  sanitizeInput(req.Description),
		Category:     core.GoalCategory(strings.ToUpper(strings.TrimSpace(req.Category))),
		TargetAmount: core.Money{Cents: req.TargetAmount},
		Deadline:     req.Deadline,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	Created(toGoalResponse(goal)).Write(w)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.svc.Goals.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toGoalResponse(goal)).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Goals.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	result, err := s.svc.Goals.Contribute(r.Context(), userID(r), chi.URLParam(r, "id"),
		core.Money{Cents: req.Amount}, sanitizeInput(req.Note))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toContributeResponse(result)).Write(w)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Goals.Contributions(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]contributionResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toContributionResponse(c))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalPatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	patch := core.GoalPatch{IsCompleted: req.IsCompleted}
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		patch.Name = &name
	}
	if req.Description != nil {
		desc := sanitizeInput(*req.Description)
		patch.Description = &desc
	}
	if req.Category != nil {
		category := core.GoalCategory(strings.ToUpper(strings.TrimSpace(*req.Category)))
		patch.Category = &category
	}
	if req.TargetAmount != nil {
		patch.TargetAmount = &core.Money{Cents: *req.TargetAmount}
	}
	if req.Deadline != nil {
		deadline, err := parseOptionalDate("deadline", *req.Deadline)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		patch.Deadline = &deadline
	}

	goal, err := s.svc.Goals.Update(r.Context(), userID(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(toGoalResponse(goal)).Write(w)
}
