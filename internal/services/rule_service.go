package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

type RuleStore interface {
	CategoryStore
	CreateRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error)
	GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error)
	ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error)
	UpdateRule(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error)
	DeleteRule(ctx context.Context, userID, id string) error
}

// RulePatch carries the editable fields of a rule. Nil means unchanged.
// Frequency and anchors are fixed once the rule exists.
type RulePatch struct {
	IsActive    *bool
	Amount      *core.Money
	Description *string
	CategoryID  *string
	Notes       *string
	EndDate     *core.Date // zero Date clears it
}

type RuleService struct {
	store     RuleStore
	scheduler *Scheduler
	location  *time.Location
}

func NewRuleService(store RuleStore, scheduler *Scheduler, loc *time.Location) *RuleService {
	if scheduler == nil {
		scheduler = defaultScheduler
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RuleService{store: store, scheduler: scheduler, location: loc}
}

// Create validates and stores a new active rule. Anchors that do not apply
// to the frequency are dropped.
func (s *RuleService) Create(ctx context.Context, rule core.RecurringRule) (core.RecurringRule, error) {
	rule.Description = strings.TrimSpace(rule.Description)
	rule.IsActive = true
	rule.LastProcessed = core.Date{}
	switch rule.Frequency {
	case core.Weekly:
		rule.DayOfMonth = nil
	case core.Monthly:
		rule.DayOfWeek = nil
	default:
		rule.DayOfMonth, rule.DayOfWeek = nil, nil
	}

	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	if err := checkCategory(ctx, s.store, rule.UserID, rule.CategoryID, rule.Type); err != nil {
		return core.RecurringRule{}, err
	}

	created, err := s.store.CreateRule(ctx, rule)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("create recurring rule: %w", err)
	}
	return created, nil
}

func (s *RuleService) Get(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	return s.store.GetRule(ctx, userID, id)
}

func (s *RuleService) List(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	return s.store.ListRules(ctx, userID)
}

func (s *RuleService) Update(ctx context.Context, userID, id string, patch RulePatch) (core.RecurringRule, error) {
	rule, err := s.store.GetRule(ctx, userID, id)
	if err != nil {
		return core.RecurringRule{}, err
	}

	if patch.IsActive != nil {
		rule.IsActive = *patch.IsActive
	}
	if patch.Amount != nil {
		rule.Amount = *patch.Amount
	}
	if patch.Description != nil {
		rule.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.CategoryID != nil {
		rule.CategoryID = *patch.CategoryID
	}
	if patch.Notes != nil {
		rule.Notes = *patch.Notes
	}
	if patch.EndDate != nil {
		rule.EndDate = *patch.EndDate
	}

	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	if patch.CategoryID != nil {
		if err := checkCategory(ctx, s.store, userID, rule.CategoryID, rule.Type); err != nil {
			return core.RecurringRule{}, err
		}
	}

	return s.store.UpdateRule(ctx, rule)
}

func (s *RuleService) Delete(ctx context.Context, userID, id string) error {
	return s.store.DeleteRule(ctx, userID, id)
}

// Pending previews the occurrences the next batch run would create for the
// rule. Nothing is written.
func (s *RuleService) Pending(ctx context.Context, userID, id string) ([]core.Date, error) {
	rule, err := s.store.GetRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	today := core.Today(s.location)
	if !rule.ActiveOn(today) {
		return []core.Date{}, nil
	}
	dates, err := s.scheduler.PendingOccurrences(rule, today)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []core.Date{}
	}
	return dates, nil
}
