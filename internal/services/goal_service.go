package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

const (
	// MaxContributionNote is the longest note accepted with a contribution.
	MaxContributionNote = 255
	// ContributionHistoryLimit caps the contribution list.
	ContributionHistoryLimit = 50
)

type GoalStore interface {
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	GetGoal(ctx context.Context, userID, id string) (core.Goal, error)
	ListGoals(ctx context.Context, userID string, f storage.GoalFilter) ([]core.Goal, error)
	UpdateGoal(ctx context.Context, userID, id string, apply storage.GoalUpdateFunc) (core.Goal, bool, error)
	DeleteGoal(ctx context.Context, userID, id string) error
	ContributeToGoal(ctx context.Context, userID, goalID string, c core.Contribution, apply storage.ContributionFunc) (core.Goal, core.Contribution, bool, error)
	ListContributions(ctx context.Context, userID, goalID string, limit int) ([]core.Contribution, error)
}

// ContributeResult is the outcome of one contribution.
type ContributeResult struct {
	Goal          core.Goal
	Contribution  core.Contribution
	Progress      int
	Remaining     core.Money
	JustCompleted bool
}

// GoalService orchestrates goal operations across SQLite and AMQP.
type GoalService struct {
	store       GoalStore
	publisher   EventPublisher
	invalidator CacheInvalidator
	metrics     *metrics.Metrics
	location    *time.Location
}

func NewGoalService(store GoalStore, publisher EventPublisher, invalidator CacheInvalidator, m *metrics.Metrics, loc *time.Location) *GoalService {
	if loc == nil {
		loc = time.UTC
	}
	return &GoalService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
		location:    loc,
	}
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.Name = strings.TrimSpace(g.Name)
	g.CurrentAmount = core.Money{}
	g.IsCompleted = false
	if err := g.Validate(core.Today(s.location)); err != nil {
		return core.Goal{}, err
	}

	created, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	s.invalidate(g.UserID)
	return created, nil
}

func (s *GoalService) Get(ctx context.Context, userID, id string) (core.Goal, error) {
	return s.store.GetGoal(ctx, userID, id)
}

func (s *GoalService) List(ctx context.Context, userID string, f storage.GoalFilter) ([]core.Goal, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, &core.ValidationError{Field: "category", Message: "invalid category", Err: core.ErrEmptyCategory}
	}
	goals, err := s.store.ListGoals(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// Update edits a goal. An edit that completes the goal publishes
// goal.completed the same way the completing contribution would.
func (s *GoalService) Update(ctx context.Context, userID, id string, patch core.GoalPatch) (core.Goal, error) {
	today := core.Today(s.location)
	goal, justCompleted, err := s.store.UpdateGoal(ctx, userID, id, func(g core.Goal) (core.Goal, bool, error) {
		return core.ApplyGoalPatch(g, patch, today)
	})
	if err != nil {
		return core.Goal{}, err
	}
	s.invalidate(userID)

	if justCompleted {
		s.metrics.IncrGoalCompleted()
		log.FromContext(ctx).WithComponent(log.ComponentGoals).InfoContext(ctx, "Goal completed by edit",
			log.FieldGoalID, goal.ID)
		s.publishCompleted(ctx, userID, goal)
	}
	return goal, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteGoal(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *GoalService) Contributions(ctx context.Context, userID, goalID string) ([]core.Contribution, error) {
	return s.store.ListContributions(ctx, userID, goalID, ContributionHistoryLimit)
}

// Contribute adds amount to the goal. The goal update and the contribution
// row are written in one transaction. goal.completed is published only for
// the contribution that crosses the target.
func (s *GoalService) Contribute(ctx context.Context, userID, goalID string, amount core.Money, note string) (ContributeResult, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentGoals)

	note = strings.TrimSpace(note)
	if len(note) > MaxContributionNote {
		return ContributeResult{}, &core.ValidationError{
			Field:   "note",
			Message: "note too long (max 255 characters)",
			Err:     core.ErrDescriptionTooLong,
		}
	}

	goal, contribution, justCompleted, err := s.store.ContributeToGoal(ctx, userID, goalID,
		core.Contribution{Amount: amount, Note: note}, core.ApplyContribution)
	if err != nil {
		return ContributeResult{}, err
	}

	s.metrics.IncrContribution(justCompleted)
	s.invalidate(userID)

	logger.InfoContext(ctx, "Contribution recorded",
		log.FieldGoalID, goalID,
		log.FieldAmountCents, amount.Cents,
		"progress", goal.Progress(),
		"completed", justCompleted)

	if justCompleted {
		s.publishCompleted(ctx, userID, goal)
	}

	return ContributeResult{
		Goal:          goal,
		Contribution:  contribution,
		Progress:      goal.Progress(),
		Remaining:     goal.Remaining(),
		JustCompleted: justCompleted,
	}, nil
}

func (s *GoalService) publishCompleted(ctx context.Context, userID string, goal core.Goal) {
	publishEvent(ctx, s.publisher, s.metrics, amqp.EventGoalCompleted, userID, amqp.GoalCompleted{
		GoalID:        goal.ID,
		Name:          goal.Name,
		TargetAmount:  goal.TargetAmount.Cents,
		CurrentAmount: goal.CurrentAmount.Cents,
	})
}

func (s *GoalService) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}
