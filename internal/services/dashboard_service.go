package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

const dashboardCacheName = "dashboard"

const (
	topExpenseCategories = 5
	topIncomeCategories  = 3

	DefaultRecentTransactions = 10
	MaxRecentTransactions     = 50
)

type DashboardStore interface {
	ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
	ReadGoalStats(ctx context.Context, userID string, year, month int) (storage.GoalStats, error)
	CountCategories(ctx context.Context, userID string) (int, error)
	ListRecentTransactions(ctx context.Context, userID string, limit int) ([]storage.TransactionWithCategory, error)
}

// Variation holds percentage changes against the previous month.
type Variation struct {
	Income  float64
	Expense float64
	Balance float64
}

type GoalSummary struct {
	Total              int
	Active             int
	Completed          int
	CompletedThisMonth int
	Variation          float64
}

// DashboardSummary is the month summary shown on the dashboard.
type DashboardSummary struct {
	Current   core.MonthOverview
	Previous  core.MonthOverview
	Variation Variation
	Goals     GoalSummary
}

// DashboardMetrics are the headline counters for one month.
type DashboardMetrics struct {
	Month       core.MonthOverview
	Categories  int
	Goals       int
	ActiveGoals int
	GeneratedAt time.Time
}

// CategoryShare is a category total with its share of the month's total
// for the same type.
type CategoryShare struct {
	core.CategoryAmount
	Percentage float64
}

type TopCategories struct {
	Expense []CategoryShare
	Income  []CategoryShare
}

// DashboardService builds month summaries and caches them per user.
type DashboardService struct {
	store   DashboardStore
	cache   cache.Cache[DashboardSummary]
	metrics *metrics.Metrics
}

func NewDashboardService(store DashboardStore, c cache.Cache[DashboardSummary], m *metrics.Metrics) *DashboardService {
	return &DashboardService{store: store, cache: c, metrics: m}
}

func dashboardKey(userID string, year, month int) string {
	return fmt.Sprintf("%s:%04d-%02d", userID, year, month)
}

// Summary returns the summary for year/month, from cache when possible.
func (s *DashboardService) Summary(ctx context.Context, userID string, year, month int) (DashboardSummary, error) {
	if month < 1 || month > 12 {
		return DashboardSummary{}, &core.ValidationError{Field: "month", Message: "month must be between 1 and 12", Err: core.ErrInvalidDate}
	}

	key := dashboardKey(userID, year, month)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.IncrCacheLookup(dashboardCacheName, true)
			return cached, nil
		}
		s.metrics.IncrCacheLookup(dashboardCacheName, false)
	}

	prev := core.NewDate(year, month, 1).AddMonths(-1)
	prevYear, prevMonth := prev.Year(), int(prev.Month())

	var (
		current, previous        core.MonthOverview
		goalStats, prevGoalStats storage.GoalStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		current, err = s.store.ReadMonthOverview(gctx, userID, year, month)
		return err
	})
	g.Go(func() (err error) {
		previous, err = s.store.ReadMonthOverview(gctx, userID, prevYear, prevMonth)
		return err
	})
	g.Go(func() (err error) {
		goalStats, err = s.store.ReadGoalStats(gctx, userID, year, month)
		return err
	})
	g.Go(func() (err error) {
		prevGoalStats, err = s.store.ReadGoalStats(gctx, userID, prevYear, prevMonth)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, fmt.Errorf("build dashboard summary: %w", err)
	}

	summary := DashboardSummary{
		Current:  current,
		Previous: previous,
		Variation: Variation{
			Income:  variation(current.Income.Cents, previous.Income.Cents),
			Expense: variation(current.Expense.Cents, previous.Expense.Cents),
			Balance: variation(current.Balance().Cents, previous.Balance().Cents),
		},
		Goals: GoalSummary{
			Total:              goalStats.Total,
			Active:             goalStats.Active,
			Completed:          goalStats.Total - goalStats.Active,
			CompletedThisMonth: goalStats.CompletedThisMonth,
			Variation:          variation(int64(goalStats.CompletedThisMonth), int64(prevGoalStats.CompletedThisMonth)),
		},
	}

	if s.cache != nil {
		s.cache.Set(key, summary)
	}
	return summary, nil
}

// Metrics returns the month's totals with category and goal counts.
func (s *DashboardService) Metrics(ctx context.Context, userID string, year, month int) (DashboardMetrics, error) {
	summary, err := s.Summary(ctx, userID, year, month)
	if err != nil {
		return DashboardMetrics{}, err
	}
	categories, err := s.store.CountCategories(ctx, userID)
	if err != nil {
		return DashboardMetrics{}, err
	}
	return DashboardMetrics{
		Month:       summary.Current,
		Categories:  categories,
		Goals:       summary.Goals.Total,
		ActiveGoals: summary.Goals.Active,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// TopCategories returns the month's five largest expense categories and
// three largest income categories.
func (s *DashboardService) TopCategories(ctx context.Context, userID string, year, month int) (TopCategories, error) {
	summary, err := s.Summary(ctx, userID, year, month)
	if err != nil {
		return TopCategories{}, err
	}
	cur := summary.Current
	return TopCategories{
		Expense: topShares(cur.ByCategory, core.Expense, cur.Expense, topExpenseCategories),
		Income:  topShares(cur.ByCategory, core.Income, cur.Income, topIncomeCategories),
	}, nil
}

// RecentTransactions returns the user's latest transactions with their
// category display fields.
func (s *DashboardService) RecentTransactions(ctx context.Context, userID string, limit int) ([]storage.TransactionWithCategory, error) {
	if limit < 1 || limit > MaxRecentTransactions {
		return nil, &core.ValidationError{
			Field:   "limit",
			Message: fmt.Sprintf("limit must be between 1 and %d", MaxRecentTransactions),
			Err:     core.ErrInvalidAmount,
		}
	}
	return s.store.ListRecentTransactions(ctx, userID, limit)
}

// topShares keeps the first n categories of type typ; all must already be
// sorted by amount, largest first.
func topShares(all []core.CategoryAmount, typ core.TransactionType, total core.Money, n int) []CategoryShare {
	out := make([]CategoryShare, 0, n)
	for _, c := range all {
		if len(out) == n {
			break
		}
		if c.Type != typ {
			continue
		}
		share := CategoryShare{CategoryAmount: c}
		if total.Cents > 0 {
			share.Percentage = float64(c.Amount.Cents) / float64(total.Cents) * 100
		}
		out = append(out, share)
	}
	return out
}

// Invalidate drops every cached month for the user.
func (s *DashboardService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(userID + ":")
	}
}

// variation is the percentage change from previous to current. With no
// previous value any positive current counts as 100%.
func variation(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
