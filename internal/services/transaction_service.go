package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

const (
	DefaultStatsMonths = 6
	MaxStatsMonths     = 24
	statsTopCategories = 5
)

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	ListCategories(ctx context.Context, userID string, typ core.TransactionType) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
}

type TransactionStore interface {
	CategoryStore
	UpdateCategory(ctx context.Context, userID, id string, apply storage.CategoryUpdateFunc) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id string, allow storage.CategoryDeleteFunc) error
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	ReadMonthlyTotals(ctx context.Context, userID string, from, to core.Date) ([]core.MonthOverview, error)
	ReadCategoryTotals(ctx context.Context, userID string, from, to core.Date, typ core.TransactionType, limit int) ([]core.CategoryAmount, error)
}

// TransactionPatch carries the editable fields of a transaction. Nil means
// unchanged.
type TransactionPatch struct {
	Type        *core.TransactionType
	Amount      *core.Money
	Description *string
	Date        *core.Date
	CategoryID  *string
	Notes       *string
}

// TransactionStats summarizes the calendar months in [From, To).
type TransactionStats struct {
	From    core.Date
	To      core.Date
	Months  int
	Income  core.Money
	Expense core.Money
	Count   int
	// Monthly has one entry per month, oldest first, zero-filled.
	Monthly     []core.MonthOverview
	TopExpenses []core.CategoryAmount
	// Variation compares the last month with the one before; Balance is
	// not computed.
	Variation Variation
}

// Balance returns income minus expense over the whole period.
func (s TransactionStats) Balance() core.Money {
	return core.Money{Cents: s.Income.Cents - s.Expense.Cents}
}

// TransactionService orchestrates manual transactions and categories.
type TransactionService struct {
	store       TransactionStore
	publisher   EventPublisher
	invalidator CacheInvalidator
	metrics     *metrics.Metrics
}

func NewTransactionService(store TransactionStore, publisher EventPublisher, invalidator CacheInvalidator, m *metrics.Metrics) *TransactionService {
	return &TransactionService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
	}
}

// Create saves a transaction and publishes transaction.created.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.Description = strings.TrimSpace(t.Description)
	t.RecurringID = ""
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := checkCategory(ctx, s.store, t.UserID, t.CategoryID, t.Type); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(t.UserID)

	publishEvent(ctx, s.publisher, s.metrics, amqp.EventTransactionCreated, created.UserID, amqp.TransactionCreated{
		TransactionID: created.ID,
		Type:          string(created.Type),
		AmountCents:   created.Amount.Cents,
		Date:          created.Date.String(),
	})
	return created, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

// Update edits a transaction in place. The category is re-checked when the
// category or the type changes.
func (s *TransactionService) Update(ctx context.Context, userID, id string, patch TransactionPatch) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}

	if patch.Type != nil {
		t.Type = *patch.Type
	}
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Date != nil {
		t.Date = *patch.Date
	}
	if patch.CategoryID != nil {
		t.CategoryID = *patch.CategoryID
	}
	if patch.Notes != nil {
		t.Notes = *patch.Notes
	}

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if patch.CategoryID != nil || patch.Type != nil {
		if err := checkCategory(ctx, s.store, userID, t.CategoryID, t.Type); err != nil {
			return core.Transaction{}, err
		}
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.invalidate(userID)
	return updated, nil
}

// Stats aggregates the last months calendar months, the one containing
// today included.
func (s *TransactionService) Stats(ctx context.Context, userID string, months int, today core.Date) (TransactionStats, error) {
	if months < 1 || months > MaxStatsMonths {
		return TransactionStats{}, &core.ValidationError{
			Field:   "months",
			Message: fmt.Sprintf("months must be between 1 and %d", MaxStatsMonths),
			Err:     core.ErrInvalidDate,
		}
	}

	to := core.NewDate(today.Year(), int(today.Month()), 1).AddMonths(1)
	from := to.AddMonths(-months)

	var (
		monthly []core.MonthOverview
		top     []core.CategoryAmount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		monthly, err = s.store.ReadMonthlyTotals(gctx, userID, from, to)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.store.ReadCategoryTotals(gctx, userID, from, to, core.Expense, statsTopCategories)
		return err
	})
	if err := g.Wait(); err != nil {
		return TransactionStats{}, fmt.Errorf("build transaction stats: %w", err)
	}

	stats := TransactionStats{From: from, To: to, Months: months, TopExpenses: top}
	byMonth := make(map[[2]int]core.MonthOverview, len(monthly))
	for _, m := range monthly {
		byMonth[[2]int{m.Year, m.Month}] = m
		stats.Income.Cents += m.Income.Cents
		stats.Expense.Cents += m.Expense.Cents
		stats.Count += m.Count
	}
	for i := 0; i < months; i++ {
		d := from.AddMonths(i)
		m, ok := byMonth[[2]int{d.Year(), int(d.Month())}]
		if !ok {
			m = core.MonthOverview{Year: d.Year(), Month: int(d.Month())}
		}
		stats.Monthly = append(stats.Monthly, m)
	}

	current := stats.Monthly[len(stats.Monthly)-1]
	var previous core.MonthOverview
	if len(stats.Monthly) > 1 {
		previous = stats.Monthly[len(stats.Monthly)-2]
	}
	stats.Variation = Variation{
		Income:  relativeChange(current.Income.Cents, previous.Income.Cents),
		Expense: relativeChange(current.Expense.Cents, previous.Expense.Cents),
	}
	return stats, nil
}

func (s *TransactionService) List(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	if month < 1 || month > 12 {
		return nil, &core.ValidationError{Field: "month", Message: "month must be between 1 and 12", Err: core.ErrInvalidDate}
	}
	return s.store.ListTransactions(ctx, userID, year, month)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *TransactionService) Categories(ctx context.Context, userID string, typ core.TransactionType) ([]core.Category, error) {
	if typ != "" && !typ.Valid() {
		return nil, &core.ValidationError{Field: "type", Message: "type must be INCOME or EXPENSE", Err: core.ErrInvalidType}
	}
	return s.store.ListCategories(ctx, userID, typ)
}

func (s *TransactionService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if errors.Is(err, storage.ErrDuplicateCategory) {
		return core.Category{}, duplicateCategory(err)
	}
	return created, err
}

// UpdateCategory edits a category. The type is locked while transactions
// or recurring rules use it.
func (s *TransactionService) UpdateCategory(ctx context.Context, userID, id string, patch core.CategoryPatch) (core.Category, error) {
	updated, err := s.store.UpdateCategory(ctx, userID, id, func(c core.Category, usage int) (core.Category, error) {
		return core.ApplyCategoryPatch(c, patch, usage)
	})
	if errors.Is(err, storage.ErrDuplicateCategory) {
		return core.Category{}, duplicateCategory(err)
	}
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(userID)
	return updated, nil
}

// DeleteCategory removes a category nothing refers to.
func (s *TransactionService) DeleteCategory(ctx context.Context, userID, id string) error {
	return s.store.DeleteCategory(ctx, userID, id, core.CheckCategoryRemovable)
}

func duplicateCategory(err error) error {
	return &core.ValidationError{Field: "name", Message: "a category with this name and type already exists", Err: err}
}

func (s *TransactionService) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}

// checkCategory verifies the category belongs to the user and matches the
// transaction type.
func checkCategory(ctx context.Context, store CategoryStore, userID, categoryID string, typ core.TransactionType) error {
	cat, err := store.GetCategory(ctx, userID, categoryID)
	if errors.Is(err, core.ErrNotFound) {
		return &core.ValidationError{Field: "categoryId", Message: "category not found", Err: core.ErrEmptyCategory}
	}
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if cat.Type != typ {
		return &core.ValidationError{Field: "categoryId", Message: "category type does not match transaction type", Err: core.ErrInvalidType}
	}
	return nil
}

// relativeChange is the percentage change from previous to current. Unlike
// variation, a zero previous value reports no change.
func relativeChange(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
