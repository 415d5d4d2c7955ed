package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedCategory(t *testing.T, repo *SQLiteRepository, userID string, typ core.TransactionType) core.Category {
	t.Helper()
	c, err := repo.CreateCategory(context.Background(), core.Category{UserID: userID, Name: "Housing " + string(typ), Type: typ})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	return c
}

func TestMigrationsApplied(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fintrack.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	version, dirty, err := SchemaVersion(dbPath)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("schema version = %d dirty=%v, want 1 clean", version, dirty)
	}

	// reopening must not try to re-apply migrations
	again, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("second open error = %v", err)
	}
	again.Close()
}

func TestRuleRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat := seedCategory(t, repo, "u1", core.Expense)

	rule, err := repo.CreateRule(ctx, core.RecurringRule{
		UserID:      "u1",
		Type:        core.Expense,
		Amount:      core.Money{Cents: 120000},
		Description: "Rent",
		CategoryID:  cat.ID,
		Frequency:   core.Weekly,
		StartDate:   core.NewDate(2025, 1, 1),
		DayOfWeek:   core.IntPtr(0),
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	got, err := repo.GetRule(ctx, "u1", rule.ID)
	if err != nil {
		t.Fatalf("GetRule() error = %v", err)
	}
	if got.DayOfWeek == nil || *got.DayOfWeek != 0 {
		t.Errorf("DayOfWeek = %v, want 0 (Sunday preserved)", got.DayOfWeek)
	}
	if got.DayOfMonth != nil {
		t.Errorf("DayOfMonth = %v, want nil", *got.DayOfMonth)
	}
	if !got.EndDate.IsEmpty() || !got.LastProcessed.IsEmpty() {
		t.Errorf("optional dates should be empty, got end=%s last=%s", got.EndDate, got.LastProcessed)
	}
	if !got.StartDate.SameDay(core.NewDate(2025, 1, 1)) {
		t.Errorf("StartDate = %s", got.StartDate)
	}

	if _, err := repo.GetRule(ctx, "someone-else", rule.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetRule() for other user error = %v, want ErrNotFound", err)
	}

	got.IsActive = false
	if _, err := repo.UpdateRule(ctx, got); err != nil {
		t.Fatalf("UpdateRule() error = %v", err)
	}
	rules, err := repo.ListRules(ctx, "u1")
	if err != nil || len(rules) != 1 || rules[0].IsActive {
		t.Fatalf("ListRules() = %+v, %v", rules, err)
	}

	if err := repo.DeleteRule(ctx, "u1", rule.ID); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if err := repo.DeleteRule(ctx, "u1", rule.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second DeleteRule() error = %v, want ErrNotFound", err)
	}
}

func TestListDueRules(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat := seedCategory(t, repo, "u1", core.Expense)
	today := core.NewDate(2025, 6, 15)

	base := core.RecurringRule{
		UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 100},
		Description: "x", CategoryID: cat.ID, Frequency: core.Daily, IsActive: true,
	}

	rules := map[string]func(r *core.RecurringRule){
		"open": func(r *core.RecurringRule) { r.StartDate = core.NewDate(2025, 1, 1) },
		"ends today": func(r *core.RecurringRule) {
			r.StartDate = core.NewDate(2025, 1, 1)
			r.EndDate = today
		},
		"ended": func(r *core.RecurringRule) {
			r.StartDate = core.NewDate(2025, 1, 1)
			r.EndDate = core.NewDate(2025, 6, 1)
		},
		"future":   func(r *core.RecurringRule) { r.StartDate = core.NewDate(2025, 7, 1) },
		"inactive": func(r *core.RecurringRule) { r.StartDate = core.NewDate(2025, 1, 1); r.IsActive = false },
	}

	want := map[string]bool{"open": true, "ends today": true}
	for name, mod := range rules {
		r := base
		r.Description = name
		mod(&r)
		if _, err := repo.CreateRule(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	due, err := repo.ListDueRules(ctx, today)
	if err != nil {
		t.Fatalf("ListDueRules() error = %v", err)
	}
	if len(due) != len(want) {
		t.Fatalf("ListDueRules() returned %d rules, want %d", len(due), len(want))
	}
	for _, r := range due {
		if !want[r.Description] {
			t.Errorf("unexpected due rule %q", r.Description)
		}
	}
}

func TestMaterializeOccurrences(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat := seedCategory(t, repo, "u1", core.Income)

	rule, err := repo.CreateRule(ctx, core.RecurringRule{
		UserID: "u1", Type: core.Income, Amount: core.Money{Cents: 500000},
		Description: "Salary", CategoryID: cat.ID, Frequency: core.Monthly,
		StartDate: core.NewDate(2025, 1, 31), DayOfMonth: core.IntPtr(31), IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	dates := []core.Date{core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 31)}
	created, err := repo.MaterializeOccurrences(ctx, rule, dates)
	if err != nil {
		t.Fatalf("MaterializeOccurrences() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d transactions, want 2", len(created))
	}

	stored, err := repo.ListTransactionsByRule(ctx, rule.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || !stored[0].Date.SameDay(dates[0]) || !stored[1].Date.SameDay(dates[1]) {
		t.Fatalf("stored transactions = %+v", stored)
	}
	if stored[0].RecurringID != rule.ID || stored[0].Amount.Cents != 500000 {
		t.Errorf("transaction not linked to rule: %+v", stored[0])
	}

	got, err := repo.GetRule(ctx, "u1", rule.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastProcessed.SameDay(dates[1]) {
		t.Fatalf("LastProcessed = %s, want %s", got.LastProcessed, dates[1])
	}

	// the in-memory rule still carries the old last_processed
	_, err = repo.MaterializeOccurrences(ctx, rule, []core.Date{core.NewDate(2025, 4, 30)})
	if !errors.Is(err, ErrStaleRule) {
		t.Fatalf("stale write error = %v, want ErrStaleRule", err)
	}
	stored, _ = repo.ListTransactionsByRule(ctx, rule.ID)
	if len(stored) != 2 {
		t.Fatalf("stale write left %d transactions, want 2", len(stored))
	}
}

func TestMaterializeOccurrencesRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat := seedCategory(t, repo, "u1", core.Expense)

	rule, err := repo.CreateRule(ctx, core.RecurringRule{
		UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 100},
		Description: "Coffee", CategoryID: cat.ID, Frequency: core.Daily,
		StartDate: core.NewDate(2025, 1, 1), IsActive: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	broken := rule
	broken.CategoryID = "missing-category"
	if _, err := repo.MaterializeOccurrences(ctx, broken, []core.Date{core.NewDate(2025, 1, 2)}); err == nil {
		t.Fatal("expected foreign key failure")
	}

	got, _ := repo.GetRule(ctx, "u1", rule.ID)
	if !got.LastProcessed.IsEmpty() {
		t.Fatalf("LastProcessed advanced to %s after failed write", got.LastProcessed)
	}
	stored, _ := repo.ListTransactionsByRule(ctx, rule.ID)
	if len(stored) != 0 {
		t.Fatalf("failed write left %d transactions", len(stored))
	}
}

func TestContributeToGoal(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	goal, err := repo.CreateGoal(ctx, core.Goal{
		UserID: "u1", Name: "Emergency fund", Category: core.GoalEmergency,
		TargetAmount: core.Money{Cents: 1000},
	})
	if err != nil {
		t.Fatal(err)
	}

	contribute := func(amount int64) (core.Goal, bool, error) {
		g, _, done, err := repo.ContributeToGoal(ctx, "u1", goal.ID,
			core.Contribution{Amount: core.Money{Cents: amount}}, core.ApplyContribution)
		return g, done, err
	}

	g, done, err := contribute(600)
	if err != nil || done || g.CurrentAmount.Cents != 600 {
		t.Fatalf("first contribution = %+v, %v, %v", g, done, err)
	}

	g, done, err = contribute(600)
	if err != nil || !done || !g.IsCompleted || g.CurrentAmount.Cents != 1200 {
		t.Fatalf("second contribution = %+v, %v, %v", g, done, err)
	}
	if g.CompletedAt.IsZero() {
		t.Error("CompletedAt not set on completion")
	}

	if _, _, err = contribute(100); !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("contribution to completed goal error = %v, want ErrInvalidState", err)
	}

	stored, err := repo.GetGoal(ctx, "u1", goal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CurrentAmount.Cents != 1200 || !stored.IsCompleted {
		t.Fatalf("stored goal = %+v", stored)
	}

	contributions, err := repo.ListContributions(ctx, "u1", goal.ID, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(contributions) != 2 {
		t.Fatalf("got %d contributions, want 2 (rejected one must not be stored)", len(contributions))
	}
	if contributions[0].CreatedAt.Before(contributions[1].CreatedAt) {
		t.Error("contributions not newest first")
	}

	if _, _, _, err := repo.ContributeToGoal(ctx, "intruder", goal.ID,
		core.Contribution{Amount: core.Money{Cents: 1}}, core.ApplyContribution); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("contribution by non-owner error = %v, want ErrNotFound", err)
	}
}

func TestListGoalsFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, g := range []core.Goal{
		{UserID: "u1", Name: "Car", Category: core.GoalPurchase, TargetAmount: core.Money{Cents: 10000}, CurrentAmount: core.Money{Cents: 9000}},
		{UserID: "u1", Name: "Trip", Category: core.GoalVacation, TargetAmount: core.Money{Cents: 10000}, CurrentAmount: core.Money{Cents: 1000}},
		{UserID: "u1", Name: "Done", Category: core.GoalOther, TargetAmount: core.Money{Cents: 100}, CurrentAmount: core.Money{Cents: 100}, IsCompleted: true},
		{UserID: "u2", Name: "Other user", Category: core.GoalOther, TargetAmount: core.Money{Cents: 100}},
	} {
		if _, err := repo.CreateGoal(ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter GoalFilter
		want   []string
	}{
		{"default is active", GoalFilter{OrderBy: "progress"}, []string{"Car", "Trip"}},
		{"progress ascending", GoalFilter{OrderBy: "progress", Asc: true}, []string{"Trip", "Car"}},
		{"completed", GoalFilter{Status: "completed"}, []string{"Done"}},
		{"category", GoalFilter{Status: "all", Category: core.GoalVacation}, []string{"Trip"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goals, err := repo.ListGoals(ctx, "u1", tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(goals) != len(tt.want) {
				t.Fatalf("got %d goals, want %d", len(goals), len(tt.want))
			}
			for i, g := range goals {
				if g.Name != tt.want[i] {
					t.Errorf("goal %d = %q, want %q", i, g.Name, tt.want[i])
				}
			}
		})
	}

	if _, err := repo.ListGoals(ctx, "u1", GoalFilter{OrderBy: "name; DROP TABLE goals"}); err == nil {
		t.Error("unknown ordering should be rejected")
	}
}

func TestReadMonthOverview(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	income := seedCategory(t, repo, "u1", core.Income)
	expense := seedCategory(t, repo, "u1", core.Expense)

	for _, tx := range []core.Transaction{
		{UserID: "u1", Type: core.Income, Amount: core.Money{Cents: 300000}, Description: "Salary", Date: core.NewDate(2025, 3, 1), CategoryID: income.ID},
		{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 120000}, Description: "Rent", Date: core.NewDate(2025, 3, 5), CategoryID: expense.ID},
		{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 5000}, Description: "Power", Date: core.NewDate(2025, 3, 31), CategoryID: expense.ID},
		{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 999}, Description: "April", Date: core.NewDate(2025, 4, 1), CategoryID: expense.ID},
	} {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	o, err := repo.ReadMonthOverview(ctx, "u1", 2025, 3)
	if err != nil {
		t.Fatalf("ReadMonthOverview() error = %v", err)
	}
	if o.Income.Cents != 300000 || o.Expense.Cents != 125000 || o.Count != 3 {
		t.Fatalf("overview = %+v", o)
	}
	if o.Balance().Cents != 175000 {
		t.Errorf("Balance() = %d", o.Balance().Cents)
	}
	if len(o.ByCategory) != 2 || o.ByCategory[0].CategoryID != income.ID {
		t.Errorf("ByCategory = %+v", o.ByCategory)
	}

	list, err := repo.ListTransactions(ctx, "u1", 2025, 3)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListTransactions() = %d, %v", len(list), err)
	}
	if list[0].Description != "Power" {
		t.Errorf("transactions not newest first: %q", list[0].Description)
	}
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	n := core.Notification{ID: "evt-1", UserID: "u1", Kind: "goal.completed", Title: "Goal reached"}
	if _, err := repo.CreateNotification(ctx, n); err != nil {
		t.Fatal(err)
	}
	// redelivery of the same event
	if _, err := repo.CreateNotification(ctx, n); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListNotifications(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Title != "Goal reached" {
		t.Fatalf("ListNotifications() = %+v", list)
	}
}

func TestUpdateGoal(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	goal, err := repo.CreateGoal(ctx, core.Goal{
		UserID: "u1", Name: "Laptop", Category: core.GoalPurchase,
		TargetAmount: core.Money{Cents: 5000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := repo.ContributeToGoal(ctx, "u1", goal.ID,
		core.Contribution{Amount: core.Money{Cents: 3000}}, core.ApplyContribution); err != nil {
		t.Fatal(err)
	}

	lower := core.Money{Cents: 3000}
	updated, done, err := repo.UpdateGoal(ctx, "u1", goal.ID, func(g core.Goal) (core.Goal, bool, error) {
		return core.ApplyGoalPatch(g, core.GoalPatch{TargetAmount: &lower}, core.NewDate(2025, 1, 1))
	})
	if err != nil {
		t.Fatalf("UpdateGoal() error = %v", err)
	}
	if !done || !updated.IsCompleted || updated.CompletedAt.IsZero() {
		t.Fatalf("lowering the target to the saved amount should complete: %+v", updated)
	}

	if _, _, err := repo.UpdateGoal(ctx, "u1", goal.ID, func(g core.Goal) (core.Goal, bool, error) {
		g.Name = "Work laptop"
		g.CurrentAmount = core.Money{Cents: 1}
		return g, false, nil
	}); err != nil {
		t.Fatalf("rename error = %v", err)
	}

	stored, err := repo.GetGoal(ctx, "u1", goal.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CurrentAmount.Cents != 3000 {
		t.Errorf("CurrentAmount = %d, edits must not touch it", stored.CurrentAmount.Cents)
	}
	if stored.TargetAmount.Cents != 3000 || !stored.IsCompleted {
		t.Errorf("stored goal = %+v", stored)
	}

	reopen := false
	_, _, err = repo.UpdateGoal(ctx, "u1", goal.ID, func(g core.Goal) (core.Goal, bool, error) {
		return core.ApplyGoalPatch(g, core.GoalPatch{IsCompleted: &reopen}, core.NewDate(2025, 1, 1))
	})
	if !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("reopen error = %v, want ErrInvalidState", err)
	}

	_, _, err = repo.UpdateGoal(ctx, "intruder", goal.ID, func(g core.Goal) (core.Goal, bool, error) {
		return g, false, nil
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update error = %v, want ErrNotFound", err)
	}
}

func TestUpdateAndDeleteCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	used := seedCategory(t, repo, "u1", core.Expense)
	spare, err := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Spare", Type: core.Expense})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := repo.CreateCategory(ctx, core.Category{UserID: "u1", Name: "Spare", Type: core.Expense}); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("duplicate create error = %v, want ErrDuplicateCategory", err)
	}

	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 100}, Description: "Rent",
		Date: core.NewDate(2025, 3, 1), CategoryID: used.ID,
	}); err != nil {
		t.Fatal(err)
	}

	var gotUsage int
	renamed, err := repo.UpdateCategory(ctx, "u1", used.ID, func(c core.Category, usage int) (core.Category, error) {
		gotUsage = usage
		c.Name = "Home"
		c.Color = "#AABBCC"
		return c, nil
	})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if gotUsage != 1 || renamed.Name != "Home" || renamed.ID != used.ID {
		t.Errorf("usage=%d renamed=%+v", gotUsage, renamed)
	}

	_, err = repo.UpdateCategory(ctx, "u1", spare.ID, func(c core.Category, usage int) (core.Category, error) {
		c.Name = "Home"
		return c, nil
	})
	if !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("rename onto existing name error = %v, want ErrDuplicateCategory", err)
	}

	if err := repo.DeleteCategory(ctx, "u1", used.ID, core.CheckCategoryRemovable); !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("delete used category error = %v, want ErrInvalidState", err)
	}
	if err := repo.DeleteCategory(ctx, "u1", spare.ID, core.CheckCategoryRemovable); err != nil {
		t.Fatalf("delete spare category error = %v", err)
	}
	if _, err := repo.GetCategory(ctx, "u1", spare.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted category still readable: %v", err)
	}
	if err := repo.DeleteCategory(ctx, "u2", used.ID, core.CheckCategoryRemovable); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign delete error = %v, want ErrNotFound", err)
	}

	n, err := repo.CountCategories(ctx, "u1")
	if err != nil || n != 1 {
		t.Errorf("CountCategories() = %d, %v", n, err)
	}
}

func TestUpdateTransactionAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cat := seedCategory(t, repo, "u1", core.Expense)

	var ids []string
	for day := 1; day <= 3; day++ {
		tx, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: int64(day * 100)},
			Description: "Lunch", Date: core.NewDate(2025, 3, day), CategoryID: cat.ID,
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, tx.ID)
	}

	first, err := repo.GetTransaction(ctx, "u1", ids[0])
	if err != nil {
		t.Fatal(err)
	}
	first.Amount = core.Money{Cents: 4200}
	first.Date = core.NewDate(2025, 3, 10)
	updated, err := repo.UpdateTransaction(ctx, first)
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.Amount.Cents != 4200 || updated.Date != core.NewDate(2025, 3, 10) {
		t.Errorf("updated = %+v", updated)
	}

	first.UserID = "u2"
	if _, err := repo.UpdateTransaction(ctx, first); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("foreign update error = %v, want ErrNotFound", err)
	}

	recent, err := repo.ListRecentTransactions(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListRecentTransactions() error = %v", err)
	}
	if len(recent) != 2 || recent[0].ID != ids[0] || recent[1].ID != ids[2] {
		t.Fatalf("recent = %+v", recent)
	}
	if recent[0].CategoryName != cat.Name {
		t.Errorf("CategoryName = %q, want %q", recent[0].CategoryName, cat.Name)
	}
}

func TestReadMonthlyAndCategoryTotals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	income := seedCategory(t, repo, "u1", core.Income)
	expense := seedCategory(t, repo, "u1", core.Expense)

	for _, tx := range []core.Transaction{
		{UserID: "u1", Type: core.Income, Amount: core.Money{Cents: 1000}, Description: "Pay", Date: core.NewDate(2025, 1, 15), CategoryID: income.ID},
		{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 300}, Description: "Food", Date: core.NewDate(2025, 1, 20), CategoryID: expense.ID},
		{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 200}, Description: "Food", Date: core.NewDate(2025, 3, 2), CategoryID: expense.ID},
		{UserID: "u1", Type: core.Expense, Amount: core.Money{Cents: 999}, Description: "Later", Date: core.NewDate(2025, 4, 1), CategoryID: expense.ID},
	} {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	from, to := core.NewDate(2025, 1, 1), core.NewDate(2025, 4, 1)
	months, err := repo.ReadMonthlyTotals(ctx, "u1", from, to)
	if err != nil {
		t.Fatalf("ReadMonthlyTotals() error = %v", err)
	}
	if len(months) != 2 {
		t.Fatalf("got %d months, want 2: %+v", len(months), months)
	}
	if months[0].Year != 2025 || months[0].Month != 1 || months[0].Income.Cents != 1000 || months[0].Expense.Cents != 300 {
		t.Errorf("january = %+v", months[0])
	}
	if months[1].Month != 3 || months[1].Count != 1 {
		t.Errorf("march = %+v", months[1])
	}

	totals, err := repo.ReadCategoryTotals(ctx, "u1", from, to, core.Expense, 5)
	if err != nil {
		t.Fatalf("ReadCategoryTotals() error = %v", err)
	}
	if len(totals) != 1 || totals[0].Amount.Cents != 500 || totals[0].Count != 2 || totals[0].Name != expense.Name {
		t.Errorf("expense totals = %+v", totals)
	}
}
