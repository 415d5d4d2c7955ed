package http

import (
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// Request and response bodies. Amounts are integer cents; dates are
// YYYY-MM-DD strings.

type recurringRequest struct {
	Type        string    `json:"type"`
	AmountCents int64     `json:"amountCents"`
	Description string    `json:"description"`
	CategoryID  string    `json:"categoryId"`
	Notes       string    `json:"notes"`
	Frequency   string    `json:"frequency"`
	StartDate   core.Date `json:"startDate"`
	EndDate     core.Date `json:"endDate"`
	DayOfMonth  *int      `json:"dayOfMonth"`
	DayOfWeek   *int      `json:"dayOfWeek"`
}

type recurringPatchRequest struct {
	IsActive    *bool   `json:"isActive"`
	AmountCents *int64  `json:"amountCents"`
	Description *string `json:"description"`
	CategoryID  *string `json:"categoryId"`
	Notes       *string `json:"notes"`
	EndDate     *string `json:"endDate"`
}

type recurringResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amountCents"`
	Description   string    `json:"description"`
	CategoryID    string    `json:"categoryId"`
	Notes         string    `json:"notes,omitempty"`
	Frequency     string    `json:"frequency"`
	Schedule      string    `json:"schedule"`
	StartDate     core.Date `json:"startDate"`
	EndDate       core.Date `json:"endDate"`
	DayOfMonth    *int      `json:"dayOfMonth"`
	DayOfWeek     *int      `json:"dayOfWeek"`
	LastProcessed core.Date `json:"lastProcessed"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toRecurringResponse(r core.RecurringRule) recurringResponse {
	return recurringResponse{
		ID:            r.ID,
		Type:          string(r.Type),
		AmountCents:   r.Amount.Cents,
		Description:   r.Description,
		CategoryID:    r.CategoryID,
		Notes:         r.Notes,
		Frequency:     string(r.Frequency),
		Schedule:      core.DescribeRecurrence(r),
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		DayOfMonth:    r.DayOfMonth,
		DayOfWeek:     r.DayOfWeek,
		LastProcessed: r.LastProcessed,
		IsActive:      r.IsActive,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type processResponse struct {
	Success        bool     `json:"success"`
	Processed      int      `json:"processed"`
	TotalRecurring int      `json:"totalRecurring"`
	Errors         []string `json:"errors,omitempty"`
}

type goalRequest struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	TargetAmount int64     `json:"targetAmount"`
	Deadline     core.Date `json:"deadline"`
}

// goalPatchRequest has no currentAmount: saved money only changes through
// contributions. An empty deadline clears it.
type goalPatchRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	TargetAmount *int64  `json:"targetAmount"`
	Deadline     *string `json:"deadline"`
	IsCompleted  *bool   `json:"isCompleted"`
}

type goalResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Category      string     `json:"category"`
	TargetAmount  int64      `json:"targetAmount"`
	CurrentAmount int64      `json:"currentAmount"`
	Progress      int        `json:"progress"`
	Remaining     int64      `json:"remaining"`
	Band          string     `json:"band"`
	Deadline      core.Date  `json:"deadline"`
	IsCompleted   bool       `json:"isCompleted"`
	CompletedAt   *time.Time `json:"completedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toGoalResponse(g core.Goal) goalResponse {
	resp := goalResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		Category:      string(g.Category),
		TargetAmount:  g.TargetAmount.Cents,
		CurrentAmount: g.CurrentAmount.Cents,
		Progress:      g.Progress(),
		Remaining:     g.Remaining().Cents,
		Band:          core.ProgressBand(g.Progress()),
		Deadline:      g.Deadline,
		IsCompleted:   g.IsCompleted,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
	if !g.CompletedAt.IsZero() {
		completed := g.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

type contributeRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

type contributionResponse struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goalId"`
	Amount    int64     `json:"amount"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toContributionResponse(c core.Contribution) contributionResponse {
	return contributionResponse{
		ID:        c.ID,
		GoalID:    c.GoalID,
		Amount:    c.Amount.Cents,
		Note:      c.Note,
		CreatedAt: c.CreatedAt,
	}
}

type contributeResponse struct {
	Goal          goalResponse         `json:"goal"`
	Contribution  contributionResponse `json:"contribution"`
	Progress      int                  `json:"progress"`
	Remaining     int64                `json:"remaining"`
	JustCompleted bool                 `json:"justCompleted"`
}

func toContributeResponse(r services.ContributeResult) contributeResponse {
	return contributeResponse{
		Goal:          toGoalResponse(r.Goal),
		Contribution:  toContributionResponse(r.Contribution),
		Progress:      r.Progress,
		Remaining:     r.Remaining.Cents,
		JustCompleted: r.JustCompleted,
	}
}

type transactionRequest struct {
	Type        string    `json:"type"`
	AmountCents int64     `json:"amountCents"`
	Description string    `json:"description"`
	Date        core.Date `json:"date"`
	CategoryID  string    `json:"categoryId"`
	Notes       string    `json:"notes"`
}

type transactionPatchRequest struct {
	Type        *string `json:"type"`
	AmountCents *int64  `json:"amountCents"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	CategoryID  *string `json:"categoryId"`
	Notes       *string `json:"notes"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amountCents"`
	Description string    `json:"description"`
	Date        core.Date `json:"date"`
	CategoryID  string    `json:"categoryId"`
	Notes       string    `json:"notes,omitempty"`
	RecurringID string    `json:"recurringId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        string(t.Type),
		AmountCents: t.Amount.Cents,
		Description: t.Description,
		Date:        t.Date,
		CategoryID:  t.CategoryID,
		Notes:       t.Notes,
		RecurringID: t.RecurringID,
		CreatedAt:   t.CreatedAt,
	}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type categoryPatchRequest struct {
	Name  *string `json:"name"`
	Type  *string `json:"type"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Type), Color: c.Color, Icon: c.Icon}
}

type monthTotals struct {
	Income           int64 `json:"income"`
	Expense          int64 `json:"expense"`
	Balance          int64 `json:"balance"`
	TransactionCount int   `json:"transactionCount"`
}

type categoryTotal struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Amount     int64  `json:"amount"`
}

type dashboardResponse struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	CurrentMonth  monthTotals     `json:"currentMonth"`
	PreviousMonth monthTotals     `json:"previousMonth"`
	Variation     variationBody   `json:"variation"`
	ByCategory    []categoryTotal `json:"byCategory"`
	Goals         goalStatsBody   `json:"goals"`
}

type variationBody struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

type goalStatsBody struct {
	Total              int     `json:"total"`
	Active             int     `json:"active"`
	Completed          int     `json:"completed"`
	CompletedThisMonth int     `json:"completedThisMonth"`
	Variation          float64 `json:"variation"`
}

func toMonthTotals(o core.MonthOverview) monthTotals {
	return monthTotals{
		Income:           o.Income.Cents,
		Expense:          o.Expense.Cents,
		Balance:          o.Balance().Cents,
		TransactionCount: o.Count,
	}
}

func toDashboardResponse(s services.DashboardSummary) dashboardResponse {
	resp := dashboardResponse{
		Year:          s.Current.Year,
		Month:         s.Current.Month,
		CurrentMonth:  toMonthTotals(s.Current),
		PreviousMonth: toMonthTotals(s.Previous),
		Variation: variationBody{
			Income:  s.Variation.Income,
			Expense: s.Variation.Expense,
			Balance: s.Variation.Balance,
		},
		ByCategory: make([]categoryTotal, 0, len(s.Current.ByCategory)),
		Goals: goalStatsBody{
			Total:              s.Goals.Total,
			Active:             s.Goals.Active,
			Completed:          s.Goals.Completed,
			CompletedThisMonth: s.Goals.CompletedThisMonth,
			Variation:          s.Goals.Variation,
		},
	}
	for _, c := range s.Current.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryTotal{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Type:       string(c.Type),
			Amount:     c.Amount.Cents,
		})
	}
	return resp
}

type statsResponse struct {
	Summary          statsSummary       `json:"summary"`
	MonthlyEvolution []monthlyPoint     `json:"monthlyEvolution"`
	TopCategories    []statsCategory    `json:"topCategories"`
	Variation        statsVariationBody `json:"variation"`
	Period           statsPeriod        `json:"period"`
}

type statsSummary struct {
	TotalIncome      int64 `json:"totalIncome"`
	TotalExpense     int64 `json:"totalExpense"`
	Balance          int64 `json:"balance"`
	TransactionCount int   `json:"transactionCount"`
}

type monthlyPoint struct {
	Month   string `json:"month"` // YYYY-MM
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
	Balance int64  `json:"balance"`
}

type statsCategory struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Total      int64  `json:"total"`
}

type statsVariationBody struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// statsPeriod bounds are inclusive.
type statsPeriod struct {
	StartDate core.Date `json:"startDate"`
	EndDate   core.Date `json:"endDate"`
	Months    int       `json:"months"`
}

func toStatsResponse(s services.TransactionStats) statsResponse {
	resp := statsResponse{
		Summary: statsSummary{
			TotalIncome:      s.Income.Cents,
			TotalExpense:     s.Expense.Cents,
			Balance:          s.Balance().Cents,
			TransactionCount: s.Count,
		},
		MonthlyEvolution: make([]monthlyPoint, 0, len(s.Monthly)),
		TopCategories:    make([]statsCategory, 0, len(s.TopExpenses)),
		Variation:        statsVariationBody{Income: s.Variation.Income, Expense: s.Variation.Expense},
		Period:           statsPeriod{StartDate: s.From, EndDate: s.To.AddDays(-1), Months: s.Months},
	}
	for _, m := range s.Monthly {
		resp.MonthlyEvolution = append(resp.MonthlyEvolution, monthlyPoint{
			Month:   fmt.Sprintf("%04d-%02d", m.Year, m.Month),
			Income:  m.Income.Cents,
			Expense: m.Expense.Cents,
			Balance: m.Balance().Cents,
		})
	}
	for _, c := range s.TopExpenses {
		resp.TopCategories = append(resp.TopCategories, statsCategory{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Color:      c.Color,
			Total:      c.Amount.Cents,
		})
	}
	return resp
}

type dashboardMetricsResponse struct {
	Year              int       `json:"year"`
	Month             int       `json:"month"`
	TotalIncome       int64     `json:"totalIncome"`
	TotalExpense      int64     `json:"totalExpense"`
	Balance           int64     `json:"balance"`
	TransactionsCount int       `json:"transactionsCount"`
	CategoriesCount   int       `json:"categoriesCount"`
	GoalsCount        int       `json:"goalsCount"`
	ActiveGoalsCount  int       `json:"activeGoalsCount"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

func toDashboardMetricsResponse(m services.DashboardMetrics) dashboardMetricsResponse {
	return dashboardMetricsResponse{
		Year:              m.Month.Year,
		Month:             m.Month.Month,
		TotalIncome:       m.Month.Income.Cents,
		TotalExpense:      m.Month.Expense.Cents,
		Balance:           m.Month.Balance().Cents,
		TransactionsCount: m.Month.Count,
		CategoriesCount:   m.Categories,
		GoalsCount:        m.Goals,
		ActiveGoalsCount:  m.ActiveGoals,
		LastUpdated:       m.GeneratedAt,
	}
}

type categoryShareBody struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Color            string  `json:"color,omitempty"`
	Icon             string  `json:"icon,omitempty"`
	Total            int64   `json:"total"`
	TransactionCount int     `json:"transactionCount"`
	Percentage       float64 `json:"percentage"`
}

type topCategoriesResponse struct {
	Expense []categoryShareBody `json:"expense"`
	Income  []categoryShareBody `json:"income"`
}

func toCategoryShares(shares []services.CategoryShare) []categoryShareBody {
	out := make([]categoryShareBody, 0, len(shares))
	for _, c := range shares {
		out = append(out, categoryShareBody{
			ID:               c.CategoryID,
			Name:             c.Name,
			Type:             string(c.Type),
			Color:            c.Color,
			Icon:             c.Icon,
			Total:            c.Amount.Cents,
			TransactionCount: c.Count,
			Percentage:       c.Percentage,
		})
	}
	return out
}

type categoryRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

type recentTransactionBody struct {
	transactionResponse
	Category categoryRef `json:"category"`
}

type recentTransactionsResponse struct {
	Transactions []recentTransactionBody `json:"transactions"`
	Count        int                     `json:"count"`
}

func toRecentTransactionsResponse(list []storage.TransactionWithCategory) recentTransactionsResponse {
	resp := recentTransactionsResponse{Transactions: make([]recentTransactionBody, 0, len(list))}
	for _, t := range list {
		resp.Transactions = append(resp.Transactions, recentTransactionBody{
			transactionResponse: toTransactionResponse(t.Transaction),
			Category: categoryRef{
				ID:    t.CategoryID,
				Name:  t.CategoryName,
				Color: t.CategoryColor,
				Icon:  t.CategoryIcon,
			},
		})
	}
	resp.Count = len(resp.Transactions)
	return resp
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResponse(n core.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
