package core

import "time"

// UncategorizedName labels expense totals whose category is missing.
const UncategorizedName = "Sem categoria"

// NoDescription is shown for transactions recorded without a description.
const NoDescription = "(sem descrição)"

type MonthSummary struct {
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
	Balance  Money `json:"balance"`
}

type CategoryTotal struct {
	CategoryID *string `json:"categoryId"`
	Name       string  `json:"name"`
	Total      Money   `json:"total"`
	Percent    int     `json:"percent"`
}

type RecentTransaction struct {
	ID           string          `json:"id"`
	Type         TransactionType `json:"type"`
	Amount       Money           `json:"amount"`
	Description  string          `json:"description"`
	OccurredAt   Date            `json:"occurredAt"`
	CategoryName *string         `json:"categoryName"`
	CreatedAt    time.Time       `json:"-"`
}

// RecentFilter bounds a recent-activity query. Zero dates leave that side open.
type RecentFilter struct {
	From  *Date
	To    *Date
	Limit int
}

const (
	DefaultTopCategoriesLimit = 6
	DefaultRecentLimit        = 8
	DashboardRecentLimit      = 20
	MaxListLimit              = 100
)

// NewMonthSummary derives the balance from the two sums.
func NewMonthSummary(income, expenses Money) MonthSummary {
	return MonthSummary{Income: income, Expenses: expenses, Balance: income.Sub(expenses)}
}

// WithShares fills Percent on every row relative to the sum of all rows.
func WithShares(rows []CategoryTotal) []CategoryTotal {
	var total Money
	for _, r := range rows {
		total = total.Add(r.Total)
	}
	out := make([]CategoryTotal, len(rows))
	for i, r := range rows {
		r.Percent = Percent(r.Total, total)
		out[i] = r
	}
	return out
}
