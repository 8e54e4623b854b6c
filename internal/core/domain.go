package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

const maxNameLength = 120

type (
	TransactionType string
	BillingCycle    string

	Category struct {
		ID        string          `json:"id"`
		UserID    string          `json:"-"`
		Name      string          `json:"name"`
		Type      TransactionType `json:"type"`
		Color     *string         `json:"color"`
		Icon      *string         `json:"icon"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		UserID      string          `json:"-"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description *string         `json:"description"`
		OccurredAt  Date            `json:"occurredAt"`
		CategoryID  *string         `json:"categoryId"`
		CreatedAt   time.Time       `json:"createdAt"`
	}

	Subscription struct {
		ID           string       `json:"id"`
		UserID       string       `json:"-"`
		Name         string       `json:"name"`
		Amount       Money        `json:"amount"`
		BillingCycle BillingCycle `json:"billingCycle"`
		NextDueAt    Date         `json:"nextDueAt"`
		IsActive     bool         `json:"isActive"`
		CreatedAt    time.Time    `json:"createdAt"`
	}

	Goal struct {
		ID            string    `json:"id"`
		UserID        string    `json:"-"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		DueAt         *Date     `json:"dueAt"`
		CreatedAt     time.Time `json:"createdAt"`
	}
)

// NewCategory, NewTransaction, NewSubscription and NewGoal are validated,
// normalized rows ready to be inserted.
type (
	NewCategory struct {
		Name  string
		Type  TransactionType
		Color *string
		Icon  *string
	}

	NewTransaction struct {
		Type        TransactionType
		Amount      Money
		OccurredAt  Date
		CategoryID  *string
		Description *string
	}

	NewSubscription struct {
		Name         string
		Amount       Money
		BillingCycle BillingCycle
		NextDueAt    Date
	}

	NewGoal struct {
		Name         string
		TargetAmount Money
		DueAt        *Date
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c BillingCycle) Valid() bool {
	return c == Monthly || c == Yearly
}

// ParseTransactionType accepts the exact enum labels only.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", NewValidationError("type", "must be income or expense")
	}
	return t, nil
}

func ParseBillingCycle(s string) (BillingCycle, error) {
	c := BillingCycle(strings.TrimSpace(s))
	if !c.Valid() {
		return "", NewValidationError("billingCycle", "must be monthly or yearly")
	}
	return c, nil
}

// requiredName trims s and rejects empty or oversized values.
func requiredName(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError(field, "is required")
	}
	if len([]rune(s)) > maxNameLength {
		return "", NewValidationError(field, "is too long")
	}
	return s, nil
}

// optionalText trims s and returns nil for blank input.
func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
