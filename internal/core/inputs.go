package core

import (
	"errors"
	"strings"
)

// Raw request payloads for the mutation operations. Every field is the
// untrusted string the client sent; Normalize validates and converts it.
type (
	TransactionInput struct {
		Type        string `json:"type"`
		Amount      string `json:"amount"`
		OccurredAt  string `json:"occurredAt"`
		CategoryID  string `json:"categoryId,omitempty"`
		Description string `json:"description,omitempty"`
	}

	SubscriptionInput struct {
		Name         string `json:"name"`
		Amount       string `json:"amount"`
		BillingCycle string `json:"billingCycle"`
		NextDueAt    string `json:"nextDueAt"`
	}

	GoalInput struct {
		Name         string `json:"name"`
		TargetAmount string `json:"targetAmount"`
		DueAt        string `json:"dueAt,omitempty"`
	}

	CategoryInput struct {
		Name  string `json:"name"`
		Type  string `json:"type"`
		Color string `json:"color,omitempty"`
		Icon  string `json:"icon,omitempty"`
	}
)

func (in TransactionInput) Normalize() (NewTransaction, error) {
	t, err := ParseTransactionType(in.Type)
	if err != nil {
		return NewTransaction{}, err
	}
	amount, err := parseAmountField("amount", in.Amount)
	if err != nil {
		return NewTransaction{}, err
	}
	occurredAt, err := parseDateField("occurredAt", in.OccurredAt)
	if err != nil {
		return NewTransaction{}, err
	}
	return NewTransaction{
		Type:        t,
		Amount:      amount,
		OccurredAt:  occurredAt,
		CategoryID:  optionalText(in.CategoryID),
		Description: optionalText(in.Description),
	}, nil
}

func (in SubscriptionInput) Normalize() (NewSubscription, error) {
	name, err := requiredName("name", in.Name)
	if err != nil {
		return NewSubscription{}, err
	}
	amount, err := parseAmountField("amount", in.Amount)
	if err != nil {
		return NewSubscription{}, err
	}
	cycle, err := ParseBillingCycle(in.BillingCycle)
	if err != nil {
		return NewSubscription{}, err
	}
	next, err := parseDateField("nextDueAt", in.NextDueAt)
	if err != nil {
		return NewSubscription{}, err
	}
	return NewSubscription{Name: name, Amount: amount, BillingCycle: cycle, NextDueAt: next}, nil
}

func (in GoalInput) Normalize() (NewGoal, error) {
	name, err := requiredName("name", in.Name)
	if err != nil {
		return NewGoal{}, err
	}
	target, err := parseAmountField("targetAmount", in.TargetAmount)
	if err != nil {
		return NewGoal{}, err
	}
	g := NewGoal{Name: name, TargetAmount: target}
	if strings.TrimSpace(in.DueAt) != "" {
		due, err := parseDateField("dueAt", in.DueAt)
		if err != nil {
			return NewGoal{}, err
		}
		g.DueAt = &due
	}
	return g, nil
}

func (in CategoryInput) Normalize() (NewCategory, error) {
	name, err := requiredName("name", in.Name)
	if err != nil {
		return NewCategory{}, err
	}
	t, err := ParseTransactionType(in.Type)
	if err != nil {
		return NewCategory{}, err
	}
	return NewCategory{
		Name:  name,
		Type:  t,
		Color: optionalText(in.Color),
		Icon:  optionalText(in.Icon),
	}, nil
}

func parseAmountField(field, s string) (Money, error) {
	m, err := ParseAmount(s)
	if err != nil {
		return Money{}, &ValidationError{Field: field, Reason: "must be a positive number", Err: err}
	}
	return m, nil
}

func parseDateField(field, s string) (Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		reason := "must be a valid YYYY-MM-DD date"
		if errors.Is(err, ErrInvalidDate) && strings.TrimSpace(s) == "" {
			reason = "is required"
		}
		return Date{}, &ValidationError{Field: field, Reason: reason, Err: err}
	}
	return d, nil
}
