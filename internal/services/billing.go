// Package services holds the application operations: mutations, reads,
// dashboard composition, preferences and background processing.
package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ezfin/internal/core"
)

// CycleStrategy normalises a subscription amount to its monthly cost.
// Each billing cycle has its own implementation.
type CycleStrategy interface {
	MonthlyEquivalent(amount core.Money) core.Money
}

type MonthlyCycle struct{}

func (MonthlyCycle) MonthlyEquivalent(amount core.Money) core.Money {
	return amount
}

// YearlyCycle spreads the amount over twelve months, rounding half-up to
// the cent.
type YearlyCycle struct{}

func (YearlyCycle) MonthlyEquivalent(amount core.Money) core.Money {
	c := decimal.NewFromInt(amount.Cents).Div(decimal.NewFromInt(12)).Round(0)
	return core.Money{Cents: c.IntPart()}
}

var cycleStrategies = map[core.BillingCycle]CycleStrategy{
	core.Monthly: MonthlyCycle{},
	core.Yearly:  YearlyCycle{},
}

func GetCycleStrategy(cycle core.BillingCycle) (CycleStrategy, error) {
	s, ok := cycleStrategies[cycle]
	if !ok {
		return nil, fmt.Errorf("unknown billing cycle: %s", cycle)
	}
	return s, nil
}

// MonthlySubscriptionCost sums the monthly equivalent of every active
// subscription. Rows with an unknown cycle are skipped.
func MonthlySubscriptionCost(subs []core.Subscription) core.Money {
	var total core.Money
	for _, s := range subs {
		if !s.IsActive {
			continue
		}
		strategy, err := GetCycleStrategy(s.BillingCycle)
		if err != nil {
			continue
		}
		total = total.Add(strategy.MonthlyEquivalent(s.Amount))
	}
	return total
}
