package services

import (
	"testing"

	"ezfin/internal/core"
)

func TestCycleStrategies(t *testing.T) {
	tests := []struct {
		name   string
		cycle  core.BillingCycle
		amount int64
		want   int64
	}{
		{"monthly unchanged", core.Monthly, 999, 999},
		{"yearly exact", core.Yearly, 12000, 1000},
		{"yearly rounds half up", core.Yearly, 1206, 101}, // 100.5
		{"yearly rounds down", core.Yearly, 1000, 83},     // 83.33
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GetCycleStrategy(tt.cycle)
			if err != nil {
				t.Fatalf("GetCycleStrategy(%s): %v", tt.cycle, err)
			}
			if got := s.MonthlyEquivalent(core.Money{Cents: tt.amount}); got.Cents != tt.want {
				t.Errorf("MonthlyEquivalent(%d) = %d, want %d", tt.amount, got.Cents, tt.want)
			}
		})
	}

	if _, err := GetCycleStrategy("weekly"); err == nil {
		t.Error("expected error for unknown cycle")
	}
}

func TestMonthlySubscriptionCost(t *testing.T) {
	subs := []core.Subscription{
		{BillingCycle: core.Monthly, Amount: core.Money{Cents: 1299}, IsActive: true},
		{BillingCycle: core.Yearly, Amount: core.Money{Cents: 12000}, IsActive: true},
		{BillingCycle: core.Monthly, Amount: core.Money{Cents: 5000}, IsActive: false},
	}
	if got := MonthlySubscriptionCost(subs); got.Cents != 2299 {
		t.Errorf("MonthlySubscriptionCost = %d, want 2299", got.Cents)
	}
	if got := MonthlySubscriptionCost(nil); got.Cents != 0 {
		t.Errorf("empty cost = %d, want 0", got.Cents)
	}
}
