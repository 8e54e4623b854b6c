package core

func strPtr(s string) *string { return &s }

// DefaultCategories is the starter set created for a user who has no
// categories yet.
func DefaultCategories() []NewCategory {
	return []NewCategory{
		{Name: "Alimentação", Type: Expense, Icon: strPtr("utensils")},
		{Name: "Casa", Type: Expense, Icon: strPtr("home")},
		{Name: "Transporte", Type: Expense, Icon: strPtr("car")},
		{Name: "Saúde", Type: Expense, Icon: strPtr("heart")},
		{Name: "Lazer", Type: Expense, Icon: strPtr("gamepad-2")},
		{Name: "Compras", Type: Expense, Icon: strPtr("shopping-bag")},
		{Name: "Educação", Type: Expense, Icon: strPtr("graduation-cap")},
		{Name: "Contas", Type: Expense, Icon: strPtr("receipt")},

		{Name: "Salário", Type: Income, Icon: strPtr("briefcase")},
		{Name: "Freelance", Type: Income, Icon: strPtr("laptop")},
		{Name: "Investimentos", Type: Income, Icon: strPtr("line-chart")},
		{Name: "Bônus", Type: Income, Icon: strPtr("sparkles")},
	}
}
