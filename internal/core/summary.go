package core

// MemberBalance is one member's position within a single month.
type MemberBalance struct {
	Name          string `json:"name"`
	Contributions Money  `json:"contributions_cents"`
	Expenses      Money  `json:"expenses_cents"`
	Balance       Money  `json:"balance_cents"`
}

// MonthSummary aggregates a month's transactions. It is always recomputed
// from the transaction list and never persisted.
type MonthSummary struct {
	TotalContributions Money           `json:"total_contributions_cents"`
	TotalExpenses      Money           `json:"total_expenses_cents"`
	GlobalBalance      Money           `json:"global_balance_cents"`
	Balances           []MemberBalance `json:"balances"`
}

// CalculateMonthSummary derives per-member and global totals from the
// ordered transaction list. Members without any transaction are absent from
// Balances; entries keep first-appearance order.
func CalculateMonthSummary(transactions []Transaction) MonthSummary {
	var summary MonthSummary
	index := make(map[string]int)

	for _, t := range transactions {
		i, seen := index[t.Member]
		if !seen {
			i = len(summary.Balances)
			index[t.Member] = i
			summary.Balances = append(summary.Balances, MemberBalance{Name: t.Member})
		}
		switch t.Type {
		case Contribution:
			summary.TotalContributions.Cents += t.Amount.Cents
			summary.Balances[i].Contributions.Cents += t.Amount.Cents
		case Expense:
			summary.TotalExpenses.Cents += t.Amount.Cents
			summary.Balances[i].Expenses.Cents += t.Amount.Cents
		}
	}

	for i := range summary.Balances {
		b := &summary.Balances[i]
		b.Balance.Cents = b.Contributions.Cents - b.Expenses.Cents
	}
	summary.GlobalBalance.Cents = summary.TotalContributions.Cents - summary.TotalExpenses.Cents
	return summary
}

// Balance returns the named member's balance entry, if present.
func (s MonthSummary) Balance(member string) (MemberBalance, bool) {
	for _, b := range s.Balances {
		if b.Name == member {
			return b, true
		}
	}
	return MemberBalance{}, false
}
