package core

import "sort"

// MemberCredit is a member's outstanding reimbursable credit.
type MemberCredit struct {
	Name   string `json:"name"`
	Total  Money  `json:"total_cents"`
	Manual Money  `json:"manual_cents"`
	// Carried is the part accumulated from closed months.
	Carried Money `json:"carried_cents"`
}

// CreditBalances aggregates each member's reimbursable credit: the manual
// credit plus, for every closed month other than excludeKey, that month's
// positive personal balance. Negative monthly balances carry nothing; they
// were settled when their month closed. excludeKey keeps the month currently
// being closed out of the aggregation.
func CreditBalances(months []Month, members []Member, excludeKey string) map[string]MemberCredit {
	credits := make(map[string]MemberCredit)

	for _, month := range months {
		if !month.Closed || month.Key() == excludeKey {
			continue
		}
		summary := CalculateMonthSummary(month.Transactions)
		for _, b := range summary.Balances {
			if b.Balance.Cents <= 0 {
				continue
			}
			c := credits[b.Name]
			c.Name = b.Name
			c.Carried.Cents += b.Balance.Cents
			credits[b.Name] = c
		}
	}

	for _, m := range members {
		if m.ManualCredit.Cents == 0 {
			continue
		}
		c := credits[m.Name]
		c.Name = m.Name
		c.Manual.Cents += m.ManualCredit.Cents
		credits[m.Name] = c
	}

	for name, c := range credits {
		c.Total.Cents = c.Manual.Cents + c.Carried.Cents
		credits[name] = c
	}
	return credits
}

// SortedCredits flattens a credit map into a deterministic, name-ordered
// slice, dropping members whose total credit is zero or negative.
func SortedCredits(credits map[string]MemberCredit) []MemberCredit {
	out := make([]MemberCredit, 0, len(credits))
	for _, c := range credits {
		if c.Total.Cents > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
