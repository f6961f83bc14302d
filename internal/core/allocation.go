package core

import (
	"fmt"
	"sort"
)

// Virtual counterparties appearing in settlement records.
const (
	PoolAccount    = "Caisse commune"
	SavingsAccount = "Épargne"
)

// Settlement reasons recorded at closure.
const (
	ReasonExpenseReimbursement = "Remboursement des dépenses avancées"
	ReasonSavingsDeposit       = "Mise en épargne"
	ReasonCreditReimbursement  = "Remboursement de crédit"
	ReasonSavingsWithdrawal    = "Retrait d'épargne"
	ReasonCreditGranted        = "Crédit accordé"
)

type AllocationPhase string

const (
	PhaseReimbursement AllocationPhase = "reimbursement"
	PhaseResidual      AllocationPhase = "residual"
)

// AllocationError reports an allocation that does not reach its target.
// Gap is signed: entered total minus target ("écart restant").
type AllocationError struct {
	Phase AllocationPhase
	Gap   Money
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocation mismatch (%s): écart restant %s", e.Phase, FormatEuros(e.Gap.Cents))
}

// ReimbursementLine is one member's row of the closure's first pass.
// Owed is computed from the month; Amount is the operator-entered
// "reimburse now" value.
type ReimbursementLine struct {
	Member string `json:"member"`
	Owed   Money  `json:"owed_cents"`
	Amount Money  `json:"amount_cents"`
}

// CreditLine is a manual credit reimbursement (surplus) or credit grant
// (deficit) in the closure's second pass.
type CreditLine struct {
	Member string `json:"member"`
	Amount Money  `json:"amount_cents"`
}

// ResidualAllocation distributes the month's surplus or deficit across the
// savings pool and per-member credit lines.
type ResidualAllocation struct {
	Savings     Money        `json:"savings_cents"`
	CreditLines []CreditLine `json:"credit_lines,omitempty"`
}

// Total sums the savings amount and every credit line.
func (a ResidualAllocation) Total() Money {
	total := a.Savings.Cents
	for _, l := range a.CreditLines {
		total += l.Amount.Cents
	}
	return Money{Cents: total}
}

// DeductedContributions sums contributions flagged as deducted at purchase.
func DeductedContributions(transactions []Transaction) Money {
	var total int64
	for _, t := range transactions {
		if t.Type == Contribution && t.DeductedAtPurchase {
			total += t.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// ReimbursementTarget is the total the first pass must allocate: the month's
// expenses minus contributions already consumed at the point of purchase.
func ReimbursementTarget(transactions []Transaction) Money {
	summary := CalculateMonthSummary(transactions)
	return Money{Cents: summary.TotalExpenses.Cents - DeductedContributions(transactions).Cents}
}

// ExpenseReimbursementPlan computes one line per member with a balance.
// Owed is the member's expenses minus their own deducted contributions;
// Amount starts at zero and is filled by the operator.
func ExpenseReimbursementPlan(transactions []Transaction) []ReimbursementLine {
	summary := CalculateMonthSummary(transactions)

	deducted := make(map[string]int64)
	for _, t := range transactions {
		if t.Type == Contribution && t.DeductedAtPurchase {
			deducted[t.Member] += t.Amount.Cents
		}
	}

	lines := make([]ReimbursementLine, 0, len(summary.Balances))
	for _, b := range summary.Balances {
		lines = append(lines, ReimbursementLine{
			Member: b.Name,
			Owed:   Money{Cents: b.Expenses.Cents - deducted[b.Name]},
		})
	}
	return lines
}

// ValidateExpenseReimbursements checks the first closure pass: the entered
// amounts must sum exactly to the reimbursement target. In integer cents the
// 0.01 tolerance collapses to equality; any écart blocks closure.
func ValidateExpenseReimbursements(transactions []Transaction, lines []ReimbursementLine) error {
	var entered int64
	for _, l := range lines {
		entered += l.Amount.Cents
	}
	target := ReimbursementTarget(transactions).Cents
	if entered != target {
		return &AllocationError{Phase: PhaseReimbursement, Gap: Money{Cents: entered - target}}
	}
	return nil
}

// ResidualGap is the signed remainder the second pass still has to place:
// allocated total minus the absolute month balance.
func ResidualGap(monthBalance Money, alloc ResidualAllocation) Money {
	target := monthBalance.Cents
	if target < 0 {
		target = -target
	}
	return Money{Cents: alloc.Total().Cents - target}
}

// ValidateResidualAllocation checks the second closure pass. A surplus must
// be fully split across savings plus credit reimbursements; a deficit must
// be fully covered by a savings withdrawal plus credit grants. No implicit
// rounding correction is applied; the operator reaches zero écart or the
// closure is refused.
func ValidateResidualAllocation(monthBalance Money, alloc ResidualAllocation) error {
	if gap := ResidualGap(monthBalance, alloc); gap.Cents != 0 {
		return &AllocationError{Phase: PhaseResidual, Gap: gap}
	}
	return nil
}

// BuildSettlements turns validated pass lines into the immutable settlement
// record committed at closure. Zero-amount rows are dropped.
func BuildSettlements(lines []ReimbursementLine, monthBalance Money, alloc ResidualAllocation) []Settlement {
	var out []Settlement

	for _, l := range lines {
		if l.Amount.Cents == 0 {
			continue
		}
		out = append(out, Settlement{
			From:   PoolAccount,
			Amount: l.Amount,
			To:     l.Member,
			Reason: ReasonExpenseReimbursement,
		})
	}

	deficit := monthBalance.Cents < 0
	if alloc.Savings.Cents != 0 {
		s := Settlement{Amount: alloc.Savings}
		if deficit {
			s.From, s.To, s.Reason = SavingsAccount, PoolAccount, ReasonSavingsWithdrawal
		} else {
			s.From, s.To, s.Reason = PoolAccount, SavingsAccount, ReasonSavingsDeposit
		}
		out = append(out, s)
	}
	for _, l := range alloc.CreditLines {
		if l.Amount.Cents == 0 {
			continue
		}
		s := Settlement{Amount: l.Amount}
		if deficit {
			s.From, s.To, s.Reason = l.Member, PoolAccount, ReasonCreditGranted
		} else {
			s.From, s.To, s.Reason = PoolAccount, l.Member, ReasonCreditReimbursement
		}
		out = append(out, s)
	}
	return out
}

// SuggestResidualAllocation proposes a second-pass allocation from the
// outstanding credits, ordered by the configured reimbursement rule. It is a
// starting point for the operator; confirmation always revalidates.
//
// A deficit is suggested entirely as a savings withdrawal. A surplus first
// reimburses credits per the rule, the remainder going to savings.
func SuggestResidualAllocation(monthBalance Money, credits map[string]MemberCredit, members []Member, settings ReimbursementSettings) ResidualAllocation {
	if monthBalance.Cents < 0 {
		return ResidualAllocation{Savings: Money{Cents: -monthBalance.Cents}}
	}

	creditors := SortedCredits(credits)
	remaining := monthBalance.Cents

	var lines []CreditLine
	switch settings.Rule {
	case RulePrioritized:
		lines, remaining = payInOrder(byPriority(creditors, members), remaining)
	case RuleEqualHostedFirst:
		hosted, rest := splitByKind(creditors, members)
		var first, second []CreditLine
		first, remaining = waterfill(hosted, remaining)
		second, remaining = waterfill(rest, remaining)
		lines = append(first, second...)
	default:
		lines, remaining = waterfill(creditors, remaining)
	}

	return ResidualAllocation{Savings: Money{Cents: remaining}, CreditLines: lines}
}

// payInOrder pays each creditor in full, in order, while funds remain.
func payInOrder(creditors []MemberCredit, remaining int64) ([]CreditLine, int64) {
	var lines []CreditLine
	for _, c := range creditors {
		if remaining == 0 {
			break
		}
		amount := c.Total.Cents
		if amount > remaining {
			amount = remaining
		}
		lines = append(lines, CreditLine{Member: c.Name, Amount: Money{Cents: amount}})
		remaining -= amount
	}
	return lines, remaining
}

// waterfill splits the funds equally, capping each creditor at their credit.
// Creditors are served smallest credit first so caps free funds for the rest.
func waterfill(creditors []MemberCredit, remaining int64) ([]CreditLine, int64) {
	ordered := make([]MemberCredit, len(creditors))
	copy(ordered, creditors)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Total.Cents != ordered[j].Total.Cents {
			return ordered[i].Total.Cents < ordered[j].Total.Cents
		}
		return ordered[i].Name < ordered[j].Name
	})

	var lines []CreditLine
	for i, c := range ordered {
		if remaining == 0 {
			break
		}
		share := remaining / int64(len(ordered)-i)
		if share > c.Total.Cents {
			share = c.Total.Cents
		}
		if share == 0 {
			continue
		}
		lines = append(lines, CreditLine{Member: c.Name, Amount: Money{Cents: share}})
		remaining -= share
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Member < lines[j].Member })
	return lines, remaining
}

// byPriority orders creditors by their reimbursement priority (lowest value
// first, unset last), then by name.
func byPriority(creditors []MemberCredit, members []Member) []MemberCredit {
	prio := make(map[string]int, len(members))
	for _, m := range members {
		prio[m.Name] = m.ReimbursementPriority
	}
	rank := func(name string) int {
		p := prio[name]
		if p <= 0 {
			return int(^uint(0) >> 1)
		}
		return p
	}
	ordered := make([]MemberCredit, len(creditors))
	copy(ordered, creditors)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := rank(ordered[i].Name), rank(ordered[j].Name)
		if ri != rj {
			return ri < rj
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

// splitByKind separates hosted members from the rest, preserving order.
func splitByKind(creditors []MemberCredit, members []Member) (hosted, rest []MemberCredit) {
	kinds := make(map[string]MemberKind, len(members))
	for _, m := range members {
		kinds[m.Name] = m.Kind
	}
	for _, c := range creditors {
		if kinds[c.Name] == Hosted {
			hosted = append(hosted, c)
		} else {
			rest = append(rest, c)
		}
	}
	return hosted, rest
}
