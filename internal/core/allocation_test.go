package core

import (
	"errors"
	"testing"
)

func TestReimbursementTarget(t *testing.T) {
	transactions := []Transaction{
		tx(Contribution, "Alice", 20000),
		deductedTx("Bob", 20000),
		tx(Expense, "Alice", 8550),
		tx(Expense, "Bob", 12000),
	}
	// Expenses 205.50 minus the 200.00 already consumed at purchase.
	if got := ReimbursementTarget(transactions).Cents; got != 550 {
		t.Fatalf("expected 550, got %d", got)
	}
}

func TestExpenseReimbursementPlan(t *testing.T) {
	transactions := []Transaction{
		tx(Contribution, "Alice", 20000),
		deductedTx("Bob", 20000),
		tx(Expense, "Alice", 8550),
		tx(Expense, "Bob", 12000),
	}
	lines := ExpenseReimbursementPlan(transactions)
	owed := make(map[string]int64)
	for _, l := range lines {
		owed[l.Member] = l.Owed.Cents
		if l.Amount.Cents != 0 {
			t.Fatalf("amounts must start at zero, got %d for %s", l.Amount.Cents, l.Member)
		}
	}
	if owed["Alice"] != 8550 {
		t.Fatalf("Alice owed: expected 8550, got %d", owed["Alice"])
	}
	// Bob's deducted contribution offsets his expenses.
	if owed["Bob"] != -8000 {
		t.Fatalf("Bob owed: expected -8000, got %d", owed["Bob"])
	}
}

func TestValidateExpenseReimbursements(t *testing.T) {
	transactions := []Transaction{
		tx(Contribution, "Alice", 20000),
		tx(Contribution, "Bob", 20000),
		tx(Expense, "Alice", 8550),
		tx(Expense, "Bob", 12000),
	}

	exact := []ReimbursementLine{
		{Member: "Alice", Amount: Money{Cents: 8550}},
		{Member: "Bob", Amount: Money{Cents: 12000}},
	}
	if err := ValidateExpenseReimbursements(transactions, exact); err != nil {
		t.Fatalf("exact allocation rejected: %v", err)
	}
	// Validation is pure; rerunning gives the same verdict.
	if err := ValidateExpenseReimbursements(transactions, exact); err != nil {
		t.Fatalf("revalidation rejected: %v", err)
	}

	short := []ReimbursementLine{{Member: "Alice", Amount: Money{Cents: 8550}}}
	err := ValidateExpenseReimbursements(transactions, short)
	var allocErr *AllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
	if allocErr.Phase != PhaseReimbursement || allocErr.Gap.Cents != -12000 {
		t.Fatalf("unexpected error detail: %+v", allocErr)
	}

	over := append(exact, ReimbursementLine{Member: "Bob", Amount: Money{Cents: 1}})
	if err := ValidateExpenseReimbursements(transactions, over); err == nil {
		t.Fatal("one extra cent must block the pass")
	}
}

func TestValidateResidualAllocation(t *testing.T) {
	surplus := Money{Cents: 19450}

	if err := ValidateResidualAllocation(surplus, ResidualAllocation{Savings: Money{Cents: 19450}}); err != nil {
		t.Fatalf("full savings allocation rejected: %v", err)
	}

	split := ResidualAllocation{
		Savings:     Money{Cents: 10000},
		CreditLines: []CreditLine{{Member: "Alice", Amount: Money{Cents: 9450}}},
	}
	if err := ValidateResidualAllocation(surplus, split); err != nil {
		t.Fatalf("split allocation rejected: %v", err)
	}

	err := ValidateResidualAllocation(surplus, ResidualAllocation{Savings: Money{Cents: 10000}})
	var allocErr *AllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
	if allocErr.Phase != PhaseResidual || allocErr.Gap.Cents != -9450 {
		t.Fatalf("unexpected gap: %+v", allocErr)
	}

	// A deficit needs its absolute value covered.
	deficit := Money{Cents: -10000}
	if err := ValidateResidualAllocation(deficit, ResidualAllocation{Savings: Money{Cents: 10000}}); err != nil {
		t.Fatalf("deficit coverage rejected: %v", err)
	}
	if err := ValidateResidualAllocation(deficit, ResidualAllocation{Savings: Money{Cents: 9999}}); err == nil {
		t.Fatal("one missing cent must block the pass")
	}
}

func TestBuildSettlementsSurplus(t *testing.T) {
	lines := []ReimbursementLine{
		{Member: "Alice", Amount: Money{Cents: 8550}},
		{Member: "Bob", Amount: Money{Cents: 0}}, // dropped
	}
	alloc := ResidualAllocation{
		Savings:     Money{Cents: 10000},
		CreditLines: []CreditLine{{Member: "Charlie", Amount: Money{Cents: 9450}}},
	}

	out := BuildSettlements(lines, Money{Cents: 19450}, alloc)
	if len(out) != 3 {
		t.Fatalf("expected 3 settlements, got %d: %+v", len(out), out)
	}
	if out[0].From != PoolAccount || out[0].To != "Alice" || out[0].Reason != ReasonExpenseReimbursement {
		t.Fatalf("unexpected reimbursement settlement: %+v", out[0])
	}
	if out[1].From != PoolAccount || out[1].To != SavingsAccount || out[1].Reason != ReasonSavingsDeposit {
		t.Fatalf("unexpected savings settlement: %+v", out[1])
	}
	if out[2].From != PoolAccount || out[2].To != "Charlie" || out[2].Reason != ReasonCreditReimbursement {
		t.Fatalf("unexpected credit settlement: %+v", out[2])
	}
}

func TestBuildSettlementsDeficit(t *testing.T) {
	alloc := ResidualAllocation{
		Savings:     Money{Cents: 6000},
		CreditLines: []CreditLine{{Member: "Alice", Amount: Money{Cents: 4000}}},
	}

	out := BuildSettlements(nil, Money{Cents: -10000}, alloc)
	if len(out) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(out))
	}
	if out[0].From != SavingsAccount || out[0].To != PoolAccount || out[0].Reason != ReasonSavingsWithdrawal {
		t.Fatalf("unexpected withdrawal: %+v", out[0])
	}
	if out[1].From != "Alice" || out[1].To != PoolAccount || out[1].Reason != ReasonCreditGranted {
		t.Fatalf("unexpected credit grant: %+v", out[1])
	}
}

func TestSuggestResidualAllocationDeficit(t *testing.T) {
	got := SuggestResidualAllocation(Money{Cents: -5000}, nil, nil, ReimbursementSettings{Rule: RuleEqual})
	if got.Savings.Cents != 5000 || len(got.CreditLines) != 0 {
		t.Fatalf("deficit should suggest a full withdrawal, got %+v", got)
	}
}

func TestSuggestResidualAllocationEqual(t *testing.T) {
	credits := map[string]MemberCredit{
		"Alice": {Name: "Alice", Total: Money{Cents: 2000}},
		"Bob":   {Name: "Bob", Total: Money{Cents: 10000}},
	}

	got := SuggestResidualAllocation(Money{Cents: 9000}, credits, nil, ReimbursementSettings{Rule: RuleEqual})

	// Equal split caps Alice at her credit; the rest goes to Bob.
	byMember := map[string]int64{}
	for _, l := range got.CreditLines {
		byMember[l.Member] = l.Amount.Cents
	}
	if byMember["Alice"] != 2000 || byMember["Bob"] != 7000 {
		t.Fatalf("unexpected split: %+v", got.CreditLines)
	}
	if got.Savings.Cents != 0 {
		t.Fatalf("expected no savings remainder, got %d", got.Savings.Cents)
	}
	if err := ValidateResidualAllocation(Money{Cents: 9000}, got); err != nil {
		t.Fatalf("suggestion must validate: %v", err)
	}
}

func TestSuggestResidualAllocationSurplusExceedsCredits(t *testing.T) {
	credits := map[string]MemberCredit{
		"Alice": {Name: "Alice", Total: Money{Cents: 1000}},
	}
	got := SuggestResidualAllocation(Money{Cents: 5000}, credits, nil, ReimbursementSettings{Rule: RuleEqual})
	if got.Savings.Cents != 4000 {
		t.Fatalf("remainder should go to savings, got %d", got.Savings.Cents)
	}
}

func TestSuggestResidualAllocationPrioritized(t *testing.T) {
	credits := map[string]MemberCredit{
		"Alice": {Name: "Alice", Total: Money{Cents: 4000}},
		"Bob":   {Name: "Bob", Total: Money{Cents: 4000}},
	}
	members := []Member{
		{Name: "Alice", ReimbursementPriority: 2},
		{Name: "Bob", ReimbursementPriority: 1},
	}

	got := SuggestResidualAllocation(Money{Cents: 5000}, credits, members, ReimbursementSettings{Rule: RulePrioritized})
	if len(got.CreditLines) != 2 {
		t.Fatalf("expected 2 lines, got %+v", got.CreditLines)
	}
	// Bob is paid in full first, Alice gets the rest.
	if got.CreditLines[0].Member != "Bob" || got.CreditLines[0].Amount.Cents != 4000 {
		t.Fatalf("unexpected first line: %+v", got.CreditLines[0])
	}
	if got.CreditLines[1].Member != "Alice" || got.CreditLines[1].Amount.Cents != 1000 {
		t.Fatalf("unexpected second line: %+v", got.CreditLines[1])
	}
}

func TestSuggestResidualAllocationHostedFirst(t *testing.T) {
	credits := map[string]MemberCredit{
		"Alice":   {Name: "Alice", Total: Money{Cents: 4000}},
		"Charlie": {Name: "Charlie", Total: Money{Cents: 4000}},
	}
	members := []Member{
		{Name: "Alice", Kind: Volunteer},
		{Name: "Charlie", Kind: Hosted},
	}

	got := SuggestResidualAllocation(Money{Cents: 5000}, credits, members, ReimbursementSettings{Rule: RuleEqualHostedFirst})
	byMember := map[string]int64{}
	for _, l := range got.CreditLines {
		byMember[l.Member] = l.Amount.Cents
	}
	// The hosted member is served before the volunteers share the rest.
	if byMember["Charlie"] != 4000 || byMember["Alice"] != 1000 {
		t.Fatalf("unexpected split: %+v", got.CreditLines)
	}
}
