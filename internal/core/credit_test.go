package core

import "testing"

func closedMonth(name string, year int, transactions ...Transaction) Month {
	return Month{Name: name, Year: year, Closed: true, Transactions: transactions}
}

func TestCreditBalances(t *testing.T) {
	months := []Month{
		// Alice +50, Bob -20 in a closed month.
		closedMonth("Janvier", 2025,
			tx(Contribution, "Alice", 10000),
			tx(Expense, "Alice", 5000),
			tx(Contribution, "Bob", 10000),
			tx(Expense, "Bob", 12000),
		),
		// Open month never contributes.
		{Name: "Février", Year: 2025, Transactions: []Transaction{
			tx(Contribution, "Alice", 99999),
		}},
		// Alice +30 in another closed month.
		closedMonth("Mars", 2025,
			tx(Contribution, "Alice", 3000),
		),
	}
	members := []Member{
		{Name: "Alice"},
		{Name: "Bob", ManualCredit: Money{Cents: 1500}},
	}

	credits := CreditBalances(months, members, "")

	alice := credits["Alice"]
	if alice.Carried.Cents != 8000 || alice.Total.Cents != 8000 {
		t.Fatalf("Alice: expected carried 8000, got %+v", alice)
	}
	// Negative month balances carry nothing; only the manual credit remains.
	bob := credits["Bob"]
	if bob.Carried.Cents != 0 || bob.Manual.Cents != 1500 || bob.Total.Cents != 1500 {
		t.Fatalf("Bob: expected manual 1500 only, got %+v", bob)
	}
}

func TestCreditBalancesExcludesKey(t *testing.T) {
	months := []Month{
		closedMonth("Janvier", 2025, tx(Contribution, "Alice", 5000)),
		closedMonth("Février", 2025, tx(Contribution, "Alice", 3000)),
	}

	credits := CreditBalances(months, nil, "Février-2025")
	if got := credits["Alice"].Total.Cents; got != 5000 {
		t.Fatalf("expected 5000 with Février excluded, got %d", got)
	}
}

func TestSortedCredits(t *testing.T) {
	credits := map[string]MemberCredit{
		"Zoé":   {Name: "Zoé", Total: Money{Cents: 100}},
		"Alice": {Name: "Alice", Total: Money{Cents: 200}},
		"Bob":   {Name: "Bob", Total: Money{Cents: 0}}, // dropped
	}
	out := SortedCredits(credits)
	if len(out) != 2 || out[0].Name != "Alice" || out[1].Name != "Zoé" {
		t.Fatalf("unexpected order: %+v", out)
	}
}
