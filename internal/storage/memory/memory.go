// Package memory provides an in-process Store, used as the default backend
// and as the test double for the service layer.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"coloc/internal/core"
	"coloc/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	months   []core.Month
	members  []core.Member
	settings *core.ReimbursementSettings
}

func New() *Store {
	return &Store{}
}

// NewWithDemoData returns a store seeded with the demonstration dataset
// (Mars 2025, three members), matching the app's first-run bootstrap.
func NewWithDemoData() *Store {
	s := New()
	s.months = demoMonths()
	s.members = demoMembers()
	return s
}

func (s *Store) LoadMonths(ctx context.Context) ([]core.Month, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.months)
}

func (s *Store) SaveMonths(ctx context.Context, months []core.Month) error {
	copied, err := clone(months)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months = copied
	return nil
}

func (s *Store) LoadMembers(ctx context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.members)
}

func (s *Store) SaveMembers(ctx context.Context, members []core.Member) error {
	copied, err := clone(members)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = copied
	return nil
}

func (s *Store) LoadSettings(ctx context.Context) (core.ReimbursementSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return storage.DefaultSettings(), nil
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.ReimbursementSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := settings
	s.settings = &copied
	return nil
}

func (s *Store) Close() error {
	return nil
}

// clone deep-copies a collection through JSON so callers never share backing
// arrays with the store.
func clone[T any](in []T) ([]T, error) {
	if in == nil {
		return nil, nil
	}
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("clone collection: %w", err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone collection: %w", err)
	}
	return out, nil
}

func demoMembers() []core.Member {
	return []core.Member{
		{ID: "demo-alice", Name: "Alice", MonthlyContribution: core.Money{Cents: 20000}, JoinDate: core.NewDate(2025, 1, 1), Kind: core.Volunteer},
		{ID: "demo-bob", Name: "Bob", MonthlyContribution: core.Money{Cents: 20000}, JoinDate: core.NewDate(2025, 1, 1), Kind: core.Volunteer, HandlesGroceries: true},
		{ID: "demo-charlie", Name: "Charlie", MonthlyContribution: core.Money{Cents: 20000}, JoinDate: core.NewDate(2025, 2, 1), Kind: core.Hosted},
	}
}

func demoMonths() []core.Month {
	return []core.Month{
		{
			Name: "Mars",
			Year: 2025,
			Transactions: []core.Transaction{
				{ID: "1", Type: core.Contribution, Member: "Alice", Date: core.NewDate(2025, 3, 1), Description: "Cotisation mensuelle", Amount: core.Money{Cents: 20000}},
				{ID: "2", Type: core.Contribution, Member: "Bob", Date: core.NewDate(2025, 3, 1), Description: "Cotisation mensuelle", Amount: core.Money{Cents: 20000}},
				{ID: "3", Type: core.Contribution, Member: "Charlie", Date: core.NewDate(2025, 3, 1), Description: "Cotisation mensuelle", Amount: core.Money{Cents: 20000}},
				{ID: "4", Type: core.Expense, Member: "Alice", Date: core.NewDate(2025, 3, 5), Description: "Courses Carrefour", Amount: core.Money{Cents: 8550}},
				{ID: "5", Type: core.Expense, Member: "Bob", Date: core.NewDate(2025, 3, 10), Description: "Internet/Électricité", Amount: core.Money{Cents: 12000}},
				{ID: "6", Type: core.Expense, Member: "Charlie", Date: core.NewDate(2025, 3, 15), Description: "Produits ménagers", Amount: core.Money{Cents: 4580}},
			},
		},
	}
}
