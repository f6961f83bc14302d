// Package services orchestrates the ledger operations over the storage
// port: month lifecycle, transactions, credits and the closure passes.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"coloc/internal/core"
	"coloc/internal/notify"
	"coloc/internal/storage"
)

// ClosureDraft is the transient adjusting state between the two closure
// passes. It lives in memory only and is never persisted; abandoning it
// leaves the month untouched.
type ClosureDraft struct {
	MonthKey string                   `json:"month_key"`
	Summary  core.MonthSummary        `json:"summary"`
	Target   core.Money               `json:"reimbursement_target_cents"`
	Lines    []core.ReimbursementLine `json:"lines"`
	// Allocation starts zeroed; Suggestion is the rule-ordered proposal the
	// operator may copy from.
	Allocation core.ResidualAllocation `json:"allocation"`
	Suggestion core.ResidualAllocation `json:"suggestion"`
}

// MonthService owns the month lifecycle. All writes are whole-collection
// read-modify-write against the store; a failed validation mutates nothing.
type MonthService struct {
	store    storage.Store
	notifier notify.Sender
	gate     ReopenGate
}

func NewMonthService(store storage.Store, notifier notify.Sender, gate ReopenGate) *MonthService {
	return &MonthService{store: store, notifier: notifier, gate: gate}
}

func (s *MonthService) ListMonths(ctx context.Context) ([]core.Month, error) {
	return s.store.LoadMonths(ctx)
}

func (s *MonthService) GetMonth(ctx context.Context, key string) (core.Month, error) {
	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return core.Month{}, err
	}
	for _, m := range months {
		if m.Key() == key {
			return m, nil
		}
	}
	return core.Month{}, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
}

// CreateMonth creates an empty open month. The (name, year) pair is unique.
func (s *MonthService) CreateMonth(ctx context.Context, name string, year int) (core.Month, error) {
	month := core.Month{Name: name, Year: year}
	if err := month.Validate(); err != nil {
		return core.Month{}, err
	}

	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return core.Month{}, err
	}
	for _, m := range months {
		if m.Key() == month.Key() {
			return core.Month{}, fmt.Errorf("%w: %s", core.ErrMonthExists, month.Key())
		}
	}

	months = append(months, month)
	if err := s.store.SaveMonths(ctx, months); err != nil {
		return core.Month{}, err
	}
	slog.InfoContext(ctx, "Month created", "month_key", month.Key())
	return month, nil
}

// AddTransaction appends a transaction to an open month, creating the month
// on the fly when it does not exist yet (upsert-on-add convenience).
func (s *MonthService) AddTransaction(ctx context.Context, key string, t core.Transaction) (core.Transaction, error) {
	name, year, err := core.ParseMonthKey(key)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return core.Transaction{}, err
	}

	idx := -1
	for i, m := range months {
		if m.Key() == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		months = append(months, core.Month{Name: name, Year: year})
		idx = len(months) - 1
	}
	if months[idx].Closed {
		return core.Transaction{}, fmt.Errorf("%w: %s", core.ErrMonthClosed, key)
	}

	months[idx].Transactions = append(months[idx].Transactions, t)
	if err := s.store.SaveMonths(ctx, months); err != nil {
		return core.Transaction{}, err
	}
	slog.InfoContext(ctx, "Transaction added",
		"month_key", key,
		"type", string(t.Type),
		"member", t.Member,
		"amount_cents", t.Amount.Cents)
	return t, nil
}

// UpdateTransaction replaces a transaction in an open month, matched by ID.
func (s *MonthService) UpdateTransaction(ctx context.Context, key string, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.mutateOpenMonth(ctx, key, func(month *core.Month) error {
		for i, existing := range month.Transactions {
			if existing.ID == t.ID {
				month.Transactions[i] = t
				return nil
			}
		}
		return fmt.Errorf("%w: %s", core.ErrTransactionNotFound, t.ID)
	})
}

// DeleteTransaction removes a transaction from an open month.
func (s *MonthService) DeleteTransaction(ctx context.Context, key, transactionID string) error {
	return s.mutateOpenMonth(ctx, key, func(month *core.Month) error {
		for i, existing := range month.Transactions {
			if existing.ID == transactionID {
				month.Transactions = append(month.Transactions[:i], month.Transactions[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %s", core.ErrTransactionNotFound, transactionID)
	})
}

// SetRemarks stores free-text remarks on an open month.
func (s *MonthService) SetRemarks(ctx context.Context, key, remarks string) error {
	return s.mutateOpenMonth(ctx, key, func(month *core.Month) error {
		month.Remarks = strings.TrimSpace(remarks)
		return nil
	})
}

// PostMonthlyContributions posts the configured monthly contribution for
// every member that has none in the month yet. Members handling groceries
// get theirs flagged as deducted at purchase.
func (s *MonthService) PostMonthlyContributions(ctx context.Context, key string, date core.Date) ([]core.Transaction, error) {
	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return nil, err
	}

	var posted []core.Transaction
	err = s.mutateOpenMonth(ctx, key, func(month *core.Month) error {
		contributed := make(map[string]bool)
		for _, t := range month.Transactions {
			if t.Type == core.Contribution {
				contributed[t.Member] = true
			}
		}
		for _, m := range members {
			if m.MonthlyContribution.Cents <= 0 || contributed[m.Name] {
				continue
			}
			t := core.Transaction{
				ID:          uuid.NewString(),
				Type:        core.Contribution,
				Member:      m.Name,
				Date:        date,
				Description: "Cotisation mensuelle",
				Amount:      m.MonthlyContribution,
			}
			if m.HandlesGroceries {
				t.Description = "Cotisation mensuelle (déduite des courses)"
				t.DeductedAtPurchase = true
			}
			month.Transactions = append(month.Transactions, t)
			posted = append(posted, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// Summary recomputes the month summary from its transaction list.
func (s *MonthService) Summary(ctx context.Context, key string) (core.MonthSummary, error) {
	month, err := s.GetMonth(ctx, key)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.CalculateMonthSummary(month.Transactions), nil
}

// Credits aggregates reimbursable credits, excluding excludeKey (the month
// being closed) from the carried balances.
func (s *MonthService) Credits(ctx context.Context, excludeKey string) ([]core.MemberCredit, error) {
	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return nil, err
	}
	return core.SortedCredits(core.CreditBalances(months, members, excludeKey)), nil
}

// PrepareClosure runs the first pass and, when it validates, moves the
// closure into its adjusting state: a draft with zeroed residual inputs and
// a rule-ordered suggestion. Re-running with the same inputs yields the same
// verdict; nothing is persisted.
func (s *MonthService) PrepareClosure(ctx context.Context, key string, lines []core.ReimbursementLine) (*ClosureDraft, error) {
	month, err := s.GetMonth(ctx, key)
	if err != nil {
		return nil, err
	}
	if month.Closed {
		return nil, fmt.Errorf("%w: %s", core.ErrMonthClosed, key)
	}

	if err := core.ValidateExpenseReimbursements(month.Transactions, lines); err != nil {
		return nil, err
	}

	summary := core.CalculateMonthSummary(month.Transactions)

	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	credits := core.CreditBalances(months, members, key)

	return &ClosureDraft{
		MonthKey:   key,
		Summary:    summary,
		Target:     core.ReimbursementTarget(month.Transactions),
		Lines:      lines,
		Suggestion: core.SuggestResidualAllocation(summary.GlobalBalance, credits, members, settings),
	}, nil
}

// ConfirmClosure revalidates both passes and commits the closure: the
// settlement record is built from the pass lines, the current roster is
// snapshotted into the month and the collection is written back whole.
// Notification of members is fire-and-forget and never rolls this back.
func (s *MonthService) ConfirmClosure(ctx context.Context, key string, lines []core.ReimbursementLine, alloc core.ResidualAllocation, remarks string) (core.Month, error) {
	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return core.Month{}, err
	}

	idx := -1
	for i, m := range months {
		if m.Key() == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return core.Month{}, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	month := months[idx]
	if month.Closed {
		return core.Month{}, fmt.Errorf("%w: %s", core.ErrMonthClosed, key)
	}

	if err := core.ValidateExpenseReimbursements(month.Transactions, lines); err != nil {
		return core.Month{}, err
	}
	summary := core.CalculateMonthSummary(month.Transactions)
	if err := core.ValidateResidualAllocation(summary.GlobalBalance, alloc); err != nil {
		return core.Month{}, err
	}

	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return core.Month{}, err
	}

	settlements := core.BuildSettlements(lines, summary.GlobalBalance, alloc)
	for i := range settlements {
		settlements[i].ID = uuid.NewString()
	}

	month.Closed = true
	month.ClosedRoster = append([]core.Member(nil), members...)
	month.Settlements = settlements
	if trimmed := strings.TrimSpace(remarks); trimmed != "" {
		month.Remarks = trimmed
	}
	months[idx] = month

	if err := s.store.SaveMonths(ctx, months); err != nil {
		return core.Month{}, err
	}
	slog.InfoContext(ctx, "Month closed",
		"month_key", key,
		"settlements", len(settlements),
		"balance_cents", summary.GlobalBalance.Cents)

	s.announceClosure(month, summary)
	return month, nil
}

// Reopen unlocks a closed month behind the passphrase gate, discarding the
// roster snapshot and the settlement record.
func (s *MonthService) Reopen(ctx context.Context, key, passphrase string) (core.Month, error) {
	if !s.gate.Allow(passphrase) {
		return core.Month{}, core.ErrReopenDenied
	}

	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return core.Month{}, err
	}
	for i, m := range months {
		if m.Key() != key {
			continue
		}
		if !m.Closed {
			return m, nil
		}
		m.Closed = false
		m.ClosedRoster = nil
		m.Settlements = nil
		months[i] = m
		if err := s.store.SaveMonths(ctx, months); err != nil {
			return core.Month{}, err
		}
		slog.InfoContext(ctx, "Month reopened", "month_key", key)
		return m, nil
	}
	return core.Month{}, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
}

// announceClosure notifies the snapshotted roster in the background. The
// closure is already committed; delivery failures are only logged.
func (s *MonthService) announceClosure(month core.Month, summary core.MonthSummary) {
	if s.notifier == nil {
		return
	}

	var recipients []notify.Recipient
	for _, m := range month.ClosedRoster {
		if m.Email != "" {
			recipients = append(recipients, notify.Recipient{Name: m.Name, Address: m.Email})
		}
	}
	if len(recipients) == 0 {
		return
	}

	subject := notify.RenderClosureSubject(month)
	body := notify.RenderClosureReport(month, summary)
	key := month.Key()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, r := range s.notifier.Send(ctx, key, subject, body, recipients) {
			if !r.Delivered {
				slog.Warn("Closure notification not delivered",
					"month_key", key,
					"recipient", r.Recipient.Address,
					"error", r.Error)
			}
		}
	}()
}

// mutateOpenMonth loads the collection, applies fn to the keyed month if it
// is open, and writes the collection back. Closed months are never touched.
func (s *MonthService) mutateOpenMonth(ctx context.Context, key string, fn func(*core.Month) error) error {
	months, err := s.store.LoadMonths(ctx)
	if err != nil {
		return err
	}
	for i := range months {
		if months[i].Key() != key {
			continue
		}
		if months[i].Closed {
			return fmt.Errorf("%w: %s", core.ErrMonthClosed, key)
		}
		if err := fn(&months[i]); err != nil {
			return err
		}
		return s.store.SaveMonths(ctx, months)
	}
	return fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
}
