package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Contribution is a member's periodic payment into the shared pool.
	Contribution TransactionType = "cotisation"
	// Expense is a shared cost advanced by a member.
	Expense TransactionType = "depense"
)

const (
	Volunteer MemberKind = "volontaire"
	Hosted    MemberKind = "accueilli"
)

const (
	RuleEqual            ReimbursementRule = "equal"
	RuleEqualHostedFirst ReimbursementRule = "equal-starting-with-hosted"
	RulePrioritized      ReimbursementRule = "prioritized"
)

// MonthNames are the twelve localized month names used in month keys.
var MonthNames = []string{
	"Janvier", "Février", "Mars", "Avril",
	"Mai", "Juin", "Juillet", "Août",
	"Septembre", "Octobre", "Novembre", "Décembre",
}

type (
	TransactionType   string
	MemberKind        string
	ReimbursementRule string

	Date struct {
		time.Time
	}

	// Transaction is a single ledger entry, owned by exactly one month.
	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Member      string          `json:"member"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount_cents"`
		// DeductedAtPurchase marks a contribution already consumed at the
		// point of purchase (groceries paid directly from the contribution).
		DeductedAtPurchase bool `json:"deducted_at_purchase,omitempty"`
	}

	// Member is a colocataire. Members are global, not month-scoped; closed
	// months carry their own roster snapshot.
	Member struct {
		ID                    string     `json:"id"`
		Name                  string     `json:"name"`
		ManualCredit          Money      `json:"manual_credit_cents"`
		Email                 string     `json:"email,omitempty"`
		MonthlyContribution   Money      `json:"monthly_contribution_cents,omitempty"`
		JoinDate              Date       `json:"join_date"`
		Kind                  MemberKind `json:"kind,omitempty"`
		HandlesGroceries      bool       `json:"handles_groceries,omitempty"`
		ReimbursementPriority int        `json:"reimbursement_priority,omitempty"`
	}

	// Settlement is a reimbursement recorded when a month closes.
	Settlement struct {
		ID     string `json:"id"`
		From   string `json:"from"`
		Amount Money  `json:"amount_cents"`
		To     string `json:"to"`
		Reason string `json:"reason"`
	}

	// Month holds one accounting period. Open months are mutable; closing
	// freezes transactions, snapshots the roster and records settlements.
	Month struct {
		Name         string        `json:"month"`
		Year         int           `json:"year"`
		Transactions []Transaction `json:"transactions"`
		Closed       bool          `json:"is_closed,omitempty"`
		ClosedRoster []Member      `json:"closed_roster,omitempty"`
		Settlements  []Settlement  `json:"settlements,omitempty"`
		Remarks      string        `json:"remarks,omitempty"`
	}

	// ReimbursementSettings configures how Pass B suggestions order credit
	// reimbursements. Allocation validation never branches on the rule.
	ReimbursementSettings struct {
		Rule          ReimbursementRule `json:"rule"`
		InitialBudget Money             `json:"initial_budget_cents"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyMember      = errors.New("empty member name")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidMonthKey  = errors.New("invalid month key")
	ErrUnknownMonth     = errors.New("unknown month name")
	ErrInvalidKind      = errors.New("invalid member kind")
	ErrInvalidRule      = errors.New("invalid reimbursement rule")

	ErrDescriptionTooLong = errors.New("description too long")

	ErrMonthClosed         = errors.New("month is closed")
	ErrMonthNotFound       = errors.New("month not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMonthExists         = errors.New("month already exists")
	ErrMemberNotFound      = errors.New("member not found")
	ErrMemberExists        = errors.New("member already exists")
	ErrReopenDenied        = errors.New("reopen passphrase rejected")
)

// MonthKey builds the canonical "<Name>-<Year>" key, e.g. "Mars-2025".
func MonthKey(name string, year int) string {
	return name + "-" + strconv.Itoa(year)
}

// ParseMonthKey splits a month key on the first dash. The name must be one of
// the twelve month names and the year a 4-digit integer.
func ParseMonthKey(key string) (name string, year int, err error) {
	idx := strings.Index(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	name = key[:idx]
	if !IsMonthName(name) {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownMonth, name)
	}
	year, convErr := strconv.Atoi(key[idx+1:])
	if convErr != nil || year < 1000 || year > 9999 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, key)
	}
	return name, year, nil
}

// IsMonthName reports whether name is one of the twelve month names.
func IsMonthName(name string) bool {
	for _, m := range MonthNames {
		if m == name {
			return true
		}
	}
	return false
}

// Key returns the month's canonical key.
func (m Month) Key() string {
	return MonthKey(m.Name, m.Year)
}

func (m Month) Validate() error {
	if !IsMonthName(m.Name) {
		return fmt.Errorf("%w: %q", ErrUnknownMonth, m.Name)
	}
	if m.Year < 1000 || m.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidMonthKey, m.Year)
	}
	return nil
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MarshalJSON encodes the date as "YYYY-MM-DD"; the zero date encodes as "".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d.Time = t
	return nil
}

func (t Transaction) Validate() error {
	if t.Type != Contribution && t.Type != Expense {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if strings.TrimSpace(t.Member) == "" {
		return ErrEmptyMember
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: max 200 characters", ErrDescriptionTooLong)
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.DeductedAtPurchase && t.Type != Contribution {
		return errors.New("only contributions can be deducted at purchase")
	}
	return nil
}

func (m Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyMember
	}
	switch m.Kind {
	case "", Volunteer, Hosted:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, m.Kind)
	}
	if m.MonthlyContribution.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r ReimbursementSettings) Validate() error {
	switch r.Rule {
	case RuleEqual, RuleEqualHostedFirst, RulePrioritized:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRule, r.Rule)
	}
	if r.InitialBudget.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
