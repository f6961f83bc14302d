package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coloc/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "coloc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadEmptyCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	months, err := s.LoadMonths(ctx)
	require.NoError(t, err)
	assert.Empty(t, months)

	members, err := s.LoadMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)

	settings, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.RuleEqual, settings.Rule)
}

func TestMonthsRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := []core.Month{{
		Name: "Mars",
		Year: 2025,
		Transactions: []core.Transaction{{
			ID:          "t1",
			Type:        core.Expense,
			Member:      "Alice",
			Date:        core.NewDate(2025, 3, 5),
			Description: "Courses",
			Amount:      core.Money{Cents: 8550},
		}},
	}}
	require.NoError(t, s.SaveMonths(ctx, in))

	out, err := s.LoadMonths(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Mars-2025", out[0].Key())
	require.Len(t, out[0].Transactions, 1)
	assert.Equal(t, int64(8550), out[0].Transactions[0].Amount.Cents)
	assert.Equal(t, "2025-03-05", out[0].Transactions[0].Date.Format("2006-01-02"))
}

func TestSaveReplacesWholeCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMonths(ctx, []core.Month{
		{Name: "Janvier", Year: 2025},
		{Name: "Février", Year: 2025},
	}))
	require.NoError(t, s.SaveMonths(ctx, []core.Month{
		{Name: "Mars", Year: 2025},
	}))

	out, err := s.LoadMonths(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Mars-2025", out[0].Key())
}

func TestMembersRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := []core.Member{{
		ID:           "m1",
		Name:         "Alice",
		ManualCredit: core.Money{Cents: -500},
		Kind:         core.Volunteer,
		JoinDate:     core.NewDate(2025, 1, 1),
	}}
	require.NoError(t, s.SaveMembers(ctx, in))

	out, err := s.LoadMembers(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Alice", out[0].Name)
	assert.Equal(t, int64(-500), out[0].ManualCredit.Cents)
}

func TestSettingsRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSettings(ctx, core.ReimbursementSettings{
		Rule:          core.RulePrioritized,
		InitialBudget: core.Money{Cents: 50000},
	}))

	out, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.RulePrioritized, out.Rule)
	assert.Equal(t, int64(50000), out.InitialBudget.Cents)
}

func TestReopenAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coloc.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveMonths(ctx, []core.Month{{Name: "Mars", Year: 2025}}))
	require.NoError(t, s.Close())

	// Data survives across connections, migrations are idempotent.
	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	out, err := s2.LoadMonths(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Mars-2025", out[0].Key())
}
