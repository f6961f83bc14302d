// Package storage defines the persistence port for the ledger.
//
// The store has whole-collection replace semantics: callers load a full
// collection, mutate it in memory and write it back in one call. There is no
// partial-row API and no concurrency token; the model assumes a single
// active session.
package storage

import (
	"context"

	"coloc/internal/core"
)

// Store is the persistence port. Absent collections load as empty values,
// never as errors.
type Store interface {
	LoadMonths(ctx context.Context) ([]core.Month, error)
	SaveMonths(ctx context.Context, months []core.Month) error

	LoadMembers(ctx context.Context) ([]core.Member, error)
	SaveMembers(ctx context.Context, members []core.Member) error

	LoadSettings(ctx context.Context) (core.ReimbursementSettings, error)
	SaveSettings(ctx context.Context, settings core.ReimbursementSettings) error

	Close() error
}

// DefaultSettings is what LoadSettings returns before anything was saved.
func DefaultSettings() core.ReimbursementSettings {
	return core.ReimbursementSettings{Rule: core.RuleEqual}
}
