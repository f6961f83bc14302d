package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coloc/internal/core"
	"coloc/internal/storage"
)

// MemberService manages the roster and the reimbursement settings. Roster
// edits never touch closed months, which keep their own snapshot.
type MemberService struct {
	store storage.Store
}

func NewMemberService(store storage.Store) *MemberService {
	return &MemberService{store: store}
}

func (s *MemberService) ListMembers(ctx context.Context) ([]core.Member, error) {
	return s.store.LoadMembers(ctx)
}

// AddMember adds a member with a unique name. JoinDate defaults to today.
func (s *MemberService) AddMember(ctx context.Context, m core.Member) (core.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Kind == "" {
		m.Kind = core.Volunteer
	}
	if m.JoinDate.IsZero() {
		m.JoinDate = core.Date{Time: time.Now()}
	}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}

	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return core.Member{}, err
	}
	for _, existing := range members {
		if existing.Name == m.Name {
			return core.Member{}, fmt.Errorf("%w: %s", core.ErrMemberExists, m.Name)
		}
	}

	members = append(members, m)
	if err := s.store.SaveMembers(ctx, members); err != nil {
		return core.Member{}, err
	}
	slog.InfoContext(ctx, "Member added", "member", m.Name, "kind", string(m.Kind))
	return m, nil
}

func (s *MemberService) UpdateMember(ctx context.Context, m core.Member) error {
	if err := m.Validate(); err != nil {
		return err
	}
	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return err
	}
	for i, existing := range members {
		if existing.ID != m.ID {
			continue
		}
		for _, other := range members {
			if other.ID != m.ID && other.Name == m.Name {
				return fmt.Errorf("%w: %s", core.ErrMemberExists, m.Name)
			}
		}
		members[i] = m
		return s.store.SaveMembers(ctx, members)
	}
	return fmt.Errorf("%w: %s", core.ErrMemberNotFound, m.ID)
}

func (s *MemberService) DeleteMember(ctx context.Context, id string) error {
	members, err := s.store.LoadMembers(ctx)
	if err != nil {
		return err
	}
	for i, existing := range members {
		if existing.ID == id {
			members = append(members[:i], members[i+1:]...)
			return s.store.SaveMembers(ctx, members)
		}
	}
	return fmt.Errorf("%w: %s", core.ErrMemberNotFound, id)
}

func (s *MemberService) GetSettings(ctx context.Context) (core.ReimbursementSettings, error) {
	return s.store.LoadSettings(ctx)
}

func (s *MemberService) SaveSettings(ctx context.Context, settings core.ReimbursementSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Reimbursement settings saved", "rule", string(settings.Rule))
	return nil
}
