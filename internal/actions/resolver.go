package actions

import (
	"context"
	"fmt"

	"github.com/anonto42/hrops/backend/internal/models"
)

// Directory is the read-only view of users, teams and departments the
// pipeline needs. repositories.PostgresUserRepository satisfies it.
type Directory interface {
	FindUser(ctx context.Context, id uint) (*models.User, error)
	AdminIDs(ctx context.Context, excludeID uint) ([]uint, error)
	ActiveUserIDs(ctx context.Context, excludeID uint) ([]uint, error)
	TeamMemberIDs(ctx context.Context, teamID uint) ([]uint, error)
	DepartmentTeamIDs(ctx context.Context, departmentID uint) ([]uint, error)
}

// Resolver expands the recipient criteria of a descriptor into user IDs.
type Resolver struct {
	directory Directory
}

func NewResolver(directory Directory) *Resolver {
	return &Resolver{directory: directory}
}

// recipientSet keeps first-seen order and drops duplicates and zero IDs.
type recipientSet struct {
	seen map[uint]struct{}
	ids  []uint
}

func newRecipientSet() *recipientSet {
	return &recipientSet{seen: make(map[uint]struct{})}
}

func (s *recipientSet) add(ids ...uint) {
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
}

// Resolve returns the ordered, duplicate free recipient list. The order is
// primary, extras, admins, active users, teams, then department teams.
// Only the admin and active user expansions exclude the actor, so the actor
// is notified when named directly or through a team.
func (r *Resolver) Resolve(ctx context.Context, desc models.ActionDescriptor) ([]uint, error) {
	set := newRecipientSet()

	if desc.PrimaryRecipientID != nil {
		set.add(*desc.PrimaryRecipientID)
	}
	set.add(desc.ExtraRecipientIDs...)

	if desc.NotifyAllAdmins {
		ids, err := r.directory.AdminIDs(ctx, desc.ActorID)
		if err != nil {
			return nil, fmt.Errorf("load admins: %w", err)
		}
		set.add(ids...)
	}

	if desc.NotifyAllActiveUsers {
		ids, err := r.directory.ActiveUserIDs(ctx, desc.ActorID)
		if err != nil {
			return nil, fmt.Errorf("load active users: %w", err)
		}
		set.add(ids...)
	}

	for _, teamID := range desc.TeamIDs {
		if err := r.addTeam(ctx, set, teamID); err != nil {
			return nil, err
		}
	}

	for _, departmentID := range desc.DepartmentIDs {
		if departmentID == 0 {
			continue
		}
		teamIDs, err := r.directory.DepartmentTeamIDs(ctx, departmentID)
		if err != nil {
			return nil, fmt.Errorf("load teams of department %d: %w", departmentID, err)
		}
		for _, teamID := range teamIDs {
			if err := r.addTeam(ctx, set, teamID); err != nil {
				return nil, err
			}
		}
	}

	return set.ids, nil
}

func (r *Resolver) addTeam(ctx context.Context, set *recipientSet, teamID uint) error {
	if teamID == 0 {
		return nil
	}
	ids, err := r.directory.TeamMemberIDs(ctx, teamID)
	if err != nil {
		return fmt.Errorf("load members of team %d: %w", teamID, err)
	}
	set.add(ids...)
	return nil
}
