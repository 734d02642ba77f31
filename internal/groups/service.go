package groups

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/camilavaldes/splitabill-backend/pkg/db"
	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

// ServiceParams groups dependencies for the groups service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service manages the circles of users who are allowed to invoice each other.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a groups service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// CreateGroupInput carries a new group's fields. The creator becomes the
// first member.
type CreateGroupInput struct {
	Name        string
	Description *string
	Currency    enums.Currency
	CreatedBy   uuid.UUID
}

// CreateGroup creates a group with a slug derived from its name and enrolls
// the creator.
func (s *Service) CreateGroup(ctx context.Context, input CreateGroupInput) (*models.Group, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created_by is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyCLP
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	slug, err := s.uniqueSlug(ctx, input.Name)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:        strings.TrimSpace(input.Name),
		Slug:        slug,
		Description: input.Description,
		Currency:    currency,
		CreatedBy:   input.CreatedBy,
	}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create group")
	}
	member := &models.GroupMember{GroupID: group.ID, UserID: input.CreatedBy}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enroll creator")
	}
	return group, nil
}

func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slugify(name)
	existing, err := s.repo.FindGroupBySlug(ctx, base)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find group by slug")
	}
	if existing == nil {
		return base, nil
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// GetGroup loads one group.
func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	group, err := s.repo.FindGroupByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find group")
	}
	if group == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
	}
	return group, nil
}

// ListGroupsForUser lists the groups a user belongs to.
func (s *Service) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	groups, err := s.repo.ListGroupsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list groups")
	}
	return groups, nil
}

// AddMember enrolls a user in a group. Duplicate enrollment maps to Conflict.
func (s *Service) AddMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	member := &models.GroupMember{GroupID: groupID, UserID: userID}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if db.IsUniqueViolation(err, "uq_group_members_group_user") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a member")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add member")
	}
	return member, nil
}

// RemoveMember removes a user from a group.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove member")
	}
	return nil
}

// ListMembers lists a group's members.
func (s *Service) ListMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return members, nil
}

// CheckBothMembers reports whether both users belong to the group. The
// payment workflow treats false as a skippable violation.
func (s *Service) CheckBothMembers(ctx context.Context, groupID, userA, userB uuid.UUID) (bool, error) {
	for _, userID := range []uuid.UUID{userA, userB} {
		ok, err := s.repo.IsMember(ctx, groupID, userID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// CommonGroups lists the groups two users share, used to pick an invoicing
// group.
func (s *Service) CommonGroups(ctx context.Context, userA, userB uuid.UUID) ([]models.Group, error) {
	groups, err := s.repo.ListCommonGroups(ctx, userA, userB)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list common groups")
	}
	return groups, nil
}
