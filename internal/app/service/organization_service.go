package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/database"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrganizationService struct {
	orgRepo repository.OrganizationRepository
	txm     database.TxManager
	log     *zap.SugaredLogger
}

func NewOrganizationService(orgRepo repository.OrganizationRepository, txm database.TxManager) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo, txm: txm, log: logger.Named("organization_service")}
}

type CreateOrganizationRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=64"`
	Description *string `json:"description,omitempty"`
	IconURL     *string `json:"icon_url,omitempty" validate:"omitempty,url"`
}

// CreateOrganization creates the club and makes the creator its leader in one
// transaction.
func (s *OrganizationService) CreateOrganization(ctx context.Context, creatorID string, req CreateOrganizationRequest) (*model.Organization, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	org := &model.Organization{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		IconURL:     req.IconURL,
		InviteCode:  newInviteCode(),
	}

	err := s.txm.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.orgRepo.Create(ctx, tx, org); err != nil {
			return err
		}
		member := &model.OrganizationMember{
			ID:             uuid.NewString(),
			UserID:         creatorID,
			OrganizationID: org.ID,
			Role:           model.MemberRoleLeader,
		}
		return s.orgRepo.AddMember(ctx, tx, member)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	s.log.Infow("organization created", "organization_id", org.ID, "creator_id", creatorID)
	return org, nil
}

// Join adds the user as a MEMBER. The (user_id, organization_id) unique
// constraint resolves concurrent joins; a duplicate surfaces as a conflict.
func (s *OrganizationService) Join(ctx context.Context, userID, inviteCode string) (*model.OrganizationMember, error) {
	org, err := s.orgRepo.FindByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}

	member := &model.OrganizationMember{
		ID:             uuid.NewString(),
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           model.MemberRoleMember,
	}
	if err := s.orgRepo.AddMember(ctx, nil, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *OrganizationService) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	return s.orgRepo.FindByID(ctx, id)
}

func (s *OrganizationService) ListOrganizations(ctx context.Context, page, pageSize int) ([]model.Organization, int, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.orgRepo.List(ctx, pageSize, offset)
}

func (s *OrganizationService) ListMembers(ctx context.Context, actorID, organizationID string, actorRole model.SystemRole) ([]model.OrganizationMember, error) {
	if actorRole != model.RoleSystemAdmin {
		ok, err := s.orgRepo.IsMember(ctx, actorID, organizationID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.ErrForbidden
		}
	}
	return s.orgRepo.ListMembers(ctx, organizationID)
}

// ChangeMemberRole requires the actor to be a LEADER of the organization or a
// system admin.
func (s *OrganizationService) ChangeMemberRole(ctx context.Context, actorID, organizationID, targetUserID string, actorRole model.SystemRole, newRole model.MemberRole) error {
	if newRole != model.MemberRoleLeader && newRole != model.MemberRoleMember {
		return fmt.Errorf("unknown member role %q: %w", newRole, common.ErrBadRequest)
	}
	if actorRole != model.RoleSystemAdmin {
		actor, err := s.orgRepo.GetMember(ctx, actorID, organizationID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrForbidden
			}
			return err
		}
		if actor.Role != model.MemberRoleLeader {
			return common.ErrForbidden
		}
	}
	return s.orgRepo.UpdateMemberRole(ctx, targetUserID, organizationID, newRole)
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
