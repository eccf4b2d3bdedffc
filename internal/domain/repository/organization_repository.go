package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type OrganizationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, org *model.Organization) error
	FindByID(ctx context.Context, id string) (*model.Organization, error)
	FindByInviteCode(ctx context.Context, code string) (*model.Organization, error)
	List(ctx context.Context, limit, offset int) ([]model.Organization, int, error)

	AddMember(ctx context.Context, tx *sql.Tx, member *model.OrganizationMember) error
	GetMember(ctx context.Context, userID, organizationID string) (*model.OrganizationMember, error)
	ListMembers(ctx context.Context, organizationID string) ([]model.OrganizationMember, error)
	UpdateMemberRole(ctx context.Context, userID, organizationID string, role model.MemberRole) error
	IsMember(ctx context.Context, userID, organizationID string) (bool, error)
	OrgIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type pgOrganizationRepository struct {
	db *sql.DB
}

func NewPgOrganizationRepository(db *sql.DB) OrganizationRepository {
	return &pgOrganizationRepository{db: db}
}

func (r *pgOrganizationRepository) Create(ctx context.Context, tx *sql.Tx, org *model.Organization) error {
	query := `INSERT INTO organizations (id, name, description, icon_url, invite_code)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := pick(r.db, tx).ExecContext(ctx, query, org.ID, org.Name, org.Description, org.IconURL, org.InviteCode)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("organization invite code collision: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgOrganizationRepository.Create: %w", err)
	}
	return nil
}

func (r *pgOrganizationRepository) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	query := `SELECT o.id, o.name, o.description, o.icon_url, o.invite_code, o.created_at, o.updated_at,
	                 (SELECT COUNT(*) FROM organization_members m WHERE m.organization_id = o.id)
	          FROM organizations o WHERE o.id = $1`
	org := &model.Organization{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Description, &org.IconURL, &org.InviteCode,
		&org.CreatedAt, &org.UpdatedAt, &org.MemberCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrganizationRepository.FindByID: %w", err)
	}
	return org, nil
}

func (r *pgOrganizationRepository) FindByInviteCode(ctx context.Context, code string) (*model.Organization, error) {
	query := `SELECT id, name, description, icon_url, invite_code, created_at, updated_at
	          FROM organizations WHERE invite_code = $1`
	org := &model.Organization{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&org.ID, &org.Name, &org.Description, &org.IconURL, &org.InviteCode, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrganizationRepository.FindByInviteCode: %w", err)
	}
	return org, nil
}

func (r *pgOrganizationRepository) List(ctx context.Context, limit, offset int) ([]model.Organization, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM organizations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgOrganizationRepository.List count: %w", err)
	}

	query := `SELECT id, name, description, icon_url, invite_code, created_at, updated_at
	          FROM organizations ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgOrganizationRepository.List query: %w", err)
	}
	defer rows.Close()

	orgs := []model.Organization{}
	for rows.Next() {
		var o model.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.IconURL, &o.InviteCode, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgOrganizationRepository.List scan: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, total, rows.Err()
}

func (r *pgOrganizationRepository) AddMember(ctx context.Context, tx *sql.Tx, m *model.OrganizationMember) error {
	query := `INSERT INTO organization_members (id, user_id, organization_id, role) VALUES ($1, $2, $3, $4)`
	_, err := pick(r.db, tx).ExecContext(ctx, query, m.ID, m.UserID, m.OrganizationID, m.Role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("user is already a member of this organization: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgOrganizationRepository.AddMember: %w", err)
	}
	return nil
}

func (r *pgOrganizationRepository) GetMember(ctx context.Context, userID, organizationID string) (*model.OrganizationMember, error) {
	query := `SELECT id, user_id, organization_id, role, joined_at
	          FROM organization_members WHERE user_id = $1 AND organization_id = $2`
	m := &model.OrganizationMember{}
	err := r.db.QueryRowContext(ctx, query, userID, organizationID).Scan(
		&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrganizationRepository.GetMember: %w", err)
	}
	return m, nil
}

func (r *pgOrganizationRepository) ListMembers(ctx context.Context, organizationID string) ([]model.OrganizationMember, error) {
	query := `SELECT m.id, m.user_id, m.organization_id, m.role, m.joined_at, u.name, u.display_name
	          FROM organization_members m JOIN users u ON u.id = m.user_id
	          WHERE m.organization_id = $1
	          ORDER BY m.joined_at ASC`
	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("pgOrganizationRepository.ListMembers: %w", err)
	}
	defer rows.Close()

	members := []model.OrganizationMember{}
	for rows.Next() {
		var m model.OrganizationMember
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.JoinedAt, &m.UserName, &m.UserDisplayName); err != nil {
			return nil, fmt.Errorf("pgOrganizationRepository.ListMembers scan: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *pgOrganizationRepository) UpdateMemberRole(ctx context.Context, userID, organizationID string, role model.MemberRole) error {
	query := `UPDATE organization_members SET role = $1 WHERE user_id = $2 AND organization_id = $3`
	res, err := r.db.ExecContext(ctx, query, role, userID, organizationID)
	if err != nil {
		return fmt.Errorf("pgOrganizationRepository.UpdateMemberRole: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgOrganizationRepository) IsMember(ctx context.Context, userID, organizationID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM organization_members WHERE user_id = $1 AND organization_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, organizationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgOrganizationRepository.IsMember: %w", err)
	}
	return exists, nil
}

func (r *pgOrganizationRepository) OrgIDsForUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT organization_id FROM organization_members WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgOrganizationRepository.OrgIDsForUser: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgOrganizationRepository.OrgIDsForUser: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
