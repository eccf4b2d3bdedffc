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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error

	CreateProvider(ctx context.Context, provider *model.UserProvider) error
	FindByProviderIdentity(ctx context.Context, provider, providerID string) (*model.User, error)
	ListProviders(ctx context.Context, userID string) ([]model.UserProvider, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, email, name, display_name, grade, icon_url, system_role, hashed_password, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.DisplayName, &user.Grade, &user.IconURL,
		&user.SystemRole, &user.HashedPassword, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, name, display_name, grade, icon_url, system_role, hashed_password)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.DisplayName, user.Grade, user.IconURL, user.SystemRole, user.HashedPassword)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET name = $1, display_name = $2, grade = $3, icon_url = $4, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, user.Name, user.DisplayName, user.Grade, user.IconURL, user.ID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProfile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) CreateProvider(ctx context.Context, p *model.UserProvider) error {
	query := `INSERT INTO user_providers (id, user_id, provider, provider_id) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.UserID, p.Provider, p.ProviderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("provider identity already linked: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.CreateProvider: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByProviderIdentity(ctx context.Context, provider, providerID string) (*model.User, error) {
	query := `SELECT u.id, u.email, u.name, u.display_name, u.grade, u.icon_url, u.system_role, u.hashed_password, u.created_at, u.updated_at
	          FROM users u JOIN user_providers up ON up.user_id = u.id
	          WHERE up.provider = $1 AND up.provider_id = $2`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, provider, providerID))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgUserRepository.FindByProviderIdentity: %w", err)
	}
	return user, err
}

func (r *pgUserRepository) ListProviders(ctx context.Context, userID string) ([]model.UserProvider, error) {
	query := `SELECT id, user_id, provider, provider_id, created_at FROM user_providers WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListProviders: %w", err)
	}
	defer rows.Close()

	var providers []model.UserProvider
	for rows.Next() {
		var p model.UserProvider
		if err := rows.Scan(&p.ID, &p.UserID, &p.Provider, &p.ProviderID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ListProviders scan: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}
