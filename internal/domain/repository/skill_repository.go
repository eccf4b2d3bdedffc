package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
)

type SkillRepository interface {
	CreateCategory(ctx context.Context, category *model.SkillCategory) error
	ListCategories(ctx context.Context) ([]model.SkillCategory, error)
	CreateSkill(ctx context.Context, skill *model.Skill) error
	FindSkillByID(ctx context.Context, id string) (*model.Skill, error)
	ListSkillsByCategory(ctx context.Context, categoryID string) ([]model.Skill, error)

	// MarkAchieved upserts on (user_id, skill_id). The achieved_at stamp is
	// written only on the false-to-true transition and never afterwards.
	// Returns the row and whether this call changed anything.
	MarkAchieved(ctx context.Context, progress *model.SkillProgress) (*model.SkillProgress, bool, error)
	GetProgress(ctx context.Context, userID, skillID string) (*model.SkillProgress, error)
	ListProgressByUser(ctx context.Context, userID string) ([]model.SkillProgress, error)
}

type pgSkillRepository struct {
	db *sql.DB
}

func NewPgSkillRepository(db *sql.DB) SkillRepository {
	return &pgSkillRepository{db: db}
}

func (r *pgSkillRepository) CreateCategory(ctx context.Context, c *model.SkillCategory) error {
	query := `INSERT INTO skill_categories (id, name, sort_order) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.SortOrder); err != nil {
		return fmt.Errorf("pgSkillRepository.CreateCategory: %w", err)
	}
	return nil
}

func (r *pgSkillRepository) ListCategories(ctx context.Context) ([]model.SkillCategory, error) {
	query := `SELECT id, name, sort_order, created_at FROM skill_categories ORDER BY sort_order ASC, name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgSkillRepository.ListCategories: %w", err)
	}
	defer rows.Close()

	categories := []model.SkillCategory{}
	for rows.Next() {
		var c model.SkillCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSkillRepository.ListCategories scan: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *pgSkillRepository) CreateSkill(ctx context.Context, s *model.Skill) error {
	query := `INSERT INTO skills (id, category_id, name, description, level, requirement)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.CategoryID, s.Name, s.Description, s.Level, s.Requirement); err != nil {
		return fmt.Errorf("pgSkillRepository.CreateSkill: %w", err)
	}
	return nil
}

func (r *pgSkillRepository) FindSkillByID(ctx context.Context, id string) (*model.Skill, error) {
	query := `SELECT id, category_id, name, description, level, requirement, created_at FROM skills WHERE id = $1`
	s := &model.Skill{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.CategoryID, &s.Name, &s.Description, &s.Level, &s.Requirement, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSkillRepository.FindSkillByID: %w", err)
	}
	return s, nil
}

func (r *pgSkillRepository) ListSkillsByCategory(ctx context.Context, categoryID string) ([]model.Skill, error) {
	query := `SELECT id, category_id, name, description, level, requirement, created_at
	          FROM skills WHERE category_id = $1 ORDER BY level ASC, name ASC`
	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("pgSkillRepository.ListSkillsByCategory: %w", err)
	}
	defer rows.Close()

	skills := []model.Skill{}
	for rows.Next() {
		var s model.Skill
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description, &s.Level, &s.Requirement, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgSkillRepository.ListSkillsByCategory scan: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

func (r *pgSkillRepository) MarkAchieved(ctx context.Context, p *model.SkillProgress) (*model.SkillProgress, bool, error) {
	// The WHERE on the conflict branch keeps achieved_at stable once set.
	query := `INSERT INTO skill_progress (id, user_id, skill_id, is_achieved, achieved_at)
	          VALUES ($1, $2, $3, TRUE, CURRENT_TIMESTAMP)
	          ON CONFLICT (user_id, skill_id)
	          DO UPDATE SET is_achieved = TRUE, achieved_at = CURRENT_TIMESTAMP
	          WHERE skill_progress.is_achieved = FALSE
	          RETURNING id, user_id, skill_id, is_achieved, achieved_at, created_at`
	out := &model.SkillProgress{}
	err := r.db.QueryRowContext(ctx, query, p.ID, p.UserID, p.SkillID).Scan(
		&out.ID, &out.UserID, &out.SkillID, &out.IsAchieved, &out.AchievedAt, &out.CreatedAt,
	)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("pgSkillRepository.MarkAchieved: %w", err)
	}

	// Conflict branch skipped: the row is already achieved. Read it back.
	existing, err := r.GetProgress(ctx, p.UserID, p.SkillID)
	if err != nil {
		return nil, false, fmt.Errorf("pgSkillRepository.MarkAchieved readback: %w", err)
	}
	return existing, false, nil
}

func (r *pgSkillRepository) GetProgress(ctx context.Context, userID, skillID string) (*model.SkillProgress, error) {
	query := `SELECT id, user_id, skill_id, is_achieved, achieved_at, created_at
	          FROM skill_progress WHERE user_id = $1 AND skill_id = $2`
	p := &model.SkillProgress{}
	err := r.db.QueryRowContext(ctx, query, userID, skillID).Scan(
		&p.ID, &p.UserID, &p.SkillID, &p.IsAchieved, &p.AchievedAt, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSkillRepository.GetProgress: %w", err)
	}
	return p, nil
}

func (r *pgSkillRepository) ListProgressByUser(ctx context.Context, userID string) ([]model.SkillProgress, error) {
	query := `SELECT sp.id, sp.user_id, sp.skill_id, sp.is_achieved, sp.achieved_at, sp.created_at, s.name, s.level
	          FROM skill_progress sp
	          JOIN skills s ON s.id = sp.skill_id
	          WHERE sp.user_id = $1
	          ORDER BY sp.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgSkillRepository.ListProgressByUser: %w", err)
	}
	defer rows.Close()

	progress := []model.SkillProgress{}
	for rows.Next() {
		var p model.SkillProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.SkillID, &p.IsAchieved, &p.AchievedAt, &p.CreatedAt, &p.SkillName, &p.SkillLevel); err != nil {
			return nil, fmt.Errorf("pgSkillRepository.ListProgressByUser scan: %w", err)
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}
