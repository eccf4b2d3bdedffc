package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemListFilter struct {
	OrganizationID  string
	DifficultyLevel int
	TagIDs          []string
	SearchTerm      string
	IncludeArchived bool
	// VisibleToOrgIDs limits non-public problems to those owned by one of the
	// given organizations. Nil means no restriction (admin view).
	VisibleToOrgIDs []string
	PublicOnly      bool
}

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	UpdateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, filter ProblemListFilter) ([]model.Problem, int, error)

	AddTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error
	GetTestCases(ctx context.Context, problemID string) ([]model.TestCase, error)
	DeleteTestCases(ctx context.Context, tx *sql.Tx, problemID string) error
	CountTestCases(ctx context.Context, problemID string) (int, error)

	UpsertSampleCode(ctx context.Context, tx *sql.Tx, sc *model.SampleCode) error
	GetSampleCodes(ctx context.Context, problemID string) ([]model.SampleCode, error)

	FindOrCreateTag(ctx context.Context, tx *sql.Tx, tag *model.Tag) (*model.Tag, error)
	AddTagsToProblem(ctx context.Context, tx *sql.Tx, problemID string, tagIDs []string) error
	GetTagsByProblemID(ctx context.Context, problemID string) ([]model.Tag, error)
	ClearProblemTags(ctx context.Context, tx *sql.Tx, problemID string) error

	// IncrementCounters bumps submit_count (and accept_count when accepted)
	// under the row lock the UPDATE takes. Must run in the verdict tx.
	IncrementCounters(ctx context.Context, tx *sql.Tx, problemID string, accepted bool) error
	// RecomputeCounters repairs counter drift from the submission table.
	RecomputeCounters(ctx context.Context, problemID string) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, organization_id, slug, title, version, difficulty_level, content, constraints,
	                                time_limit_ms, memory_limit_mb, is_public, is_archived, created_by, updated_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`
	_, err := pick(r.db, tx).ExecContext(ctx, query,
		p.ID, p.OrganizationID, p.Slug, p.Title, p.Version, p.DifficultyLevel, p.Content, p.Constraints,
		p.TimeLimitMs, p.MemoryLimitMb, p.IsPublic, p.IsArchived, p.CreatedByID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("slug %q: %w", p.Slug, common.ErrDuplicateSlug)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) UpdateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `UPDATE problems SET
	            title = $1, difficulty_level = $2, content = $3, constraints = $4,
	            time_limit_ms = $5, memory_limit_mb = $6, is_public = $7, is_archived = $8,
	            version = $9, updated_by = $10, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $11`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		p.Title, p.DifficultyLevel, p.Content, p.Constraints,
		p.TimeLimitMs, p.MemoryLimitMb, p.IsPublic, p.IsArchived,
		p.Version, p.UpdatedByID, p.ID)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

const problemColumns = `p.id, p.organization_id, p.slug, p.title, p.version, p.difficulty_level, p.content, p.constraints,
	p.time_limit_ms, p.memory_limit_mb, p.is_public, p.is_archived, p.submit_count, p.accept_count,
	p.created_by, p.updated_by, p.created_at, p.updated_at`

func scanProblem(row *sql.Row) (*model.Problem, error) {
	p := &model.Problem{}
	var content, constraints []byte
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.Slug, &p.Title, &p.Version, &p.DifficultyLevel, &content, &constraints,
		&p.TimeLimitMs, &p.MemoryLimitMb, &p.IsPublic, &p.IsArchived, &p.SubmitCount, &p.AcceptCount,
		&p.CreatedByID, &p.UpdatedByID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	p.Content = content
	p.Constraints = constraints
	return p, nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.id = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return p, err
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems p WHERE p.slug = $1`
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, slug))
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("pgProblemRepository.FindProblemBySlug: %w", err)
	}
	return p, err
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, f ProblemListFilter) ([]model.Problem, int, error) {
	var baseQuery strings.Builder
	baseQuery.WriteString(`SELECT DISTINCT ` + problemColumns + ` FROM problems p`)

	var countQuery strings.Builder
	countQuery.WriteString(`SELECT COUNT(DISTINCT p.id) FROM problems p`)

	var joins string
	var conditions []string
	var args []interface{}
	argID := 1

	if len(f.TagIDs) > 0 {
		joins = " JOIN problem_tags pt ON p.id = pt.problem_id"
		placeholders := make([]string, len(f.TagIDs))
		for i, id := range f.TagIDs {
			placeholders[i] = fmt.Sprintf("$%d", argID)
			args = append(args, id)
			argID++
		}
		conditions = append(conditions, fmt.Sprintf("pt.tag_id IN (%s)", strings.Join(placeholders, ",")))
	}

	if f.OrganizationID != "" {
		conditions = append(conditions, fmt.Sprintf("p.organization_id = $%d", argID))
		args = append(args, f.OrganizationID)
		argID++
	}

	if f.DifficultyLevel > 0 {
		conditions = append(conditions, fmt.Sprintf("p.difficulty_level = $%d", argID))
		args = append(args, f.DifficultyLevel)
		argID++
	}

	if f.SearchTerm != "" {
		conditions = append(conditions, fmt.Sprintf("p.title ILIKE $%d", argID))
		args = append(args, "%"+f.SearchTerm+"%")
		argID++
	}

	if !f.IncludeArchived {
		conditions = append(conditions, "p.is_archived = FALSE")
	}

	if f.PublicOnly {
		conditions = append(conditions, "p.is_public = TRUE")
	} else if f.VisibleToOrgIDs != nil {
		if len(f.VisibleToOrgIDs) == 0 {
			conditions = append(conditions, "p.is_public = TRUE")
		} else {
			placeholders := make([]string, len(f.VisibleToOrgIDs))
			for i, id := range f.VisibleToOrgIDs {
				placeholders[i] = fmt.Sprintf("$%d", argID)
				args = append(args, id)
				argID++
			}
			conditions = append(conditions, fmt.Sprintf("(p.is_public = TRUE OR p.organization_id IN (%s))", strings.Join(placeholders, ",")))
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery.String()+joins+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	query := baseQuery.String() + joins + whereClause +
		fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		var content, constraints []byte
		if err := rows.Scan(
			&p.ID, &p.OrganizationID, &p.Slug, &p.Title, &p.Version, &p.DifficultyLevel, &content, &constraints,
			&p.TimeLimitMs, &p.MemoryLimitMb, &p.IsPublic, &p.IsArchived, &p.SubmitCount, &p.AcceptCount,
			&p.CreatedByID, &p.UpdatedByID, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		p.Content = content
		p.Constraints = constraints
		problems = append(problems, p)
	}
	return problems, total, rows.Err()
}

func (r *pgProblemRepository) AddTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	query := `INSERT INTO test_cases (id, problem_id, input, expected_output, is_example, is_hidden, sort_order)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for i, tc := range testCases {
		tc.SortOrder = i + 1
		if _, err := pick(r.db, tx).ExecContext(ctx, query,
			tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.IsExample, tc.IsHidden, tc.SortOrder); err != nil {
			return fmt.Errorf("pgProblemRepository.AddTestCases exec for case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTestCases(ctx context.Context, problemID string) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, is_example, is_hidden, sort_order, created_at
	          FROM test_cases WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCases: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.IsExample, &tc.IsHidden, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCases scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	return testCases, rows.Err()
}

func (r *pgProblemRepository) DeleteTestCases(ctx context.Context, tx *sql.Tx, problemID string) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM test_cases WHERE problem_id = $1`, problemID); err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteTestCases: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) CountTestCases(ctx context.Context, problemID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_cases WHERE problem_id = $1`, problemID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.CountTestCases: %w", err)
	}
	return n, nil
}

func (r *pgProblemRepository) UpsertSampleCode(ctx context.Context, tx *sql.Tx, sc *model.SampleCode) error {
	query := `INSERT INTO problem_sample_codes (id, problem_id, language, code)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (problem_id, language)
	          DO UPDATE SET code = EXCLUDED.code, updated_at = CURRENT_TIMESTAMP`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, sc.ID, sc.ProblemID, sc.Language, sc.Code); err != nil {
		return fmt.Errorf("pgProblemRepository.UpsertSampleCode: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) GetSampleCodes(ctx context.Context, problemID string) ([]model.SampleCode, error) {
	query := `SELECT id, problem_id, language, code, created_at, updated_at
	          FROM problem_sample_codes WHERE problem_id = $1 ORDER BY language ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetSampleCodes: %w", err)
	}
	defer rows.Close()

	var codes []model.SampleCode
	for rows.Next() {
		var sc model.SampleCode
		if err := rows.Scan(&sc.ID, &sc.ProblemID, &sc.Language, &sc.Code, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetSampleCodes scan: %w", err)
		}
		codes = append(codes, sc)
	}
	return codes, rows.Err()
}

func (r *pgProblemRepository) FindOrCreateTag(ctx context.Context, tx *sql.Tx, tag *model.Tag) (*model.Tag, error) {
	query := `INSERT INTO tags (id, name, slug) VALUES ($1, $2, $3)
	          ON CONFLICT (slug) DO UPDATE SET name = tags.name
	          RETURNING id, name, slug, created_at`
	out := &model.Tag{}
	err := pick(r.db, tx).QueryRowContext(ctx, query, tag.ID, tag.Name, tag.Slug).Scan(
		&out.ID, &out.Name, &out.Slug, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindOrCreateTag: %w", err)
	}
	return out, nil
}

func (r *pgProblemRepository) AddTagsToProblem(ctx context.Context, tx *sql.Tx, problemID string, tagIDs []string) error {
	query := `INSERT INTO problem_tags (problem_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, tagID := range tagIDs {
		if _, err := pick(r.db, tx).ExecContext(ctx, query, problemID, tagID); err != nil {
			return fmt.Errorf("pgProblemRepository.AddTagsToProblem: %w", err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTagsByProblemID(ctx context.Context, problemID string) ([]model.Tag, error) {
	query := `SELECT t.id, t.name, t.slug, t.created_at
	          FROM tags t JOIN problem_tags pt ON pt.tag_id = t.id
	          WHERE pt.problem_id = $1 ORDER BY t.name ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID: %w", err)
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID scan: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *pgProblemRepository) ClearProblemTags(ctx context.Context, tx *sql.Tx, problemID string) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `DELETE FROM problem_tags WHERE problem_id = $1`, problemID); err != nil {
		return fmt.Errorf("pgProblemRepository.ClearProblemTags: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) IncrementCounters(ctx context.Context, tx *sql.Tx, problemID string, accepted bool) error {
	query := `UPDATE problems SET
	            submit_count = submit_count + 1,
	            accept_count = accept_count + CASE WHEN $2 THEN 1 ELSE 0 END
	          WHERE id = $1`
	res, err := pick(r.db, tx).ExecContext(ctx, query, problemID, accepted)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.IncrementCounters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProblemRepository) RecomputeCounters(ctx context.Context, problemID string) error {
	query := `UPDATE problems SET
	            submit_count = (SELECT COUNT(*) FROM submissions WHERE problem_id = $1 AND status <> 'pending'),
	            accept_count = (SELECT COUNT(*) FROM submissions WHERE problem_id = $1 AND status = 'accepted')
	          WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, problemID); err != nil {
		return fmt.Errorf("pgProblemRepository.RecomputeCounters: %w", err)
	}
	return nil
}
