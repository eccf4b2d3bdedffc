package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// ApplyVerdict flips a pending submission to its terminal verdict in one
	// conditional UPDATE. Returns ErrAlreadyJudged when the row is no longer
	// pending and ErrNotFound when it does not exist.
	ApplyVerdict(ctx context.Context, tx *sql.Tx, submissionID string, v model.Verdict) error
	ListSubmissions(ctx context.Context, filter model.SubmissionFilter, limit, offset int) ([]model.Submission, int, error)
	FastestAccepted(ctx context.Context, problemID string, limit int) ([]model.Submission, error)

	// Aggregates feeding the ranking job.
	ProblemStats(ctx context.Context, problemID string) ([]model.AcceptedStat, error)
	GlobalStats(ctx context.Context) ([]model.AcceptedStat, error)
	ProblemIDsWithSubmissions(ctx context.Context) ([]string, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, language, code, status)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := pick(r.db, tx).ExecContext(ctx, query,
		sub.ID, sub.UserID, sub.ProblemID, sub.Language, sub.Code, sub.Status)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.language, s.code, s.status,
	                 s.execution_time_ms, s.memory_usage_mb, s.error_message, s.score, s.test_results, s.created_at,
	                 u.name, p.slug, p.title
	          FROM submissions s
	          JOIN users u ON u.id = s.user_id
	          JOIN problems p ON p.id = s.problem_id
	          WHERE s.id = $1`
	sub := &model.Submission{}
	var testResults []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.Language, &sub.Code, &sub.Status,
		&sub.ExecutionTimeMs, &sub.MemoryUsageMb, &sub.ErrorMessage, &sub.Score, &testResults, &sub.CreatedAt,
		&sub.UserName, &sub.ProblemSlug, &sub.ProblemTitle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	if len(testResults) > 0 {
		if err := json.Unmarshal(testResults, &sub.TestResults); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID unmarshal results: %w", err)
		}
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ApplyVerdict(ctx context.Context, tx *sql.Tx, submissionID string, v model.Verdict) error {
	testResults, err := json.Marshal(v.TestResults)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.ApplyVerdict marshal results: %w", err)
	}

	query := `UPDATE submissions SET
	            status = $1, execution_time_ms = $2, memory_usage_mb = $3,
	            error_message = $4, score = $5, test_results = $6
	          WHERE id = $7 AND status = 'pending'`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		v.Status, v.ExecutionTimeMs, v.MemoryUsageMb, v.ErrorMessage, v.Score, testResults, submissionID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.ApplyVerdict: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var status string
		err := pick(r.db, tx).QueryRowContext(ctx, `SELECT status FROM submissions WHERE id = $1`, submissionID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.ApplyVerdict status check: %w", err)
		}
		return fmt.Errorf("submission %s has status %q: %w", submissionID, status, common.ErrAlreadyJudged)
	}
	return nil
}

func (r *pgSubmissionRepository) ListSubmissions(ctx context.Context, f model.SubmissionFilter, limit, offset int) ([]model.Submission, int, error) {
	var conditions []string
	var args []interface{}
	argID := 1

	// Condition order matches the (user_id, problem_id, status) index.
	if f.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("s.user_id = $%d", argID))
		args = append(args, f.UserID)
		argID++
	}
	if f.ProblemID != "" {
		conditions = append(conditions, fmt.Sprintf("s.problem_id = $%d", argID))
		args = append(args, f.ProblemID)
		argID++
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", argID))
		args = append(args, f.Status)
		argID++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions s`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions count: %w", err)
	}

	query := `SELECT s.id, s.user_id, s.problem_id, s.language, s.status,
	                 s.execution_time_ms, s.memory_usage_mb, s.score, s.created_at,
	                 u.name, p.slug, p.title
	          FROM submissions s
	          JOIN users u ON u.id = s.user_id
	          JOIN problems p ON p.id = s.problem_id` + whereClause +
		fmt.Sprintf(" ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.Status,
			&s.ExecutionTimeMs, &s.MemoryUsageMb, &s.Score, &s.CreatedAt,
			&s.UserName, &s.ProblemSlug, &s.ProblemTitle,
		); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, total, rows.Err()
}

func (r *pgSubmissionRepository) FastestAccepted(ctx context.Context, problemID string, limit int) ([]model.Submission, error) {
	// Served by idx_submissions_problem_status_time.
	query := `SELECT s.id, s.user_id, s.problem_id, s.language, s.status,
	                 s.execution_time_ms, s.memory_usage_mb, s.score, s.created_at, u.name
	          FROM submissions s
	          JOIN users u ON u.id = s.user_id
	          WHERE s.problem_id = $1 AND s.status = 'accepted' AND s.execution_time_ms IS NOT NULL
	          ORDER BY s.execution_time_ms ASC, s.created_at ASC
	          LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, problemID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.FastestAccepted: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.ProblemID, &s.Language, &s.Status,
			&s.ExecutionTimeMs, &s.MemoryUsageMb, &s.Score, &s.CreatedAt, &s.UserName,
		); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.FastestAccepted scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *pgSubmissionRepository) ProblemStats(ctx context.Context, problemID string) ([]model.AcceptedStat, error) {
	query := `SELECT s.user_id, u.name,
	                 COUNT(*) AS attempts,
	                 MAX(s.score) FILTER (WHERE s.status = 'accepted') AS best_score,
	                 MIN(s.execution_time_ms) FILTER (WHERE s.status = 'accepted') AS best_time_ms,
	                 MIN(s.created_at) FILTER (WHERE s.status = 'accepted') AS first_accepted_at
	          FROM submissions s
	          JOIN users u ON u.id = s.user_id
	          WHERE s.problem_id = $1
	          GROUP BY s.user_id, u.name
	          HAVING COUNT(*) FILTER (WHERE s.status = 'accepted') > 0`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ProblemStats: %w", err)
	}
	defer rows.Close()

	var stats []model.AcceptedStat
	for rows.Next() {
		var st model.AcceptedStat
		if err := rows.Scan(&st.UserID, &st.UserName, &st.Attempts, &st.BestScore, &st.BestTimeMs, &st.FirstAcceptedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ProblemStats scan: %w", err)
		}
		st.ProblemID = problemID
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (r *pgSubmissionRepository) GlobalStats(ctx context.Context) ([]model.AcceptedStat, error) {
	query := `SELECT b.user_id, b.user_name,
	                 COUNT(*) AS problems_solved,
	                 COALESCE(SUM(b.best_score), 0) AS total_score,
	                 MAX(b.last_accepted_at) AS last_accepted_at
	          FROM (
	              SELECT s.user_id, u.name AS user_name, s.problem_id,
	                     COALESCE(MAX(s.score), 0) AS best_score,
	                     MAX(s.created_at) AS last_accepted_at
	              FROM submissions s
	              JOIN users u ON u.id = s.user_id
	              WHERE s.status = 'accepted'
	              GROUP BY s.user_id, u.name, s.problem_id
	          ) b
	          GROUP BY b.user_id, b.user_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GlobalStats: %w", err)
	}
	defer rows.Close()

	var stats []model.AcceptedStat
	for rows.Next() {
		var st model.AcceptedStat
		if err := rows.Scan(&st.UserID, &st.UserName, &st.ProblemsSolved, &st.TotalScore, &st.LastAcceptedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GlobalStats scan: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (r *pgSubmissionRepository) ProblemIDsWithSubmissions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT problem_id FROM submissions`)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ProblemIDsWithSubmissions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ProblemIDsWithSubmissions scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
