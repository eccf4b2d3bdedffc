package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
)

type RankingRepository interface {
	// Append writes a new snapshot row. Snapshots are never updated or
	// deleted afterwards.
	Append(ctx context.Context, snapshot *model.RankingSnapshot) error
	Latest(ctx context.Context, rankingType model.RankingType, targetID *string) (*model.RankingSnapshot, error)
	History(ctx context.Context, rankingType model.RankingType, targetID *string, limit int) ([]model.RankingSnapshot, error)
}

type pgRankingRepository struct {
	db *sql.DB
}

func NewPgRankingRepository(db *sql.DB) RankingRepository {
	return &pgRankingRepository{db: db}
}

func (r *pgRankingRepository) Append(ctx context.Context, s *model.RankingSnapshot) error {
	query := `INSERT INTO ranking_snapshots (id, type, target_id, data) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Type, s.TargetID, []byte(s.Data)); err != nil {
		return fmt.Errorf("pgRankingRepository.Append: %w", err)
	}
	return nil
}

func (r *pgRankingRepository) Latest(ctx context.Context, rankingType model.RankingType, targetID *string) (*model.RankingSnapshot, error) {
	query := `SELECT id, type, target_id, data, created_at
	          FROM ranking_snapshots
	          WHERE type = $1 AND target_id IS NOT DISTINCT FROM $2
	          ORDER BY created_at DESC
	          LIMIT 1`
	s := &model.RankingSnapshot{}
	var data []byte
	err := r.db.QueryRowContext(ctx, query, rankingType, targetID).Scan(
		&s.ID, &s.Type, &s.TargetID, &data, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgRankingRepository.Latest: %w", err)
	}
	s.Data = data
	return s, nil
}

func (r *pgRankingRepository) History(ctx context.Context, rankingType model.RankingType, targetID *string, limit int) ([]model.RankingSnapshot, error) {
	query := `SELECT id, type, target_id, data, created_at
	          FROM ranking_snapshots
	          WHERE type = $1 AND target_id IS NOT DISTINCT FROM $2
	          ORDER BY created_at DESC
	          LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, rankingType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgRankingRepository.History: %w", err)
	}
	defer rows.Close()

	snapshots := []model.RankingSnapshot{}
	for rows.Next() {
		var s model.RankingSnapshot
		var data []byte
		if err := rows.Scan(&s.ID, &s.Type, &s.TargetID, &data, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgRankingRepository.History scan: %w", err)
		}
		s.Data = data
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
