package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RankingService struct {
	rankingRepo    repository.RankingRepository
	submissionRepo repository.SubmissionRepository
	log            *zap.SugaredLogger
}

func NewRankingService(rankingRepo repository.RankingRepository, submissionRepo repository.SubmissionRepository) *RankingService {
	return &RankingService{
		rankingRepo:    rankingRepo,
		submissionRepo: submissionRepo,
		log:            logger.Named("ranking_service"),
	}
}

// SnapshotProblem recomputes the ranking for one problem and appends it as a
// new snapshot. Existing snapshots are never touched.
func (s *RankingService) SnapshotProblem(ctx context.Context, problemID string) error {
	stats, err := s.submissionRepo.ProblemStats(ctx, problemID)
	if err != nil {
		return err
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		as, bs := scoreOf(a.BestScore), scoreOf(b.BestScore)
		if as != bs {
			return as > bs
		}
		at, bt := timeOf(a.BestTimeMs), timeOf(b.BestTimeMs)
		if at != bt {
			return at < bt
		}
		return a.FirstAcceptedAt.Before(b.FirstAcceptedAt)
	})

	entries := make([]model.ProblemRankingEntry, 0, len(stats))
	for i, st := range stats {
		entries = append(entries, model.ProblemRankingEntry{
			Rank:            i + 1,
			UserID:          st.UserID,
			UserName:        st.UserName,
			BestScore:       st.BestScore,
			BestTimeMs:      st.BestTimeMs,
			Attempts:        st.Attempts,
			FirstAcceptedAt: st.FirstAcceptedAt,
		})
	}

	return s.appendSnapshot(ctx, model.RankingTypeProblem, &problemID, entries)
}

// SnapshotGlobal recomputes the cross-problem ranking and appends it.
func (s *RankingService) SnapshotGlobal(ctx context.Context) error {
	stats, err := s.submissionRepo.GlobalStats(ctx)
	if err != nil {
		return err
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.ProblemsSolved != b.ProblemsSolved {
			return a.ProblemsSolved > b.ProblemsSolved
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.LastAcceptedAt.Before(b.LastAcceptedAt)
	})

	entries := make([]model.GlobalRankingEntry, 0, len(stats))
	for i, st := range stats {
		entries = append(entries, model.GlobalRankingEntry{
			Rank:           i + 1,
			UserID:         st.UserID,
			UserName:       st.UserName,
			ProblemsSolved: st.ProblemsSolved,
			TotalScore:     st.TotalScore,
			LastAcceptedAt: st.LastAcceptedAt,
		})
	}

	return s.appendSnapshot(ctx, model.RankingTypeGlobal, nil, entries)
}

func (s *RankingService) appendSnapshot(ctx context.Context, rankingType model.RankingType, targetID *string, entries any) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal ranking payload: %w", err)
	}
	snapshot := &model.RankingSnapshot{
		ID:       uuid.NewString(),
		Type:     rankingType,
		TargetID: targetID,
		Data:     data,
	}
	if err := s.rankingRepo.Append(ctx, snapshot); err != nil {
		return err
	}
	s.log.Infow("ranking snapshot appended", "type", rankingType, "target_id", targetID)
	return nil
}

// CurrentRanking returns the newest snapshot for the given scope, or
// ErrNotFound when no job has run for it yet.
func (s *RankingService) CurrentRanking(ctx context.Context, rankingType model.RankingType, targetID *string) (*model.RankingSnapshot, error) {
	if rankingType != model.RankingTypeProblem && rankingType != model.RankingTypeGlobal {
		return nil, fmt.Errorf("unknown ranking type %q: %w", rankingType, common.ErrBadRequest)
	}
	if rankingType == model.RankingTypeProblem && targetID == nil {
		return nil, fmt.Errorf("problem ranking requires a problem id: %w", common.ErrBadRequest)
	}
	return s.rankingRepo.Latest(ctx, rankingType, targetID)
}

func (s *RankingService) RankingHistory(ctx context.Context, rankingType model.RankingType, targetID *string, limit int) ([]model.RankingSnapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.rankingRepo.History(ctx, rankingType, targetID, limit)
}

func scoreOf(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func timeOf(p *int) int {
	if p == nil {
		return 1 << 30
	}
	return *p
}
