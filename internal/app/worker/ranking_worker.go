package worker

import (
	"context"
	"time"

	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/config"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RankingWorker periodically recomputes ranking snapshots. Instances
// coordinate through a Redis SETNX lock so only one runs a pass at a time;
// a crashed holder is released by the lock TTL.
type RankingWorker struct {
	rdb            *redis.Client
	rankingService *service.RankingService
	submissionRepo repository.SubmissionRepository
	log            *zap.SugaredLogger
}

func NewRankingWorker(rdb *redis.Client, rankingService *service.RankingService, submissionRepo repository.SubmissionRepository) *RankingWorker {
	return &RankingWorker{
		rdb:            rdb,
		rankingService: rankingService,
		submissionRepo: submissionRepo,
		log:            logger.Named("ranking_worker"),
	}
}

func (w *RankingWorker) Start(ctx context.Context) {
	w.log.Infow("ranking worker started", "interval", config.AppConfig.RankingInterval)
	ticker := time.NewTicker(config.AppConfig.RankingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("ranking worker stopping")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RankingWorker) runOnce(ctx context.Context) {
	ttl := time.Duration(config.AppConfig.RankingLockTTLSeconds) * time.Second
	ok, err := w.rdb.SetNX(ctx, config.AppConfig.RankingLockKey, "1", ttl).Result()
	if err != nil {
		w.log.Errorw("failed to acquire ranking lock", "error", err)
		return
	}
	if !ok {
		w.log.Debug("ranking lock held elsewhere, skipping pass")
		return
	}
	defer func() {
		if err := w.rdb.Del(context.Background(), config.AppConfig.RankingLockKey).Err(); err != nil {
			w.log.Warnw("failed to release ranking lock", "error", err)
		}
	}()

	start := time.Now()
	problemIDs, err := w.submissionRepo.ProblemIDsWithSubmissions(ctx)
	if err != nil {
		w.log.Errorw("failed to list problems for ranking pass", "error", err)
		return
	}

	var failed int
	for _, id := range problemIDs {
		if err := w.rankingService.SnapshotProblem(ctx, id); err != nil {
			failed++
			w.log.Errorw("problem ranking snapshot failed", "problem_id", id, "error", err)
		}
	}
	if err := w.rankingService.SnapshotGlobal(ctx); err != nil {
		w.log.Errorw("global ranking snapshot failed", "error", err)
	}

	w.log.Infow("ranking pass finished",
		"problems", len(problemIDs),
		"failed", failed,
		"elapsed", time.Since(start),
	)
}
