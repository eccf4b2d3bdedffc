package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/config"
	"github.com/Taka1304/sigza/internal/platform/database"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JudgeDispatcher hands a pending submission to the external judge. The
// production implementation pushes onto a Redis list the judge consumes.
type JudgeDispatcher interface {
	Dispatch(ctx context.Context, submissionID string) error
}

type redisJudgeDispatcher struct {
	rdb *redis.Client
}

func NewRedisJudgeDispatcher(rdb *redis.Client) JudgeDispatcher {
	return &redisJudgeDispatcher{rdb: rdb}
}

func (d *redisJudgeDispatcher) Dispatch(ctx context.Context, submissionID string) error {
	return d.rdb.LPush(ctx, config.AppConfig.JudgeQueueName, submissionID).Err()
}

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	orgRepo        repository.OrganizationRepository
	auxRepo        repository.AuxiliaryRepository
	dispatcher     JudgeDispatcher
	txm            database.TxManager
	log            *zap.SugaredLogger
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	problemRepo repository.ProblemRepository,
	orgRepo repository.OrganizationRepository,
	auxRepo repository.AuxiliaryRepository,
	dispatcher JudgeDispatcher,
	txm database.TxManager,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		problemRepo:    problemRepo,
		orgRepo:        orgRepo,
		auxRepo:        auxRepo,
		dispatcher:     dispatcher,
		txm:            txm,
		log:            logger.Named("submission_service"),
	}
}

type RecordSubmissionRequest struct {
	ProblemID string `json:"problem_id" validate:"required"`
	Language  string `json:"language" validate:"required"`
	Code      string `json:"code" validate:"required"`
}

// RecordSubmission persists a pending submission and hands it to the judge
// queue. The id is returned immediately; judging is asynchronous and the
// verdict arrives later through ApplyVerdict.
func (s *SubmissionService) RecordSubmission(ctx context.Context, userID string, req RecordSubmissionRequest) (*model.Submission, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if len(req.Code) > config.AppConfig.SubmissionCodeMaxSize {
		return nil, fmt.Errorf("code exceeds %d bytes: %w", config.AppConfig.SubmissionCodeMaxSize, common.ErrBadRequest)
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}
	if !problem.IsPublic {
		ok, err := s.orgRepo.IsMember(ctx, userID, problem.OrganizationID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.ErrForbidden
		}
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: problem.ID,
		Language:  req.Language,
		Code:      req.Code,
		Status:    model.StatusPending,
	}

	if err := s.submissionRepo.CreateSubmission(ctx, nil, submission); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, submission.ID); err != nil {
		// The row stays pending; the judge can pick it up on a requeue sweep.
		s.log.Errorw("failed to dispatch submission to judge queue", "submission_id", submission.ID, "error", err)
		return nil, fmt.Errorf("judge queue unavailable: %w", common.ErrServiceUnavailable)
	}

	s.log.Infow("submission recorded", "submission_id", submission.ID, "problem_id", problem.ID, "user_id", userID)
	return submission, nil
}

// ApplyVerdict performs the one-time pending→terminal transition and the
// counter increments in a single transaction. A second verdict for the same
// submission fails with ErrAlreadyJudged and changes nothing; a failure
// anywhere rolls back both the verdict write and the counter bump.
func (s *SubmissionService) ApplyVerdict(ctx context.Context, submissionID string, verdict model.Verdict) error {
	if !model.IsTerminal(verdict.Status) {
		return fmt.Errorf("verdict status %q is not terminal: %w", verdict.Status, common.ErrBadRequest)
	}

	submission, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return err
	}

	err = s.txm.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.submissionRepo.ApplyVerdict(ctx, tx, submissionID, verdict); err != nil {
			return err
		}
		accepted := verdict.Status == model.StatusAccepted
		return s.problemRepo.IncrementCounters(ctx, tx, submission.ProblemID, accepted)
	})
	if err != nil {
		return err
	}

	s.notifyJudged(ctx, submission, verdict.Status)
	s.log.Infow("verdict applied", "submission_id", submissionID, "status", verdict.Status)
	return nil
}

// notifyJudged is best-effort; a failed notification never fails the verdict.
func (s *SubmissionService) notifyJudged(ctx context.Context, submission *model.Submission, status string) {
	title := "Submission judged"
	if submission.ProblemTitle != nil {
		title = fmt.Sprintf("Submission for %s judged: %s", *submission.ProblemTitle, status)
	}
	link := "/submissions/" + submission.ID
	n := &model.Notification{
		ID:      uuid.NewString(),
		UserID:  submission.UserID,
		Kind:    "submission_judged",
		Title:   title,
		Body:    "Your submission received the verdict: " + status,
		LinkURL: &link,
	}
	if err := s.auxRepo.CreateNotification(ctx, nil, n); err != nil {
		s.log.Warnw("failed to create verdict notification", "submission_id", submission.ID, "error", err)
	}
}

func (s *SubmissionService) GetSubmission(ctx context.Context, submissionID, actorID string, actorRole model.SystemRole) (*model.Submission, error) {
	submission, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID != actorID && actorRole != model.RoleSystemAdmin {
		// Other users may see metadata through listings but not the code.
		submission.Code = ""
	}
	return submission, nil
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, filter model.SubmissionFilter, page, pageSize int) ([]model.Submission, int, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.submissionRepo.ListSubmissions(ctx, filter, pageSize, offset)
}

// FastestAccepted serves the per-problem "fastest accepted solutions" board
// straight from the (problem_id, status, execution_time) index.
func (s *SubmissionService) FastestAccepted(ctx context.Context, problemID string, limit int) ([]model.Submission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.submissionRepo.FastestAccepted(ctx, problemID, limit)
}
