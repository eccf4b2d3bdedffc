package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/config"
	"github.com/Taka1304/sigza/internal/platform/database"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	orgRepo     repository.OrganizationRepository
	txm         database.TxManager
	log         *zap.SugaredLogger
}

func NewProblemService(
	problemRepo repository.ProblemRepository,
	orgRepo repository.OrganizationRepository,
	txm database.TxManager,
) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		orgRepo:     orgRepo,
		txm:         txm,
		log:         logger.Named("problem_service"),
	}
}

type TestCaseInput struct {
	Input          string `json:"input" validate:"required"`
	ExpectedOutput string `json:"expected_output" validate:"required"`
	IsExample      bool   `json:"is_example"`
	IsHidden       bool   `json:"is_hidden"`
}

type SampleCodeInput struct {
	Language string `json:"language" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

type CreateProblemRequest struct {
	OrganizationID  string            `json:"organization_id" validate:"required"`
	Title           string            `json:"title" validate:"required,min=1,max=128"`
	Slug            string            `json:"slug,omitempty"`
	DifficultyLevel int               `json:"difficulty_level" validate:"required,min=1,max=5"`
	Content         json.RawMessage   `json:"content" validate:"required"`
	Constraints     json.RawMessage   `json:"constraints,omitempty"`
	TimeLimitMs     int               `json:"time_limit_ms" validate:"omitempty,min=100,max=60000"`
	MemoryLimitMb   int               `json:"memory_limit_mb" validate:"omitempty,min=16,max=4096"`
	IsPublic        bool              `json:"is_public"`
	Tags            []string          `json:"tags,omitempty"`
	TestCases       []TestCaseInput   `json:"test_cases"`
	SampleCodes     []SampleCodeInput `json:"sample_codes,omitempty"`
}

type ReviseProblemRequest struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,min=1,max=128"`
	DifficultyLevel *int             `json:"difficulty_level,omitempty" validate:"omitempty,min=1,max=5"`
	Content         json.RawMessage  `json:"content,omitempty"`
	Constraints     json.RawMessage  `json:"constraints,omitempty"`
	TimeLimitMs     *int             `json:"time_limit_ms,omitempty" validate:"omitempty,min=100,max=60000"`
	MemoryLimitMb   *int             `json:"memory_limit_mb,omitempty" validate:"omitempty,min=16,max=4096"`
	IsPublic        *bool            `json:"is_public,omitempty"`
	IsArchived      *bool            `json:"is_archived,omitempty"`
	Tags            *[]string        `json:"tags,omitempty"`
	TestCases       *[]TestCaseInput `json:"test_cases,omitempty"`
}

// CreateProblem authors a problem inside an organization. The actor must be a
// member (or system admin). Slug uniqueness is global across organizations
// and enforced only by the database constraint; a collision comes back as
// ErrDuplicateSlug. A problem cannot be created public without at least one
// test case.
func (s *ProblemService) CreateProblem(ctx context.Context, actorID string, actorRole model.SystemRole, req CreateProblemRequest) (*model.Problem, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, actorID, req.OrganizationID, actorRole); err != nil {
		return nil, err
	}
	if req.IsPublic && len(req.TestCases) == 0 {
		return nil, fmt.Errorf("cannot publish without test cases: %w", common.ErrIncompleteProblem)
	}

	problemSlug := req.Slug
	if problemSlug == "" {
		problemSlug = slug.Make(req.Title)
	}

	problem := &model.Problem{
		ID:              uuid.NewString(),
		OrganizationID:  req.OrganizationID,
		Slug:            problemSlug,
		Title:           req.Title,
		Version:         1,
		DifficultyLevel: req.DifficultyLevel,
		Content:         req.Content,
		Constraints:     req.Constraints,
		TimeLimitMs:     req.TimeLimitMs,
		MemoryLimitMb:   req.MemoryLimitMb,
		IsPublic:        req.IsPublic,
		CreatedByID:     &actorID,
		UpdatedByID:     &actorID,
	}
	if problem.TimeLimitMs == 0 {
		problem.TimeLimitMs = config.AppConfig.DefaultTimeLimitMs
	}
	if problem.MemoryLimitMb == 0 {
		problem.MemoryLimitMb = config.AppConfig.DefaultMemoryLimitMb
	}

	err := s.txm.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
			return err
		}
		testCases := buildTestCases(problem.ID, req.TestCases)
		if err := s.problemRepo.AddTestCases(ctx, tx, problem.ID, testCases); err != nil {
			return err
		}
		problem.TestCases = testCases

		for _, sc := range req.SampleCodes {
			sample := &model.SampleCode{
				ID:        uuid.NewString(),
				ProblemID: problem.ID,
				Language:  sc.Language,
				Code:      sc.Code,
			}
			if err := s.problemRepo.UpsertSampleCode(ctx, tx, sample); err != nil {
				return err
			}
			problem.SampleCodes = append(problem.SampleCodes, *sample)
		}

		tagIDs, tags, err := s.findOrCreateTags(ctx, tx, req.Tags)
		if err != nil {
			return err
		}
		if len(tagIDs) > 0 {
			if err := s.problemRepo.AddTagsToProblem(ctx, tx, problem.ID, tagIDs); err != nil {
				return err
			}
		}
		problem.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("problem created", "problem_id", problem.ID, "slug", problem.Slug, "organization_id", req.OrganizationID)
	return problem, nil
}

// ReviseProblem applies a content edit: version is bumped, updated_by is
// recorded, and historical submissions stay bound to the problem id no matter
// how far the content drifts from what they were judged against.
func (s *ProblemService) ReviseProblem(ctx context.Context, problemID, editorID string, actorRole model.SystemRole, req ReviseProblemRequest) (*model.Problem, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMembership(ctx, editorID, problem.OrganizationID, actorRole); err != nil {
		return nil, err
	}

	if req.Title != nil {
		problem.Title = *req.Title
	}
	if req.DifficultyLevel != nil {
		problem.DifficultyLevel = *req.DifficultyLevel
	}
	if req.Content != nil {
		problem.Content = req.Content
	}
	if req.Constraints != nil {
		problem.Constraints = req.Constraints
	}
	if req.TimeLimitMs != nil {
		problem.TimeLimitMs = *req.TimeLimitMs
	}
	if req.MemoryLimitMb != nil {
		problem.MemoryLimitMb = *req.MemoryLimitMb
	}
	if req.IsPublic != nil {
		problem.IsPublic = *req.IsPublic
	}
	if req.IsArchived != nil {
		problem.IsArchived = *req.IsArchived
	}

	err = s.txm.RunInTx(ctx, func(tx *sql.Tx) error {
		if req.TestCases != nil {
			if len(*req.TestCases) == 0 && problem.IsPublic {
				return fmt.Errorf("public problem needs at least one test case: %w", common.ErrIncompleteProblem)
			}
			if err := s.problemRepo.DeleteTestCases(ctx, tx, problem.ID); err != nil {
				return err
			}
			if err := s.problemRepo.AddTestCases(ctx, tx, problem.ID, buildTestCases(problem.ID, *req.TestCases)); err != nil {
				return err
			}
		} else if problem.IsPublic {
			n, err := s.problemRepo.CountTestCases(ctx, problem.ID)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("cannot publish without test cases: %w", common.ErrIncompleteProblem)
			}
		}

		if req.Tags != nil {
			if err := s.problemRepo.ClearProblemTags(ctx, tx, problem.ID); err != nil {
				return err
			}
			tagIDs, tags, err := s.findOrCreateTags(ctx, tx, *req.Tags)
			if err != nil {
				return err
			}
			if len(tagIDs) > 0 {
				if err := s.problemRepo.AddTagsToProblem(ctx, tx, problem.ID, tagIDs); err != nil {
					return err
				}
			}
			problem.Tags = tags
		}

		problem.Version++
		problem.UpdatedByID = &editorID
		return s.problemRepo.UpdateProblem(ctx, tx, problem)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("problem revised", "problem_id", problem.ID, "version", problem.Version, "editor_id", editorID)
	return problem, nil
}

// GetProblem resolves by slug and applies the visibility rule: public, or the
// requester belongs to the owning organization, or the requester is a system
// admin. Archived problems stay addressable here; only listings exclude them.
func (s *ProblemService) GetProblem(ctx context.Context, problemSlug, actorID string, actorRole model.SystemRole) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemBySlug(ctx, problemSlug)
	if err != nil {
		return nil, err
	}

	visible, err := s.canView(ctx, problem, actorID, actorRole)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, common.ErrNotFound // Hide existence from outsiders
	}

	testCases, err := s.problemRepo.GetTestCases(ctx, problem.ID)
	if err != nil {
		s.log.Warnw("failed to fetch test cases", "problem_id", problem.ID, "error", err)
	}
	isAdmin := actorRole == model.RoleSystemAdmin
	isMember := false
	if !isAdmin && actorID != "" {
		if m, err := s.orgRepo.IsMember(ctx, actorID, problem.OrganizationID); err == nil {
			isMember = m
		}
	}
	problem.TestCases = FilterTestCases(testCases, isAdmin, isMember)

	if sampleCodes, err := s.problemRepo.GetSampleCodes(ctx, problem.ID); err == nil {
		problem.SampleCodes = sampleCodes
	}
	if tags, err := s.problemRepo.GetTagsByProblemID(ctx, problem.ID); err == nil {
		problem.Tags = tags
	}
	return problem, nil
}

type ListProblemsQuery struct {
	Page            int
	PageSize        int
	OrganizationID  string
	DifficultyLevel int
	TagIDs          []string
	SearchTerm      string
	IncludeArchived bool
}

func (s *ProblemService) ListProblems(ctx context.Context, actorID string, actorRole model.SystemRole, q ListProblemsQuery) ([]model.Problem, int, error) {
	offset := (q.Page - 1) * q.PageSize
	if offset < 0 {
		offset = 0
	}

	filter := repository.ProblemListFilter{
		OrganizationID:  q.OrganizationID,
		DifficultyLevel: q.DifficultyLevel,
		TagIDs:          q.TagIDs,
		SearchTerm:      q.SearchTerm,
		IncludeArchived: q.IncludeArchived && actorRole == model.RoleSystemAdmin,
	}
	if actorRole != model.RoleSystemAdmin {
		memberOrgIDs, err := s.orgRepo.OrgIDsForUser(ctx, actorID)
		if err != nil {
			return nil, 0, err
		}
		if memberOrgIDs == nil {
			memberOrgIDs = []string{}
		}
		filter.VisibleToOrgIDs = memberOrgIDs
	}

	return s.problemRepo.ListProblems(ctx, q.PageSize, offset, filter)
}

// ReconcileCounters recomputes submit_count/accept_count from the submission
// table, correcting drift from out-of-band writes.
func (s *ProblemService) ReconcileCounters(ctx context.Context, problemID string) error {
	return s.problemRepo.RecomputeCounters(ctx, problemID)
}

func (s *ProblemService) canView(ctx context.Context, problem *model.Problem, actorID string, actorRole model.SystemRole) (bool, error) {
	if problem.IsPublic || actorRole == model.RoleSystemAdmin {
		return true, nil
	}
	if actorID == "" {
		return false, nil
	}
	return s.orgRepo.IsMember(ctx, actorID, problem.OrganizationID)
}

func (s *ProblemService) requireMembership(ctx context.Context, actorID, organizationID string, actorRole model.SystemRole) error {
	if actorRole == model.RoleSystemAdmin {
		return nil
	}
	ok, err := s.orgRepo.IsMember(ctx, actorID, organizationID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrForbidden
	}
	return nil
}

func (s *ProblemService) findOrCreateTags(ctx context.Context, tx *sql.Tx, names []string) ([]string, []model.Tag, error) {
	if len(names) == 0 {
		return nil, nil, nil
	}
	var ids []string
	var tags []model.Tag
	for _, name := range names {
		tag, err := s.problemRepo.FindOrCreateTag(ctx, tx, &model.Tag{
			ID:   uuid.NewString(),
			Name: name,
			Slug: slug.Make(name),
		})
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, tag.ID)
		tags = append(tags, *tag)
	}
	return ids, tags, nil
}

func buildTestCases(problemID string, inputs []TestCaseInput) []model.TestCase {
	testCases := make([]model.TestCase, 0, len(inputs))
	for i, in := range inputs {
		testCases = append(testCases, model.TestCase{
			ID:             uuid.NewString(),
			ProblemID:      problemID,
			Input:          in.Input,
			ExpectedOutput: in.ExpectedOutput,
			IsExample:      in.IsExample,
			IsHidden:       in.IsHidden,
			SortOrder:      i + 1,
		})
	}
	return testCases
}

// FilterTestCases strips hidden cases for non-admin viewers. Members of the
// owning organization see every non-hidden case; outside viewers only see the
// examples.
func FilterTestCases(testCases []model.TestCase, isAdmin, isOrgMember bool) []model.TestCase {
	if isAdmin {
		return testCases
	}
	visible := make([]model.TestCase, 0, len(testCases))
	for _, tc := range testCases {
		if tc.IsHidden {
			continue
		}
		if isOrgMember || tc.IsExample {
			visible = append(visible, tc)
		}
	}
	return visible
}
