package service

import (
	"context"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SkillService struct {
	skillRepo repository.SkillRepository
	log       *zap.SugaredLogger
}

func NewSkillService(skillRepo repository.SkillRepository) *SkillService {
	return &SkillService{
		skillRepo: skillRepo,
		log:       logger.Named("skill_service"),
	}
}

type CreateSkillCategoryRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	SortOrder int    `json:"sort_order"`
}

type CreateSkillRequest struct {
	CategoryID  string  `json:"category_id" validate:"required"`
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
	Level       int     `json:"level" validate:"required,min=1,max=5"`
	Requirement string  `json:"requirement" validate:"required,oneof=NONE BASIC ADVANCED"`
}

func (s *SkillService) CreateCategory(ctx context.Context, req CreateSkillCategoryRequest) (*model.SkillCategory, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	c := &model.SkillCategory{
		ID:        uuid.NewString(),
		Name:      req.Name,
		SortOrder: req.SortOrder,
	}
	if err := s.skillRepo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SkillService) CreateSkill(ctx context.Context, req CreateSkillRequest) (*model.Skill, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	skill := &model.Skill{
		ID:          uuid.NewString(),
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Level:       req.Level,
		Requirement: model.SkillRequirement(req.Requirement),
	}
	if err := s.skillRepo.CreateSkill(ctx, skill); err != nil {
		return nil, err
	}
	s.log.Infow("skill created", "skill_id", skill.ID, "name", skill.Name)
	return skill, nil
}

// ListCatalog returns all categories with their skills attached, ordered for
// display.
func (s *SkillService) ListCatalog(ctx context.Context) ([]model.SkillCategory, error) {
	categories, err := s.skillRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		skills, err := s.skillRepo.ListSkillsByCategory(ctx, categories[i].ID)
		if err != nil {
			return nil, err
		}
		categories[i].Skills = skills
	}
	return categories, nil
}

// MarkAchieved records that the user reached the skill. Calling it again for
// an already-achieved skill is a no-op that keeps the original achieved_at.
func (s *SkillService) MarkAchieved(ctx context.Context, userID, skillID string) (*model.SkillProgress, error) {
	if _, err := s.skillRepo.FindSkillByID(ctx, skillID); err != nil {
		return nil, fmt.Errorf("skill not found: %w", err)
	}
	progress, changed, err := s.skillRepo.MarkAchieved(ctx, &model.SkillProgress{
		ID:      uuid.NewString(),
		UserID:  userID,
		SkillID: skillID,
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Infow("skill achieved", "user_id", userID, "skill_id", skillID)
	}
	return progress, nil
}

func (s *SkillService) ListProgress(ctx context.Context, userID string) ([]model.SkillProgress, error) {
	return s.skillRepo.ListProgressByUser(ctx, userID)
}
