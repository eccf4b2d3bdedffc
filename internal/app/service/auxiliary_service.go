package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/database"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type AuxiliaryService struct {
	auxRepo     repository.AuxiliaryRepository
	problemRepo repository.ProblemRepository
	txm         database.TxManager
	log         *zap.SugaredLogger
}

func NewAuxiliaryService(auxRepo repository.AuxiliaryRepository, problemRepo repository.ProblemRepository, txm database.TxManager) *AuxiliaryService {
	return &AuxiliaryService{
		auxRepo:     auxRepo,
		problemRepo: problemRepo,
		txm:         txm,
		log:         logger.Named("auxiliary_service"),
	}
}

func (s *AuxiliaryService) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]model.Notification, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.auxRepo.ListNotifications(ctx, userID, unreadOnly, pageSize, offset)
}

func (s *AuxiliaryService) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	return s.auxRepo.MarkRead(ctx, userID, notificationID)
}

func (s *AuxiliaryService) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.auxRepo.CountUnread(ctx, userID)
}

type CreateAnnouncementRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Body        string     `json:"body" validate:"required"`
	PublishedAt *time.Time `json:"published_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (s *AuxiliaryService) CreateAnnouncement(ctx context.Context, authorID string, req CreateAnnouncementRequest) (*model.Announcement, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	publishedAt := time.Now()
	if req.PublishedAt != nil {
		publishedAt = *req.PublishedAt
	}
	a := &model.Announcement{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Body:        req.Body,
		PublishedAt: publishedAt,
		ExpiresAt:   req.ExpiresAt,
		CreatedByID: &authorID,
	}
	if err := s.auxRepo.CreateAnnouncement(ctx, a); err != nil {
		return nil, err
	}
	s.log.Infow("announcement created", "announcement_id", a.ID)
	return a, nil
}

func (s *AuxiliaryService) ListActiveAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.auxRepo.ListActiveAnnouncements(ctx, limit)
}

func (s *AuxiliaryService) GetSetting(ctx context.Context, key string) (*model.SystemSetting, error) {
	return s.auxRepo.GetSetting(ctx, key)
}

func (s *AuxiliaryService) SetSetting(ctx context.Context, key string, value json.RawMessage) (*model.SystemSetting, error) {
	setting := &model.SystemSetting{Key: key, Value: value}
	if err := s.auxRepo.SetSetting(ctx, setting); err != nil {
		return nil, err
	}
	return setting, nil
}

type AttachmentInput struct {
	FileName string `json:"file_name" validate:"required"`
	FileURL  string `json:"file_url" validate:"required,url"`
}

type LogExternalLearningRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description *string           `json:"description"`
	LearnedAt   time.Time         `json:"learned_at" validate:"required"`
	Attachments []AttachmentInput `json:"attachments" validate:"dive"`
	TagNames    []string          `json:"tag_names"`
}

// LogExternalLearning records an out-of-platform study entry with its
// attachments and tags in one transaction.
func (s *AuxiliaryService) LogExternalLearning(ctx context.Context, userID string, req LogExternalLearningRequest) (*model.ExternalLearning, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	el := &model.ExternalLearning{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		LearnedAt:   req.LearnedAt,
	}
	attachments := make([]model.ExternalLearningAttachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, model.ExternalLearningAttachment{
			ID:                 uuid.NewString(),
			ExternalLearningID: el.ID,
			FileName:           a.FileName,
			FileURL:            a.FileURL,
		})
	}

	err := s.txm.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.auxRepo.CreateExternalLearning(ctx, tx, el); err != nil {
			return err
		}
		if len(attachments) > 0 {
			if err := s.auxRepo.AddAttachments(ctx, tx, attachments); err != nil {
				return err
			}
		}
		if len(req.TagNames) == 0 {
			return nil
		}
		tagIDs := make([]string, 0, len(req.TagNames))
		for _, name := range req.TagNames {
			tag, err := s.problemRepo.FindOrCreateTag(ctx, tx, &model.Tag{
				ID:   uuid.NewString(),
				Name: name,
				Slug: slug.Make(name),
			})
			if err != nil {
				return err
			}
			tagIDs = append(tagIDs, tag.ID)
		}
		return s.auxRepo.AddTags(ctx, tx, el.ID, tagIDs)
	})
	if err != nil {
		return nil, err
	}

	el.Attachments = attachments
	s.log.Infow("external learning logged", "id", el.ID, "user_id", userID)
	return el, nil
}

func (s *AuxiliaryService) ListExternalLearnings(ctx context.Context, userID string, page, pageSize int) ([]model.ExternalLearning, error) {
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return s.auxRepo.ListExternalLearnings(ctx, userID, pageSize, offset)
}
