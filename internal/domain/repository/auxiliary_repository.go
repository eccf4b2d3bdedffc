package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
)

// AuxiliaryRepository covers the peripheral entities: notifications,
// announcements, system settings and external learning logs.
type AuxiliaryRepository interface {
	CreateNotification(ctx context.Context, tx *sql.Tx, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	CountUnread(ctx context.Context, userID string) (int, error)

	CreateAnnouncement(ctx context.Context, a *model.Announcement) error
	ListActiveAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error)

	GetSetting(ctx context.Context, key string) (*model.SystemSetting, error)
	SetSetting(ctx context.Context, setting *model.SystemSetting) error

	CreateExternalLearning(ctx context.Context, tx *sql.Tx, el *model.ExternalLearning) error
	AddAttachments(ctx context.Context, tx *sql.Tx, attachments []model.ExternalLearningAttachment) error
	AddTags(ctx context.Context, tx *sql.Tx, externalLearningID string, tagIDs []string) error
	ListExternalLearnings(ctx context.Context, userID string, limit, offset int) ([]model.ExternalLearning, error)
}

type pgAuxiliaryRepository struct {
	db *sql.DB
}

func NewPgAuxiliaryRepository(db *sql.DB) AuxiliaryRepository {
	return &pgAuxiliaryRepository{db: db}
}

func (r *pgAuxiliaryRepository) CreateNotification(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	query := `INSERT INTO notifications (id, user_id, kind, title, body, link_url) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.LinkURL); err != nil {
		return fmt.Errorf("pgAuxiliaryRepository.CreateNotification: %w", err)
	}
	return nil
}

func (r *pgAuxiliaryRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]model.Notification, error) {
	query := `SELECT id, user_id, kind, title, body, link_url, is_read, created_at
	          FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgAuxiliaryRepository.ListNotifications: %w", err)
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.LinkURL, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgAuxiliaryRepository.ListNotifications scan: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *pgAuxiliaryRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("pgAuxiliaryRepository.MarkRead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgAuxiliaryRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgAuxiliaryRepository.CountUnread: %w", err)
	}
	return n, nil
}

func (r *pgAuxiliaryRepository) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	query := `INSERT INTO announcements (id, title, body, published_at, expires_at, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, a.ID, a.Title, a.Body, a.PublishedAt, a.ExpiresAt, a.CreatedByID); err != nil {
		return fmt.Errorf("pgAuxiliaryRepository.CreateAnnouncement: %w", err)
	}
	return nil
}

func (r *pgAuxiliaryRepository) ListActiveAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	query := `SELECT id, title, body, published_at, expires_at, created_by, created_at
	          FROM announcements
	          WHERE published_at <= CURRENT_TIMESTAMP
	            AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	          ORDER BY published_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgAuxiliaryRepository.ListActiveAnnouncements: %w", err)
	}
	defer rows.Close()

	announcements := []model.Announcement{}
	for rows.Next() {
		var a model.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.PublishedAt, &a.ExpiresAt, &a.CreatedByID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgAuxiliaryRepository.ListActiveAnnouncements scan: %w", err)
		}
		announcements = append(announcements, a)
	}
	return announcements, rows.Err()
}

func (r *pgAuxiliaryRepository) GetSetting(ctx context.Context, key string) (*model.SystemSetting, error) {
	query := `SELECT key, value, updated_at FROM system_settings WHERE key = $1`
	s := &model.SystemSetting{}
	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&s.Key, &value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAuxiliaryRepository.GetSetting: %w", err)
	}
	s.Value = value
	return s, nil
}

func (r *pgAuxiliaryRepository) SetSetting(ctx context.Context, s *model.SystemSetting) error {
	query := `INSERT INTO system_settings (key, value) VALUES ($1, $2)
	          ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, s.Key, []byte(s.Value)); err != nil {
		return fmt.Errorf("pgAuxiliaryRepository.SetSetting: %w", err)
	}
	return nil
}

func (r *pgAuxiliaryRepository) CreateExternalLearning(ctx context.Context, tx *sql.Tx, el *model.ExternalLearning) error {
	query := `INSERT INTO external_learnings (id, user_id, title, description, learned_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, el.ID, el.UserID, el.Title, el.Description, el.LearnedAt); err != nil {
		return fmt.Errorf("pgAuxiliaryRepository.CreateExternalLearning: %w", err)
	}
	return nil
}

func (r *pgAuxiliaryRepository) AddAttachments(ctx context.Context, tx *sql.Tx, attachments []model.ExternalLearningAttachment) error {
	query := `INSERT INTO external_learning_attachments (id, external_learning_id, file_name, file_url)
	          VALUES ($1, $2, $3, $4)`
	for _, a := range attachments {
		if _, err := pick(r.db, tx).ExecContext(ctx, query, a.ID, a.ExternalLearningID, a.FileName, a.FileURL); err != nil {
			return fmt.Errorf("pgAuxiliaryRepository.AddAttachments: %w", err)
		}
	}
	return nil
}

func (r *pgAuxiliaryRepository) AddTags(ctx context.Context, tx *sql.Tx, externalLearningID string, tagIDs []string) error {
	query := `INSERT INTO external_learning_tags (external_learning_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, tagID := range tagIDs {
		if _, err := pick(r.db, tx).ExecContext(ctx, query, externalLearningID, tagID); err != nil {
			return fmt.Errorf("pgAuxiliaryRepository.AddTags: %w", err)
		}
	}
	return nil
}

func (r *pgAuxiliaryRepository) ListExternalLearnings(ctx context.Context, userID string, limit, offset int) ([]model.ExternalLearning, error) {
	query := `SELECT id, user_id, title, description, learned_at, created_at
	          FROM external_learnings WHERE user_id = $1
	          ORDER BY learned_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgAuxiliaryRepository.ListExternalLearnings: %w", err)
	}
	defer rows.Close()

	records := []model.ExternalLearning{}
	for rows.Next() {
		var el model.ExternalLearning
		if err := rows.Scan(&el.ID, &el.UserID, &el.Title, &el.Description, &el.LearnedAt, &el.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgAuxiliaryRepository.ListExternalLearnings scan: %w", err)
		}
		records = append(records, el)
	}
	return records, rows.Err()
}
