package model

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"` // e.g. "submission_judged", "announcement"
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	LinkURL   *string   `json:"link_url,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Announcement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	PublishedAt time.Time  `json:"published_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedByID *string    `json:"created_by_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type SystemSetting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ExternalLearning is a user-logged study record from outside the platform.
type ExternalLearning struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	LearnedAt   time.Time `json:"learned_at"`
	CreatedAt   time.Time `json:"created_at"`

	Attachments []ExternalLearningAttachment `json:"attachments,omitempty"`
	Tags        []Tag                        `json:"tags,omitempty"`
}

type ExternalLearningAttachment struct {
	ID                 string    `json:"id"`
	ExternalLearningID string    `json:"external_learning_id"`
	FileName           string    `json:"file_name"`
	FileURL            string    `json:"file_url"`
	CreatedAt          time.Time `json:"created_at"`
}
