package model

import (
	"encoding/json"
	"time"
)

type Problem struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Version         int             `json:"version"`
	DifficultyLevel int             `json:"difficulty_level"` // 1..5
	Content         json.RawMessage `json:"content"`
	Constraints     json.RawMessage `json:"constraints,omitempty"`
	TimeLimitMs     int             `json:"time_limit_ms"`
	MemoryLimitMb   int             `json:"memory_limit_mb"`
	IsPublic        bool            `json:"is_public"`
	IsArchived      bool            `json:"is_archived"`
	SubmitCount     int             `json:"submit_count"`
	AcceptCount     int             `json:"accept_count"`
	CreatedByID     *string         `json:"created_by_id,omitempty"`
	UpdatedByID     *string         `json:"updated_by_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Tags        []Tag        `json:"tags,omitempty"`
	SampleCodes []SampleCode `json:"sample_codes,omitempty"`
	TestCases   []TestCase   `json:"test_cases,omitempty"` // Hidden cases stripped for non-admin views
}

// SampleCode is per-language starter code shown in the editor.
type SampleCode struct {
	ID        string    `json:"id"`
	ProblemID string    `json:"problem_id"`
	Language  string    `json:"language"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TestCase struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problem_id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	IsExample      bool      `json:"is_example"`
	IsHidden       bool      `json:"is_hidden"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
