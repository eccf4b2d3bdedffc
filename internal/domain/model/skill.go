package model

import "time"

type SkillRequirement string

const (
	SkillRequirementNone     SkillRequirement = "NONE"
	SkillRequirementBasic    SkillRequirement = "BASIC"
	SkillRequirementAdvanced SkillRequirement = "ADVANCED"
)

type SkillCategory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`

	Skills []Skill `json:"skills,omitempty"`
}

type Skill struct {
	ID          string           `json:"id"`
	CategoryID  string           `json:"category_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Level       int              `json:"level"`
	Requirement SkillRequirement `json:"requirement"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SkillProgress is unique per (user_id, skill_id). Achievement is monotonic:
// is_achieved only ever flips false to true, and achieved_at is stamped at
// that transition and never cleared.
type SkillProgress struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	SkillID    string     `json:"skill_id"`
	IsAchieved bool       `json:"is_achieved"`
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	SkillName  *string `json:"skill_name,omitempty"`  // For display
	SkillLevel *int    `json:"skill_level,omitempty"` // For display
}
