package model

import (
	"encoding/json"
	"time"
)

type RankingType string

const (
	RankingTypeProblem RankingType = "problem"
	RankingTypeGlobal  RankingType = "global"
)

// RankingSnapshot is a write-once rollup of submission data. Rows are never
// updated or deleted; the newest created_at per (type, target_id) is the
// current ranking and older rows are history.
type RankingSnapshot struct {
	ID        string          `json:"id"`
	Type      RankingType     `json:"type"`
	TargetID  *string         `json:"target_id,omitempty"` // Problem ID for type=problem, nil for global
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProblemRankingEntry is one row of a per-problem ranking payload.
type ProblemRankingEntry struct {
	Rank            int       `json:"rank"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	BestScore       *float64  `json:"best_score,omitempty"`
	BestTimeMs      *int      `json:"best_time_ms,omitempty"`
	Attempts        int       `json:"attempts"`
	FirstAcceptedAt time.Time `json:"first_accepted_at"`
}

// GlobalRankingEntry is one row of the global ranking payload.
type GlobalRankingEntry struct {
	Rank           int       `json:"rank"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	ProblemsSolved int       `json:"problems_solved"`
	TotalScore     float64   `json:"total_score"`
	LastAcceptedAt time.Time `json:"last_accepted_at"`
}

// AcceptedStat is the per-user aggregate the ranking job reads from the
// submission table before ordering it into a payload.
type AcceptedStat struct {
	UserID          string
	UserName        string
	ProblemID       string
	BestScore       *float64
	BestTimeMs      *int
	Attempts        int
	ProblemsSolved  int
	TotalScore      float64
	FirstAcceptedAt time.Time
	LastAcceptedAt  time.Time
}
