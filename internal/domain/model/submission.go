package model

import "time"

// Submission statuses form an open set: the judge may introduce new verdict
// kinds without a migration, so unknown values pass through untouched.
const (
	StatusPending             = "pending"
	StatusAccepted            = "accepted"
	StatusWrongAnswer         = "wrong_answer"
	StatusTimeLimitExceeded   = "time_limit_exceeded"
	StatusMemoryLimitExceeded = "memory_limit_exceeded"
	StatusRuntimeError        = "runtime_error"
	StatusCompileError        = "compile_error"
	StatusSystemError         = "system_error"
)

type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	Language        string           `json:"language"`
	Code            string           `json:"code"`
	Status          string           `json:"status"`
	ExecutionTimeMs *int             `json:"execution_time_ms,omitempty"`
	MemoryUsageMb   *float64         `json:"memory_usage_mb,omitempty"`
	ErrorMessage    *string          `json:"error_message,omitempty"`
	Score           *float64         `json:"score,omitempty"`
	TestResults     []TestCaseResult `json:"test_results,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`

	UserName     *string `json:"user_name,omitempty"`     // For display
	ProblemSlug  *string `json:"problem_slug,omitempty"`  // For display
	ProblemTitle *string `json:"problem_title,omitempty"` // For display
}

// TestCaseResult is one per-test-case outcome inside a verdict.
type TestCaseResult struct {
	TestCaseID      string   `json:"test_case_id"`
	Status          string   `json:"status"`
	ExecutionTimeMs *int     `json:"execution_time_ms,omitempty"`
	MemoryUsageMb   *float64 `json:"memory_usage_mb,omitempty"`
	ActualOutput    *string  `json:"actual_output,omitempty"`
}

// Verdict is the terminal outcome delivered by the external judge, applied to
// a pending submission exactly once.
type Verdict struct {
	Status          string           `json:"status"`
	ExecutionTimeMs *int             `json:"execution_time_ms,omitempty"`
	MemoryUsageMb   *float64         `json:"memory_usage_mb,omitempty"`
	ErrorMessage    *string          `json:"error_message,omitempty"`
	Score           *float64         `json:"score,omitempty"`
	TestResults     []TestCaseResult `json:"test_results"`
}

// IsTerminal reports whether a status ends the judging lifecycle. Anything
// other than pending is terminal, including judge-defined statuses we have
// never seen.
func IsTerminal(status string) bool {
	return status != "" && status != StatusPending
}

type SubmissionFilter struct {
	UserID    string
	ProblemID string
	Status    string
}
