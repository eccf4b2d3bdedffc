package model_test

import (
	"testing"

	"github.com/Taka1304/sigza/internal/domain/model"
)

func TestIsTerminal(t *testing.T) {
	if model.IsTerminal(model.StatusPending) {
		t.Fatalf("pending must not be terminal")
	}
	if model.IsTerminal("") {
		t.Fatalf("empty status must not be terminal")
	}
	for _, status := range []string{
		model.StatusAccepted,
		model.StatusWrongAnswer,
		model.StatusTimeLimitExceeded,
		model.StatusMemoryLimitExceeded,
		model.StatusRuntimeError,
		model.StatusCompileError,
		model.StatusSystemError,
		"judge_defined_future_status",
	} {
		if !model.IsTerminal(status) {
			t.Fatalf("%q should be terminal", status)
		}
	}
}
