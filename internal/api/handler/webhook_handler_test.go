package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Taka1304/sigza/internal/api/handler"
	"github.com/Taka1304/sigza/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

func newWebhookRouter() http.Handler {
	r := chi.NewRouter()
	handler.NewWebhookHandler(nil).RegisterRoutes(r)
	return r
}

func postVerdict(t *testing.T, router http.Handler, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/judge", strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJudgeWebhook_RejectsWhenSecretUnconfigured(t *testing.T) {
	config.AppConfig = &config.Config{JudgeWebhookSecret: ""}
	router := newWebhookRouter()

	if rec := postVerdict(t, router, "", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header against empty secret: got %d, want 401", rec.Code)
	}
	if rec := postVerdict(t, router, "anything", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("any header against empty secret: got %d, want 401", rec.Code)
	}
}

func TestJudgeWebhook_SecretGate(t *testing.T) {
	config.AppConfig = &config.Config{JudgeWebhookSecret: "judge-secret"}
	router := newWebhookRouter()

	if rec := postVerdict(t, router, "wrong", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: got %d, want 401", rec.Code)
	}
	if rec := postVerdict(t, router, "", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: got %d, want 401", rec.Code)
	}

	// Correct secret clears the gate; the empty payload then fails validation.
	if rec := postVerdict(t, router, "judge-secret", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("correct secret with empty payload: got %d, want 400", rec.Code)
	}
}
