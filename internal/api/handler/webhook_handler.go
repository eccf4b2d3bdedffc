package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/platform/config"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// WebhookHandler receives verdicts from the external judge. The judge
// authenticates with a shared secret header, not a user token.
type WebhookHandler struct {
	submissionService *service.SubmissionService
}

func NewWebhookHandler(submissionService *service.SubmissionService) *WebhookHandler {
	return &WebhookHandler{submissionService: submissionService}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/judge", h.handleVerdict)
}

type VerdictPayload struct {
	SubmissionID string        `json:"submission_id"`
	Verdict      model.Verdict `json:"verdict"`
}

func (h *WebhookHandler) handleVerdict(w http.ResponseWriter, r *http.Request) {
	configured := config.AppConfig.JudgeWebhookSecret
	if configured == "" {
		logger.Named("webhook_handler").Errorw("judge webhook rejected: no JUDGE_WEBHOOK_SECRET configured")
		common.RespondWithError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}
	secret := r.Header.Get("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(configured)) != 1 {
		common.RespondWithError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var payload VerdictPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	defer r.Body.Close()

	if payload.SubmissionID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "submission_id is required")
		return
	}

	if err := h.submissionService.ApplyVerdict(r.Context(), payload.SubmissionID, payload.Verdict); err != nil {
		logger.Named("webhook_handler").Errorw("failed to apply verdict",
			"submission_id", payload.SubmissionID, "error", err)
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "verdict applied"})
}
