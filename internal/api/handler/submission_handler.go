package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Taka1304/sigza/internal/api/middleware"
	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/me", h.listMine)
	r.Get("/{submissionID}", h.get)
	r.Get("/problem/{problemID}/fastest", h.fastestAccepted)
}

func (h *SubmissionHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req service.RecordSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	submission, err := h.submissionService.RecordSubmission(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	// 202: the verdict arrives asynchronously.
	common.RespondWithJSON(w, http.StatusAccepted, submission)
}

func (h *SubmissionHandler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := paginationParams(r, 20)
	filter := model.SubmissionFilter{
		UserID:    r.URL.Query().Get("user_id"),
		ProblemID: r.URL.Query().Get("problem_id"),
		Status:    r.URL.Query().Get("status"),
	}
	h.respondList(w, r, filter, page, pageSize)
}

func (h *SubmissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	page, pageSize := paginationParams(r, 20)
	filter := model.SubmissionFilter{
		UserID:    userID,
		ProblemID: r.URL.Query().Get("problem_id"),
		Status:    r.URL.Query().Get("status"),
	}
	h.respondList(w, r, filter, page, pageSize)
}

func (h *SubmissionHandler) respondList(w http.ResponseWriter, r *http.Request, filter model.SubmissionFilter, page, pageSize int) {
	submissions, total, err := h.submissionService.ListSubmissions(r.Context(), filter, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": submissions,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

func (h *SubmissionHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	submission, err := h.submissionService.GetSubmission(r.Context(), chi.URLParam(r, "submissionID"), userID, model.SystemRole(role))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func (h *SubmissionHandler) fastestAccepted(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	submissions, err := h.submissionService.FastestAccepted(r.Context(), chi.URLParam(r, "problemID"), limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}
