package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Taka1304/sigza/internal/api/middleware"
	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(problemService *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: problemService}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{slug}", h.get)
	r.Put("/id/{problemID}", h.revise)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Post("/id/{problemID}/reconcile-counters", h.reconcileCounters)
	})
}

func (h *ProblemHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	page, pageSize := paginationParams(r, 20)
	q := service.ListProblemsQuery{
		Page:           page,
		PageSize:       pageSize,
		OrganizationID: r.URL.Query().Get("organization_id"),
		SearchTerm:     r.URL.Query().Get("q"),
	}
	if lvl, err := strconv.Atoi(r.URL.Query().Get("difficulty")); err == nil {
		q.DifficultyLevel = lvl
	}
	if tags := r.URL.Query().Get("tags"); tags != "" {
		q.TagIDs = strings.Split(tags, ",")
	}
	q.IncludeArchived = r.URL.Query().Get("include_archived") == "true"

	problems, total, err := h.problemService.ListProblems(r.Context(), userID, model.SystemRole(role), q)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"problems":  problems,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *ProblemHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	var req service.CreateProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	problem, err := h.problemService.CreateProblem(r.Context(), userID, model.SystemRole(role), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	problem, err := h.problemService.GetProblem(r.Context(), chi.URLParam(r, "slug"), userID, model.SystemRole(role))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) revise(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	var req service.ReviseProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	problem, err := h.problemService.ReviseProblem(r.Context(), chi.URLParam(r, "problemID"), userID, model.SystemRole(role), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) reconcileCounters(w http.ResponseWriter, r *http.Request) {
	if err := h.problemService.ReconcileCounters(r.Context(), chi.URLParam(r, "problemID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "counters reconciled"})
}
