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

type OrganizationHandler struct {
	orgService *service.OrganizationService
}

func NewOrganizationHandler(orgService *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

func (h *OrganizationHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/join", h.join)
	r.Get("/{orgID}", h.get)
	r.Get("/{orgID}/members", h.listMembers)
	r.Put("/{orgID}/members/{userID}/role", h.changeMemberRole)
}

func (h *OrganizationHandler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req service.CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	org, err := h.orgService.CreateOrganization(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, org)
}

func (h *OrganizationHandler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := paginationParams(r, 20)
	orgs, total, err := h.orgService.ListOrganizations(r.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": orgs,
		"total":         total,
		"page":          page,
		"page_size":     pageSize,
	})
}

func (h *OrganizationHandler) join(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteCode == "" {
		common.RespondWithError(w, http.StatusBadRequest, "invite_code is required")
		return
	}
	member, err := h.orgService.Join(r.Context(), userID, req.InviteCode)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, member)
}

func (h *OrganizationHandler) get(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgService.GetOrganization(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) listMembers(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	members, err := h.orgService.ListMembers(r.Context(), userID, chi.URLParam(r, "orgID"), model.SystemRole(role))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, members)
}

func (h *OrganizationHandler) changeMemberRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	err := h.orgService.ChangeMemberRole(
		r.Context(),
		actorID,
		chi.URLParam(r, "orgID"),
		chi.URLParam(r, "userID"),
		model.SystemRole(role),
		model.MemberRole(req.Role),
	)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}

// paginationParams reads page/page_size query params with sane bounds.
func paginationParams(r *http.Request, defaultSize int) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if size < 1 || size > 100 {
		size = defaultSize
	}
	return page, size
}
