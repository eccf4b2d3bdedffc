package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Taka1304/sigza/internal/api/middleware"
	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common"

	"github.com/go-chi/chi/v5"
)

type AuxiliaryHandler struct {
	auxService *service.AuxiliaryService
}

func NewAuxiliaryHandler(auxService *service.AuxiliaryService) *AuxiliaryHandler {
	return &AuxiliaryHandler{auxService: auxService}
}

func (h *AuxiliaryHandler) RegisterNotificationRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/", h.listNotifications)
	r.Get("/unread-count", h.unreadCount)
	r.Post("/{notificationID}/read", h.markRead)
}

func (h *AuxiliaryHandler) RegisterAnnouncementRoutes(r chi.Router) {
	r.Get("/", h.listAnnouncements)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator, middleware.AdminOnly)
		admin.Post("/", h.createAnnouncement)
	})
}

func (h *AuxiliaryHandler) RegisterSettingRoutes(r chi.Router) {
	r.Use(middleware.Authenticator, middleware.AdminOnly)
	r.Get("/{key}", h.getSetting)
	r.Put("/{key}", h.setSetting)
}

func (h *AuxiliaryHandler) RegisterExternalLearningRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.logExternalLearning)
	r.Get("/", h.listExternalLearnings)
}

func (h *AuxiliaryHandler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	page, pageSize := paginationParams(r, 20)
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.auxService.ListNotifications(r.Context(), userID, unreadOnly, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, notifications)
}

func (h *AuxiliaryHandler) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	count, err := h.auxService.CountUnread(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *AuxiliaryHandler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.auxService.MarkNotificationRead(r.Context(), userID, chi.URLParam(r, "notificationID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "marked read"})
}

func (h *AuxiliaryHandler) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	announcements, err := h.auxService.ListActiveAnnouncements(r.Context(), 20)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, announcements)
}

func (h *AuxiliaryHandler) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req service.CreateAnnouncementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	announcement, err := h.auxService.CreateAnnouncement(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, announcement)
}

func (h *AuxiliaryHandler) getSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.auxService.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, setting)
}

func (h *AuxiliaryHandler) setSetting(w http.ResponseWriter, r *http.Request) {
	var value json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	setting, err := h.auxService.SetSetting(r.Context(), chi.URLParam(r, "key"), value)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, setting)
}

func (h *AuxiliaryHandler) logExternalLearning(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	var req service.LogExternalLearningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	entry, err := h.auxService.LogExternalLearning(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, entry)
}

func (h *AuxiliaryHandler) listExternalLearnings(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	page, pageSize := paginationParams(r, 20)
	entries, err := h.auxService.ListExternalLearnings(r.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
