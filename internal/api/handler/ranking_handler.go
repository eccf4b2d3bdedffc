package handler

import (
	"net/http"
	"strconv"

	"github.com/Taka1304/sigza/internal/app/service"
	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type RankingHandler struct {
	rankingService *service.RankingService
}

func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

func (h *RankingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/global", h.global)
	r.Get("/global/history", h.globalHistory)
	r.Get("/problems/{problemID}", h.problem)
	r.Get("/problems/{problemID}/history", h.problemHistory)
}

func (h *RankingHandler) global(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.rankingService.CurrentRanking(r.Context(), model.RankingTypeGlobal, nil)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, snapshot)
}

func (h *RankingHandler) globalHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snapshots, err := h.rankingService.RankingHistory(r.Context(), model.RankingTypeGlobal, nil, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, snapshots)
}

func (h *RankingHandler) problem(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problemID")
	snapshot, err := h.rankingService.CurrentRanking(r.Context(), model.RankingTypeProblem, &problemID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, snapshot)
}

func (h *RankingHandler) problemHistory(w http.ResponseWriter, r *http.Request) {
	problemID := chi.URLParam(r, "problemID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snapshots, err := h.rankingService.RankingHistory(r.Context(), model.RankingTypeProblem, &problemID, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, snapshots)
}
