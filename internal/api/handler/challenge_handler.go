package handler

import (
	"net/http"
	"strconv"

	"hackastrophe/internal/api/middleware"
	"hackastrophe/internal/app/service"
	"hackastrophe/internal/common"
	"hackastrophe/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ChallengeHandler struct {
	challengeService  *service.ChallengeService
	submissionService *service.SubmissionService
}

func NewChallengeHandler(cs *service.ChallengeService, ss *service.SubmissionService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: cs, submissionService: ss}
}

func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listChallenges)              // GET /api/v1/challenges
	r.Get("/{challengeSlug}", h.getChallenge) // GET /api/v1/challenges/buffer-overflow-101

	// The slug is the public identifier throughout; it changes only
	// when the author renames the challenge.
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.createChallenge)
		authed.Put("/{challengeSlug}", h.updateChallenge)
		authed.Delete("/{challengeSlug}", h.deleteChallenge)
		authed.Get("/{challengeSlug}/submissions", h.listSubmissions)
	})
}

func (h *ChallengeHandler) createChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateChallengeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	challenge, err := h.challengeService.CreateChallenge(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, challenge)
}

func (h *ChallengeHandler) updateChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())
	challengeSlug := chi.URLParam(r, "challengeSlug")

	var req service.UpdateChallengeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	challenge, err := h.challengeService.UpdateChallenge(r.Context(), userID, userRole, challengeSlug, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) deleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(r.Context())
	challengeSlug := chi.URLParam(r, "challengeSlug")

	if err := h.challengeService.DeleteChallenge(r.Context(), userID, userRole, challengeSlug); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "challenge deleted"})
}

func (h *ChallengeHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 12
	}

	filter := model.ChallengeFilter{
		Category:   model.ChallengeCategory(q.Get("category")),
		Difficulty: model.ChallengeDifficulty(q.Get("difficulty")),
		Search:     q.Get("search"),
	}
	if v := q.Get("min_price"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinPrice = &p
		}
	}
	if v := q.Get("max_price"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = &p
		}
	}

	challenges, total, err := h.challengeService.ListChallenges(r.Context(), filter, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	type PaginatedChallengesResponse struct {
		Challenges []model.Challenge `json:"challenges"`
		Total      int               `json:"total"`
		Page       int               `json:"page"`
		PageSize   int               `json:"page_size"`
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedChallengesResponse{
		Challenges: challenges,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
	})
}

func (h *ChallengeHandler) getChallenge(w http.ResponseWriter, r *http.Request) {
	challengeSlug := chi.URLParam(r, "challengeSlug")

	challenge, err := h.challengeService.GetChallengeBySlug(r.Context(), challengeSlug)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, challenge)
}

func (h *ChallengeHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	challengeSlug := chi.URLParam(r, "challengeSlug")

	subs, err := h.submissionService.ListSubmissions(r.Context(), userID, challengeSlug)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}
