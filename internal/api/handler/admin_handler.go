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

type AdminHandler struct {
	userService  *service.UserService
	orderService *service.OrderService
}

func NewAdminHandler(us *service.UserService, os *service.OrderService) *AdminHandler {
	return &AdminHandler{userService: us, orderService: os}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.AdminOnly)
	r.Get("/users", h.listUsers)
	r.Patch("/users/{userID}/role", h.changeRole)
	r.Patch("/users/{userID}/status", h.toggleStatus)
	r.Get("/invoices", h.listInvoices)
}

type PaginatedUsersResponse struct {
	Users    []model.User `json:"users"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := h.userService.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, PaginatedUsersResponse{
		Users:    users,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *AdminHandler) changeRole(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	targetID := chi.URLParam(r, "userID")

	var req changeRoleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.ChangeRole(r.Context(), callerID, targetID, req.Role); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "role updated"})
}

func (h *AdminHandler) toggleStatus(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	targetID := chi.URLParam(r, "userID")

	user, err := h.userService.ToggleStatus(r.Context(), callerID, targetID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.orderService.ListAllInvoices(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, invoices)
}
