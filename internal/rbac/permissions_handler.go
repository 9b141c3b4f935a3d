package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-rbac/aegis/internal/platform/httpx"
	"github.com/aegis-rbac/aegis/internal/shared"
)

// PermissionsHandler manages the permission registry endpoints.
type PermissionsHandler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermPermissionsView))
		r.Get("/", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermPermissionsEdit))
		r.Post("/", h.createPermission)
		r.Put("/{id}", h.updatePermission)
		r.Delete("/{name}", h.deletePermission)
	})
}

type permissionPayload struct {
	Name        string `json:"name" validate:"required,max=255"`
	DisplayName string `json:"display_name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=255"`
}

type permissionUpdatePayload struct {
	DisplayName string `json:"display_name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=255"`
}

type permissionListResponse struct {
	Items []Permission `json:"items"`
	shared.Pagination
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	perms, pagination, err := h.service.ListPermissions(r.Context(), r.URL.Query().Get("search"), page, perPage)
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, permissionListResponse{Items: perms, Pagination: pagination})
}

func (h *PermissionsHandler) createPermission(w http.ResponseWriter, r *http.Request) {
	var payload permissionPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := h.service.DefinePermission(r.Context(), payload.Name, payload.DisplayName, payload.Description)
	if err != nil {
		h.logger.Error("create permission", slog.String("name", payload.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *PermissionsHandler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	var payload permissionUpdatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, payload.DisplayName, payload.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *PermissionsHandler) deletePermission(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.service.RemovePermission(r.Context(), name); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// pageParams reads 1-based pagination query parameters.
func pageParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	return page, perPage
}
