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

// RolesHandler manages role management and the permission matrix.
type RolesHandler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     Middleware
}

// NewRolesHandler builds RolesHandler instance.
func NewRolesHandler(logger *slog.Logger, service *Service, rbac Middleware) *RolesHandler {
	return &RolesHandler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// MountRoutes registers role routes.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermRolesView))
		r.Get("/", h.listRoles)
		r.Get("/{id}/permissions", h.permissionMatrix)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(shared.PermRolesEdit))
		r.Post("/", h.createRole)
		r.Put("/{id}", h.updateRole)
		r.Delete("/{id}", h.deleteRole)
		r.Put("/{id}/permissions/{permissionID}", h.setGrant)
	})
}

type rolePayload struct {
	Name        string `json:"name" validate:"required,max=255"`
	DisplayName string `json:"display_name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=255"`
}

type roleUpdatePayload struct {
	DisplayName string `json:"display_name" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=255"`
}

type grantPayload struct {
	Status *bool `json:"status" validate:"required"`
}

type roleListResponse struct {
	Items []Role `json:"items"`
	shared.Pagination
}

type matrixResponse struct {
	Role  Role          `json:"role"`
	Items []MatrixEntry `json:"items"`
	shared.Pagination
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	roles, pagination, err := h.service.ListRoles(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if roles == nil {
		roles = []Role{}
	}
	httpx.JSON(w, http.StatusOK, roleListResponse{Items: roles, Pagination: pagination})
}

func (h *RolesHandler) createRole(w http.ResponseWriter, r *http.Request) {
	var payload rolePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), payload.Name, payload.DisplayName, payload.Description)
	if err != nil {
		h.logger.Error("create role", slog.String("name", payload.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *RolesHandler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var payload roleUpdatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, payload.DisplayName, payload.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *RolesHandler) permissionMatrix(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, perPage := pageParams(r)
	entries, pagination, err := h.service.PermissionMatrix(r.Context(), id, r.URL.Query().Get("search"), page, perPage)
	if err != nil {
		h.logger.Error("permission matrix", slog.Int64("role", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []MatrixEntry{}
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Role: role, Items: entries, Pagination: pagination})
}

func (h *RolesHandler) setGrant(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	permissionID, err := strconv.ParseInt(chi.URLParam(r, "permissionID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	var payload grantPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetGrant(r.Context(), roleID, permissionID, *payload.Status); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
