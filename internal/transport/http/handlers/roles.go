package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/transport/http/middleware"
	"github.com/arklim/book-buyback/internal/usecase"
)

// RoleCommands is the role administration surface the handler drives.
type RoleCommands interface {
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	GetRole(ctx context.Context, roleID string) (*domain.Role, error)
	CreateRole(ctx context.Context, input usecase.CreateRoleInput) (*domain.Role, error)
	UpdateRole(ctx context.Context, roleID string, input usecase.UpdateRoleInput) (*domain.Role, error)
	AddPermission(ctx context.Context, roleID, permission string) (*domain.Role, error)
	RemovePermission(ctx context.Context, roleID, permission string) (*domain.Role, error)
	DeleteRole(ctx context.Context, roleID string) error
	AssignRole(ctx context.Context, input usecase.AssignRoleInput) (domain.RoleAssignment, error)
	RemoveRole(ctx context.Context, input usecase.RemoveRoleInput) error
}

// PermissionQueries resolves what a principal currently holds.
type PermissionQueries interface {
	EffectivePermissions(ctx context.Context, principalID string) ([]domain.Permission, error)
	RolesFor(ctx context.Context, principalID string) ([]*domain.Role, error)
}

var roleErrorCases = []ErrorCase{
	{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
	{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role already exists"},
	{Err: usecase.ErrRoleInUse, Status: http.StatusConflict, Message: "role is still assigned to users"},
	{Err: usecase.ErrRoleNotApplicable, Status: http.StatusBadRequest, Message: "role does not apply to this user type"},
	{Err: usecase.ErrAssignmentNotFound, Status: http.StatusNotFound, Message: "role assignment not found"},
}

type RoleHandler struct {
	roles RoleCommands
	perms PermissionQueries
}

func NewRoleHandler(roles RoleCommands, perms PermissionQueries) *RoleHandler {
	return &RoleHandler{roles: roles, perms: perms}
}

func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roles.ListRoles(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to list roles")
		return
	}

	payload := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payload = append(payload, newRolePayload(role))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roles.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to load role")
		return
	}
	c.JSON(http.StatusOK, newRolePayload(role))
}

func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role, err := h.roles.CreateRole(c.Request.Context(), usecase.CreateRoleInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Permissions: req.Permissions,
		AppliesTo:   req.AppliesTo,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to create role")
		return
	}
	c.JSON(http.StatusCreated, newRolePayload(role))
}

func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	role, err := h.roles.UpdateRole(c.Request.Context(), c.Param("id"), usecase.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to update role")
		return
	}
	c.JSON(http.StatusOK, newRolePayload(role))
}

func (h *RoleHandler) AddPermission(c *gin.Context) {
	var req PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	role, err := h.roles.AddPermission(c.Request.Context(), c.Param("id"), req.Permission)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to add permission")
		return
	}
	c.JSON(http.StatusOK, newRolePayload(role))
}

func (h *RoleHandler) RemovePermission(c *gin.Context) {
	role, err := h.roles.RemovePermission(c.Request.Context(), c.Param("id"), c.Param("permission"))
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to remove permission")
		return
	}
	c.JSON(http.StatusOK, newRolePayload(role))
}

func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.roles.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to delete role")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoleHandler) AssignRole(c *gin.Context) {
	actorID, ok := middleware.GetPrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req RoleAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assignment payload"))
		return
	}

	assignment, err := h.roles.AssignRole(c.Request.Context(), usecase.AssignRoleInput{
		UserID:     c.Param("userId"),
		UserKind:   domain.PrincipalKind(strings.ToLower(strings.TrimSpace(req.UserKind))),
		RoleID:     strings.TrimSpace(req.RoleID),
		AssignedBy: actorID,
		ExpiresAt:  req.ExpiresAt,
		Scope:      req.Scope,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to assign role")
		return
	}
	c.JSON(http.StatusCreated, newAssignmentPayload(assignment))
}

func (h *RoleHandler) RemoveRole(c *gin.Context) {
	actorID, ok := middleware.GetPrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var scope *string
	if s := strings.TrimSpace(c.Query("scope")); s != "" {
		scope = &s
	}

	err := h.roles.RemoveRole(c.Request.Context(), usecase.RemoveRoleInput{
		UserID:    c.Param("userId"),
		RoleID:    c.Param("roleId"),
		RemovedBy: actorID,
		Scope:     scope,
	})
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to remove role")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoleHandler) UserRoles(c *gin.Context) {
	roles, err := h.perms.RolesFor(c.Request.Context(), c.Param("userId"))
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to load user roles")
		return
	}

	payload := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payload = append(payload, newRolePayload(role))
	}
	c.JSON(http.StatusOK, payload)
}

func (h *RoleHandler) UserPermissions(c *gin.Context) {
	h.respondPermissions(c, c.Param("userId"))
}

// MyPermissions lists the caller's own effective permissions.
func (h *RoleHandler) MyPermissions(c *gin.Context) {
	principalID, ok := middleware.GetPrincipalID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}
	h.respondPermissions(c, principalID)
}

func (h *RoleHandler) respondPermissions(c *gin.Context, userID string) {
	perms, err := h.perms.EffectivePermissions(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases, http.StatusInternalServerError, "failed to load permissions")
		return
	}
	c.JSON(http.StatusOK, PermissionsResponse{UserID: userID, Permissions: permissionStrings(perms)})
}
