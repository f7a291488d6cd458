package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityapp "github.com/induservicios/backend/internal/application/identity"
	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
)

// UserService manages accounts on behalf of an admin
type UserService interface {
	List(ctx context.Context, filter identity.UserFilter) (shared.Paginated[identityapp.UserInfo], error)
	GetByID(ctx context.Context, id uuid.UUID) (*identityapp.UserInfo, error)
	UpdateRole(ctx context.Context, actorID, id uuid.UUID, role identity.Role) (*identityapp.UserInfo, error)
	SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*identityapp.UserInfo, error)
}

// UserHandler handles admin user management
type UserHandler struct {
	BaseHandler
	users UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes mounts the admin user routes
func (h *UserHandler) RegisterRoutes(admin gin.IRoutes) {
	admin.GET("/users", h.List)
	admin.GET("/users/:id", h.Get)
	admin.PATCH("/users/:id/role", h.UpdateRole)
	admin.PATCH("/users/:id/status", h.SetActive)
}

// UserListQuery filters the user listing
type UserListQuery struct {
	Role string `form:"role" binding:"omitempty,oneof=ADMIN CLIENTE"`
}

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role identity.Role `json:"role" binding:"required,oneof=ADMIN CLIENTE"`
}

// SetActiveRequest activates or deactivates a user
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// List returns a page of users
func (h *UserHandler) List(c *gin.Context) {
	list, ok := h.listFilter(c)
	if !ok {
		return
	}
	var q UserListQuery
	if !h.bindQuery(c, &q) {
		return
	}
	active, err := queryBool(c, "active")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := identity.UserFilter{Filter: list.Filter(), IsActive: active}
	if q.Role != "" {
		role := identity.Role(q.Role)
		filter.Role = &role
	}
	page, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(c, page)
}

// Get returns one user
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateRole promotes or demotes a user
func (h *UserHandler) UpdateRole(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateRole(c.Request.Context(), actorID, id, req.Role)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// SetActive activates or deactivates a user
func (h *UserHandler) SetActive(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.SetActive(c.Request.Context(), actorID, id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
