package handler

import (
	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/gin-gonic/gin"
)

// UserHandler administración de usuarios
type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func usersView(users []entity.User) []gin.H {
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userView(&users[i]))
	}
	return out
}

func (h *UserHandler) respond(c *gin.Context, user *entity.User, err error) {
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, userView(user))
}

// List GET /users?status=&role=
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context(), GetUserID(c), c.Query("status"), c.Query("role"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": usersView(users)})
}

// Pending GET /users/pending
func (h *UserHandler) Pending(c *gin.Context) {
	users, err := h.svc.ListPending(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": usersView(users)})
}

// Technicians GET /users/technicians
func (h *UserHandler) Technicians(c *gin.Context) {
	users, err := h.svc.ListTechnicians(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": usersView(users)})
}

// Approve PATCH /users/:id/approve
func (h *UserHandler) Approve(c *gin.Context) {
	user, err := h.svc.Approve(c.Request.Context(), GetUserID(c), c.Param("id"))
	h.respond(c, user, err)
}

// Reject PATCH /users/:id/reject
func (h *UserHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	user, err := h.svc.Reject(c.Request.Context(), GetUserID(c), c.Param("id"), req.Reason)
	h.respond(c, user, err)
}

// ChangeRole PATCH /users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "role es requerido")
		return
	}
	user, err := h.svc.ChangeRole(c.Request.Context(), GetUserID(c), c.Param("id"), req.Role)
	h.respond(c, user, err)
}

// Deactivate PATCH /users/:id/deactivate
func (h *UserHandler) Deactivate(c *gin.Context) {
	user, err := h.svc.Deactivate(c.Request.Context(), GetUserID(c), c.Param("id"))
	h.respond(c, user, err)
}
