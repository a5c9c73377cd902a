package controllers

import (
	"github.com/teastall/teastall/app/services"
	"github.com/teastall/teastall/pkg/ctx"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

type makeAdminRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Secret string `json:"secret" validate:"required"`
}

// Sync upserts the caller and returns their role. GET /api/user
func (uc *UserController) Sync(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	u, err := uc.users.Sync(c.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"role": u.Role})
}

// GET /api/user/role
func (uc *UserController) Role(c *ctx.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	role, err := uc.users.Role(c.Context(), id.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"role": role})
}

// MakeAdmin promotes by email when the shared secret matches. POST /api/make-admin
func (uc *UserController) MakeAdmin(c *ctx.Context) {
	var req makeAdminRequest
	if !c.BindJSON(&req) {
		return
	}
	if err := uc.users.PromoteToAdmin(c.Context(), req.Email, req.Secret); err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]string{"email": req.Email, "role": "admin"})
}
