package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/workflow"
)

// UserHandler 用户管理接口
type UserHandler struct {
	db *storage.MySQL
}

func NewUserHandler(db *storage.MySQL) *UserHandler {
	return &UserHandler{db: db}
}

// List GET /users
func (h *UserHandler) List(ctx context.Context, c *app.RequestContext) {
	users, err := h.db.ListUsers(ctx, c.Query("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"items": users, "total": len(users)})
}

// createUserRequest 创建用户的请求体
type createUserRequest struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// Create POST /users
func (h *UserHandler) Create(ctx context.Context, c *app.RequestContext) {
	var req createUserRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || strings.TrimSpace(req.Name) == "" {
		respondBadRequest(c, errors.New("用户名和姓名不能为空"))
		return
	}
	switch workflow.Role(req.Role) {
	case workflow.RoleAdmin, workflow.RoleInterviewer:
	default:
		respondBadRequest(c, errors.New("非法的用户角色: "+req.Role))
		return
	}

	user := models.User{
		Username:   req.Username,
		Name:       strings.TrimSpace(req.Name),
		Email:      req.Email,
		Department: req.Department,
		Role:       req.Role,
	}
	if err := h.db.CreateUser(ctx, &user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusCreated, user)
}

// loginRequest 登录请求体。无鉴权体系，按用户名取回身份
type loginRequest struct {
	Username string `json:"username"`
}

// Login POST /users/login
func (h *UserHandler) Login(ctx context.Context, c *app.RequestContext) {
	var req loginRequest
	if err := c.BindAndValidate(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		respondBadRequest(c, errors.New("用户名不能为空"))
		return
	}
	user, err := h.db.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, user)
}
