package handler

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/interview"
)

// DashboardHandler 仪表盘动态接口
type DashboardHandler struct {
	interviews *interview.Service
}

func NewDashboardHandler(interviews *interview.Service) *DashboardHandler {
	return &DashboardHandler{interviews: interviews}
}

// Notifications GET /dashboard/notifications
// 按用户角色返回面试动态：管理员看全局，面试官看自己的待办
func (h *DashboardHandler) Notifications(ctx context.Context, c *app.RequestContext) {
	userID := queryUint(c, "user_id")
	if userID == 0 {
		respondBadRequest(c, errors.New("user_id不能为空"))
		return
	}
	notifications, err := h.interviews.Notifications(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"items": notifications, "total": len(notifications)})
}
