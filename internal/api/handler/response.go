package handler

import (
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"

	"recruit-agent-go/internal/interview"
	"recruit-agent-go/internal/workflow"
)

// respondError 把业务错误映射为HTTP状态码和统一的错误体
func respondError(c *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = consts.StatusNotFound
	case errors.Is(err, workflow.ErrRoleNotAllowed):
		status = consts.StatusForbidden
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrDecisionRequired),
		errors.Is(err, workflow.ErrDecisionNotHirable),
		errors.Is(err, workflow.ErrAlreadyHired),
		errors.Is(err, workflow.ErrNotHired),
		errors.Is(err, workflow.ErrResignedSameJob),
		errors.Is(err, interview.ErrCandidateBusy),
		errors.Is(err, interview.ErrInterviewReadOnly),
		errors.Is(err, interview.ErrDraftNotEditable),
		errors.Is(err, interview.ErrEvaluationStage):
		status = consts.StatusConflict
	}
	c.JSON(status, utils.H{"error": err.Error()})
}

// respondBadRequest 参数类错误统一返回400
func respondBadRequest(c *app.RequestContext, err error) {
	c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
}

// pathID 解析路径中的数字ID参数
func pathID(c *app.RequestContext, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("非法的ID参数: " + raw)
	}
	return uint(id), nil
}

// queryUint 解析查询参数中的数字，缺省返回0
func queryUint(c *app.RequestContext, name string) uint {
	raw := c.Query(name)
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// queryInt 解析查询参数中的整数，缺省返回给定默认值
func queryInt(c *app.RequestContext, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
