package handler

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"recruit-agent-go/internal/processor"
	"recruit-agent-go/internal/storage"
)

const presignedURLTTL = 15 * time.Minute

// ResumeHandler 简历上传与处理进度查询接口
type ResumeHandler struct {
	intake  *processor.IntakeService
	db      *storage.MySQL
	objects storage.ObjectStorage
}

func NewResumeHandler(intake *processor.IntakeService, db *storage.MySQL, objects storage.ObjectStorage) *ResumeHandler {
	return &ResumeHandler{intake: intake, db: db, objects: objects}
}

// Upload POST /resume/upload
// multipart表单上传，字段名为 file
func (h *ResumeHandler) Upload(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, errors.New("缺少上传文件字段 file"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	defer file.Close()

	result, err := h.intake.Upload(ctx, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	c.JSON(consts.StatusAccepted, result)
}

// Status GET /resume/:uuid
// 查询一次上传的处理进度
func (h *ResumeHandler) Status(ctx context.Context, c *app.RequestContext) {
	submissionUUID := c.Param("uuid")
	if _, err := uuid.Parse(submissionUUID); err != nil {
		respondBadRequest(c, errors.New("非法的提交UUID: "+submissionUUID))
		return
	}
	submission, err := h.db.GetResumeSubmissionByUUID(ctx, submissionUUID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, submission)
}

// DownloadURL GET /resume/:uuid/download-url
// 生成原始简历文件的临时访问链接
func (h *ResumeHandler) DownloadURL(ctx context.Context, c *app.RequestContext) {
	submissionUUID := c.Param("uuid")
	if _, err := uuid.Parse(submissionUUID); err != nil {
		respondBadRequest(c, errors.New("非法的提交UUID: "+submissionUUID))
		return
	}
	submission, err := h.db.GetResumeSubmissionByUUID(ctx, submissionUUID)
	if err != nil {
		respondError(c, err)
		return
	}
	if submission.FilePathOSS == "" {
		respondError(c, errors.New("该提交没有可下载的文件"))
		return
	}

	url, err := h.objects.GetPresignedURL(ctx, submission.FilePathOSS, presignedURLTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"url": url, "expires_in_seconds": int(presignedURLTTL.Seconds())})
}
