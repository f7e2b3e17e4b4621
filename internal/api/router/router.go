package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"recruit-agent-go/internal/api/handler"
)

// Handlers 路由需要的全部处理器
type Handlers struct {
	Interview *handler.InterviewHandler
	Candidate *handler.CandidateHandler
	Job       *handler.JobHandler
	User      *handler.UserHandler
	Knowledge *handler.KnowledgeHandler
	Agent     *handler.AgentHandler
	Resume    *handler.ResumeHandler
	Dashboard *handler.DashboardHandler
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, hs *Handlers) {
	api := h.Group("/api/v1")

	// 健康检查
	api.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	// 面试生命周期与AI助手
	interviews := api.Group("/interviews")
	interviews.GET("", hs.Interview.List)
	interviews.POST("", hs.Interview.Create)
	interviews.POST("/generate", hs.Interview.GeneratePlan)
	interviews.POST("/regenerate-question", hs.Interview.RegenerateQuestion)
	interviews.POST("/complete-manual-question", hs.Interview.CompleteManualQuestion)
	interviews.POST("/refresh-criteria", hs.Interview.RefreshCriteria)
	interviews.POST("/evaluate", hs.Interview.Evaluate)
	interviews.GET("/:id", hs.Interview.Get)
	interviews.PUT("/:id", hs.Interview.Update)
	interviews.DELETE("/:id", hs.Interview.Delete)
	interviews.POST("/:id/action", hs.Interview.Act)
	interviews.PUT("/:id/draft", hs.Interview.SaveDraft)

	// 候选人
	candidates := api.Group("/candidates")
	candidates.GET("", hs.Candidate.List)
	candidates.POST("", hs.Candidate.Create)
	candidates.GET("/:id", hs.Candidate.Get)
	candidates.PUT("/:id", hs.Candidate.Update)
	candidates.DELETE("/:id", hs.Candidate.Delete)

	// 岗位描述
	jobs := api.Group("/job-descriptions")
	jobs.GET("", hs.Job.List)
	jobs.POST("", hs.Job.Create)
	jobs.POST("/smart-generate", hs.Job.SmartGenerate)
	jobs.GET("/:id", hs.Job.Get)
	jobs.PUT("/:id", hs.Job.Update)
	jobs.DELETE("/:id", hs.Job.Delete)

	// 用户
	users := api.Group("/users")
	users.GET("", hs.User.List)
	users.POST("", hs.User.Create)
	users.POST("/login", hs.User.Login)

	// 知识库与问答
	knowledge := api.Group("/knowledge")
	knowledge.GET("", hs.Knowledge.List)
	knowledge.POST("", hs.Knowledge.Create)
	knowledge.POST("/tip", hs.Knowledge.Tip)
	knowledge.POST("/chat", hs.Knowledge.Chat)
	knowledge.GET("/:id", hs.Knowledge.Get)
	knowledge.PUT("/:id", hs.Knowledge.Update)
	knowledge.DELETE("/:id", hs.Knowledge.Delete)

	// 招聘智能体
	agents := api.Group("/agent")
	agents.POST("/chat", hs.Agent.Chat)
	agents.DELETE("/sessions/:id", hs.Agent.ClearSession)

	// 简历入库
	resume := api.Group("/resume")
	resume.POST("/upload", hs.Resume.Upload)
	resume.GET("/:uuid", hs.Resume.Status)
	resume.GET("/:uuid/download-url", hs.Resume.DownloadURL)

	// 仪表盘
	api.GET("/dashboard/notifications", hs.Dashboard.Notifications)
}
