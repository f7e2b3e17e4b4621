package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/storage/models"
	"recruit-agent-go/internal/types"
)

// CandidateSearcher 人才库检索能力
type CandidateSearcher interface {
	ListCandidates(ctx context.Context, filter storage.CandidateFilter) ([]models.Candidate, int64, error)
}

// JobSearcher 岗位库检索能力
type JobSearcher interface {
	SearchJobDescriptions(ctx context.Context, keyword string, limit int) ([]models.JobDescription, error)
}

// PlanGenerator 面试计划生成能力，由面试助手服务提供
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req *types.PlanGenerateRequest) (*types.PlanGenerateResponse, error)
}

// SearchCandidatesTool 在人才库中按关键词搜索候选人
type SearchCandidatesTool struct {
	candidates CandidateSearcher
}

var (
	_ tool.BaseTool      = (*SearchCandidatesTool)(nil)
	_ tool.InvokableTool = (*SearchCandidatesTool)(nil)
)

// NewSearchCandidatesTool 创建候选人搜索工具
func NewSearchCandidatesTool(candidates CandidateSearcher) *SearchCandidatesTool {
	return &SearchCandidatesTool{candidates: candidates}
}

// Info 实现 tool.BaseTool 接口
func (t *SearchCandidatesTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "search_candidates",
		Desc: "在人才库中搜索候选人。可按姓名或简历总结中的关键词匹配，并可按职位分类过滤。",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"keyword": {
				Type:     "string",
				Desc:     "搜索关键词，匹配姓名或自我介绍，例如：Java 后端",
				Required: true,
			},
			"position": {
				Type: "string",
				Desc: "职位分类过滤，例如：研发、算法、财务。不填则不过滤。",
			},
		}),
	}, nil
}

// InvokableRun 实现 tool.InvokableTool 接口
func (t *SearchCandidatesTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		Keyword  string `json:"keyword"`
		Position string `json:"position,omitempty"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("解析候选人搜索参数失败: %w", err)
	}

	candidates, _, err := t.candidates.ListCandidates(ctx, storage.CandidateFilter{
		Keyword:  args.Keyword,
		Position: args.Position,
		Limit:    10,
	})
	if err != nil {
		return "", fmt.Errorf("检索人才库失败: %w", err)
	}
	if len(candidates) == 0 {
		return "人才库中没有匹配的候选人。", nil
	}

	results := make([]map[string]interface{}, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, map[string]interface{}{
			"id":       c.ID,
			"name":     c.Name,
			"position": c.Position,
			"skills":   json.RawMessage(c.SkillsJSON),
			"summary":  c.Summary,
			"status":   c.Status,
		})
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("序列化候选人搜索结果失败: %w", err)
	}
	return string(data), nil
}

// SearchJobsTool 在岗位库中按关键词搜索JD
type SearchJobsTool struct {
	jobs JobSearcher
}

var (
	_ tool.BaseTool      = (*SearchJobsTool)(nil)
	_ tool.InvokableTool = (*SearchJobsTool)(nil)
)

// NewSearchJobsTool 创建岗位搜索工具
func NewSearchJobsTool(jobs JobSearcher) *SearchJobsTool {
	return &SearchJobsTool{jobs: jobs}
}

// Info 实现 tool.BaseTool 接口
func (t *SearchJobsTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "search_job_descriptions",
		Desc: "在岗位库中搜索职位描述（JD）。按职位名称或描述中的关键词匹配，已停招的岗位也会返回并标注状态。",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"keyword": {
				Type:     "string",
				Desc:     "搜索关键词，例如职位名称或技能要求。留空则返回最近的岗位列表。",
				Required: true,
			},
		}),
	}, nil
}

// InvokableRun 实现 tool.InvokableTool 接口
func (t *SearchJobsTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		Keyword string `json:"keyword"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("解析岗位搜索参数失败: %w", err)
	}

	jds, err := t.jobs.SearchJobDescriptions(ctx, args.Keyword, 10)
	if err != nil {
		return "", fmt.Errorf("检索岗位库失败: %w", err)
	}
	if len(jds) == 0 {
		return "岗位库中没有匹配的职位。", nil
	}

	results := make([]map[string]interface{}, 0, len(jds))
	for _, jd := range jds {
		results = append(results, map[string]interface{}{
			"id":          jd.ID,
			"title":       jd.Title,
			"department":  jd.Department,
			"location":    jd.Location,
			"description": jd.Description,
			"status":      jd.Status,
		})
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("序列化岗位搜索结果失败: %w", err)
	}
	return string(data), nil
}

// GenerateInterviewPlanTool 为候选人针对指定JD生成面试题和评分维度
type GenerateInterviewPlanTool struct {
	planner PlanGenerator
}

var (
	_ tool.BaseTool      = (*GenerateInterviewPlanTool)(nil)
	_ tool.InvokableTool = (*GenerateInterviewPlanTool)(nil)
)

// NewGenerateInterviewPlanTool 创建面试计划生成工具
func NewGenerateInterviewPlanTool(planner PlanGenerator) *GenerateInterviewPlanTool {
	return &GenerateInterviewPlanTool{planner: planner}
}

// Info 实现 tool.BaseTool 接口
func (t *GenerateInterviewPlanTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: "generate_interview_plan",
		Desc: "为候选人针对特定岗位生成面试题目和评分维度。",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"candidate_id": {
				Type:     "integer",
				Desc:     "候选人ID",
				Required: true,
			},
			"jd": {
				Type:     "string",
				Desc:     "职位描述（JD）的文本内容",
				Required: true,
			},
			"count": {
				Type: "integer",
				Desc: "生成的题目数量，默认5",
			},
		}),
	}, nil
}

// InvokableRun 实现 tool.InvokableTool 接口
func (t *GenerateInterviewPlanTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var args struct {
		CandidateID uint   `json:"candidate_id"`
		JD          string `json:"jd"`
		Count       int    `json:"count,omitempty"`
	}
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", fmt.Errorf("解析面试计划生成参数失败: %w", err)
	}
	if args.CandidateID == 0 || args.JD == "" {
		return "", fmt.Errorf("candidate_id和jd是必填参数")
	}

	plan, err := t.planner.GeneratePlan(ctx, &types.PlanGenerateRequest{
		CandidateID: args.CandidateID,
		JD:          args.JD,
		Count:       args.Count,
	})
	if err != nil {
		return "", fmt.Errorf("生成面试计划失败: %w", err)
	}

	data, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("序列化面试计划失败: %w", err)
	}
	return string(data), nil
}
