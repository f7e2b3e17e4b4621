package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"recruit-agent-go/internal/types"
)

func intPtr(v int) *int { return &v }

func TestResumeIndex(t *testing.T) {
	tests := []struct {
		name      string
		questions []types.Question
		want      int
	}{
		{
			name:      "空计划停在第一题",
			questions: nil,
			want:      0,
		},
		{
			name: "全部未处理停在第一题",
			questions: []types.Question{
				{Question: "介绍一下自己"},
				{Question: "讲一个项目难点"},
			},
			want: 0,
		},
		{
			name: "停在第一道未处理的题目",
			questions: []types.Question{
				{Question: "介绍一下自己", Score: intPtr(4)},
				{Question: "讲一个项目难点", Notes: "回答清晰"},
				{Question: "算法题"},
				{Question: "反问环节"},
			},
			want: 2,
		},
		{
			name: "仅有评分也算处理过",
			questions: []types.Question{
				{Question: "介绍一下自己", Score: intPtr(3)},
				{Question: "讲一个项目难点"},
			},
			want: 1,
		},
		{
			name: "仅有笔记也算处理过",
			questions: []types.Question{
				{Question: "介绍一下自己", Notes: "表达流畅"},
				{Question: "讲一个项目难点"},
			},
			want: 1,
		},
		{
			name: "中间留空的题不被跳过",
			questions: []types.Question{
				{Question: "第一题", Score: intPtr(5)},
				{Question: "第二题"},
				{Question: "第三题", Score: intPtr(2), Notes: "一般"},
			},
			want: 1,
		},
		{
			name: "全部处理完进入最终评价",
			questions: []types.Question{
				{Question: "第一题", Score: intPtr(5)},
				{Question: "第二题", Notes: "跳过，时间不够"},
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResumeIndex(tt.questions)
			assert.Equal(t, tt.want, got)
			// 同一份数据重复计算必须得到相同位置
			assert.Equal(t, got, ResumeIndex(tt.questions))
		})
	}
}
