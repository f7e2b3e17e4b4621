package workflow

import "recruit-agent-go/internal/types"

// ResumeIndex 计算重新加载后界面应当停留的题目位置：
// 按顺序扫描题目，第一道既未评分也没有笔记的题即为续答位置。
// 所有题目都处理过时返回 len(questions)，即最终评价步骤。
// 对同一份持久化数据重复计算结果相同。
func ResumeIndex(questions []types.Question) int {
	for i, q := range questions {
		if !q.Touched() {
			return i
		}
	}
	return len(questions)
}
