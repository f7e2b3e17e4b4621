package knowledge

import (
	"context"
	"fmt"

	"recruit-agent-go/internal/logger"
	"recruit-agent-go/internal/storage/models"
)

type seedEntry struct {
	title    string
	category string
	content  string
	tags     []string
}

var defaultEntries = []seedEntry{
	{
		title:    "资深后端开发面试考察重点",
		category: "面试要求",
		content: "1. 分布式系统设计：CAP理论、Base理论、强一致性与最终一致性的权衡。\n" +
			"2. 高并发处理：缓存穿透/击穿/雪崩解决方案、消息队列异步解耦。\n" +
			"3. 数据库优化：索引原理、SQL优化、分库分表策略。\n" +
			"4. 架构能力：微服务治理、Service Mesh、领域驱动设计(DDD)。",
		tags: []string{"后端", "资深", "系统设计"},
	},
	{
		title:    "前端架构师核心能力矩阵",
		category: "考察事项",
		content: "1. 工程化能力：Webpack/Vite 构建优化、Monorepo 管理。\n" +
			"2. 性能优化：首屏加载、渲染瓶颈分析、Core Web Vitals。\n" +
			"3. 框架深度：React/Vue 渲染机制、状态管理设计模式。\n" +
			"4. 跨端技术：React Native、Electron、小程序架构。",
		tags: []string{"前端", "架构师", "工程化"},
	},
	{
		title:    "行为面试 (STAR原则) 评价标准",
		category: "通用标准",
		content: "S (Situation): 事情发生的背景。\nT (Task): 面对的任务和目标。\n" +
			"A (Action): 针对任务采取的具体行动。\nR (Result): 最终达成的结果。\n" +
			"评价重点：逻辑清晰度、真实性、候选人在其中的角色和贡献。",
		tags: []string{"行为面试", "软技能", "通用"},
	},
	{
		title:    "Java JVM 调优与内存模型",
		category: "技术文档",
		content: "1. JMM (Java Memory Model)：主内存与工作内存、原子性、可见性、有序性。\n" +
			"2. 垃圾回收算法：G1, ZGC, CMS 的原理与适用场景。\n" +
			"3. JVM 参数调优：-Xms, -Xmx, -XX:MaxMetaspaceSize, -XX:+PrintGCDetails。\n" +
			"4. 内存泄漏排查：使用 jmap, jstack, VisualVM 分析 Heap Dump。",
		tags: []string{"Java", "JVM", "调优"},
	},
}

// EnsureSeedData 知识库为空时写入默认条目，供新部署开箱即用
func (s *Service) EnsureSeedData(ctx context.Context) error {
	entries, err := s.store.ListKnowledge(ctx, "")
	if err != nil {
		return fmt.Errorf("检查知识库是否为空失败: %w", err)
	}
	if len(entries) > 0 {
		return nil
	}

	for _, seed := range defaultEntries {
		tags, err := models.ToJSON(seed.tags)
		if err != nil {
			return fmt.Errorf("序列化默认知识条目标签失败: %w", err)
		}
		entry := &models.Knowledge{
			Title:    seed.title,
			Category: seed.category,
			Content:  seed.content,
			TagsJSON: tags,
		}
		if err := s.Create(ctx, entry); err != nil {
			return fmt.Errorf("写入默认知识条目 %q 失败: %w", seed.title, err)
		}
	}

	logger.Info().Int("count", len(defaultEntries)).Msg("知识库为空，已写入默认条目")
	return nil
}
