package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// AgentModulePrefix 招聘助理Agent模块
	AgentModulePrefix = "agent"
	// KnowledgeModulePrefix 知识库模块
	KnowledgeModulePrefix = "knowledge"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityHistory 会话历史实体
	EntityHistory = "history"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5Map MD5映射实体
	EntityMD5Map = "md5_to_candidate"

	// KeyAgentHistory 招聘助理会话历史 (LIST)
	// 格式: app:agent:history:{sessionID}
	KeyAgentHistory = AppPrefix + ":" + AgentModulePrefix + ":" + EntityHistory + ":%s"

	// KeyKnowledgeHistory 知识库问答会话历史 (LIST)
	// 格式: app:knowledge:history:{sessionID}
	KeyKnowledgeHistory = AppPrefix + ":" + KnowledgeModulePrefix + ":" + EntityHistory + ":%s"

	// KeyResumeMD5Set 简历文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyResumeMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyResumeMD5ToCandidate MD5到候选人ID的映射 (STRING)
	// 格式: app:file:md5_to_candidate:{md5}
	KeyResumeMD5ToCandidate = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5Map + ":%s"
)
