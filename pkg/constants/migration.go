package constants

// MigrationStatus 迁移状态
const (
	StatusRegistered = "registered" // 已登记, 未提交执行
	StatusPending    = "pending"    // 已入队, 等待并发槽位
	StatusRunning    = "running"    // 首次迁移执行中
	StatusSyncing    = "syncing"    // 增量同步执行中
	StatusCompleted  = "completed"  // 已完成
	StatusFailed     = "failed"     // 失败, 可恢复
	StatusCancelled  = "cancelled"  // 已取消, 可恢复
)

// statusTransitions 合法状态流转表
var statusTransitions = map[string][]string{
	StatusRegistered: {StatusPending, StatusRunning},
	StatusPending:    {StatusRunning, StatusCancelled, StatusFailed},
	StatusRunning:    {StatusCompleted, StatusFailed, StatusCancelled},
	StatusSyncing:    {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusSyncing},
	StatusFailed:     {StatusPending, StatusRunning},
	StatusCancelled:  {StatusPending, StatusRunning},
}

// CanTransition 检查状态流转是否合法
func CanTransition(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsActiveStatus 判断记录是否有进行中的任务
func IsActiveStatus(status string) bool {
	return status == StatusPending || status == StatusRunning || status == StatusSyncing
}

// IsResumableStatus 判断记录是否可恢复
func IsResumableStatus(status string) bool {
	return status == StatusFailed || status == StatusCancelled
}

// JobType 任务类型
const (
	JobTypeMigration = "migration" // 首次全量迁移
	JobTypeSync      = "sync"      // 增量同步
)

// ResumeFrom 恢复起点
const (
	ResumeFromBeginning    = "beginning"     // 丢弃工作目录, 从头开始
	ResumeFromLastRevision = "last_revision" // 从检查点继续
)

// LayoutType 源库目录布局
const (
	LayoutStandard = "standard" // trunk/branches/tags 标准布局
	LayoutTrunk    = "trunk"    // 仅trunk
	LayoutCustom   = "custom"   // 自定义路径映射
)

// 队列并发限制边界
const (
	MinConcurrency = 1
	MaxConcurrency = 10
)
