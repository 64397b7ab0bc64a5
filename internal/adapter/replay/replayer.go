package replay

import (
	"context"

	"svn-migrate/internal/model"
)

// Params 单次重放任务的完整参数
type Params struct {
	RecordID     string
	SourceURL    string
	WorkDir      string // 记录独占的工作目录
	TargetRemote string // 推送目标 (含token的git remote URL)
	Layout       model.LayoutConfig
	Authors      map[string]model.Author
	Username     string // 源库凭据
	Password     string
	FromRevision int64 // 断点修订号, 0表示从头
	TotalHint    int64 // 预估总修订数, 0表示未知
}

// Progress 进度快照
type Progress struct {
	Current     int64   `json:"current"`
	Total       int64   `json:"total"`
	Percentage  float64 `json:"percentage"`
	IsEstimated bool    `json:"is_estimated"` // 总数未知时基于耗时估算
}

// Result 重放成功结果
type Result struct {
	LastRevision int64 // 最后一个完整重放的源修订号
	Commits      int64 // 产生的git提交数
}

// ProgressFunc 进度回调, 已节流
type ProgressFunc func(Progress)

// Replayer 外部检出重放进程的生命周期管理接口
type Replayer interface {
	// Run 同步执行一次迁移/同步, 通过onProgress上报进度。
	// 返回前必须保证进程已退出且句柄已释放。
	Run(ctx context.Context, p Params, onProgress ProgressFunc) (*Result, error)

	// Kill 终止指定记录的进程: 先发送优雅信号, 宽限期后强杀,
	// 之后清理工作目录中的残留锁文件。
	Kill(recordID string) error
}
