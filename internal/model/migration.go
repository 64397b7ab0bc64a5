package model

import (
	"time"

	"gorm.io/datatypes"
)

// Migration 迁移记录, 状态与断点的唯一可信来源
type Migration struct {
	ID string `gorm:"primaryKey;size:36" json:"id"` // UUID

	// 基础信息
	DisplayName     string `gorm:"size:200;not null" json:"display_name"`
	SourceURL       string `gorm:"size:500;not null" json:"source_url"`
	TargetProjectID int64  `gorm:"column:target_project_id" json:"target_project_id"` // 目标平台项目ID, 0表示尚未创建
	TargetPath      string `gorm:"size:300;not null" json:"target_path"`              // 目标项目路径, 如 group/repo

	// 状态追踪
	Status string `gorm:"size:20;not null;default:registered;index" json:"status"` // registered/pending/running/syncing/completed/failed/cancelled

	// 布局与作者映射
	Layout         datatypes.JSONType[LayoutConfig]      `gorm:"column:layout_config" json:"layout_config"`
	AuthorsMapping datatypes.JSONType[map[string]Author] `gorm:"column:authors_mapping" json:"authors_mapping"`

	// 断点: 最后一个完整落盘的源修订号, 首次成功前为空
	LastSyncedRevision *int64 `gorm:"column:last_synced_revision" json:"last_synced_revision"`

	// 附加元数据: 错误信息/任务ID/进度计数/恢复凭据提示
	Metadata datatypes.JSONType[Metadata] `gorm:"column:metadata" json:"metadata"`

	// 系统字段
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Migration) TableName() string {
	return "migrations"
}

// LayoutConfig 源库目录布局配置
type LayoutConfig struct {
	Type     string `json:"type"`               // standard/trunk/custom
	Trunk    string `json:"trunk,omitempty"`    // custom布局的trunk路径
	Branches string `json:"branches,omitempty"` // custom布局的branches路径
	Tags     string `json:"tags,omitempty"`     // custom布局的tags路径
}

// Author 目标平台的提交身份
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Metadata 迁移附加元数据
type Metadata struct {
	Error          string `json:"error,omitempty"`            // 最近一次失败原因
	ErrorDetail    string `json:"error_detail,omitempty"`     // 进程输出尾部等详细信息
	JobID          string `json:"job_id,omitempty"`           // 关联的队列任务ID
	RevisionsTotal int64  `json:"revisions_total,omitempty"`  // 预估/实际总修订数
	RevisionsDone  int64  `json:"revisions_done,omitempty"`   // 已重放修订数
	CommitsCreated int64  `json:"commits_created,omitempty"`  // 产生的git提交数
	ResumeHint     string `json:"resume_hint,omitempty"`      // 加密的恢复凭据提示
	LastFinishedAt string `json:"last_finished_at,omitempty"` // 最近一次任务结束时间
}

// Checkpoint 返回断点修订号, 无断点返回0
func (m *Migration) Checkpoint() int64 {
	if m.LastSyncedRevision == nil {
		return 0
	}
	return *m.LastSyncedRevision
}
