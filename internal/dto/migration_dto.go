package dto

import "svn-migrate/internal/model"

// RegisterMigrationRequest 登记迁移请求
type RegisterMigrationRequest struct {
	DisplayName    string                  `json:"display_name" binding:"required,max=200"`
	SourceURL      string                  `json:"source_url" binding:"required,url"`
	TargetPath     string                  `json:"target_path" binding:"required,max=300"` // 目标项目路径, 如 group/repo
	Layout         model.LayoutConfig      `json:"layout_config" binding:"required"`
	AuthorsMapping map[string]model.Author `json:"authors_mapping"`
	Username       string                  `json:"username"` // 源库凭据
	Password       string                  `json:"password"`
	SkipProbe      bool                    `json:"skip_probe"` // 批量导入时跳过连通性校验
}

// BulkStartRequest 批量启动请求
type BulkStartRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// ResumeMigrationRequest 恢复迁移请求, ID来自路径参数
type ResumeMigrationRequest struct {
	ID         string `json:"-"`
	ResumeFrom string `json:"resume_from" binding:"required,oneof=beginning last_revision"`
	Username   string `json:"username"` // 凭据缓存失效后需重新提供
	Password   string `json:"password"`
}

// MigrationListParam 迁移列表查询参数
type MigrationListParam struct {
	Page     int      `form:"page"`
	PageSize int      `form:"page_size"`
	Statuses []string `form:"statuses"`
	Keyword  *string  `form:"keyword"`
}

// MigrationListResponse 迁移列表响应
type MigrationListResponse struct {
	Total int64              `json:"total"`
	Items []*model.Migration `json:"items"`
}

// SetConcurrencyRequest 调整并发数请求
type SetConcurrencyRequest struct {
	Queue string `json:"queue" binding:"required,oneof=migration sync"`
	Limit int    `json:"limit" binding:"required,gte=1,lte=10"`
}

// CleanupRequest 批量清理请求
type CleanupRequest struct {
	Statuses []string `json:"statuses" binding:"required,min=1,dive,oneof=completed failed cancelled"`
}

// ProbeRequest 源库探测请求
type ProbeRequest struct {
	SourceURL string `json:"source_url" binding:"required,url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// PreviewRequest 迁移预演请求
type PreviewRequest struct {
	SourceURL      string                  `json:"source_url" binding:"required,url"`
	Username       string                  `json:"username"`
	Password       string                  `json:"password"`
	Layout         model.LayoutConfig      `json:"layout_config" binding:"required"`
	AuthorsMapping map[string]model.Author `json:"authors_mapping"`
}
