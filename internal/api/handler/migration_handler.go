package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"svn-migrate/internal/dto"
	"svn-migrate/internal/engine"
	"svn-migrate/internal/pkg/logger"
	"svn-migrate/pkg/responses"
	"svn-migrate/pkg/utils"
)

// MigrationHandler 迁移管理处理器
type MigrationHandler struct {
	engine *engine.Engine
}

func NewMigrationHandler(eng *engine.Engine) *MigrationHandler {
	return &MigrationHandler{engine: eng}
}

// Register 登记迁移
// @Summary 登记一条SVN迁移
// @Tags Migration
// @Accept json
// @Produce json
// @Param body body dto.RegisterMigrationRequest true "登记请求"
// @Success 200 {object} responses.Response{data=model.Migration}
// @Router /api/v1/migrations [post]
func (h *MigrationHandler) Register(c *gin.Context) {
	var req dto.RegisterMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	m, err := h.engine.Register(c.Request.Context(), &req)
	if err != nil {
		logger.Error("登记迁移失败", zap.String("source_url", req.SourceURL), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, m)
}

// List 迁移列表
// @Summary 分页查询迁移列表
// @Tags Migration
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param statuses query []string false "状态过滤"
// @Param keyword query string false "关键字"
// @Success 200 {object} responses.Response{data=dto.MigrationListResponse}
// @Router /api/v1/migrations [get]
func (h *MigrationHandler) List(c *gin.Context) {
	var req dto.MigrationListParam
	if err := c.ShouldBindQuery(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	resp, err := h.engine.List(req)
	if err != nil {
		logger.Error("查询迁移列表失败", zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, resp)
}

// Get 迁移详情
// @Summary 获取迁移详情
// @Tags Migration
// @Produce json
// @Param id path string true "迁移ID"
// @Success 200 {object} responses.Response{data=model.Migration}
// @Router /api/v1/migrations/{id} [get]
func (h *MigrationHandler) Get(c *gin.Context) {
	m, err := h.engine.Get(c.Param("id"))
	if err != nil {
		responses.Error(c, err)
		return
	}

	responses.Success(c, m)
}

// Start 启动迁移
// @Summary 将迁移提交到执行队列
// @Tags Migration
// @Produce json
// @Param id path string true "迁移ID"
// @Success 200 {object} responses.Response{data=model.Migration}
// @Router /api/v1/migrations/{id}/start [post]
func (h *MigrationHandler) Start(c *gin.Context) {
	id := c.Param("id")

	m, err := h.engine.StartMigration(c.Request.Context(), id)
	if err != nil {
		logger.Error("启动迁移失败", zap.String("record_id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, m)
}

// BulkStart 批量启动
// @Summary 批量启动迁移, 单条失败不影响其他
// @Tags Migration
// @Accept json
// @Produce json
// @Param body body dto.BulkStartRequest true "批量启动请求"
// @Success 200 {object} responses.Response{data=map[string]string}
// @Router /api/v1/migrations/start [post]
func (h *MigrationHandler) BulkStart(c *gin.Context) {
	var req dto.BulkStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	responses.Success(c, h.engine.BulkStart(c.Request.Context(), req.IDs))
}

// Stop 停止迁移
// @Summary 取消排队或运行中的迁移任务
// @Tags Migration
// @Produce json
// @Param id path string true "迁移ID"
// @Success 200 {object} responses.Response{data=map[string]string}
// @Router /api/v1/migrations/{id}/stop [post]
func (h *MigrationHandler) Stop(c *gin.Context) {
	id := c.Param("id")

	if err := h.engine.Stop(c.Request.Context(), id); err != nil {
		logger.Error("停止迁移失败", zap.String("record_id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, gin.H{"message": "已触发停止"})
}

// Resume 恢复迁移
// @Summary 恢复失败/取消的迁移
// @Tags Migration
// @Accept json
// @Produce json
// @Param id path string true "迁移ID"
// @Param body body dto.ResumeMigrationRequest true "恢复请求"
// @Success 200 {object} responses.Response{data=model.Migration}
// @Router /api/v1/migrations/{id}/resume [post]
func (h *MigrationHandler) Resume(c *gin.Context) {
	var req dto.ResumeMigrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}
	req.ID = c.Param("id")

	m, err := h.engine.Resume(c.Request.Context(), &req)
	if err != nil {
		logger.Error("恢复迁移失败",
			zap.String("record_id", req.ID),
			zap.String("resume_from", req.ResumeFrom),
			zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, m)
}

// Sync 增量同步
// @Summary 对已完成的迁移做一次增量同步
// @Tags Migration
// @Produce json
// @Param id path string true "迁移ID"
// @Success 200 {object} responses.Response{data=model.Migration}
// @Router /api/v1/migrations/{id}/sync [post]
func (h *MigrationHandler) Sync(c *gin.Context) {
	id := c.Param("id")

	m, err := h.engine.Sync(c.Request.Context(), id)
	if err != nil {
		logger.Error("增量同步入队失败", zap.String("record_id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, m)
}

// Delete 删除迁移
// @Summary 删除迁移记录及其工作目录, 目标项目保留
// @Tags Migration
// @Produce json
// @Param id path string true "迁移ID"
// @Success 200 {object} responses.Response{data=map[string]string}
// @Router /api/v1/migrations/{id} [delete]
func (h *MigrationHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.engine.Delete(c.Request.Context(), id); err != nil {
		logger.Error("删除迁移失败", zap.String("record_id", id), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, gin.H{"message": "已删除"})
}
