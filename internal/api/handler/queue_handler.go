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

// QueueHandler 队列管理处理器
type QueueHandler struct {
	engine *engine.Engine
}

func NewQueueHandler(eng *engine.Engine) *QueueHandler {
	return &QueueHandler{engine: eng}
}

// Status 队列状态
// @Summary 队列与记录状态总览
// @Tags Queue
// @Produce json
// @Success 200 {object} responses.Response{data=engine.QueueOverview}
// @Router /api/v1/queue/status [get]
func (h *QueueHandler) Status(c *gin.Context) {
	overview, err := h.engine.QueueStatus()
	if err != nil {
		logger.Error("查询队列状态失败", zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, overview)
}

// SetConcurrency 调整并发数
// @Summary 运行时调整队列并发数 (1-10)
// @Tags Queue
// @Accept json
// @Produce json
// @Param body body dto.SetConcurrencyRequest true "调整请求"
// @Success 200 {object} responses.Response{data=map[string]string}
// @Router /api/v1/queue/concurrency [put]
func (h *QueueHandler) SetConcurrency(c *gin.Context) {
	var req dto.SetConcurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	if err := h.engine.SetConcurrency(req.Queue, req.Limit); err != nil {
		responses.Error(c, err)
		return
	}

	logger.Info("队列并发数已调整",
		zap.String("queue", req.Queue), zap.Int("limit", req.Limit))
	responses.Success(c, gin.H{"message": "并发数已调整"})
}

// Cleanup 批量清理
// @Summary 批量删除已结束的记录及其工作目录
// @Tags Queue
// @Accept json
// @Produce json
// @Param body body dto.CleanupRequest true "清理请求"
// @Success 200 {object} responses.Response{data=engine.CleanupResult}
// @Router /api/v1/queue/cleanup [post]
func (h *QueueHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	result, err := h.engine.Cleanup(req.Statuses)
	if err != nil {
		logger.Error("批量清理失败", zap.Strings("statuses", req.Statuses), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, result)
}
