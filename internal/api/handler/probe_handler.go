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

// ProbeHandler 源库探测处理器
type ProbeHandler struct {
	engine *engine.Engine
}

func NewProbeHandler(eng *engine.Engine) *ProbeHandler {
	return &ProbeHandler{engine: eng}
}

// Probe 连通性探测
// @Summary 验证源库可达性与凭据
// @Tags Probe
// @Accept json
// @Produce json
// @Param body body dto.ProbeRequest true "探测请求"
// @Success 200 {object} responses.Response{data=svn.ConnectionInfo}
// @Router /api/v1/svn/probe [post]
func (h *ProbeHandler) Probe(c *gin.Context) {
	var req dto.ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	info, err := h.engine.Probe(c.Request.Context(), &req)
	if err != nil {
		logger.Warn("源库探测失败", zap.String("source_url", req.SourceURL), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, info)
}

// ExtractUsers 枚举历史作者
// @Summary 枚举源库历史中出现过的作者
// @Tags Probe
// @Accept json
// @Produce json
// @Param body body dto.ProbeRequest true "探测请求"
// @Success 200 {object} responses.Response{data=[]string}
// @Router /api/v1/svn/users [post]
func (h *ProbeHandler) ExtractUsers(c *gin.Context) {
	var req dto.ProbeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	users, err := h.engine.ExtractUsers(c.Request.Context(), &req)
	if err != nil {
		logger.Warn("枚举历史作者失败", zap.String("source_url", req.SourceURL), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, users)
}

// Preview 迁移预演
// @Summary 计算迁移预演计划, 无副作用
// @Tags Probe
// @Accept json
// @Produce json
// @Param body body dto.PreviewRequest true "预演请求"
// @Success 200 {object} responses.Response{data=svn.PreviewResult}
// @Router /api/v1/svn/preview [post]
func (h *ProbeHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.ErrorWithDetail(c, http.StatusBadRequest, "请求参数错误", utils.FormatValidationError(err))
		return
	}

	result, err := h.engine.Preview(c.Request.Context(), &req)
	if err != nil {
		logger.Warn("迁移预演失败", zap.String("source_url", req.SourceURL), zap.Error(err))
		responses.Error(c, err)
		return
	}

	responses.Success(c, result)
}
