package handler

import (
	"errors"
	"net/http"

	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MetricHandler 指标处理器
type MetricHandler struct {
	logger  *zap.Logger
	service *service.MetricService
}

// NewMetricHandler 创建处理器
func NewMetricHandler(logger *zap.Logger, service *service.MetricService) *MetricHandler {
	return &MetricHandler{
		logger:  logger,
		service: service,
	}
}

// Store 接收探针上报的指标
// POST /api/agents/:id/metrics
func (h *MetricHandler) Store(c echo.Context) error {
	agentID := c.Param("id")

	var batch protocol.MetricBatch
	if err := c.Bind(&batch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "请求参数错误",
		})
	}

	result, err := h.service.StoreBatch(c.Request().Context(), agentID, &batch)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "探针不存在",
			})
		}
		h.logger.Error("保存指标失败", zap.String("agentId", agentID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "保存指标失败",
		})
	}
	return c.JSON(http.StatusOK, result)
}

// History 查询历史指标
// GET /api/agents/:id/metrics?type=cpu&range=1h
func (h *MetricHandler) History(c echo.Context) error {
	agentID := c.Param("id")
	metricType := protocol.MetricType(c.QueryParam("type"))
	if metricType == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "指标类型不能为空",
		})
	}

	history, err := h.service.GetHistory(c.Request().Context(), agentID, metricType, c.QueryParam("range"))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedRange) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		h.logger.Error("查询历史指标失败", zap.String("agentId", agentID), zap.Error(err))
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "查询历史指标失败",
		})
	}
	return c.JSON(http.StatusOK, history)
}

// Latest 最近一次上报的快照
// GET /api/agents/:id/metrics/latest
func (h *MetricHandler) Latest(c echo.Context) error {
	latest, err := h.service.GetLatestMetrics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "获取最新指标失败",
		})
	}
	if latest == nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "暂无指标数据",
		})
	}
	return c.JSON(http.StatusOK, latest)
}
