package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AlertHandler 告警处理器
type AlertHandler struct {
	logger  *zap.Logger
	service *service.AlertService
}

// NewAlertHandler 创建处理器
func NewAlertHandler(logger *zap.Logger, service *service.AlertService) *AlertHandler {
	return &AlertHandler{
		logger:  logger,
		service: service,
	}
}

type alertConfigRequest struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Rules   models.AlertRules `json:"rules"`
}

func (r alertConfigRequest) toModel(agentID string) *models.AlertConfig {
	return &models.AlertConfig{
		AgentID: agentID,
		Name:    r.Name,
		Enabled: r.Enabled,
		Rules:   r.Rules,
	}
}

func (h *AlertHandler) configError(c echo.Context, err error, msg string) error {
	switch {
	case service.IsValidationError(err):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrAlertConfigNotFound), errors.Is(err, service.ErrAgentNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": err.Error(),
		})
	default:
		h.logger.Error(msg, zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": msg,
		})
	}
}

// ListConfigs 探针的告警配置
// GET /api/agents/:id/alert-configs
func (h *AlertHandler) ListConfigs(c echo.Context) error {
	configs, err := h.service.ListConfigsByAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.configError(c, err, "获取告警配置失败")
	}
	return c.JSON(http.StatusOK, configs)
}

// CreateConfig 创建告警配置
// POST /api/agents/:id/alert-configs
func (h *AlertHandler) CreateConfig(c echo.Context) error {
	var req alertConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "请求参数错误",
		})
	}

	config := req.toModel(c.Param("id"))
	if err := h.service.CreateConfig(c.Request().Context(), config); err != nil {
		return h.configError(c, err, "创建告警配置失败")
	}
	return c.JSON(http.StatusCreated, config)
}

// GetConfig 告警配置详情
// GET /api/alert-configs/:id
func (h *AlertHandler) GetConfig(c echo.Context) error {
	config, err := h.service.GetConfig(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.configError(c, err, "获取告警配置失败")
	}
	return c.JSON(http.StatusOK, config)
}

// UpdateConfig 更新告警配置
// PUT /api/alert-configs/:id
func (h *AlertHandler) UpdateConfig(c echo.Context) error {
	var req alertConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "请求参数错误",
		})
	}

	config, err := h.service.UpdateConfig(c.Request().Context(), c.Param("id"), req.toModel(""))
	if err != nil {
		return h.configError(c, err, "更新告警配置失败")
	}
	return c.JSON(http.StatusOK, config)
}

// DeleteConfig 删除告警配置
// DELETE /api/alert-configs/:id
func (h *AlertHandler) DeleteConfig(c echo.Context) error {
	if err := h.service.DeleteConfig(c.Request().Context(), c.Param("id")); err != nil {
		return h.configError(c, err, "删除告警配置失败")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListRecords 告警记录
// GET /api/alert-records?agentId=&limit=20&offset=0
func (h *AlertHandler) ListRecords(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	page, err := h.service.ListRecords(c.Request().Context(), c.QueryParam("agentId"), limit, offset)
	if err != nil {
		h.logger.Error("获取告警记录失败", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "获取告警记录失败",
		})
	}
	return c.JSON(http.StatusOK, page)
}

// ClearRecords 清空告警记录
// DELETE /api/alert-records
func (h *AlertHandler) ClearRecords(c echo.Context) error {
	if err := h.service.ClearRecords(c.Request().Context()); err != nil {
		h.logger.Error("清空告警记录失败", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "清空告警记录失败",
		})
	}
	return c.NoContent(http.StatusNoContent)
}
