package handler

import (
	"errors"
	"net/http"

	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AgentHandler 探针处理器
type AgentHandler struct {
	logger  *zap.Logger
	service *service.AgentService
}

// NewAgentHandler 创建处理器
func NewAgentHandler(logger *zap.Logger, service *service.AgentService) *AgentHandler {
	return &AgentHandler{
		logger:  logger,
		service: service,
	}
}

// Register 探针注册
// POST /api/agents/register
func (h *AgentHandler) Register(c echo.Context) error {
	var info protocol.AgentInfo
	if err := c.Bind(&info); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "请求参数错误",
		})
	}
	if err := c.Validate(&info); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	agent, err := h.service.RegisterAgent(c.Request().Context(), c.RealIP(), &info)
	if err != nil {
		h.logger.Error("探针注册失败", zap.String("hostname", info.Hostname), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "注册失败",
		})
	}

	return c.JSON(http.StatusOK, protocol.RegisterResponse{ID: agent.ID})
}

// Heartbeat 探针心跳
// POST /api/agents/:id/heartbeat
func (h *AgentHandler) Heartbeat(c echo.Context) error {
	agentID := c.Param("id")
	if err := h.service.Heartbeat(c.Request().Context(), agentID); err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "探针不存在",
			})
		}
		h.logger.Error("更新探针心跳失败", zap.String("agentId", agentID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "更新心跳失败",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// List 探针列表
// GET /api/agents
func (h *AgentHandler) List(c echo.Context) error {
	agents, err := h.service.ListAgents(c.Request().Context())
	if err != nil {
		h.logger.Error("获取探针列表失败", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "获取探针列表失败",
		})
	}
	return c.JSON(http.StatusOK, agents)
}

// Get 探针详情
// GET /api/agents/:id
func (h *AgentHandler) Get(c echo.Context) error {
	agent, err := h.service.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "探针不存在",
			})
		}
		h.logger.Error("获取探针失败", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "获取探针失败",
		})
	}
	return c.JSON(http.StatusOK, agent)
}

// Delete 删除探针
// DELETE /api/agents/:id
func (h *AgentHandler) Delete(c echo.Context) error {
	agentID := c.Param("id")
	if err := h.service.DeleteAgent(c.Request().Context(), agentID); err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "探针不存在",
			})
		}
		h.logger.Error("删除探针失败", zap.String("agentId", agentID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "删除探针失败",
		})
	}
	return c.NoContent(http.StatusNoContent)
}
