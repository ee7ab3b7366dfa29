package service

import (
	"testing"

	"github.com/dushixiang/pika-alert/pkg/agent/config"
	"github.com/kardianos/service"
	"github.com/stretchr/testify/assert"
)

func TestServiceConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Path = "/etc/pika/agent.yaml"

	svc := serviceConfig(cfg, "/usr/local/bin/pika-agent")
	assert.Equal(t, "pika-agent", svc.Name)
	assert.Equal(t, []string{"run", "--config", "/etc/pika/agent.yaml"}, svc.Arguments)
	assert.Equal(t, "always", svc.Option["Restart"])
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "运行中 (Running)", statusText(service.StatusRunning))
	assert.Equal(t, "已停止 (Stopped)", statusText(service.StatusStopped))
	assert.Equal(t, "状态: 9", statusText(service.Status(9)))
}
