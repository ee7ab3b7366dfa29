package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/dushixiang/pika-alert/pkg/agent/config"
	"github.com/jpillora/backoff"
)

// ErrAgentNotFound 服务端已删除该探针，需要重新注册
var ErrAgentNotFound = errors.New("探针不存在")

// StatusError 服务端返回的非 2xx 响应
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP 状态码: %d, %s", e.StatusCode, e.Message)
}

// Client 服务端接口客户端
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client

	// 注册失败时的重试间隔
	Backoff *backoff.Backoff
}

// New 创建客户端
func New(cfg *config.Config) *Client {
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
	}
	if cfg.Server.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Server.Endpoint, "/"),
		apiKey:     cfg.Server.APIKey,
		httpClient: httpClient,
		Backoff: &backoff.Backoff{
			Min:    time.Second,
			Max:    time.Minute,
			Factor: 2,
			Jitter: true,
		},
	}
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrAgentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &StatusError{StatusCode: resp.StatusCode, Message: payload["error"]}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// Register 注册探针，返回服务端分配的 ID
func (c *Client) Register(ctx context.Context, info protocol.AgentInfo) (string, error) {
	var resp protocol.RegisterResponse
	if err := c.post(ctx, "/api/agents/register", info, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("注册响应缺少探针 ID")
	}
	return resp.ID, nil
}

// RegisterWithRetry 注册失败时按退避间隔重试，直到成功或 ctx 结束
//
// 认证失败（401）不会重试
func (c *Client) RegisterWithRetry(ctx context.Context, info protocol.AgentInfo) (string, error) {
	defer c.Backoff.Reset()
	for {
		agentID, err := c.Register(ctx, info)
		if err == nil {
			return agentID, nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
			return "", err
		}

		wait := c.Backoff.Duration()
		slog.Warn("探针注册失败，稍后重试", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Heartbeat 发送心跳
func (c *Client) Heartbeat(ctx context.Context, agentID string) error {
	return c.post(ctx, "/api/agents/"+agentID+"/heartbeat", nil, nil)
}

// ReportMetrics 上报一批指标
func (c *Client) ReportMetrics(ctx context.Context, agentID string, batch *protocol.MetricBatch) error {
	return c.post(ctx, "/api/agents/"+agentID+"/metrics", batch, nil)
}
