package protocol

// 实时推送的事件类型
const (
	EventMetrics       = "metrics"
	EventAlertFired    = "alert_fired"
	EventAlertResolved = "alert_resolved"
	EventAgentStatus   = "agent_status"
)

// Event 推送给 websocket 客户端的消息
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// AgentStatusEvent 探针上下线事件
type AgentStatusEvent struct {
	AgentID string `json:"agentId"`
	Status  int    `json:"status"`
}

// MetricsEvent 指标上报事件
type MetricsEvent struct {
	AgentID   string      `json:"agentId"`
	Timestamp int64       `json:"timestamp"`
	Snapshot  interface{} `json:"snapshot"`
}
