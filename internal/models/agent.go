package models

const (
	AgentStatusOffline = 0
	AgentStatusOnline  = 1
)

// Agent 探针
type Agent struct {
	ID         string `gorm:"primaryKey" json:"id"`                  // 探针ID（探针持久化的 UUID）
	Name       string `json:"name"`                                  // 名称
	Hostname   string `gorm:"index" json:"hostname"`                 // 主机名
	IP         string `json:"ip"`                                    // IP地址
	OS         string `json:"os"`                                    // 操作系统
	Arch       string `json:"arch"`                                  // 架构
	Version    string `json:"version"`                               // 探针版本
	Status     int    `gorm:"index" json:"status"`                   // 1 在线 0 离线
	LastSeenAt int64  `json:"lastSeenAt"`                            // 最后心跳时间（毫秒）
	CreatedAt  int64  `json:"createdAt"`                             // 创建时间（毫秒）
	UpdatedAt  int64  `json:"updatedAt" gorm:"autoUpdateTime:milli"` // 更新时间（毫秒）
}

func (Agent) TableName() string {
	return "agents"
}
