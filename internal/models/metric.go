package models

// CPUMetric CPU 指标
type CPUMetric struct {
	ID            int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID       string  `gorm:"index:idx_cpu_agent_ts" json:"agentId"`
	UsagePercent  float64 `json:"usagePercent"`
	LogicalCores  int     `json:"logicalCores"`
	PhysicalCores int     `json:"physicalCores"`
	ModelName     string  `json:"modelName"`
	Timestamp     int64   `gorm:"index:idx_cpu_agent_ts" json:"timestamp"` // 毫秒
}

func (CPUMetric) TableName() string {
	return "cpu_metrics"
}

// MemoryMetric 内存指标
type MemoryMetric struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID      string  `gorm:"index:idx_memory_agent_ts" json:"agentId"`
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Free         uint64  `json:"free"`
	UsagePercent float64 `json:"usagePercent"`
	SwapTotal    uint64  `json:"swapTotal"`
	SwapUsed     uint64  `json:"swapUsed"`
	Timestamp    int64   `gorm:"index:idx_memory_agent_ts" json:"timestamp"`
}

func (MemoryMetric) TableName() string {
	return "memory_metrics"
}

// DiskMetric 磁盘指标
type DiskMetric struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID      string  `gorm:"index:idx_disk_agent_ts" json:"agentId"`
	MountPoint   string  `json:"mountPoint"`
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Free         uint64  `json:"free"`
	UsagePercent float64 `json:"usagePercent"`
	Timestamp    int64   `gorm:"index:idx_disk_agent_ts" json:"timestamp"`
}

func (DiskMetric) TableName() string {
	return "disk_metrics"
}

// NetworkMetric 网络指标
type NetworkMetric struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID        string `gorm:"index:idx_network_agent_ts" json:"agentId"`
	Interface      string `json:"interface"`
	BytesSentRate  uint64 `json:"bytesSentRate"`
	BytesRecvRate  uint64 `json:"bytesRecvRate"`
	BytesSentTotal uint64 `json:"bytesSentTotal"`
	BytesRecvTotal uint64 `json:"bytesRecvTotal"`
	Timestamp      int64  `gorm:"index:idx_network_agent_ts" json:"timestamp"`
}

func (NetworkMetric) TableName() string {
	return "network_metrics"
}

// LoadMetric 系统负载
type LoadMetric struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID   string  `gorm:"index:idx_load_agent_ts" json:"agentId"`
	Load1     float64 `json:"load1"`
	Load5     float64 `json:"load5"`
	Load15    float64 `json:"load15"`
	Timestamp int64   `gorm:"index:idx_load_agent_ts" json:"timestamp"`
}

func (LoadMetric) TableName() string {
	return "load_metrics"
}
