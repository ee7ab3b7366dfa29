package protocol

import "encoding/json"

// MetricType 指标类型
type MetricType string

const (
	MetricTypeCPU     MetricType = "cpu"
	MetricTypeMemory  MetricType = "memory"
	MetricTypeDisk    MetricType = "disk"
	MetricTypeNetwork MetricType = "network"
	MetricTypeLoad    MetricType = "load"
)

// MetricBatch 探针批量上报的指标
type MetricBatch struct {
	Metrics []MetricItem `json:"metrics"`
}

// MetricItem 单条指标
type MetricItem struct {
	Type      MetricType      `json:"type"`
	Timestamp int64           `json:"timestamp,omitempty"` // 毫秒，为空时使用服务端接收时间
	Data      json.RawMessage `json:"data"`
}

// CPUData CPU数据
type CPUData struct {
	UsagePercent  float64 `json:"usagePercent"`
	LogicalCores  int     `json:"logicalCores"`
	PhysicalCores int     `json:"physicalCores"`
	ModelName     string  `json:"modelName"`
}

// MemoryData 内存数据
type MemoryData struct {
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Free         uint64  `json:"free"`
	UsagePercent float64 `json:"usagePercent"`
	SwapTotal    uint64  `json:"swapTotal"`
	SwapUsed     uint64  `json:"swapUsed"`
}

// DiskData 磁盘数据
type DiskData struct {
	MountPoint   string  `json:"mountPoint"`
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Free         uint64  `json:"free"`
	UsagePercent float64 `json:"usagePercent"`
}

// NetworkData 网络数据
type NetworkData struct {
	Interface      string `json:"interface"`
	BytesSentRate  uint64 `json:"bytesSentRate"`
	BytesRecvRate  uint64 `json:"bytesRecvRate"`
	BytesSentTotal uint64 `json:"bytesSentTotal"`
	BytesRecvTotal uint64 `json:"bytesRecvTotal"`
}

// LoadData 系统负载
type LoadData struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}
