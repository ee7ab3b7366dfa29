package service

import (
	"encoding/json"
	"fmt"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/dushixiang/pika-alert/internal/protocol"
)

// convertMetricItem 将上报的单条指标转换为数据库模型，同时把告警相关的使用率写入快照
func convertMetricItem(agentID string, item protocol.MetricItem, timestamp int64, snapshot *models.MetricSnapshot) (interface{}, error) {
	switch item.Type {
	case protocol.MetricTypeCPU:
		var data protocol.CPUData
		if err := json.Unmarshal(item.Data, &data); err != nil {
			return nil, err
		}
		usage := data.UsagePercent
		snapshot.CPU = &usage
		return &models.CPUMetric{
			AgentID:       agentID,
			UsagePercent:  data.UsagePercent,
			LogicalCores:  data.LogicalCores,
			PhysicalCores: data.PhysicalCores,
			ModelName:     data.ModelName,
			Timestamp:     timestamp,
		}, nil

	case protocol.MetricTypeMemory:
		var data protocol.MemoryData
		if err := json.Unmarshal(item.Data, &data); err != nil {
			return nil, err
		}
		usage := data.UsagePercent
		snapshot.Memory = &usage
		return &models.MemoryMetric{
			AgentID:      agentID,
			Total:        data.Total,
			Used:         data.Used,
			Free:         data.Free,
			UsagePercent: data.UsagePercent,
			SwapTotal:    data.SwapTotal,
			SwapUsed:     data.SwapUsed,
			Timestamp:    timestamp,
		}, nil

	case protocol.MetricTypeDisk:
		var data protocol.DiskData
		if err := json.Unmarshal(item.Data, &data); err != nil {
			return nil, err
		}
		// 多个挂载点取使用率最高的一个
		if snapshot.Disk == nil || data.UsagePercent > *snapshot.Disk {
			usage := data.UsagePercent
			snapshot.Disk = &usage
		}
		return &models.DiskMetric{
			AgentID:      agentID,
			MountPoint:   data.MountPoint,
			Total:        data.Total,
			Used:         data.Used,
			Free:         data.Free,
			UsagePercent: data.UsagePercent,
			Timestamp:    timestamp,
		}, nil

	case protocol.MetricTypeNetwork:
		var data protocol.NetworkData
		if err := json.Unmarshal(item.Data, &data); err != nil {
			return nil, err
		}
		return &models.NetworkMetric{
			AgentID:        agentID,
			Interface:      data.Interface,
			BytesSentRate:  data.BytesSentRate,
			BytesRecvRate:  data.BytesRecvRate,
			BytesSentTotal: data.BytesSentTotal,
			BytesRecvTotal: data.BytesRecvTotal,
			Timestamp:      timestamp,
		}, nil

	case protocol.MetricTypeLoad:
		var data protocol.LoadData
		if err := json.Unmarshal(item.Data, &data); err != nil {
			return nil, err
		}
		return &models.LoadMetric{
			AgentID:   agentID,
			Load1:     data.Load1,
			Load5:     data.Load5,
			Load15:    data.Load15,
			Timestamp: timestamp,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported metric type: %s", item.Type)
	}
}
