package collector

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

// 不参与磁盘使用率统计的文件系统
var ignoredFsTypes = map[string]struct{}{
	"tmpfs":      {},
	"devtmpfs":   {},
	"devfs":      {},
	"overlay":    {},
	"squashfs":   {},
	"proc":       {},
	"sysfs":      {},
	"cgroup":     {},
	"cgroup2":    {},
	"autofs":     {},
	"nsfs":       {},
	"tracefs":    {},
	"debugfs":    {},
	"securityfs": {},
	"pstore":     {},
	"fusectl":    {},
	"mqueue":     {},
	"hugetlbfs":  {},
}

// SystemCollector 系统指标采集器
type SystemCollector struct {
	mu          sync.Mutex
	lastNet     map[string]net.IOCountersStat
	lastNetTime time.Time
}

// NewSystemCollector 创建系统指标采集器
func NewSystemCollector() *SystemCollector {
	return &SystemCollector{}
}

// HostInfo 注册时上报的主机信息
func HostInfo(ctx context.Context) (*protocol.AgentInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &protocol.AgentInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Arch:     info.KernelArch,
	}, nil
}

// CollectCPU 采集 CPU 使用率，统计区间为上次调用到本次调用
func (c *SystemCollector) CollectCPU(ctx context.Context) (*protocol.CPUData, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}

	data := &protocol.CPUData{}
	if len(percents) > 0 {
		data.UsagePercent = percents[0]
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		data.LogicalCores = n
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		data.PhysicalCores = n
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		data.ModelName = infos[0].ModelName
	}
	return data, nil
}

// CollectMemory 采集内存
func (c *SystemCollector) CollectMemory(ctx context.Context) (*protocol.MemoryData, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	data := &protocol.MemoryData{
		Total:        vm.Total,
		Used:         vm.Used,
		Free:         vm.Available,
		UsagePercent: vm.UsedPercent,
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		data.SwapTotal = swap.Total
		data.SwapUsed = swap.Used
	}
	return data, nil
}

// CollectDisks 采集每个物理挂载点的使用情况
func (c *SystemCollector) CollectDisks(ctx context.Context) ([]protocol.DiskData, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var disks []protocol.DiskData
	for _, p := range partitions {
		if !keepPartition(p.Fstype) {
			continue
		}
		if _, ok := seen[p.Mountpoint]; ok {
			continue
		}
		seen[p.Mountpoint] = struct{}{}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		disks = append(disks, protocol.DiskData{
			MountPoint:   p.Mountpoint,
			Total:        usage.Total,
			Used:         usage.Used,
			Free:         usage.Free,
			UsagePercent: usage.UsedPercent,
		})
	}
	return disks, nil
}

func keepPartition(fstype string) bool {
	if fstype == "" {
		return false
	}
	_, ignored := ignoredFsTypes[fstype]
	return !ignored
}

// CollectNetwork 采集网卡流量，速率为两次采集之间的平均值，首次采集速率为 0
func (c *SystemCollector) CollectNetwork(ctx context.Context) ([]protocol.NetworkData, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	current := make(map[string]net.IOCountersStat, len(counters))
	for _, counter := range counters {
		if counter.Name == "lo" {
			continue
		}
		current[counter.Name] = counter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	data := networkRates(c.lastNet, current, now.Sub(c.lastNetTime))
	c.lastNet = current
	c.lastNetTime = now
	return data, nil
}

func networkRates(prev, current map[string]net.IOCountersStat, elapsed time.Duration) []protocol.NetworkData {
	seconds := elapsed.Seconds()
	data := make([]protocol.NetworkData, 0, len(current))
	for name, counter := range current {
		item := protocol.NetworkData{
			Interface:      name,
			BytesSentTotal: counter.BytesSent,
			BytesRecvTotal: counter.BytesRecv,
		}
		// 计数器回绕或网卡重建时不计算速率
		if last, ok := prev[name]; ok && seconds > 0 &&
			counter.BytesSent >= last.BytesSent && counter.BytesRecv >= last.BytesRecv {
			item.BytesSentRate = uint64(float64(counter.BytesSent-last.BytesSent) / seconds)
			item.BytesRecvRate = uint64(float64(counter.BytesRecv-last.BytesRecv) / seconds)
		}
		data = append(data, item)
	}
	return data
}

// CollectLoad 采集系统负载
func (c *SystemCollector) CollectLoad(ctx context.Context) (*protocol.LoadData, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &protocol.LoadData{
		Load1:  avg.Load1,
		Load5:  avg.Load5,
		Load15: avg.Load15,
	}, nil
}

// Collect 采集全部指标，单项失败只记录日志
func (c *SystemCollector) Collect(ctx context.Context) *protocol.MetricBatch {
	timestamp := time.Now().UnixMilli()
	batch := &protocol.MetricBatch{}

	add := func(metricType protocol.MetricType, data interface{}) {
		raw, err := json.Marshal(data)
		if err != nil {
			slog.Warn("序列化指标失败", "type", metricType, "error", err)
			return
		}
		batch.Metrics = append(batch.Metrics, protocol.MetricItem{Type: metricType, Timestamp: timestamp, Data: raw})
	}

	if data, err := c.CollectCPU(ctx); err != nil {
		slog.Warn("采集 CPU 失败", "error", err)
	} else {
		add(protocol.MetricTypeCPU, data)
	}

	if data, err := c.CollectMemory(ctx); err != nil {
		slog.Warn("采集内存失败", "error", err)
	} else {
		add(protocol.MetricTypeMemory, data)
	}

	if disks, err := c.CollectDisks(ctx); err != nil {
		slog.Warn("采集磁盘失败", "error", err)
	} else {
		for _, data := range disks {
			add(protocol.MetricTypeDisk, data)
		}
	}

	if nics, err := c.CollectNetwork(ctx); err != nil {
		slog.Warn("采集网络失败", "error", err)
	} else {
		for _, data := range nics {
			add(protocol.MetricTypeNetwork, data)
		}
	}

	if data, err := c.CollectLoad(ctx); err != nil {
		slog.Debug("采集系统负载失败", "error", err)
	} else {
		add(protocol.MetricTypeLoad, data)
	}

	return batch
}
