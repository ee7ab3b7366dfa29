package metric

import (
	"sort"

	"github.com/dushixiang/pika-alert/internal/models"
)

// DataPoint 统一的指标数据点结构
type DataPoint struct {
	Timestamp int64   `json:"timestamp"` // 毫秒时间戳
	Value     float64 `json:"value"`
}

// Series 指标系列（支持多系列，如多网卡、多挂载点）
type Series struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Data   []DataPoint       `json:"data"`
}

type seriesBuilder struct {
	order  []string
	series map[string]*Series
}

func newSeriesBuilder() *seriesBuilder {
	return &seriesBuilder{series: make(map[string]*Series)}
}

func (b *seriesBuilder) add(key, name string, labels map[string]string, timestamp int64, value float64) {
	s, ok := b.series[key]
	if !ok {
		s = &Series{Name: name, Labels: labels}
		b.series[key] = s
		b.order = append(b.order, key)
	}
	s.Data = append(s.Data, DataPoint{Timestamp: timestamp, Value: value})
}

func (b *seriesBuilder) result() []Series {
	keys := append([]string(nil), b.order...)
	sort.Strings(keys)
	out := make([]Series, 0, len(keys))
	for _, key := range keys {
		out = append(out, *b.series[key])
	}
	return out
}

// BuildSeries 将指标行转换为图表使用的系列，rows 为 MetricRepo.QueryMetrics 的返回值
//
// 磁盘按挂载点、网络按网卡拆分系列，不支持的类型返回空
func BuildSeries(rows interface{}) []Series {
	b := newSeriesBuilder()
	switch v := rows.(type) {
	case *[]models.CPUMetric:
		for _, m := range *v {
			b.add("usage", "usage", nil, m.Timestamp, m.UsagePercent)
		}
	case *[]models.MemoryMetric:
		for _, m := range *v {
			b.add("usage", "usage", nil, m.Timestamp, m.UsagePercent)
		}
	case *[]models.DiskMetric:
		for _, m := range *v {
			b.add(m.MountPoint, "usage", map[string]string{"mountPoint": m.MountPoint}, m.Timestamp, m.UsagePercent)
		}
	case *[]models.NetworkMetric:
		for _, m := range *v {
			labels := map[string]string{"interface": m.Interface}
			b.add(m.Interface+"/recv", "recv", labels, m.Timestamp, float64(m.BytesRecvRate))
			b.add(m.Interface+"/sent", "sent", labels, m.Timestamp, float64(m.BytesSentRate))
		}
	case *[]models.LoadMetric:
		for _, m := range *v {
			b.add("load1", "load1", nil, m.Timestamp, m.Load1)
			b.add("load15", "load15", nil, m.Timestamp, m.Load15)
			b.add("load5", "load5", nil, m.Timestamp, m.Load5)
		}
	}
	return b.result()
}
