package collector

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeepPartition(t *testing.T) {
	assert.True(t, keepPartition("ext4"))
	assert.True(t, keepPartition("xfs"))
	assert.False(t, keepPartition("tmpfs"))
	assert.False(t, keepPartition("overlay"))
	assert.False(t, keepPartition(""))
}

func TestNetworkRates(t *testing.T) {
	prev := map[string]net.IOCountersStat{
		"eth0": {Name: "eth0", BytesSent: 1000, BytesRecv: 2000},
		"eth1": {Name: "eth1", BytesSent: 5000, BytesRecv: 5000},
	}
	current := map[string]net.IOCountersStat{
		"eth0": {Name: "eth0", BytesSent: 3000, BytesRecv: 6000},
		"eth1": {Name: "eth1", BytesSent: 10, BytesRecv: 10},
		"eth2": {Name: "eth2", BytesSent: 100, BytesRecv: 100},
	}

	rates := make(map[string]protocol.NetworkData)
	for _, item := range networkRates(prev, current, 2*time.Second) {
		rates[item.Interface] = item
	}

	require.Len(t, rates, 3)
	assert.EqualValues(t, 1000, rates["eth0"].BytesSentRate)
	assert.EqualValues(t, 2000, rates["eth0"].BytesRecvRate)
	assert.EqualValues(t, 6000, rates["eth0"].BytesRecvTotal)
	assert.Zero(t, rates["eth1"].BytesSentRate, "计数器回绕不计算速率")
	assert.Zero(t, rates["eth2"].BytesRecvRate, "新网卡首次采集速率为 0")
}

func TestCollectIncludesCPUAndMemory(t *testing.T) {
	batch := NewSystemCollector().Collect(context.Background())

	types := make(map[protocol.MetricType]bool)
	for _, item := range batch.Metrics {
		types[item.Type] = true
		assert.NotZero(t, item.Timestamp)
	}
	assert.True(t, types[protocol.MetricTypeCPU])
	assert.True(t, types[protocol.MetricTypeMemory])
}
