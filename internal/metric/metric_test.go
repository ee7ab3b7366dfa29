package metric

import (
	"testing"

	"github.com/dushixiang/pika-alert/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSeriesCPU(t *testing.T) {
	rows := &[]models.CPUMetric{
		{UsagePercent: 10, Timestamp: 1000},
		{UsagePercent: 20, Timestamp: 2000},
	}

	series := BuildSeries(rows)
	require.Len(t, series, 1)
	assert.Equal(t, "usage", series[0].Name)
	assert.Equal(t, []DataPoint{{Timestamp: 1000, Value: 10}, {Timestamp: 2000, Value: 20}}, series[0].Data)
}

func TestBuildSeriesSplitsDisks(t *testing.T) {
	rows := &[]models.DiskMetric{
		{MountPoint: "/data", UsagePercent: 90, Timestamp: 1000},
		{MountPoint: "/", UsagePercent: 40, Timestamp: 1000},
		{MountPoint: "/data", UsagePercent: 91, Timestamp: 2000},
	}

	series := BuildSeries(rows)
	require.Len(t, series, 2)
	assert.Equal(t, "/", series[0].Labels["mountPoint"])
	assert.Equal(t, "/data", series[1].Labels["mountPoint"])
	assert.Len(t, series[1].Data, 2)
}

func TestBuildSeriesNetworkAndLoad(t *testing.T) {
	network := BuildSeries(&[]models.NetworkMetric{{Interface: "eth0", BytesRecvRate: 5, BytesSentRate: 7, Timestamp: 1}})
	require.Len(t, network, 2)
	assert.Equal(t, "recv", network[0].Name)
	assert.Equal(t, 7.0, network[1].Data[0].Value)

	load := BuildSeries(&[]models.LoadMetric{{Load1: 1, Load5: 5, Load15: 15, Timestamp: 1}})
	require.Len(t, load, 3)

	assert.Empty(t, BuildSeries(nil))
}
