package migrate

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec("CREATE TABLE host_metrics (id INTEGER PRIMARY KEY)").Error)

	require.NoError(t, Migrate(zap.NewNop(), db))
	// 重复执行不应出错
	require.NoError(t, Migrate(zap.NewNop(), db))

	migrator := db.Migrator()
	for _, table := range []string{"agents", "alert_configs", "alert_records", "alert_states", "cpu_metrics", "load_metrics"} {
		assert.True(t, migrator.HasTable(table), table)
	}
	assert.True(t, migrator.HasColumn("alert_configs", "rule_cpu_threshold"))
	assert.False(t, migrator.HasTable("host_metrics"))
}
