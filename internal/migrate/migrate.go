package migrate

import (
	"github.com/dushixiang/pika-alert/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate 同步表结构
func Migrate(logger *zap.Logger, db *gorm.DB) error {
	logger.Info("开始执行数据迁移")

	tables := []interface{}{
		&models.Agent{},
		&models.AlertConfig{},
		&models.AlertRecord{},
		&models.AlertState{},
		&models.CPUMetric{},
		&models.MemoryMetric{},
		&models.DiskMetric{},
		&models.NetworkMetric{},
		&models.LoadMetric{},
	}
	for _, table := range tables {
		if err := db.AutoMigrate(table); err != nil {
			logger.Error("同步表结构失败", zap.Any("table", table), zap.Error(err))
			return err
		}
	}

	if err := dropLegacyTables(logger, db); err != nil {
		return err
	}

	logger.Info("数据迁移完成", zap.Int("tables", len(tables)))
	return nil
}

// dropLegacyTables 删除旧版本遗留的表
func dropLegacyTables(logger *zap.Logger, db *gorm.DB) error {
	migrator := db.Migrator()
	for _, table := range []string{"ssh_login_events", "host_metrics"} {
		if !migrator.HasTable(table) {
			continue
		}
		if err := migrator.DropTable(table); err != nil {
			logger.Error("删除旧表失败", zap.String("table", table), zap.Error(err))
			return err
		}
		logger.Info("已删除旧表", zap.String("table", table))
	}
	return nil
}
