package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dushixiang/pika-alert/internal/config"
	"github.com/dushixiang/pika-alert/internal/database"
	"github.com/dushixiang/pika-alert/internal/logger"
	"github.com/dushixiang/pika-alert/internal/migrate"
	"github.com/dushixiang/pika-alert/internal/server"
	"github.com/dushixiang/pika-alert/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	version = "dev"

	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "pika",
		Short:   "Pika 服务器监控与告警服务",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径 (默认 ./config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newConfigCmd(),
		newHashPasswordCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.AppConfig, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.New(cfg.Log)

	db, err := database.Open(log, cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrate.Migrate(log, db); err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			s, err := server.New(log, cfg, db)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, _, err := setup()
			if err != nil {
				return err
			}
			log.Info("数据库迁移完成")
			_ = log.Sync()
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "输出当前生效的配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "生成管理员密码的 bcrypt 哈希，填入 Auth.Users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
