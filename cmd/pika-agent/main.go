package main

import (
	"fmt"
	"os"

	"github.com/dushixiang/pika-alert/pkg/agent/config"
	"github.com/dushixiang/pika-alert/pkg/agent/service"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	configPath string
)

func main() {
	service.SetVersion(version)

	rootCmd := &cobra.Command{
		Use:     "pika-agent",
		Short:   "Pika 监控探针",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "agent.yaml", "配置文件路径")

	rootCmd.AddCommand(
		newInitCmd(),
		newRunCmd(),
		newInstallCmd(),
		newUninstallCmd(),
		newServiceCmd("start", "启动服务", (*service.ServiceManager).Start),
		newServiceCmd("stop", "停止服务", (*service.ServiceManager).Stop),
		newServiceCmd("restart", "重启服务", (*service.ServiceManager).Restart),
		newStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadManager() (*service.ServiceManager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return service.NewServiceManager(cfg)
}

func newInitCmd() *cobra.Command {
	var endpoint, apiKey, name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "生成配置文件",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.Server.Endpoint = endpoint
			cfg.Server.APIKey = apiKey
			cfg.Agent.Name = name
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "配置已写入 %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "http://127.0.0.1:8080", "服务端地址")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "探针 API Key")
	cmd.Flags().StringVar(&name, "name", "", "探针名称")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "前台运行探针",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			return mgr.Run()
		},
	}
}

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "安装为系统服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			if err := mgr.Install(); err != nil {
				return fmt.Errorf("安装服务失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "服务安装成功，执行 pika-agent start 启动")
			return nil
		},
	}
}

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "卸载系统服务并删除配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := service.UninstallAgent(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "服务已卸载")
			return nil
		},
	}
}

func newServiceCmd(use, short string, action func(*service.ServiceManager) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			return action(mgr)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "查看服务状态",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := loadManager()
			if err != nil {
				return err
			}
			status, err := mgr.Status()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}
}
