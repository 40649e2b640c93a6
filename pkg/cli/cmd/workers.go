package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LENAX/scan-orchestrator/pkg/api"
	"github.com/LENAX/scan-orchestrator/pkg/cli/output"
	"github.com/LENAX/scan-orchestrator/pkg/config"
	"github.com/LENAX/scan-orchestrator/pkg/core/events"
	"github.com/LENAX/scan-orchestrator/pkg/core/scheduler"
	"github.com/LENAX/scan-orchestrator/pkg/core/task"
	"github.com/LENAX/scan-orchestrator/pkg/engine"
	"github.com/LENAX/scan-orchestrator/pkg/jobs/logjobs"
	"github.com/LENAX/scan-orchestrator/pkg/pipeline"
	"github.com/LENAX/scan-orchestrator/pkg/storage"
)

var registerOnly bool

// workersCmd workers子命令
var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "任务Worker管理命令",
	Long:  `管理扫描流水线的任务Worker。`,
}

// workersStartCmd 启动Worker
var workersStartCmd = &cobra.Command{
	Use:   "start",
	Short: "注册工作流定义并启动全部任务Worker",
	Long: `向工作流引擎发布流水线全部工作流定义（幂等），随后逐个启动任务Worker。
任一Worker注册失败立即中止并以非零状态退出。

示例：
  # 注册定义并启动Worker，阻塞直到收到SIGINT/SIGTERM
  scan-orchestrator workers start

  # 只发布工作流定义，不启动Worker
  scan-orchestrator workers start --register-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		output.Info("引擎地址: %s:%d (TLS=%v)", cfg.Engine.Host, cfg.Engine.Port, cfg.Engine.TLSEnabled())

		store, err := storage.Open(cfg.Store.Driver, cfg.Store.DSN, cfg.Store.ConflictAttempts)
		if err != nil {
			output.Error("打开存储失败: %v", err)
			return err
		}
		defer store.Close()

		client, err := engine.NewHTTPClient(&cfg.Engine)
		if err != nil {
			output.Error("创建引擎客户端失败: %v", err)
			return err
		}

		bus := events.NewBus()
		defer bus.Close()

		registrar := pipeline.NewRegistrar(client, &cfg.Engine, bus)

		ctx := context.Background()
		if err := registrar.RegisterAll(ctx); err != nil {
			output.Error("发布工作流定义失败: %v", err)
			return err
		}
		output.Success("流水线工作流定义已全部发布")

		if registerOnly {
			return nil
		}

		// 装配任务Handler：领域操作当前为日志占位实现
		handlers := &task.Handlers{
			Scans:       logjobs.New(),
			Deletions:   logjobs.New(),
			Connections: logjobs.New(),
			Backfills:   logjobs.New(),
			Dedup:       scheduler.NewDeduplicator(store, store),
		}
		registry := task.NewRegistry(bus)
		if err := handlers.RegisterAll(registry); err != nil {
			output.Error("注册任务Handler失败: %v", err)
			return err
		}

		fleet, err := pipeline.NewFleet(client, registry)
		if err != nil {
			output.Error("创建Worker编队失败: %v", err)
			return err
		}
		if err := fleet.Start(ctx); err != nil {
			output.Error("启动Worker失败: %v", err)
			return err
		}
		output.Success("%d个任务Worker已启动", len(fleet.TaskNames()))

		// 管理API（可选）
		var server *api.Server
		if cfg.API.Listen != "" {
			server = api.NewServer(cfg.API.Listen, registrar, &cfg.Engine, bus, Version)
			go func() {
				if err := server.Start(); err != nil {
					output.Error("管理API异常退出: %v", err)
				}
			}()
		}

		// 阻塞直到收到退出信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		output.Info("收到退出信号，开始优雅关闭...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if server != nil {
			if err := server.Shutdown(shutdownCtx); err != nil {
				output.Warning("关闭管理API失败: %v", err)
			}
		}
		if err := fleet.Stop(shutdownCtx); err != nil {
			output.Warning("停止Worker失败: %v", err)
			return err
		}
		output.Success("已全部停止")
		return nil
	},
}

func init() {
	workersStartCmd.Flags().BoolVar(&registerOnly, "register-only", false, "只发布工作流定义，不启动Worker")
	workersCmd.AddCommand(workersStartCmd)
}
