package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"SignalRadar/pkg/app"
	"SignalRadar/pkg/config"
	"SignalRadar/pkg/logger"
	"SignalRadar/pkg/scheduler"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v\n", err)
	}
	lg := logger.Must(cfg.App.LogLevel, cfg.App.Env)
	defer func() { _ = lg.Sync() }()
	lg.Info("启动定时扫描服务...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("初始化失败", zap.Error(err))
	}
	defer a.Close()

	sched := scheduler.NewScheduler(cfg, a.Worker, a.Calendar, a.Monitor, lg)
	if err := sched.Start(); err != nil {
		lg.Fatal("启动调度器失败", zap.Error(err))
	}

	// 等待中断信号
	<-ctx.Done()
	lg.Info("正在关闭定时扫描服务，等待运行中的任务...")
	<-sched.Stop().Done()
	lg.Info("定时扫描服务已关闭")
}
