package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"SignalRadar/pkg/api"
	"SignalRadar/pkg/app"
	"SignalRadar/pkg/config"
	"SignalRadar/pkg/logger"
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
	lg.Info("启动API服务...", zap.String("config", configPath))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("初始化失败", zap.Error(err))
	}
	defer a.Close()

	handlers := api.NewHandlers(a.Worker, a.Store, a.DB.Alert(), a.Monitor)
	server := api.NewServer(cfg.API.Port, cfg.API.ReadTimeout, cfg.API.WriteTimeout, lg)
	server.SetupRoutes(handlers)
	if err := server.Run(ctx); err != nil {
		lg.Error("API服务异常退出", zap.Error(err))
	}
}
