package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"SignalRadar/pkg/cache"
	"SignalRadar/pkg/config"
	"SignalRadar/pkg/database"
	"SignalRadar/pkg/logger"
	"SignalRadar/pkg/monitor"
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
	lg.Info("启动监控服务...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 创建监控系统
	mon := monitor.NewMonitor(func(component, status, message string) {
		lg.Warn("组件告警",
			zap.String("component", component),
			zap.String("status", status),
			zap.String("message", message),
		)
	}, lg)

	// 注册组件
	mon.Register("api-service", monitor.HTTPChecker(fmt.Sprintf("http://localhost:%s/health", cfg.API.Port), 5*time.Second))
	if db, err := database.NewTimescaleDB(cfg); err != nil {
		lg.Warn("连接数据库失败，数据库检查将持续报错", zap.Error(err))
		mon.Register("database", func(context.Context) error { return err })
	} else {
		defer db.Close()
		mon.Register("database", db.Ping)
	}
	if cfg.Redis.Enabled {
		rs := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, cfg.Redis.TTL)
		defer rs.Close()
		mon.Register("redis", rs.Check)
	}

	// 开始定期检查
	mon.StartChecking(ctx, 30*time.Second)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"healthy": mon.Healthy(), "components": mon.GetAllStatus()})
	})

	// 监控服务端口
	srv := &http.Server{Addr: ":8081", Handler: router}
	go func() {
		lg.Info("监控服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error("启动HTTP服务器失败", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	lg.Info("监控服务已关闭")
}
