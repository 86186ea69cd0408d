// Package app 组装各进程共用的组件
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"SignalRadar/pkg/cache"
	"SignalRadar/pkg/calendar"
	"SignalRadar/pkg/config"
	"SignalRadar/pkg/database"
	"SignalRadar/pkg/dispatch"
	"SignalRadar/pkg/engine"
	"SignalRadar/pkg/messaging"
	"SignalRadar/pkg/monitor"
	"SignalRadar/pkg/pipeline"
	"SignalRadar/pkg/strategy"
)

// App 已连接的组件集合
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	DB       *database.TimescaleDB
	Registry *strategy.Registry
	Calendar *calendar.Calendar
	Store    cache.SummaryStore
	Worker   *pipeline.Worker
	Monitor  *monitor.Monitor

	closers []func() error
}

// New 连接数据库和下游并加载策略，策略加载失败直接返回错误
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.Config, a.Log

	cal, err := calendar.New(cfg.Calendar.Timezone, cfg.Calendar.Holidays)
	if err != nil {
		return err
	}
	a.Calendar = cal

	a.Registry = strategy.NewRegistry(cfg.Strategies.Dir, log)
	if _, err := a.Registry.Reload(); err != nil {
		return err
	}

	db, err := database.NewTimescaleDB(cfg)
	if err != nil {
		return err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	a.Monitor = monitor.NewMonitor(func(component, status, message string) {
		log.Warn("组件告警", zap.String("component", component), zap.String("status", status), zap.String("message", message))
	}, log)
	a.Monitor.Register("database", db.Ping)
	a.Monitor.Register("strategies", func(context.Context) error {
		if a.Registry.Snapshot().Len() == 0 {
			return errors.New("没有已加载的策略")
		}
		return nil
	})

	var pub dispatch.Publisher
	if cfg.Notify.Driver == config.NotifyNATS {
		nc, err := messaging.NewNATSClient(ctx, cfg.NATS.URL, messaging.StreamOptions{
			Name:          cfg.NATS.Stream,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}, log)
		if err != nil {
			return err
		}
		pub = nc
		a.closers = append(a.closers, nc.Close)
		a.Monitor.Register("nats", nc.Check)
	}

	notifier, closeNotifier, err := dispatch.BuildNotifier(cfg, pub, log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeNotifier)

	if cfg.Redis.Enabled {
		rs := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, cfg.Redis.TTL)
		a.Store = rs
		a.closers = append(a.closers, rs.Close)
		a.Monitor.Register("redis", rs.Check)
	} else {
		a.Store = cache.NewMemoryStore()
	}

	scanner := engine.NewScanner(db, engine.Options{
		LookbackDays: cfg.Scanner.LookbackDays,
		Workers:      cfg.Scanner.Workers,
		ClosePolicy:  engine.ClosePolicy(cfg.Scanner.ClosePolicy),
	}, log)
	gate := dispatch.NewGate(db.Alert(), notifier, cfg.Notify.Timeout, log)

	a.Worker = pipeline.NewWorker(a.Registry, db.Stock(), scanner, gate, log,
		pipeline.WithStore(a.Store),
		pipeline.WithCalendar(cal),
		pipeline.WithReloadEachRun(cfg.Strategies.ReloadEachRun),
	)

	log.Info("组件初始化完成",
		zap.String("notify_driver", cfg.Notify.Driver),
		zap.Bool("redis", cfg.Redis.Enabled),
		zap.Int("strategies", a.Registry.Snapshot().Len()),
	)
	return nil
}

// Close 按初始化的逆序关闭
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("关闭组件失败: %w", errors.Join(errs...))
	}
	return nil
}
