package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"SignalRadar/pkg/calendar"
	"SignalRadar/pkg/config"
	"SignalRadar/pkg/model"
	"SignalRadar/pkg/pipeline"
	"SignalRadar/pkg/strategy"
)

// Runner 策略运行入口，由 pipeline.Worker 实现
type Runner interface {
	RunStrategy(ctx context.Context, code string, opts pipeline.RunOptions) (*model.ScanSummary, error)
	Registry() *strategy.Registry
}

// HealthChecker 健康检查，由 monitor.Monitor 实现
type HealthChecker interface {
	CheckAll(ctx context.Context) map[string]error
}

// Scheduler 任务调度器
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	calendar *calendar.Calendar
	health   HealthChecker
	cfg      *config.Config
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewScheduler 创建任务调度器，表达式带秒字段，按日历时区执行
func NewScheduler(cfg *config.Config, runner Runner, cal *calendar.Calendar, health HealthChecker, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cal.Location()),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
		runner:   runner,
		calendar: cal,
		health:   health,
		cfg:      cfg,
		timeout:  30 * time.Minute,
		now:      time.Now,
		log:      log,
	}
}

// Start 注册任务并启动调度器
func (s *Scheduler) Start() error {
	jobs := s.scanJobs()
	for _, job := range jobs {
		code := job.Strategy
		if _, err := s.cron.AddFunc(job.Spec, func() { s.scan(code) }); err != nil {
			return fmt.Errorf("注册策略 %s 扫描任务失败: %w", code, err)
		}
		s.log.Info("已注册扫描任务", zap.String("strategy", code), zap.String("spec", job.Spec))
	}

	// 每日开盘前重新加载策略
	if _, err := s.cron.AddFunc(s.cfg.Scheduler.ReloadSpec, s.reload); err != nil {
		return fmt.Errorf("注册策略加载任务失败: %w", err)
	}

	if s.health != nil {
		if _, err := s.cron.AddFunc(s.cfg.Scheduler.HealthSpec, s.checkHealth); err != nil {
			return fmt.Errorf("注册健康检查任务失败: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop 停止调度器，等待运行中的任务结束
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// scanJobs 配置了独立表达式的策略按各自表达式运行，其余已启用策略使用 scan_spec
func (s *Scheduler) scanJobs() []config.Job {
	jobs := make([]config.Job, 0, len(s.cfg.Scheduler.Jobs))
	dedicated := make(map[string]bool)
	for _, job := range s.cfg.Scheduler.Jobs {
		code := strings.ToUpper(job.Strategy)
		dedicated[code] = true
		jobs = append(jobs, config.Job{Strategy: code, Spec: job.Spec})
	}
	if s.cfg.Scheduler.ScanSpec == "" {
		return jobs
	}
	for _, def := range s.runner.Registry().Snapshot().Enabled() {
		if !dedicated[def.Code] {
			jobs = append(jobs, config.Job{Strategy: def.Code, Spec: s.cfg.Scheduler.ScanSpec})
		}
	}
	return jobs
}

func (s *Scheduler) scan(code string) {
	today := s.calendar.Today(s.now())
	if !s.calendar.IsTradingDay(today) {
		s.log.Info("非交易日，跳过扫描", zap.String("strategy", code), zap.Time("date", today))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	summary, err := s.runner.RunStrategy(ctx, code, pipeline.RunOptions{TargetDate: today, Notify: true})
	if err != nil {
		s.log.Error("定时扫描失败", zap.String("strategy", code), zap.Error(err))
		return
	}
	s.log.Info("定时扫描完成",
		zap.String("strategy", code),
		zap.String("status", string(summary.Status)),
		zap.Int("signals", summary.Signals),
	)
}

func (s *Scheduler) reload() {
	if _, err := s.runner.Registry().Reload(); err != nil {
		s.log.Error("加载策略失败", zap.Error(err))
	}
}

func (s *Scheduler) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for name, err := range s.health.CheckAll(ctx) {
		if err != nil {
			s.log.Warn("组件不健康", zap.String("component", name), zap.Error(err))
		}
	}
}

// cronLogger 把 cron 内部日志转到 zap
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
