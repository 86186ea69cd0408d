// pkg/pipeline/worker.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"SignalRadar/pkg/cache"
	"SignalRadar/pkg/calendar"
	"SignalRadar/pkg/dispatch"
	"SignalRadar/pkg/engine"
	"SignalRadar/pkg/metrics"
	"SignalRadar/pkg/model"
	"SignalRadar/pkg/strategy"
)

// ErrUnknownStrategy 注册表中没有该策略
var ErrUnknownStrategy = errors.New("策略不存在")

// CandidateSource 候选标的来源
type CandidateSource interface {
	SelectCandidates(ctx context.Context, minPrice float64, topN int) ([]model.Stock, error)
}

// Scanner 策略扫描
type Scanner interface {
	Scan(ctx context.Context, candidates []model.Stock, def *strategy.Definition, targetDate time.Time) (*engine.Result, error)
}

// Dispatcher 信号记录与通知
type Dispatcher interface {
	Dispatch(ctx context.Context, sig model.StrategySignal, date time.Time, notify bool) (dispatch.Outcome, error)
}

// RunOptions 单次运行参数，TargetDate 为零值时取日历当日
type RunOptions struct {
	TargetDate time.Time
	Notify     bool
}

// Worker 串联候选筛选、扫描和分发
type Worker struct {
	registry      *strategy.Registry
	candidates    CandidateSource
	scanner       Scanner
	dispatcher    Dispatcher
	store         cache.SummaryStore
	calendar      *calendar.Calendar
	reloadEachRun bool
	now           func() time.Time
	log           *zap.Logger
}

type Option func(*Worker)

// WithStore 保存每次运行的汇总
func WithStore(store cache.SummaryStore) Option {
	return func(w *Worker) { w.store = store }
}

func WithCalendar(cal *calendar.Calendar) Option {
	return func(w *Worker) { w.calendar = cal }
}

// WithReloadEachRun 每次运行前重新加载策略目录
func WithReloadEachRun(reload bool) Option {
	return func(w *Worker) { w.reloadEachRun = reload }
}

func NewWorker(registry *strategy.Registry, candidates CandidateSource, scanner Scanner, dispatcher Dispatcher, log *zap.Logger, opts ...Option) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Worker{
		registry:   registry,
		candidates: candidates,
		scanner:    scanner,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        log.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Registry() *strategy.Registry {
	return w.registry
}

// TargetDate 解析运行日期
func (w *Worker) TargetDate(opts RunOptions) time.Time {
	if !opts.TargetDate.IsZero() {
		return calendar.Date(opts.TargetDate)
	}
	if w.calendar != nil {
		return w.calendar.Today(w.now())
	}
	return calendar.Date(w.now())
}

func (w *Worker) reload() error {
	if !w.reloadEachRun {
		return nil
	}
	if _, err := w.registry.Reload(); err != nil {
		return err
	}
	return nil
}

// RunStrategy 运行单个策略
func (w *Worker) RunStrategy(ctx context.Context, code string, opts RunOptions) (*model.ScanSummary, error) {
	if err := w.reload(); err != nil {
		return nil, err
	}
	def, ok := w.registry.Get(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, code)
	}
	return w.run(ctx, def, opts)
}

// RunAll 按代码顺序运行全部已启用策略
// 单个策略失败不影响其余策略，全部失败时返回合并的错误
func (w *Worker) RunAll(ctx context.Context, opts RunOptions) ([]*model.ScanSummary, error) {
	if err := w.reload(); err != nil {
		return nil, err
	}
	defs := w.registry.Snapshot().Enabled()
	if len(defs) == 0 {
		w.log.Warn("没有已启用的策略")
		return nil, nil
	}

	summaries := make([]*model.ScanSummary, 0, len(defs))
	var errs []error
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		summary, err := w.run(ctx, def, opts)
		summaries = append(summaries, summary)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", def.Code, err))
		}
	}

	if len(errs) > 0 && len(errs) >= len(defs) {
		return summaries, errors.Join(errs...)
	}
	return summaries, nil
}

func (w *Worker) run(ctx context.Context, def *strategy.Definition, opts RunOptions) (*model.ScanSummary, error) {
	summary := &model.ScanSummary{
		RunID:        uuid.NewString(),
		StrategyCode: def.Code,
		TargetDate:   w.TargetDate(opts),
		Notify:       opts.Notify,
		StartedAt:    w.now(),
	}
	log := w.log.With(
		zap.String("run_id", summary.RunID),
		zap.String("strategy", def.Code),
		zap.String("target_date", summary.TargetDate.Format("2006-01-02")),
	)

	if !def.Enabled {
		summary.Status = model.ScanDisabled
		log.Info("策略未启用，跳过")
		w.finish(ctx, summary, log)
		return summary, nil
	}

	err := w.scan(ctx, def, summary, log)
	if err != nil {
		summary.Status = model.ScanFailed
		summary.Error = err.Error()
		log.Error("策略运行失败", zap.Error(err))
	} else {
		summary.Status = model.ScanCompleted
	}
	w.finish(ctx, summary, log)
	return summary, err
}

func (w *Worker) scan(ctx context.Context, def *strategy.Definition, summary *model.ScanSummary, log *zap.Logger) error {
	candidates, err := w.candidates.SelectCandidates(ctx, def.Filters.MinPrice, def.Filters.TopN)
	if err != nil {
		return fmt.Errorf("筛选候选标的失败: %w", err)
	}
	summary.Candidates = len(candidates)
	log.Info("候选标的筛选完成",
		zap.Int("candidates", len(candidates)),
		zap.Int("top_n", def.Filters.TopN),
		zap.Float64("min_price", def.Filters.MinPrice),
	)

	result, err := w.scanner.Scan(ctx, candidates, def, summary.TargetDate)
	if err != nil {
		return err
	}
	summary.Evaluated = result.Evaluated
	summary.Skipped = result.Skipped
	summary.Failed = result.Failed
	summary.Signals = len(result.Signals)

	for _, sig := range result.Signals {
		if sig.SignalType == model.SignalEntry {
			summary.Entries++
		} else {
			summary.Exits++
		}

		outcome, err := w.dispatcher.Dispatch(ctx, sig, summary.TargetDate, summary.Notify)
		if err != nil {
			summary.RecordFailed++
			log.Error("信号分发失败", zap.String("symbol", sig.Symbol), zap.Error(err))
			continue
		}
		switch outcome {
		case dispatch.OutcomeDuplicate:
			summary.Duplicates++
		case dispatch.OutcomeRecorded:
			summary.Recorded++
		case dispatch.OutcomeNotified:
			summary.Recorded++
			summary.Notified++
		case dispatch.OutcomeNotifyFailed:
			summary.Recorded++
			summary.NotifyFailed++
		}
	}
	return nil
}

func (w *Worker) finish(ctx context.Context, summary *model.ScanSummary, log *zap.Logger) {
	summary.Duration = w.now().Sub(summary.StartedAt)
	metrics.ScansTotal.WithLabelValues(summary.StrategyCode, string(summary.Status)).Inc()
	metrics.ScanDuration.WithLabelValues(summary.StrategyCode).Observe(summary.Duration.Seconds())

	if w.store != nil {
		if err := w.store.Save(ctx, summary); err != nil {
			log.Warn("保存扫描汇总失败", zap.Error(err))
		}
	}

	log.Info("策略运行结束",
		zap.String("status", string(summary.Status)),
		zap.Int("candidates", summary.Candidates),
		zap.Int("evaluated", summary.Evaluated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("signals", summary.Signals),
		zap.Int("entries", summary.Entries),
		zap.Int("exits", summary.Exits),
		zap.Int("recorded", summary.Recorded),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("notified", summary.Notified),
		zap.Duration("duration", summary.Duration),
	)
}
