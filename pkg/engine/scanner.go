// pkg/engine/scanner.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"SignalRadar/pkg/metrics"
	"SignalRadar/pkg/model"
	"SignalRadar/pkg/strategy"
)

// ErrFetch 批量加载失败，整次扫描中止
var ErrFetch = errors.New("批量加载行情指标失败")

// ClosePolicy 当日收盘价缺失时的处理方式
type ClosePolicy string

const (
	// CloseFallback 回退到窗口内最近一个收盘价
	CloseFallback ClosePolicy = "fallback"
	// CloseStrict 丢弃该信号
	CloseStrict ClosePolicy = "strict"
)

const (
	DefaultLookbackDays = 7
	DefaultWorkers      = 8
)

// SeriesSource 时序数据源
type SeriesSource interface {
	LoadIndicators(ctx context.Context, stockIDs []int64, names []string, from, to time.Time) ([]model.Indicator, error)
	LoadPrices(ctx context.Context, stockIDs []int64, from, to time.Time) ([]model.PriceData, error)
}

// Options 扫描参数
type Options struct {
	LookbackDays int
	Workers      int
	ClosePolicy  ClosePolicy
}

// Result 扫描结果
type Result struct {
	Signals   []model.StrategySignal
	Evaluated int
	Skipped   int
	Failed    int
	Dropped   int
}

// Scanner 信号扫描器
type Scanner struct {
	source SeriesSource
	opts   Options
	log    *zap.Logger
}

func NewScanner(source SeriesSource, opts Options, log *zap.Logger) *Scanner {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultLookbackDays
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.ClosePolicy == "" {
		opts.ClosePolicy = CloseFallback
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{source: source, opts: opts, log: log.Named("scanner")}
}

type instrumentResult struct {
	signals []model.StrategySignal
	skipped bool
	failed  bool
	dropped int
}

// Scan 对候选标的执行一次策略扫描
// 候选为空时返回空结果；批量加载失败返回 ErrFetch；单个标的异常只记录日志
func (s *Scanner) Scan(ctx context.Context, candidates []model.Stock, def *strategy.Definition, targetDate time.Time) (*Result, error) {
	if def == nil {
		return nil, errors.New("策略定义为空")
	}
	result := &Result{}
	if len(candidates) == 0 {
		return result, nil
	}

	target := dateOnly(targetDate)
	from := target.AddDate(0, 0, -s.opts.LookbackDays)

	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	names := def.RequiredIndicators()

	indicators, err := s.source.LoadIndicators(ctx, ids, names, from, target)
	if err != nil {
		return nil, fmt.Errorf("%w: 指标: %w", ErrFetch, err)
	}
	prices, err := s.source.LoadPrices(ctx, ids, from, target)
	if err != nil {
		return nil, fmt.Errorf("%w: 行情: %w", ErrFetch, err)
	}

	cols := NewColumns(names)
	series := BuildSeries(cols, s.opts.LookbackDays+1, indicators, prices)

	results := make([]instrumentResult, len(candidates))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := range candidates {
		g.Go(func() error {
			results[i] = s.scanInstrument(def, candidates[i], series[candidates[i].ID])
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		switch {
		case r.failed:
			result.Failed++
			metrics.InstrumentsSkipped.WithLabelValues(def.Code, "error").Inc()
		case r.skipped:
			result.Skipped++
			metrics.InstrumentsSkipped.WithLabelValues(def.Code, "insufficient_history").Inc()
		default:
			result.Evaluated++
		}
		result.Dropped += r.dropped
		for _, sig := range r.signals {
			metrics.SignalsDetected.WithLabelValues(def.Code, string(sig.SignalType)).Inc()
		}
		result.Signals = append(result.Signals, r.signals...)
	}

	s.log.Info("策略扫描完成",
		zap.String("strategy", def.Code),
		zap.Time("target_date", target),
		zap.Int("candidates", len(candidates)),
		zap.Int("evaluated", result.Evaluated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Int("signals", len(result.Signals)),
	)
	return result, nil
}

func (s *Scanner) scanInstrument(def *strategy.Definition, stock model.Stock, series *Series) (res instrumentResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("标的处理异常，已跳过",
				zap.String("strategy", def.Code),
				zap.String("symbol", stock.Symbol),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			res = instrumentResult{failed: true}
		}
	}()

	if series == nil || series.Len() < 2 {
		n := 0
		if series != nil {
			n = series.Len()
		}
		s.log.Debug("历史数据不足，跳过",
			zap.String("strategy", def.Code),
			zap.String("symbol", stock.Symbol),
			zap.Int("dates", n),
		)
		return instrumentResult{skipped: true}
	}

	currDate := series.Date(0)
	curr, prev := series.Row(0), series.Row(1)
	px, _ := series.PriceOn(currDate)

	entryHit := CrossRuleHit(def.Entry, curr, prev)
	if len(def.EntryConditions) > 0 {
		entryHit = EvaluateConditionSet(def.EntryConditions, curr, prev, px)
	}
	exitHit := CrossRuleHit(def.Exit, curr, prev)
	if len(def.ExitConditions) > 0 {
		exitHit = EvaluateConditionSet(def.ExitConditions, curr, prev, px)
	}

	if entryHit {
		if sig, ok := s.buildSignal(def, model.SignalEntry, def.Entry, stock, series); ok {
			res.signals = append(res.signals, sig)
		} else {
			res.dropped++
		}
	}
	if exitHit {
		if sig, ok := s.buildSignal(def, model.SignalExit, def.Exit, stock, series); ok {
			res.signals = append(res.signals, sig)
		} else {
			res.dropped++
		}
	}
	return res
}

func (s *Scanner) buildSignal(def *strategy.Definition, typ model.SignalType, rule strategy.CrossRule, stock model.Stock, series *Series) (model.StrategySignal, bool) {
	currDate := series.Date(0)
	curr := series.Row(0)

	sig := model.StrategySignal{
		StrategyCode:  def.Code,
		SignalType:    typ,
		Symbol:        stock.Symbol,
		StockID:       stock.ID,
		ObservedOn:    currDate,
		FastIndicator: rule.FastIndicator,
		SlowIndicator: rule.SlowIndicator,
	}
	if v, ok := curr.Value(rule.FastIndicator); ok {
		sig.FastValue = &v
	}
	if v, ok := curr.Value(rule.SlowIndicator); ok {
		sig.SlowValue = &v
	}
	sig.Strength = Strength(sig.FastValue, sig.SlowValue)

	closePrice, priceDate, ok := s.resolveClose(series, currDate)
	if !ok {
		s.log.Warn("当日收盘价缺失，丢弃信号",
			zap.String("strategy", def.Code),
			zap.String("symbol", stock.Symbol),
			zap.String("signal_type", string(typ)),
			zap.Time("date", currDate),
		)
		return sig, false
	}
	sig.ClosePrice, sig.PriceDate = closePrice, priceDate
	if sig.StalePrice() {
		s.log.Warn("使用较早交易日的收盘价",
			zap.String("strategy", def.Code),
			zap.String("symbol", stock.Symbol),
			zap.Time("date", currDate),
			zap.Time("price_date", priceDate),
		)
	}
	return sig, true
}

// resolveClose 优先取观测日收盘价，其次按策略回退
func (s *Scanner) resolveClose(series *Series, currDate time.Time) (float64, time.Time, bool) {
	if px, ok := series.PriceOn(currDate); ok {
		if v, ok := present(px.Close); ok {
			return v, currDate, true
		}
	}
	if s.opts.ClosePolicy == CloseStrict {
		return 0, time.Time{}, false
	}
	if v, d, ok := series.LatestClose(); ok {
		return v, d, true
	}
	return 0, time.Time{}, true
}
