package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"SignalRadar/pkg/metrics"
	"SignalRadar/pkg/model"
)

// Recorder 信号历史存储
type Recorder interface {
	Record(ctx context.Context, alert *model.AlertHistory) (model.RecordOutcome, error)
	MarkNotified(ctx context.Context, alertID string) error
}

// Outcome 单个信号的分发结果
type Outcome int

const (
	// OutcomeRecorded 新记录，未要求通知
	OutcomeRecorded Outcome = iota + 1
	// OutcomeDuplicate 已存在，未做任何处理
	OutcomeDuplicate
	// OutcomeNotified 新记录且通知成功
	OutcomeNotified
	// OutcomeNotifyFailed 新记录但通知失败
	OutcomeNotifyFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNotified:
		return "notified"
	case OutcomeNotifyFailed:
		return "notify_failed"
	default:
		return "unknown"
	}
}

// Gate 幂等分发: 先写历史，只有新写入的信号才通知
type Gate struct {
	recorder Recorder
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewGate(recorder Recorder, notifier Notifier, timeout time.Duration, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{
		recorder: recorder,
		notifier: notifier,
		timeout:  timeout,
		now:      time.Now,
		log:      log.Named("dispatch"),
	}
}

// Dispatch 记录信号，notify 为 true 且为新信号时发送一次通知
// 写入失败返回错误；通知失败只记录日志
func (g *Gate) Dispatch(ctx context.Context, sig model.StrategySignal, date time.Time, notify bool) (Outcome, error) {
	now := g.now()
	record := BuildRecord(sig, date, now)

	outcome, err := g.recorder.Record(ctx, record)
	if err != nil {
		metrics.RecordsTotal.WithLabelValues(sig.StrategyCode, "error").Inc()
		return 0, fmt.Errorf("记录信号 %s %s 失败: %w", sig.Symbol, sig.TypeKey(), err)
	}
	metrics.RecordsTotal.WithLabelValues(sig.StrategyCode, outcome.String()).Inc()

	if outcome == model.RecordAlreadyExists {
		g.log.Info("信号已存在，跳过",
			zap.String("symbol", sig.Symbol),
			zap.String("type", sig.TypeKey()),
			zap.Time("date", date),
		)
		return OutcomeDuplicate, nil
	}

	g.log.Info("信号已记录",
		zap.String("symbol", sig.Symbol),
		zap.String("type", sig.TypeKey()),
		zap.Float64("price", sig.ClosePrice),
		zap.Float64("strength", sig.Strength),
	)
	if !notify || g.notifier == nil {
		return OutcomeRecorded, nil
	}

	nctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.notifier.Notify(nctx, BuildNotification(sig, date, now)); err != nil {
		metrics.NotificationsTotal.WithLabelValues(g.notifier.Name(), "error").Inc()
		g.log.Warn("信号通知失败",
			zap.String("symbol", sig.Symbol),
			zap.String("signal_code", sig.SignalCode()),
			zap.String("driver", g.notifier.Name()),
			zap.Error(err),
		)
		return OutcomeNotifyFailed, nil
	}
	metrics.NotificationsTotal.WithLabelValues(g.notifier.Name(), "ok").Inc()

	if err := g.recorder.MarkNotified(ctx, record.ID); err != nil {
		g.log.Warn("更新通知状态失败", zap.String("id", record.ID), zap.Error(err))
	}
	return OutcomeNotified, nil
}
