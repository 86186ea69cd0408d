package dispatch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"SignalRadar/pkg/config"
)

// BuildNotifier 按 notify.driver 创建通知器，nats 驱动需要传入已连接的 pub
// 返回的 closer 在进程退出前调用
func BuildNotifier(cfg *config.Config, pub Publisher, log *zap.Logger) (Notifier, func() error, error) {
	noop := func() error { return nil }

	var (
		notifier Notifier
		closer   = noop
	)
	switch cfg.Notify.Driver {
	case config.NotifyLog:
		notifier = NewLogNotifier(log)
	case config.NotifyWebhook:
		notifier = NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	case config.NotifyNATS:
		if pub == nil {
			return nil, noop, errors.New("nats 驱动缺少消息总线连接")
		}
		notifier = NewNATSNotifier(pub, cfg.NATS.SubjectPrefix)
	case config.NotifyKafka:
		k := NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.MaxRetries)
		notifier, closer = k, k.Close
	default:
		return nil, noop, fmt.Errorf("未知的通知驱动: %s", cfg.Notify.Driver)
	}

	return NewRateLimited(notifier, cfg.Notify.RatePerSecond, cfg.Notify.Burst), closer, nil
}
