package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher 消息总线发布接口，由 messaging.NATSClient 实现
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// NATSNotifier 发布到 JetStream，主题为 <prefix>.<strategy>
type NATSNotifier struct {
	pub    Publisher
	prefix string
}

func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	return &NATSNotifier{pub: pub, prefix: prefix}
}

func (n *NATSNotifier) Name() string { return "nats" }

func (n *NATSNotifier) Notify(ctx context.Context, msg Notification) error {
	code := msg.SignalCode
	if s, ok := msg.Data["strategy"].(string); ok && s != "" {
		code = s
	}
	subject := fmt.Sprintf("%s.%s", n.prefix, strings.ToLower(code))
	return n.pub.Publish(ctx, subject, msg)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier 写入 Kafka，key 为股票代码
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

// NewKafkaNotifier 创建 Kafka 生产者
func NewKafkaNotifier(brokers []string, topic string, maxRetries int) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            maxRetries,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
	return &KafkaNotifier{writer: writer, topic: topic}
}

func (k *KafkaNotifier) Name() string { return "kafka" }

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(n.Symbol),
		Value: value,
		Headers: []kafka.Header{
			{Key: "signal_code", Value: []byte(n.SignalCode)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("写入 Kafka 主题 %s 失败: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
