// pkg/cache/summary.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"SignalRadar/pkg/model"
)

// ErrMiss 缓存中没有该策略的扫描汇总
var ErrMiss = errors.New("扫描汇总不存在")

// SummaryStore 最近一次扫描汇总的存取
type SummaryStore interface {
	Save(ctx context.Context, summary *model.ScanSummary) error
	Latest(ctx context.Context, strategyCode string) (*model.ScanSummary, error)
}

// RedisStore 以 JSON 保存在 Redis，key 为 <prefix>scan:latest:<CODE>
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisStore) key(code string) string {
	return r.prefix + "scan:latest:" + strings.ToUpper(code)
}

func (r *RedisStore) Save(ctx context.Context, summary *model.ScanSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("序列化扫描汇总失败: %w", err)
	}
	if err := r.client.Set(ctx, r.key(summary.StrategyCode), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("写入扫描汇总失败: %w", err)
	}
	return nil
}

func (r *RedisStore) Latest(ctx context.Context, strategyCode string) (*model.ScanSummary, error) {
	data, err := r.client.Get(ctx, r.key(strategyCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("读取扫描汇总失败: %w", err)
	}

	var summary model.ScanSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("解析扫描汇总失败: %w", err)
	}
	return &summary, nil
}

// Check 健康检查
func (r *RedisStore) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// MemoryStore 进程内实现，未启用 Redis 时使用
type MemoryStore struct {
	mu     sync.RWMutex
	latest map[string]model.ScanSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{latest: make(map[string]model.ScanSummary)}
}

func (m *MemoryStore) Save(_ context.Context, summary *model.ScanSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[strings.ToUpper(summary.StrategyCode)] = *summary
	return nil
}

func (m *MemoryStore) Latest(_ context.Context, strategyCode string) (*model.ScanSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.latest[strings.ToUpper(strategyCode)]
	if !ok {
		return nil, ErrMiss
	}
	return &s, nil
}
