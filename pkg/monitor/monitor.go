package monitor

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// HealthStatus 健康状态
type HealthStatus struct {
	Component   string    `json:"component"`
	Status      string    `json:"status"`
	LastChecked time.Time `json:"last_checked"`
	Message     string    `json:"message,omitempty"`
}

// Checker 组件检查函数，返回 nil 表示健康
type Checker func(ctx context.Context) error

// AlertFunc 状态变为非健康时回调
type AlertFunc func(component, status, message string)

// Monitor 监控系统
type Monitor struct {
	components map[string]*HealthStatus
	checkers   map[string]Checker
	mutex      sync.RWMutex
	alertFunc  AlertFunc
	log        *zap.Logger
}

// NewMonitor 创建新的监控系统
func NewMonitor(alertFunc AlertFunc, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		components: make(map[string]*HealthStatus),
		checkers:   make(map[string]Checker),
		alertFunc:  alertFunc,
		log:        log.Named("monitor"),
	}
}

// Register 注册组件及其检查函数
func (m *Monitor) Register(component string, check Checker) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.components[component] = &HealthStatus{
		Component:   component,
		Status:      StatusUnknown,
		LastChecked: time.Now(),
	}
	m.checkers[component] = check
}

// UpdateStatus 更新组件状态
func (m *Monitor) UpdateStatus(component, status, message string) {
	m.mutex.Lock()
	current, exists := m.components[component]
	if !exists {
		current = &HealthStatus{Component: component}
		m.components[component] = current
	}
	oldStatus := current.Status
	current.Status = status
	current.LastChecked = time.Now()
	current.Message = message
	m.mutex.Unlock()

	if oldStatus == status {
		return
	}
	m.log.Info("组件状态变化",
		zap.String("component", component),
		zap.String("from", oldStatus),
		zap.String("to", status),
		zap.String("message", message),
	)
	// 如果状态变为不健康，触发告警
	if status != StatusHealthy && m.alertFunc != nil {
		m.alertFunc(component, status, message)
	}
}

// GetStatus 获取组件状态
func (m *Monitor) GetStatus(component string) (HealthStatus, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if status, exists := m.components[component]; exists {
		return *status, true
	}
	return HealthStatus{}, false
}

// GetAllStatus 获取所有组件状态，按名称排序
func (m *Monitor) GetAllStatus() []HealthStatus {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	statuses := make([]HealthStatus, 0, len(m.components))
	for _, status := range m.components {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Component < statuses[j].Component })
	return statuses
}

// CheckAll 执行全部检查并更新状态
func (m *Monitor) CheckAll(ctx context.Context) map[string]error {
	m.mutex.RLock()
	checkers := make(map[string]Checker, len(m.checkers))
	for name, check := range m.checkers {
		checkers[name] = check
	}
	m.mutex.RUnlock()

	results := make(map[string]error, len(checkers))
	for name, check := range checkers {
		err := check(ctx)
		results[name] = err
		if err != nil {
			m.UpdateStatus(name, StatusUnhealthy, err.Error())
		} else {
			m.UpdateStatus(name, StatusHealthy, "")
		}
	}
	return results
}

// Healthy 全部组件最近一次检查均为健康
func (m *Monitor) Healthy() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, status := range m.components {
		if status.Status != StatusHealthy {
			return false
		}
	}
	return true
}

// HTTPChecker 检查HTTP端点，非200视为异常
func HTTPChecker(url string, timeout time.Duration) Checker {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("创建请求失败: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP请求失败: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP状态码非200: %d", resp.StatusCode)
		}
		return nil
	}
}

// StartChecking 立即检查一次，之后定期检查，ctx 结束时退出
func (m *Monitor) StartChecking(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.CheckAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.CheckAll(ctx)
			}
		}
	}()
}
