package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"SignalRadar/pkg/cache"
	"SignalRadar/pkg/calendar"
	"SignalRadar/pkg/database"
	"SignalRadar/pkg/model"
	"SignalRadar/pkg/pipeline"
	"SignalRadar/pkg/strategy"
)

// ScanRunner 扫描入口，由 pipeline.Worker 实现
type ScanRunner interface {
	RunStrategy(ctx context.Context, code string, opts pipeline.RunOptions) (*model.ScanSummary, error)
	RunAll(ctx context.Context, opts pipeline.RunOptions) ([]*model.ScanSummary, error)
	Registry() *strategy.Registry
}

// AlertLister 信号历史查询
type AlertLister interface {
	List(ctx context.Context, filter database.AlertFilter) ([]model.AlertHistory, error)
}

// ReadinessChecker 依赖组件检查
type ReadinessChecker interface {
	CheckAll(ctx context.Context) map[string]error
}

// Handlers API处理程序
type Handlers struct {
	runner    ScanRunner
	summaries cache.SummaryStore
	alerts    AlertLister
	readiness ReadinessChecker
}

// NewHandlers 创建新的API处理程序
func NewHandlers(runner ScanRunner, summaries cache.SummaryStore, alerts AlertLister, readiness ReadinessChecker) *Handlers {
	return &Handlers{
		runner:    runner,
		summaries: summaries,
		alerts:    alerts,
		readiness: readiness,
	}
}

// HealthCheck 健康检查处理程序
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck 就绪检查处理程序
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	if h.readiness == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := gin.H{}
	ready := true
	for name, err := range h.readiness.CheckAll(ctx) {
		if err != nil {
			ready = false
			components[name] = err.Error()
		} else {
			components[name] = "ok"
		}
	}
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

// runOptions 解析 date 与 notify 参数，notify 默认为 true
func runOptions(c *gin.Context) (pipeline.RunOptions, error) {
	var opts pipeline.RunOptions
	if d := c.Query("date"); d != "" {
		date, err := calendar.ParseDate(d)
		if err != nil {
			return opts, err
		}
		opts.TargetDate = date
	}

	opts.Notify = true
	if n := c.Query("notify"); n != "" {
		notify, err := strconv.ParseBool(n)
		if err != nil {
			return opts, errors.New("notify 参数必须为布尔值")
		}
		opts.Notify = notify
	}
	return opts, nil
}

// RunStrategy 运行单个策略
func (h *Handlers) RunStrategy(c *gin.Context) {
	opts, err := runOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.runner.RunStrategy(c.Request.Context(), c.Param("code"), opts)
	switch {
	case errors.Is(err, pipeline.ErrUnknownStrategy):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "扫描失败: " + err.Error(), "summary": summary})
	default:
		c.JSON(http.StatusOK, gin.H{"data": summary})
	}
}

// RunAll 运行全部已启用策略
func (h *Handlers) RunAll(c *gin.Context) {
	opts, err := runOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summaries, err := h.runner.RunAll(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "扫描失败: " + err.Error(), "data": summaries})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summaries})
}

// LatestSummary 最近一次扫描汇总
func (h *Handlers) LatestSummary(c *gin.Context) {
	summary, err := h.summaries.Latest(c.Request.Context(), c.Param("code"))
	if errors.Is(err, cache.ErrMiss) {
		c.JSON(http.StatusNotFound, gin.H{"error": "没有该策略的扫描记录"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

type strategyView struct {
	*strategy.Definition
	RequiredIndicators []string `json:"required_indicators"`
	EntryConditions    []string `json:"entry_conditions"`
	ExitConditions     []string `json:"exit_conditions"`
}

func conditionKinds(conds []strategy.Condition) []string {
	kinds := make([]string, 0, len(conds))
	for _, cond := range conds {
		kinds = append(kinds, string(cond.Kind())+" "+string(cond.Op()))
	}
	return kinds
}

// ListStrategies 当前加载的策略
func (h *Handlers) ListStrategies(c *gin.Context) {
	snap := h.runner.Registry().Snapshot()
	views := make([]strategyView, 0, snap.Len())
	for _, def := range snap.All() {
		views = append(views, strategyView{
			Definition:         def,
			RequiredIndicators: def.RequiredIndicators(),
			EntryConditions:    conditionKinds(def.EntryConditions),
			ExitConditions:     conditionKinds(def.ExitConditions),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      views,
		"version":   snap.Version,
		"loaded_at": snap.LoadedAt,
	})
}

// ReloadStrategies 重新加载策略目录，失败时保留原策略
func (h *Handlers) ReloadStrategies(c *gin.Context) {
	snap, err := h.runner.Registry().Reload()
	if errors.Is(err, strategy.ErrInvalidDefinition) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"version": snap.Version,
		"codes":   snap.Codes(),
	})
}

// ListSignals 信号历史
func (h *Handlers) ListSignals(c *gin.Context) {
	filter := database.AlertFilter{
		StrategyCode: c.Query("strategy"),
		Symbol:       c.Query("symbol"),
	}
	if d := c.Query("date"); d != "" {
		date, err := calendar.ParseDate(d)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Date = date
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须为正整数"})
			return
		}
		filter.Limit = limit
	}

	alerts, err := h.alerts.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取信号历史失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  alerts,
		"count": len(alerts),
	})
}
