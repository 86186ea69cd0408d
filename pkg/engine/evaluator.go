// pkg/engine/evaluator.go
package engine

import (
	"math"

	"SignalRadar/pkg/strategy"
)

// Values 某一交易日的指标取值
type Values interface {
	// Value 指标不存在或为 NaN 时返回 false
	Value(name string) (float64, bool)
}

// Indicators 基于 map 的指标取值
type Indicators map[string]float64

func (m Indicators) Value(name string) (float64, bool) {
	v, ok := m[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// PriceVolume 当日收盘价与成交量，nil 表示缺失
type PriceVolume struct {
	Close  *float64
	Volume *float64
}

// CrossUp 快线从下方(含相等)上穿慢线
func CrossUp(fastPrev, slowPrev, fastCurr, slowCurr float64) bool {
	return fastPrev <= slowPrev && fastCurr > slowCurr
}

// CrossDown 快线从上方(含相等)下穿慢线
func CrossDown(fastPrev, slowPrev, fastCurr, slowCurr float64) bool {
	return fastPrev >= slowPrev && fastCurr < slowCurr
}

// Cross 检查两个交易日之间的交叉，任一取值缺失返回 false
func Cross(cmp strategy.Comparison, fastName, slowName string, curr, prev Values) bool {
	if curr == nil || prev == nil {
		return false
	}
	fc, ok1 := curr.Value(fastName)
	sc, ok2 := curr.Value(slowName)
	fp, ok3 := prev.Value(fastName)
	sp, ok4 := prev.Value(slowName)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}

	switch cmp {
	case strategy.CrossUp:
		return CrossUp(fp, sp, fc, sc)
	case strategy.CrossDown:
		return CrossDown(fp, sp, fc, sc)
	}
	return false
}

// CrossRuleHit 基础交叉规则
func CrossRuleHit(rule strategy.CrossRule, curr, prev Values) bool {
	return Cross(rule.Comparison, rule.FastIndicator, rule.SlowIndicator, curr, prev)
}

// EvaluateCondition 评估单个条件
// 所需取值缺失时视为不满足
func EvaluateCondition(cond strategy.Condition, curr, prev Values, px PriceVolume) bool {
	if cond == nil || curr == nil {
		return false
	}

	switch c := cond.(type) {
	case strategy.MACross:
		return Cross(c.Comparison, c.FastName(), c.SlowName(), curr, prev)

	case strategy.RSI:
		rsi, ok := curr.Value(c.Name())
		if !ok {
			return false
		}
		switch c.Comparison {
		case strategy.Above:
			return rsi > c.Threshold
		case strategy.Below:
			return rsi < c.Threshold
		case strategy.Between:
			return c.Min <= rsi && rsi <= c.Max
		}
		return false

	case strategy.Volume:
		volume, ok := present(px.Volume)
		if !ok {
			return false
		}
		var threshold float64
		if c.Threshold != nil {
			threshold = *c.Threshold
		} else {
			avg, ok := curr.Value(c.AverageName())
			if !ok {
				return false
			}
			threshold = avg * c.Multiplier
		}
		return compare(c.Comparison, volume, threshold)

	case strategy.PriceVsSMA:
		closePrice, ok := present(px.Close)
		if !ok {
			return false
		}
		sma, ok := curr.Value(c.Name())
		if !ok {
			return false
		}
		return compare(c.Comparison, closePrice, sma)
	}

	return false
}

// EvaluateConditionSet 所有条件同时满足才成立，遇到第一个不满足即返回
// 空列表由调用方替换为基础交叉规则
func EvaluateConditionSet(conds []strategy.Condition, curr, prev Values, px PriceVolume) bool {
	for _, cond := range conds {
		if !EvaluateCondition(cond, curr, prev, px) {
			return false
		}
	}
	return true
}

// Strength 信号强度: (fast - slow) / slow × 100，slow 缺失或为 0 时为 0
func Strength(fast, slow *float64) float64 {
	if fast == nil || slow == nil || *slow == 0 {
		return 0
	}
	return (*fast - *slow) / *slow * 100
}

func compare(cmp strategy.Comparison, value, threshold float64) bool {
	switch cmp {
	case strategy.Above:
		return value > threshold
	case strategy.Below:
		return value < threshold
	}
	return false
}

func present(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, false
	}
	return *v, true
}
