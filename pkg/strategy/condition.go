package strategy

import (
	"fmt"
)

// Kind 条件指标类型
type Kind string

const (
	KindMACross    Kind = "ma_cross"
	KindRSI        Kind = "rsi"
	KindVolume     Kind = "volume"
	KindPriceVsSMA Kind = "price_vs_sma"
)

// 各类型允许的比较方式
var allowedComparisons = map[Kind][]Comparison{
	KindMACross:    {CrossUp, CrossDown},
	KindRSI:        {Below, Above, Between},
	KindVolume:     {Below, Above},
	KindPriceVsSMA: {Below, Above},
}

// Condition 条件规则
// 只有本包内的 MACross、RSI、Volume、PriceVsSMA 四种实现
type Condition interface {
	Kind() Kind
	Op() Comparison
	// Indicators 评估该条件需要加载的指标名
	Indicators() []string
	sealed()
}

// MACross 均线交叉: ema_{fast} 与 sma_{slow}
type MACross struct {
	Comparison Comparison
	FastPeriod int
	SlowPeriod int
}

func (c MACross) Kind() Kind { return KindMACross }
func (c MACross) Op() Comparison { return c.Comparison }
func (c MACross) FastName() string { return fmt.Sprintf("ema_%d", c.FastPeriod) }
func (c MACross) SlowName() string { return fmt.Sprintf("sma_%d", c.SlowPeriod) }
func (c MACross) Indicators() []string { return []string{c.FastName(), c.SlowName()} }
func (MACross) sealed() {}

// RSI 相对强弱阈值或区间
type RSI struct {
	Comparison Comparison
	Period     int
	Threshold  float64
	Min        float64
	Max        float64
}

func (c RSI) Kind() Kind { return KindRSI }
func (c RSI) Op() Comparison { return c.Comparison }
func (c RSI) Name() string { return fmt.Sprintf("rsi_%d", c.Period) }
func (c RSI) Indicators() []string { return []string{c.Name()} }
func (RSI) sealed() {}

// Volume 成交量条件
// Threshold 非空时直接与成交量比较，否则与 sma_vol_{window} × Multiplier 比较
type Volume struct {
	Comparison Comparison
	Threshold  *float64
	Window     int
	Multiplier float64
}

func (c Volume) Kind() Kind { return KindVolume }
func (c Volume) Op() Comparison { return c.Comparison }
func (c Volume) AverageName() string {
	return fmt.Sprintf("sma_vol_%d", c.Window)
}

func (c Volume) Indicators() []string {
	if c.Threshold != nil {
		return nil
	}
	return []string{c.AverageName()}
}

func (Volume) sealed() {}

// PriceVsSMA 收盘价相对 sma_{period}
type PriceVsSMA struct {
	Comparison Comparison
	SMAPeriod  int
}

func (c PriceVsSMA) Kind() Kind { return KindPriceVsSMA }
func (c PriceVsSMA) Op() Comparison { return c.Comparison }
func (c PriceVsSMA) Name() string { return fmt.Sprintf("sma_%d", c.SMAPeriod) }
func (c PriceVsSMA) Indicators() []string { return []string{c.Name()} }
func (PriceVsSMA) sealed() {}

func comparisonAllowed(kind Kind, cmp Comparison) bool {
	for _, allowed := range allowedComparisons[kind] {
		if allowed == cmp {
			return true
		}
	}
	return false
}
