package model

import (
	"fmt"
	"strings"
	"time"
)

// SignalType 信号类型
type SignalType string

const (
	SignalEntry SignalType = "entry"
	SignalExit  SignalType = "exit"
)

// StrategySignal 扫描产出的策略信号，每次扫描新建，不做修改
type StrategySignal struct {
	StrategyCode  string     `json:"strategy_code"`
	SignalType    SignalType `json:"signal_type"`
	Symbol        string     `json:"symbol"`
	StockID       int64      `json:"stock_id"`
	ObservedOn    time.Time  `json:"observed_on"`
	FastIndicator string     `json:"fast_indicator"`
	SlowIndicator string     `json:"slow_indicator"`
	FastValue     *float64   `json:"fast_value,omitempty"`
	SlowValue     *float64   `json:"slow_value,omitempty"`
	ClosePrice    float64    `json:"close_price"`
	PriceDate     time.Time  `json:"price_date"`
	Strength      float64    `json:"signal_strength"`
}

// SignalCode 如 ESM_ENTRY
func (s StrategySignal) SignalCode() string {
	return fmt.Sprintf("%s_%s", s.StrategyCode, strings.ToUpper(string(s.SignalType)))
}

// TypeKey 幂等键中的信号类型部分，如 esm_entry
func (s StrategySignal) TypeKey() string {
	return fmt.Sprintf("%s_%s", strings.ToLower(s.StrategyCode), s.SignalType)
}

func (s StrategySignal) Direction() SignalDirection {
	if s.SignalType == SignalEntry {
		return DirectionBullish
	}
	return DirectionBearish
}

// ConditionMet 如 "ESM Entry"
func (s StrategySignal) ConditionMet() string {
	t := string(s.SignalType)
	if t == "" {
		return s.StrategyCode
	}
	return fmt.Sprintf("%s %s", s.StrategyCode, strings.ToUpper(t[:1])+t[1:])
}

// StalePrice 收盘价是否取自更早的交易日
func (s StrategySignal) StalePrice() bool {
	return !s.PriceDate.IsZero() && s.PriceDate.Before(s.ObservedOn)
}
