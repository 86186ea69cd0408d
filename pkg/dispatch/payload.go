package dispatch

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"SignalRadar/pkg/model"
)

// Notification 下游通知内容
type Notification struct {
	SignalCode string         `json:"signal_code"`
	Symbol     string         `json:"symbol"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data"`
}

// BuildRecord 由信号构造历史记录，date 为扫描目标日期
func BuildRecord(sig model.StrategySignal, date, now time.Time) *model.AlertHistory {
	values := map[string]float64{"strength": round2(sig.Strength)}
	if sig.FastValue != nil {
		values["fast"] = *sig.FastValue
	}
	if sig.SlowValue != nil {
		values["slow"] = *sig.SlowValue
	}

	return &model.AlertHistory{
		StockID:         sig.StockID,
		Symbol:          sig.Symbol,
		StrategyCode:    sig.StrategyCode,
		TriggeredAt:     now.UTC(),
		Date:            date,
		ConditionMet:    sig.ConditionMet(),
		CrossoverType:   sig.TypeKey(),
		Direction:       sig.Direction(),
		Price:           sig.ClosePrice,
		IndicatorValues: values,
	}
}

// BuildNotification 由信号构造通知
func BuildNotification(sig model.StrategySignal, date, now time.Time) Notification {
	data := map[string]any{
		"price":       round2(sig.ClosePrice),
		"pct_diff":    fmt.Sprintf("%+.2f%%", sig.Strength),
		"strategy":    sig.StrategyCode,
		"signal_type": string(sig.SignalType),
		"direction":   string(sig.Direction()),
		"date":        date.Format("2006-01-02"),
	}
	if sig.FastValue != nil {
		data["fast"] = round2(*sig.FastValue)
		data[sig.FastIndicator] = round2(*sig.FastValue)
	}
	if sig.SlowValue != nil {
		data["slow"] = round2(*sig.SlowValue)
		data[sig.SlowIndicator] = round2(*sig.SlowValue)
	}
	if sig.StalePrice() {
		data["price_date"] = sig.PriceDate.Format("2006-01-02")
	}

	return Notification{
		SignalCode: sig.SignalCode(),
		Symbol:     sig.Symbol,
		Timestamp:  now.UTC(),
		Data:       data,
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
