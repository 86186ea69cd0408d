// pkg/model/alert.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignalDirection 信号方向
type SignalDirection string

const (
	DirectionBullish SignalDirection = "bullish"
	DirectionBearish SignalDirection = "bearish"
)

// AlertHistory 信号历史记录
// (stock_id, date, crossover_type) 唯一，由数据库约束保证同一信号只记录一次
type AlertHistory struct {
	ID              string             `gorm:"type:uuid;primaryKey" json:"id"`
	StockID         int64              `gorm:"not null;uniqueIndex:idx_alert_identity,priority:1" json:"stock_id"`
	Symbol          string             `gorm:"type:varchar(20);not null;index" json:"symbol"`
	StrategyCode    string             `gorm:"type:varchar(20);not null;index" json:"strategy_code"`
	TriggeredAt     time.Time          `gorm:"not null" json:"triggered_at"`
	Date            time.Time          `gorm:"type:date;not null;uniqueIndex:idx_alert_identity,priority:2;index" json:"date"`
	ConditionMet    string             `gorm:"type:varchar(100)" json:"condition_met"`
	CrossoverType   string             `gorm:"type:varchar(50);not null;uniqueIndex:idx_alert_identity,priority:3" json:"crossover_type"`
	Direction       SignalDirection    `gorm:"type:varchar(10);not null" json:"direction"`
	Price           float64            `gorm:"type:decimal(12,4)" json:"price"`
	IndicatorValues map[string]float64 `gorm:"serializer:json;type:jsonb" json:"indicator_values,omitempty"`
	Notified        bool               `gorm:"not null;index" json:"notified"`
	CreatedAt       time.Time          `json:"created_at"`
}

func (a *AlertHistory) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (AlertHistory) TableName() string {
	return "alert_history"
}

// RecordOutcome 信号写入结果
type RecordOutcome int

const (
	RecordInserted RecordOutcome = iota + 1
	RecordAlreadyExists
)

func (o RecordOutcome) String() string {
	switch o {
	case RecordInserted:
		return "inserted"
	case RecordAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}
