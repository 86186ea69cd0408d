// pkg/model/stock.go
package model

import (
	"time"
)

// Stock 股票基础信息，流动性字段由行情服务每日刷新
type Stock struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	Symbol         string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"symbol"`
	Name           string    `gorm:"type:varchar(100)" json:"name"`
	Exchange       string    `gorm:"type:varchar(20);index" json:"exchange"`
	Sector         string    `gorm:"type:varchar(50);index" json:"sector"`
	IsActive       bool      `gorm:"not null;index" json:"is_active"`
	AvgVolume30d   *float64  `gorm:"column:avg_volume_30d" json:"avg_volume_30d,omitempty"`
	LastClosePrice *float64  `gorm:"column:last_close_price;type:decimal(12,4)" json:"last_close_price,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Stock) TableName() string {
	return "stocks"
}

// Liquidity 流动性代理值: 30日均量 × 最新收盘价
func (s Stock) Liquidity() float64 {
	if s.AvgVolume30d == nil || s.LastClosePrice == nil {
		return 0
	}
	return *s.AvgVolume30d * *s.LastClosePrice
}

// PriceData 日线行情
type PriceData struct {
	StockID int64     `gorm:"primaryKey;autoIncrement:false" json:"stock_id"`
	Date    time.Time `gorm:"primaryKey;type:date" json:"date"`
	Open    *float64  `gorm:"type:decimal(12,4)" json:"open,omitempty"`
	High    *float64  `gorm:"type:decimal(12,4)" json:"high,omitempty"`
	Low     *float64  `gorm:"type:decimal(12,4)" json:"low,omitempty"`
	Close   *float64  `gorm:"type:decimal(12,4)" json:"close,omitempty"`
	Volume  *int64    `json:"volume,omitempty"`
}

func (PriceData) TableName() string {
	return "price_data"
}

// Indicator 技术指标值，按 (股票, 日期, 指标名) 唯一
type Indicator struct {
	StockID       int64     `gorm:"primaryKey;autoIncrement:false" json:"stock_id"`
	Date          time.Time `gorm:"primaryKey;type:date" json:"date"`
	IndicatorName string    `gorm:"primaryKey;type:varchar(50)" json:"indicator_name"`
	Value         *float64  `json:"value,omitempty"`
}

func (Indicator) TableName() string {
	return "indicators"
}
