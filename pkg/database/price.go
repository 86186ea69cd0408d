// pkg/database/price.go
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SignalRadar/pkg/model"
)

type PriceDB struct {
	db *gorm.DB
}

func (t *TimescaleDB) Price() *PriceDB {
	return &PriceDB{db: t.db}
}

// SaveBatch 按 (stock_id, date) 合并写入
func (p *PriceDB) SaveBatch(ctx context.Context, prices []*model.PriceData) error {
	if len(prices) == 0 {
		return nil
	}
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(prices, 1000).Error
	if err != nil {
		return fmt.Errorf("保存行情数据失败: %w", err)
	}
	return nil
}

// Between 查询一组股票在 [from, to] 内的收盘价与成交量
func (p *PriceDB) Between(ctx context.Context, stockIDs []int64, from, to time.Time) ([]model.PriceData, error) {
	if len(stockIDs) == 0 {
		return nil, nil
	}
	var prices []model.PriceData
	err := p.db.WithContext(ctx).
		Select("stock_id", "date", "close", "volume").
		Where("stock_id IN ?", stockIDs).
		Where("date >= ? AND date <= ?", from, to).
		Order("stock_id").
		Order("date DESC").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("批量查询行情失败: %w", err)
	}
	return prices, nil
}
