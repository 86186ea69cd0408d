// pkg/database/indicator.go
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SignalRadar/pkg/model"
)

type IndicatorDB struct {
	db *gorm.DB
}

func (t *TimescaleDB) Indicator() *IndicatorDB {
	return &IndicatorDB{db: t.db}
}

// SaveBatch 按 (stock_id, date, indicator_name) 合并写入
func (i *IndicatorDB) SaveBatch(ctx context.Context, rows []*model.Indicator) error {
	if len(rows) == 0 {
		return nil
	}
	err := i.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, 1000).Error
	if err != nil {
		return fmt.Errorf("保存指标数据失败: %w", err)
	}
	return nil
}

// Between 查询一组股票在 [from, to] 内的指定指标
func (i *IndicatorDB) Between(ctx context.Context, stockIDs []int64, names []string, from, to time.Time) ([]model.Indicator, error) {
	if len(stockIDs) == 0 || len(names) == 0 {
		return nil, nil
	}
	var rows []model.Indicator
	err := i.db.WithContext(ctx).
		Where("stock_id IN ?", stockIDs).
		Where("indicator_name IN ?", names).
		Where("date >= ? AND date <= ?", from, to).
		Order("stock_id").
		Order("date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("批量查询指标失败: %w", err)
	}
	return rows, nil
}
