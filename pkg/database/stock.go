// pkg/database/stock.go
package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SignalRadar/pkg/model"
)

// ErrStockNotFound 股票不存在
var ErrStockNotFound = errors.New("股票不存在")

type StockDB struct {
	db *gorm.DB
}

func (t *TimescaleDB) Stock() *StockDB {
	return &StockDB{db: t.db}
}

// SaveBatch 按 symbol 合并写入
func (s *StockDB) SaveBatch(ctx context.Context, stocks []*model.Stock) error {
	if len(stocks) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "exchange", "sector", "is_active", "avg_volume_30d", "last_close_price", "updated_at"}),
		}).
		CreateInBatches(stocks, 500).Error
	if err != nil {
		return fmt.Errorf("保存股票信息失败: %w", err)
	}
	return nil
}

func (s *StockDB) GetBySymbol(ctx context.Context, symbol string) (*model.Stock, error) {
	var stock model.Stock
	err := s.db.WithContext(ctx).First(&stock, "symbol = ?", symbol).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockNotFound
		}
		return nil, fmt.Errorf("获取股票信息失败: %w", err)
	}
	return &stock, nil
}

// SelectCandidates 按流动性(30日均量 × 最新收盘价)降序选出扫描标的
// 只包含活跃、均量为正且收盘价不低于 minPrice 的股票，不足 topN 时返回实际数量
func (s *StockDB) SelectCandidates(ctx context.Context, minPrice float64, topN int) ([]model.Stock, error) {
	if topN <= 0 {
		return nil, nil
	}

	var stocks []model.Stock
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("avg_volume_30d IS NOT NULL AND avg_volume_30d > 0").
		Where("last_close_price IS NOT NULL AND last_close_price >= ?", minPrice).
		Order("avg_volume_30d * last_close_price DESC").
		Order("id ASC").
		Limit(topN).
		Find(&stocks).Error
	if err != nil {
		return nil, fmt.Errorf("查询候选股票失败: %w", err)
	}
	return stocks, nil
}

func (s *StockDB) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Stock{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}
