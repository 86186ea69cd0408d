// pkg/database/alert.go
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SignalRadar/pkg/model"
)

type AlertDB struct {
	db *gorm.DB
}

func (t *TimescaleDB) Alert() *AlertDB {
	return &AlertDB{db: t.db}
}

// Record 写入信号历史
// 唯一约束冲突时不写入并返回 RecordAlreadyExists，由数据库保证并发扫描下只有一次写入成功
func (a *AlertDB) Record(ctx context.Context, alert *model.AlertHistory) (model.RecordOutcome, error) {
	res := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(alert)
	if res.Error != nil {
		return 0, fmt.Errorf("保存信号记录失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.RecordAlreadyExists, nil
	}
	return model.RecordInserted, nil
}

func (a *AlertDB) MarkNotified(ctx context.Context, alertID string) error {
	err := a.db.WithContext(ctx).
		Model(&model.AlertHistory{}).
		Where("id = ?", alertID).
		Update("notified", true).Error
	if err != nil {
		return fmt.Errorf("更新通知状态失败: %w", err)
	}
	return nil
}

// AlertFilter 信号历史查询条件，零值字段不参与过滤
type AlertFilter struct {
	Date         time.Time
	StrategyCode string
	Symbol       string
	Limit        int
}

func (a *AlertDB) List(ctx context.Context, filter AlertFilter) ([]model.AlertHistory, error) {
	query := a.db.WithContext(ctx).Model(&model.AlertHistory{})
	if !filter.Date.IsZero() {
		query = query.Where("date = ?", filter.Date)
	}
	if filter.StrategyCode != "" {
		query = query.Where("strategy_code = ?", filter.StrategyCode)
	}
	if filter.Symbol != "" {
		query = query.Where("symbol = ?", filter.Symbol)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var alerts []model.AlertHistory
	err := query.Order("triggered_at DESC").Order("symbol").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("查询信号记录失败: %w", err)
	}
	return alerts, nil
}

// CountByDate 按信号类型统计某日的记录数
func (a *AlertDB) CountByDate(ctx context.Context, date time.Time) (map[string]int64, error) {
	var rows []struct {
		CrossoverType string
		Count         int64
	}
	err := a.db.WithContext(ctx).
		Model(&model.AlertHistory{}).
		Select("crossover_type, COUNT(*) as count").
		Where("date = ?", date).
		Group("crossover_type").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计信号记录失败: %w", err)
	}

	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.CrossoverType] = r.Count
	}
	return stats, nil
}
