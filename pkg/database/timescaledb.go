package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"SignalRadar/pkg/config"
	"SignalRadar/pkg/model"
)

// TimescaleDB 时序数据库连接
type TimescaleDB struct {
	db *gorm.DB
}

// NewTimescaleDB 创建新的TimescaleDB连接
func NewTimescaleDB(cfg *config.Config) (*TimescaleDB, error) {
	dbCfg := cfg.Database.TimescaleDB

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.Host, dbCfg.Port, dbCfg.User, dbCfg.Password, dbCfg.DBName, dbCfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("测试数据库连接失败: %w", err)
	}

	t := &TimescaleDB{db: db}
	if dbCfg.AutoMigrate {
		if err := t.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// New 基于已有的 gorm 连接创建
func New(db *gorm.DB) *TimescaleDB {
	return &TimescaleDB{db: db}
}

// AutoMigrate 同步表结构
func (t *TimescaleDB) AutoMigrate() error {
	if err := t.db.AutoMigrate(
		&model.Stock{},
		&model.PriceData{},
		&model.Indicator{},
		&model.AlertHistory{},
	); err != nil {
		return fmt.Errorf("同步表结构失败: %w", err)
	}
	return nil
}

// Ping 检查连接
func (t *TimescaleDB) Ping(ctx context.Context) error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (t *TimescaleDB) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadIndicators 批量加载指标，一次查询覆盖全部标的
func (t *TimescaleDB) LoadIndicators(ctx context.Context, stockIDs []int64, names []string, from, to time.Time) ([]model.Indicator, error) {
	return t.Indicator().Between(ctx, stockIDs, names, from, to)
}

// LoadPrices 批量加载日线行情，一次查询覆盖全部标的
func (t *TimescaleDB) LoadPrices(ctx context.Context, stockIDs []int64, from, to time.Time) ([]model.PriceData, error) {
	return t.Price().Between(ctx, stockIDs, from, to)
}
