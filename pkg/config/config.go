package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	App struct {
		Name     string `yaml:"name"`
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Database struct {
		TimescaleDB struct {
			Host            string        `yaml:"host"`
			Port            int           `yaml:"port"`
			User            string        `yaml:"user"`
			Password        string        `yaml:"password"`
			DBName          string        `yaml:"dbname"`
			SSLMode         string        `yaml:"sslmode"`
			MaxOpenConns    int           `yaml:"max_open_conns"`
			MaxIdleConns    int           `yaml:"max_idle_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
			AutoMigrate     bool          `yaml:"auto_migrate"`
		} `yaml:"timescaledb"`
	} `yaml:"database"`

	NATS struct {
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Kafka struct {
		Brokers    []string `yaml:"brokers"`
		Topic      string   `yaml:"topic"`
		MaxRetries int      `yaml:"max_retries"`
	} `yaml:"kafka"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	API struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"api"`

	Strategies struct {
		Dir           string `yaml:"dir"`
		ReloadEachRun bool   `yaml:"reload_each_run"`
	} `yaml:"strategies"`

	Scanner struct {
		LookbackDays int    `yaml:"lookback_days"`
		Workers      int    `yaml:"workers"`
		ClosePolicy  string `yaml:"close_policy"`
	} `yaml:"scanner"`

	Notify struct {
		Driver        string        `yaml:"driver"`
		WebhookURL    string        `yaml:"webhook_url"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Burst         int           `yaml:"burst"`
	} `yaml:"notify"`

	Calendar struct {
		Timezone string   `yaml:"timezone"`
		Holidays []string `yaml:"holidays"`
	} `yaml:"calendar"`

	Scheduler struct {
		ScanSpec   string `yaml:"scan_spec"`
		ReloadSpec string `yaml:"reload_spec"`
		HealthSpec string `yaml:"health_spec"`
		Jobs       []Job  `yaml:"jobs"`
	} `yaml:"scheduler"`
}

// Job 单个策略的定时扫描
type Job struct {
	Strategy string `yaml:"strategy"`
	Spec     string `yaml:"spec"`
}

const (
	NotifyLog     = "log"
	NotifyWebhook = "webhook"
	NotifyNATS    = "nats"
	NotifyKafka   = "kafka"
)

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	overrideFromEnv(&config)
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default 全部使用默认值的配置
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Notify.Driver {
	case NotifyLog, NotifyWebhook, NotifyNATS, NotifyKafka:
	default:
		return fmt.Errorf("notify.driver 无效: %q", c.Notify.Driver)
	}
	if c.Notify.Driver == NotifyWebhook && c.Notify.WebhookURL == "" {
		return errors.New("notify.driver 为 webhook 时必须配置 notify.webhook_url")
	}
	if c.Notify.Driver == NotifyKafka && len(c.Kafka.Brokers) == 0 {
		return errors.New("notify.driver 为 kafka 时必须配置 kafka.brokers")
	}
	switch c.Scanner.ClosePolicy {
	case "fallback", "strict":
	default:
		return fmt.Errorf("scanner.close_policy 无效: %q", c.Scanner.ClosePolicy)
	}
	if c.Scanner.LookbackDays <= 0 {
		return fmt.Errorf("scanner.lookback_days 必须为正数: %d", c.Scanner.LookbackDays)
	}
	for _, h := range c.Calendar.Holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return fmt.Errorf("calendar.holidays 日期无效 %q: %w", h, err)
		}
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.App.Name == "" {
		config.App.Name = "signalradar"
	}
	if config.App.Env == "" {
		config.App.Env = "dev"
	}
	if config.App.LogLevel == "" {
		config.App.LogLevel = "info"
	}

	db := &config.Database.TimescaleDB
	if db.Port == 0 {
		db.Port = 5432
	}
	if db.SSLMode == "" {
		db.SSLMode = "disable"
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = 25
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = 5
	}
	if db.ConnMaxLifetime == 0 {
		db.ConnMaxLifetime = 5 * time.Minute
	}

	if config.NATS.Stream == "" {
		config.NATS.Stream = "SIGNALS_STREAM"
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = "signals"
	}
	if config.Kafka.Topic == "" {
		config.Kafka.Topic = "strategy-signals"
	}
	if config.Kafka.MaxRetries == 0 {
		config.Kafka.MaxRetries = 3
	}
	if config.Redis.Prefix == "" {
		config.Redis.Prefix = "signalradar:"
	}
	if config.Redis.TTL == 0 {
		config.Redis.TTL = 7 * 24 * time.Hour
	}

	if config.API.Port == "" {
		config.API.Port = "8080"
	}
	if config.API.ReadTimeout == 0 {
		config.API.ReadTimeout = 10 * time.Second
	}
	if config.API.WriteTimeout == 0 {
		config.API.WriteTimeout = 5 * time.Minute
	}

	if config.Strategies.Dir == "" {
		config.Strategies.Dir = "strategies"
	}
	if config.Scanner.LookbackDays == 0 {
		config.Scanner.LookbackDays = 7
	}
	if config.Scanner.Workers == 0 {
		config.Scanner.Workers = 8
	}
	if config.Scanner.ClosePolicy == "" {
		config.Scanner.ClosePolicy = "fallback"
	}

	if config.Notify.Driver == "" {
		config.Notify.Driver = NotifyLog
	}
	if config.Notify.Timeout == 0 {
		config.Notify.Timeout = 10 * time.Second
	}
	if config.Notify.Burst == 0 {
		config.Notify.Burst = 1
	}

	if config.Calendar.Timezone == "" {
		config.Calendar.Timezone = "America/New_York"
	}
	if config.Scheduler.ReloadSpec == "" {
		config.Scheduler.ReloadSpec = "0 0 9 * * 1-5"
	}
	if config.Scheduler.HealthSpec == "" {
		config.Scheduler.HealthSpec = "@every 5m"
	}
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	setString(&config.App.Name, "APP_NAME")
	setString(&config.App.Env, "APP_ENV")
	setString(&config.App.LogLevel, "LOG_LEVEL")

	db := &config.Database.TimescaleDB
	setString(&db.Host, "DB_HOST")
	setInt(&db.Port, "DB_PORT")
	setString(&db.User, "DB_USER")
	setString(&db.Password, "DB_PASSWORD")
	setString(&db.DBName, "DB_NAME")
	setString(&db.SSLMode, "DB_SSLMODE")
	setBool(&db.AutoMigrate, "DB_AUTO_MIGRATE")

	setString(&config.NATS.URL, "NATS_URL")
	if env := os.Getenv("KAFKA_BROKERS"); env != "" {
		config.Kafka.Brokers = strings.Split(env, ",")
	}
	setString(&config.Kafka.Topic, "KAFKA_TOPIC")

	setBool(&config.Redis.Enabled, "REDIS_ENABLED")
	setString(&config.Redis.Addr, "REDIS_ADDR")
	setString(&config.Redis.Password, "REDIS_PASSWORD")

	setString(&config.API.Port, "API_PORT")
	setString(&config.Strategies.Dir, "STRATEGY_DIR")
	setString(&config.Scanner.ClosePolicy, "SCANNER_CLOSE_POLICY")
	setString(&config.Notify.Driver, "NOTIFY_DRIVER")
	setString(&config.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL")
	setString(&config.Calendar.Timezone, "CALENDAR_TZ")
}

func setString(dst *string, key string) {
	if env := os.Getenv(key); env != "" {
		*dst = env
	}
}

func setInt(dst *int, key string) {
	if env := os.Getenv(key); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			*dst = v
		}
	}
}

func setBool(dst *bool, key string) {
	if env := os.Getenv(key); env != "" {
		if v, err := strconv.ParseBool(env); err == nil {
			*dst = v
		}
	}
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	return fmt.Sprintf("configs/%s/app.yaml", env)
}
