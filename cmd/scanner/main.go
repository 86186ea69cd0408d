package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"SignalRadar/pkg/app"
	"SignalRadar/pkg/calendar"
	"SignalRadar/pkg/config"
	"SignalRadar/pkg/logger"
	"SignalRadar/pkg/model"
	"SignalRadar/pkg/pipeline"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// options 命令行参数
type options struct {
	strategy   string
	date       time.Time
	notify     bool
	configPath string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("scanner", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		opts     options
		date     string
		noNotify bool
	)
	fs.StringVar(&opts.strategy, "strategy", "all", "策略代码，all 表示全部已启用策略")
	fs.StringVar(&date, "date", "", "扫描日期 YYYY-MM-DD，默认为交易日历当日")
	fs.BoolVar(&noNotify, "no-notify", false, "只记录信号，不发送通知")
	fs.StringVar(&opts.configPath, "config", "", "配置文件路径，默认 configs/<APP_ENV>/app.yaml")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("未知参数: %s", strings.Join(fs.Args(), " "))
	}

	opts.strategy = strings.TrimSpace(opts.strategy)
	if opts.strategy == "" {
		return opts, errors.New("--strategy 不能为空")
	}
	if date != "" {
		d, err := calendar.ParseDate(date)
		if err != nil {
			return opts, err
		}
		opts.date = d
	}
	opts.notify = !noNotify

	if opts.configPath == "" {
		opts.configPath = os.Getenv("CONFIG_PATH")
	}
	if opts.configPath == "" {
		opts.configPath = config.GetDefaultConfigPath()
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return exitUsage
	}
	log := logger.Must(cfg.App.LogLevel, cfg.App.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("初始化失败", zap.Error(err))
		return exitUsage
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("关闭组件失败", zap.Error(err))
		}
	}()

	runOpts := pipeline.RunOptions{TargetDate: opts.date, Notify: opts.notify}
	log.Info("开始手动扫描",
		zap.String("strategy", opts.strategy),
		zap.String("target_date", a.Worker.TargetDate(runOpts).Format("2006-01-02")),
		zap.Bool("notify", opts.notify),
	)

	var summaries []*model.ScanSummary
	if strings.EqualFold(opts.strategy, "all") {
		summaries, err = a.Worker.RunAll(ctx, runOpts)
	} else {
		var summary *model.ScanSummary
		summary, err = a.Worker.RunStrategy(ctx, opts.strategy, runOpts)
		if summary != nil {
			summaries = append(summaries, summary)
		}
	}

	printSummaries(stdout, summaries)
	if errors.Is(err, pipeline.ErrUnknownStrategy) {
		log.Error("策略不存在", zap.String("strategy", opts.strategy), zap.Strings("available", a.Registry.Snapshot().Codes()))
		return exitUsage
	}
	if err != nil {
		log.Error("扫描失败", zap.Error(err))
		return exitFailed
	}
	return exitOK
}

func printSummaries(w io.Writer, summaries []*model.ScanSummary) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, s := range summaries {
		_ = enc.Encode(s)
	}
}
