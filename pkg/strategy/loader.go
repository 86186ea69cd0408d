package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDefinition 所有策略校验错误都包装该错误
var ErrInvalidDefinition = errors.New("策略定义无效")

// ValidationError 策略校验错误
type ValidationError struct {
	Source string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDefinition
}

type rawCross struct {
	Comparison    string `json:"comparison" yaml:"comparison"`
	FastIndicator string `json:"fast_indicator" yaml:"fast_indicator"`
	SlowIndicator string `json:"slow_indicator" yaml:"slow_indicator"`
}

type rawCondition struct {
	Indicator  string             `json:"indicator" yaml:"indicator"`
	Comparison string             `json:"comparison" yaml:"comparison"`
	Params     map[string]float64 `json:"params" yaml:"params"`
}

type rawStrategy struct {
	StrategyCode string `json:"strategy_code" yaml:"strategy_code"`
	Enabled      *bool  `json:"enabled" yaml:"enabled"`
	Scan         struct {
		Type            string         `json:"type" yaml:"type"`
		Entry           rawCross       `json:"entry" yaml:"entry"`
		Exit            rawCross       `json:"exit" yaml:"exit"`
		EntryConditions []rawCondition `json:"entry_conditions" yaml:"entry_conditions"`
		ExitConditions  []rawCondition `json:"exit_conditions" yaml:"exit_conditions"`
	} `json:"scan" yaml:"scan"`
	Filters struct {
		TopN     *int     `json:"top_n" yaml:"top_n"`
		MinPrice *float64 `json:"min_price" yaml:"min_price"`
	} `json:"filters" yaml:"filters"`
}

// Load 加载目录下全部策略文件 (*.json, *.yaml, *.yml)
// 任一文件无效则整体失败，不返回部分结果
func Load(dir string) (map[string]*Definition, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("读取策略目录失败: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("策略路径不是目录: %s", dir)
	}

	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("匹配策略文件失败: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	defs := make(map[string]*Definition, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取策略文件失败: %w", err)
		}
		def, err := Parse(filepath.Base(path), data)
		if err != nil {
			return nil, err
		}
		if prev, exists := defs[def.Code]; exists {
			return nil, &ValidationError{
				Source: def.Source,
				Field:  "strategy_code",
				Reason: fmt.Sprintf("策略代码 %s 与 %s 重复", def.Code, prev.Source),
			}
		}
		defs[def.Code] = def
	}
	return defs, nil
}

// Parse 解析单个策略单元，格式由 source 扩展名决定，默认按 JSON 解析
func Parse(source string, data []byte) (*Definition, error) {
	var raw rawStrategy
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &ValidationError{Source: source, Reason: fmt.Sprintf("YAML 解析失败: %v", err)}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, &ValidationError{Source: source, Reason: fmt.Sprintf("JSON 解析失败: %v", err)}
		}
	}
	return build(source, &raw)
}

func build(source string, raw *rawStrategy) (*Definition, error) {
	code := strings.ToUpper(strings.TrimSpace(raw.StrategyCode))
	if code == "" {
		return nil, &ValidationError{Source: source, Field: "strategy_code", Reason: "缺少策略代码"}
	}
	if raw.Scan.Type != string(ScanMACross) {
		return nil, &ValidationError{Source: source, Field: "scan.type", Reason: fmt.Sprintf("必须为 %q, 实际为 %q", ScanMACross, raw.Scan.Type)}
	}

	entry, err := parseCross(source, "scan.entry", raw.Scan.Entry)
	if err != nil {
		return nil, err
	}
	exit, err := parseCross(source, "scan.exit", raw.Scan.Exit)
	if err != nil {
		return nil, err
	}
	entryConds, err := parseConditions(source, "scan.entry_conditions", raw.Scan.EntryConditions)
	if err != nil {
		return nil, err
	}
	exitConds, err := parseConditions(source, "scan.exit_conditions", raw.Scan.ExitConditions)
	if err != nil {
		return nil, err
	}

	filters := Filters{TopN: DefaultTopN, MinPrice: DefaultMinPrice}
	if raw.Filters.TopN != nil {
		filters.TopN = *raw.Filters.TopN
	}
	if raw.Filters.MinPrice != nil {
		filters.MinPrice = *raw.Filters.MinPrice
	}
	if filters.TopN <= 0 {
		return nil, &ValidationError{Source: source, Field: "filters.top_n", Reason: "必须为正整数"}
	}
	if filters.MinPrice < 0 || math.IsNaN(filters.MinPrice) {
		return nil, &ValidationError{Source: source, Field: "filters.min_price", Reason: "不能为负数"}
	}

	enabled := true
	if raw.Enabled != nil {
		enabled = *raw.Enabled
	}

	return &Definition{
		Code:            code,
		Enabled:         enabled,
		ScanType:        ScanMACross,
		Entry:           entry,
		Exit:            exit,
		EntryConditions: entryConds,
		ExitConditions:  exitConds,
		Filters:         filters,
		Source:          source,
	}, nil
}

func parseCross(source, field string, raw rawCross) (CrossRule, error) {
	rule := CrossRule{
		Comparison:    Comparison(strings.TrimSpace(raw.Comparison)),
		FastIndicator: strings.TrimSpace(raw.FastIndicator),
		SlowIndicator: strings.TrimSpace(raw.SlowIndicator),
	}
	if rule.Comparison != CrossUp && rule.Comparison != CrossDown {
		return rule, &ValidationError{Source: source, Field: field + ".comparison", Reason: fmt.Sprintf("不支持的比较方式 %q", raw.Comparison)}
	}
	if rule.FastIndicator == "" || rule.SlowIndicator == "" {
		return rule, &ValidationError{Source: source, Field: field, Reason: "fast_indicator 和 slow_indicator 必填"}
	}
	return rule, nil
}

func parseConditions(source, field string, raws []rawCondition) ([]Condition, error) {
	conds := make([]Condition, 0, len(raws))
	for i, raw := range raws {
		f := fmt.Sprintf("%s[%d]", field, i)
		cond, err := parseCondition(raw)
		if err != nil {
			return nil, &ValidationError{Source: source, Field: f, Reason: err.Error()}
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func parseCondition(raw rawCondition) (Condition, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw.Indicator)))
	cmp := Comparison(strings.TrimSpace(raw.Comparison))
	if kind == "" || cmp == "" {
		return nil, errors.New("indicator 和 comparison 必填")
	}
	if _, ok := allowedComparisons[kind]; !ok {
		return nil, fmt.Errorf("不支持的指标 %q", raw.Indicator)
	}
	if !comparisonAllowed(kind, cmp) {
		return nil, fmt.Errorf("%s 不支持比较方式 %q", kind, raw.Comparison)
	}

	p := params(raw.Params)
	switch kind {
	case KindMACross:
		fast, err := p.period("fast_period", 9)
		if err != nil {
			return nil, err
		}
		slow, err := p.period("slow_period", 20)
		if err != nil {
			return nil, err
		}
		return MACross{Comparison: cmp, FastPeriod: fast, SlowPeriod: slow}, nil

	case KindRSI:
		period, err := p.period("period", 14)
		if err != nil {
			return nil, err
		}
		c := RSI{
			Comparison: cmp,
			Period:     period,
			Threshold:  p.number("threshold", 50),
			Min:        p.number("min", 30),
			Max:        p.number("max", 70),
		}
		if cmp == Between && c.Min > c.Max {
			return nil, fmt.Errorf("rsi between 区间无效: min %.2f > max %.2f", c.Min, c.Max)
		}
		return c, nil

	case KindVolume:
		window, err := p.period("window", 20)
		if err != nil {
			return nil, err
		}
		c := Volume{Comparison: cmp, Window: window, Multiplier: p.number("multiplier", 1.0)}
		if v, ok := p["threshold"]; ok {
			c.Threshold = &v
		}
		return c, nil

	case KindPriceVsSMA:
		period, err := p.period("sma_period", 50)
		if err != nil {
			return nil, err
		}
		return PriceVsSMA{Comparison: cmp, SMAPeriod: period}, nil
	}

	return nil, fmt.Errorf("不支持的指标 %q", raw.Indicator)
}

type params map[string]float64

func (p params) number(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p params) period(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	if v <= 0 || v != math.Trunc(v) {
		return 0, fmt.Errorf("参数 %s 必须为正整数, 实际为 %v", key, v)
	}
	return int(v), nil
}
