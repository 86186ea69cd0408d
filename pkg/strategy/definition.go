package strategy

import (
	"sort"
)

// Comparison 比较方式
type Comparison string

const (
	CrossUp   Comparison = "cross_up"
	CrossDown Comparison = "cross_down"
	Above     Comparison = ">"
	Below     Comparison = "<"
	Between   Comparison = "between"
)

// ScanType 扫描类型，目前只支持均线交叉
type ScanType string

const ScanMACross ScanType = "ma_cross"

const (
	DefaultTopN     = 100
	DefaultMinPrice = 10.0
)

// CrossRule 基础交叉规则
type CrossRule struct {
	Comparison    Comparison `json:"comparison"`
	FastIndicator string     `json:"fast_indicator"`
	SlowIndicator string     `json:"slow_indicator"`
}

// Filters 标的筛选参数
type Filters struct {
	TopN     int     `json:"top_n"`
	MinPrice float64 `json:"min_price"`
}

// Definition 策略定义
// 加载后只读，刷新时整体替换
type Definition struct {
	Code            string      `json:"strategy_code"`
	Enabled         bool        `json:"enabled"`
	ScanType        ScanType    `json:"scan_type"`
	Entry           CrossRule   `json:"entry"`
	Exit            CrossRule   `json:"exit"`
	EntryConditions []Condition `json:"-"`
	ExitConditions  []Condition `json:"-"`
	Filters         Filters     `json:"filters"`
	Source          string      `json:"source"`
}

// RequiredIndicators 扫描所需的全部指标名，已去重排序
func (d *Definition) RequiredIndicators() []string {
	set := map[string]struct{}{
		d.Entry.FastIndicator: {},
		d.Entry.SlowIndicator: {},
		d.Exit.FastIndicator:  {},
		d.Exit.SlowIndicator:  {},
	}
	for _, c := range d.EntryConditions {
		for _, name := range c.Indicators() {
			set[name] = struct{}{}
		}
	}
	for _, c := range d.ExitConditions {
		for _, name := range c.Indicators() {
			set[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
