package engine

import (
	"math"
	"time"

	"SignalRadar/pkg/model"
)

// Columns 一次扫描内共享的指标列布局
type Columns struct {
	names []string
	index map[string]int
}

func NewColumns(names []string) *Columns {
	c := &Columns{names: append([]string(nil), names...), index: make(map[string]int, len(names))}
	for i, name := range c.names {
		c.index[name] = i
	}
	return c
}

func (c *Columns) Len() int {
	return len(c.names)
}

func (c *Columns) Index(name string) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}

type pricePoint struct {
	date   time.Time
	close  *float64
	volume *float64
}

// Series 单个标的的观测表
// 按日期降序存放，容量固定为回看窗口，指标值存放在一块连续的 values 中，NaN 表示缺失
type Series struct {
	cols     *Columns
	capacity int
	dates    []time.Time
	values   []float64
	prices   []pricePoint
}

func NewSeries(cols *Columns, capacity int) *Series {
	if capacity < 2 {
		capacity = 2
	}
	return &Series{
		cols:     cols,
		capacity: capacity,
		dates:    make([]time.Time, 0, capacity),
		values:   make([]float64, 0, capacity*cols.Len()),
		prices:   make([]pricePoint, 0, capacity),
	}
}

// Len 已有观测日期数
func (s *Series) Len() int {
	return len(s.dates)
}

// Date 第 i 新的观测日期
func (s *Series) Date(i int) time.Time {
	return s.dates[i]
}

// Row 第 i 新的观测，0 为最新
func (s *Series) Row(i int) Values {
	n := s.cols.Len()
	return row{cols: s.cols, values: s.values[i*n : (i+1)*n]}
}

// Set 写入指标值，窗口已满时丢弃最旧的日期
func (s *Series) Set(date time.Time, name string, value float64) bool {
	col, ok := s.cols.Index(name)
	if !ok {
		return false
	}
	i, ok := s.rowFor(dateOnly(date))
	if !ok {
		return false
	}
	s.values[i*s.cols.Len()+col] = value
	return true
}

// SetPrice 写入当日收盘价和成交量
func (s *Series) SetPrice(date time.Time, closePrice *float64, volume *float64) {
	d := dateOnly(date)
	pos := len(s.prices)
	for i, p := range s.prices {
		if p.date.Equal(d) {
			s.prices[i].close, s.prices[i].volume = closePrice, volume
			return
		}
		if p.date.Before(d) {
			pos = i
			break
		}
	}
	if len(s.prices) == s.capacity {
		if pos == s.capacity {
			return
		}
		s.prices = s.prices[:s.capacity-1]
	}
	s.prices = append(s.prices, pricePoint{})
	copy(s.prices[pos+1:], s.prices[pos:])
	s.prices[pos] = pricePoint{date: d, close: closePrice, volume: volume}
}

// PriceOn 指定日期的行情
func (s *Series) PriceOn(date time.Time) (PriceVolume, bool) {
	d := dateOnly(date)
	for _, p := range s.prices {
		if p.date.Equal(d) {
			return PriceVolume{Close: p.close, Volume: p.volume}, true
		}
	}
	return PriceVolume{}, false
}

// LatestClose 窗口内最近一个有收盘价的交易日
func (s *Series) LatestClose() (float64, time.Time, bool) {
	for _, p := range s.prices {
		if v, ok := present(p.close); ok {
			return v, p.date, true
		}
	}
	return 0, time.Time{}, false
}

func (s *Series) rowFor(d time.Time) (int, bool) {
	pos := len(s.dates)
	for i, existing := range s.dates {
		if existing.Equal(d) {
			return i, true
		}
		if existing.Before(d) {
			pos = i
			break
		}
	}

	n := s.cols.Len()
	if len(s.dates) == s.capacity {
		if pos == s.capacity {
			return 0, false
		}
		s.dates = s.dates[:s.capacity-1]
		s.values = s.values[:(s.capacity-1)*n]
	}

	s.dates = append(s.dates, time.Time{})
	copy(s.dates[pos+1:], s.dates[pos:])
	s.dates[pos] = d

	s.values = append(s.values, make([]float64, n)...)
	copy(s.values[(pos+1)*n:], s.values[pos*n:])
	for j := pos * n; j < (pos+1)*n; j++ {
		s.values[j] = math.NaN()
	}
	return pos, true
}

type row struct {
	cols   *Columns
	values []float64
}

func (r row) Value(name string) (float64, bool) {
	i, ok := r.cols.Index(name)
	if !ok {
		return 0, false
	}
	v := r.values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// BuildSeries 将批量查询结果按标的分组
// 日期来自指标行，行情只用于取收盘价和成交量
func BuildSeries(cols *Columns, capacity int, indicators []model.Indicator, prices []model.PriceData) map[int64]*Series {
	out := make(map[int64]*Series)
	for _, ind := range indicators {
		if ind.Value == nil {
			continue
		}
		s, ok := out[ind.StockID]
		if !ok {
			s = NewSeries(cols, capacity)
			out[ind.StockID] = s
		}
		s.Set(ind.Date, ind.IndicatorName, *ind.Value)
	}

	for _, p := range prices {
		s, ok := out[p.StockID]
		if !ok {
			continue
		}
		var volume *float64
		if p.Volume != nil {
			v := float64(*p.Volume)
			volume = &v
		}
		s.SetPrice(p.Date, p.Close, volume)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
