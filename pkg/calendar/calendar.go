package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Calendar 交易日历: 周末休市，外加配置的节假日
type Calendar struct {
	loc      *time.Location
	holidays map[time.Time]struct{}
}

// New 创建交易日历，holidays 格式为 YYYY-MM-DD
func New(timezone string, holidays []string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %s 失败: %w", timezone, err)
	}
	c := &Calendar{loc: loc, holidays: make(map[time.Time]struct{}, len(holidays))}
	for _, h := range holidays {
		d, err := ParseDate(h)
		if err != nil {
			return nil, err
		}
		c.holidays[d] = struct{}{}
	}
	return c, nil
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today 日历时区下的当日日期
func (c *Calendar) Today(now time.Time) time.Time {
	return Date(now.In(c.loc))
}

// IsTradingDay 是否为交易日
func (c *Calendar) IsTradingDay(d time.Time) bool {
	d = Date(d)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[d]
	return !holiday
}

// PreviousTradingDay 严格早于 d 的最近交易日
func (c *Calendar) PreviousTradingDay(d time.Time) time.Time {
	d = Date(d).AddDate(0, 0, -1)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// Date 截断为 UTC 零点的日期
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日期格式应为 YYYY-MM-DD: %q", s)
	}
	return d, nil
}
