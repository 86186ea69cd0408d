package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"SignalRadar/pkg/strategy"
)

func f(v float64) *float64 { return &v }

func TestCrossTransitions(t *testing.T) {
	tests := []struct {
		name                                   string
		fastPrev, slowPrev, fastCurr, slowCurr float64
		up, down                               bool
	}{
		{"crosses above", 100, 105, 106, 104, true, false},
		{"already above", 106, 104, 108, 102, false, false},
		{"touching then above", 100, 100, 101, 100, true, false},
		{"equal after", 99, 100, 100, 100, false, false},
		{"crosses below", 106, 104, 100, 105, false, true},
		{"touching then below", 100, 100, 99, 100, false, true},
		{"already below", 95, 100, 94, 100, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.up, CrossUp(tt.fastPrev, tt.slowPrev, tt.fastCurr, tt.slowCurr))
			assert.Equal(t, tt.down, CrossDown(tt.fastPrev, tt.slowPrev, tt.fastCurr, tt.slowCurr))

			curr := Indicators{"ema_9": tt.fastCurr, "sma_20": tt.slowCurr}
			prev := Indicators{"ema_9": tt.fastPrev, "sma_20": tt.slowPrev}
			assert.Equal(t, tt.up, Cross(strategy.CrossUp, "ema_9", "sma_20", curr, prev))
			assert.Equal(t, tt.down, Cross(strategy.CrossDown, "ema_9", "sma_20", curr, prev))
		})
	}
}

func TestCrossNeverFiresOnSameSide(t *testing.T) {
	values := []float64{90, 95, 100, 105, 110}
	for _, fp := range values {
		for _, sp := range values {
			for _, fc := range values {
				for _, sc := range values {
					up := CrossUp(fp, sp, fc, sc)
					assert.Equal(t, fp <= sp && fc > sc, up)
					if fp > sp && fc > sc {
						assert.False(t, up)
					}
					if fp < sp && fc < sc {
						assert.False(t, CrossDown(fp, sp, fc, sc))
					}
				}
			}
		}
	}
}

func TestEvaluateConditionMissingValues(t *testing.T) {
	full := Indicators{"ema_9": 101, "sma_20": 100, "rsi_14": 55, "sma_vol_20": 1000, "sma_50": 98}
	prev := Indicators{"ema_9": 99, "sma_20": 100}
	px := PriceVolume{Close: f(102), Volume: f(1300)}

	tests := []struct {
		name string
		cond strategy.Condition
		curr Values
		prev Values
		px   PriceVolume
	}{
		{"ma_cross without prev", strategy.MACross{Comparison: strategy.CrossUp, FastPeriod: 9, SlowPeriod: 20}, full, Indicators{}, px},
		{"ma_cross nil prev", strategy.MACross{Comparison: strategy.CrossUp, FastPeriod: 9, SlowPeriod: 20}, full, nil, px},
		{"rsi absent", strategy.RSI{Comparison: strategy.Above, Period: 7, Threshold: 50}, full, prev, px},
		{"rsi NaN", strategy.RSI{Comparison: strategy.Above, Period: 14, Threshold: 50}, Indicators{"rsi_14": math.NaN()}, prev, px},
		{"volume null", strategy.Volume{Comparison: strategy.Above, Window: 20, Multiplier: 1}, full, prev, PriceVolume{Close: f(102)}},
		{"volume average absent", strategy.Volume{Comparison: strategy.Above, Window: 10, Multiplier: 1}, full, prev, px},
		{"close null", strategy.PriceVsSMA{Comparison: strategy.Above, SMAPeriod: 50}, full, prev, PriceVolume{Volume: f(1300)}},
		{"sma absent", strategy.PriceVsSMA{Comparison: strategy.Above, SMAPeriod: 200}, full, prev, px},
		{"nil condition", nil, full, prev, px},
		{"nil current", strategy.RSI{Comparison: strategy.Above, Period: 14}, nil, prev, px},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, EvaluateCondition(tt.cond, tt.curr, tt.prev, tt.px))
			})
		})
	}
}

func TestEvaluateRSI(t *testing.T) {
	curr := Indicators{"rsi_14": 70}
	tests := []struct {
		cond strategy.RSI
		want bool
	}{
		{strategy.RSI{Comparison: strategy.Above, Period: 14, Threshold: 50}, true},
		{strategy.RSI{Comparison: strategy.Above, Period: 14, Threshold: 70}, false},
		{strategy.RSI{Comparison: strategy.Below, Period: 14, Threshold: 80}, true},
		{strategy.RSI{Comparison: strategy.Between, Period: 14, Min: 30, Max: 70}, true},
		{strategy.RSI{Comparison: strategy.Between, Period: 14, Min: 70, Max: 90}, true},
		{strategy.RSI{Comparison: strategy.Between, Period: 14, Min: 30, Max: 69.9}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EvaluateCondition(tt.cond, curr, nil, PriceVolume{}), "%+v", tt.cond)
	}
}

func TestEvaluateVolumeThreshold(t *testing.T) {
	curr := Indicators{"sma_vol_20": 1000}
	px := PriceVolume{Volume: f(1500)}

	abs := strategy.Volume{Comparison: strategy.Above, Threshold: f(2000), Window: 20, Multiplier: 1}
	assert.False(t, EvaluateCondition(abs, curr, nil, px), "absolute threshold takes precedence")

	abs.Comparison = strategy.Below
	assert.True(t, EvaluateCondition(abs, Indicators{}, nil, px), "absolute threshold needs no average")

	derived := strategy.Volume{Comparison: strategy.Above, Window: 20, Multiplier: 1.5}
	assert.False(t, EvaluateCondition(derived, curr, nil, px), "1500 is not above 1.5 x 1000")
	derived.Multiplier = 1.0
	assert.True(t, EvaluateCondition(derived, curr, nil, px))
}

func TestEvaluateConditionSetAND(t *testing.T) {
	conds := []strategy.Condition{
		strategy.MACross{Comparison: strategy.CrossUp, FastPeriod: 9, SlowPeriod: 20},
		strategy.RSI{Comparison: strategy.Above, Period: 14, Threshold: 50},
		strategy.Volume{Comparison: strategy.Above, Window: 20, Multiplier: 1.2},
		strategy.PriceVsSMA{Comparison: strategy.Above, SMAPeriod: 50},
	}
	curr := Indicators{"ema_9": 101, "sma_20": 100, "rsi_14": 55, "sma_vol_20": 1000, "sma_50": 98}
	prev := Indicators{"ema_9": 99, "sma_20": 100}
	px := PriceVolume{Close: f(102), Volume: f(1300)}

	assert.True(t, EvaluateConditionSet(conds, curr, prev, px))
	for _, c := range conds {
		assert.True(t, EvaluateCondition(c, curr, prev, px), "%T", c)
	}

	assert.False(t, EvaluateConditionSet(conds, curr, prev, PriceVolume{Close: f(102), Volume: f(1100)}), "volume below 1.2x")

	flips := map[string]func() (Values, Values, PriceVolume){
		"no cross": func() (Values, Values, PriceVolume) {
			return curr, Indicators{"ema_9": 100.5, "sma_20": 100}, px
		},
		"rsi weak": func() (Values, Values, PriceVolume) {
			c := Indicators{}
			for k, v := range curr {
				c[k] = v
			}
			c["rsi_14"] = 45
			return c, prev, px
		},
		"below sma": func() (Values, Values, PriceVolume) {
			return curr, prev, PriceVolume{Close: f(97), Volume: f(1300)}
		},
	}
	for name, flip := range flips {
		t.Run(name, func(t *testing.T) {
			c, p, q := flip()
			assert.False(t, EvaluateConditionSet(conds, c, p, q))
		})
	}
}

func TestEvaluateConditionSetEmptyIsVacuous(t *testing.T) {
	assert.True(t, EvaluateConditionSet(nil, Indicators{}, Indicators{}, PriceVolume{}))
}

func TestStrength(t *testing.T) {
	assert.InDelta(t, 2.0, Strength(f(102), f(100)), 1e-9)
	assert.InDelta(t, -2.0, Strength(f(98), f(100)), 1e-9)
	assert.Equal(t, 0.0, Strength(f(98), f(0)))
	assert.Equal(t, 0.0, Strength(f(98), nil))
	assert.Equal(t, 0.0, Strength(nil, f(100)))
}
