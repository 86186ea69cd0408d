package strategy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const esmJSON = `{
  "strategy_code": "esm",
  "enabled": true,
  "scan": {
    "type": "ma_cross",
    "entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
    "exit":  {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
    "entry_conditions": [],
    "exit_conditions": []
  },
  "filters": {"top_n": 100, "min_price": 10.0}
}`

const pfYAML = `
strategy_code: PF
scan:
  type: ma_cross
  entry: {comparison: cross_up, fast_indicator: ema_9, slow_indicator: sma_20}
  exit: {comparison: cross_down, fast_indicator: ema_9, slow_indicator: sma_20}
  entry_conditions:
    - {indicator: ma_cross, comparison: cross_up, params: {fast_period: 9, slow_period: 20}}
    - {indicator: RSI, comparison: ">", params: {period: 14, threshold: 50}}
    - {indicator: volume, comparison: ">", params: {multiplier: 1.2}}
    - {indicator: price_vs_sma, comparison: ">", params: {sma_period: 50}}
filters:
  top_n: 50
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseJSON(t *testing.T) {
	def, err := Parse("esm.json", []byte(esmJSON))
	require.NoError(t, err)

	assert.Equal(t, "ESM", def.Code)
	assert.True(t, def.Enabled)
	assert.Equal(t, ScanMACross, def.ScanType)
	assert.Equal(t, CrossRule{Comparison: CrossUp, FastIndicator: "ema_9", SlowIndicator: "sma_20"}, def.Entry)
	assert.Equal(t, CrossDown, def.Exit.Comparison)
	assert.Empty(t, def.EntryConditions)
	assert.Equal(t, Filters{TopN: 100, MinPrice: 10}, def.Filters)
	assert.Equal(t, []string{"ema_9", "sma_20"}, def.RequiredIndicators())
}

func TestParseYAMLConditions(t *testing.T) {
	def, err := Parse("pf.yaml", []byte(pfYAML))
	require.NoError(t, err)

	assert.True(t, def.Enabled, "enabled defaults to true")
	assert.Equal(t, Filters{TopN: 50, MinPrice: DefaultMinPrice}, def.Filters)
	require.Len(t, def.EntryConditions, 4)

	assert.Equal(t, MACross{Comparison: CrossUp, FastPeriod: 9, SlowPeriod: 20}, def.EntryConditions[0])
	assert.Equal(t, RSI{Comparison: Above, Period: 14, Threshold: 50, Min: 30, Max: 70}, def.EntryConditions[1])
	vol, ok := def.EntryConditions[2].(Volume)
	require.True(t, ok)
	assert.Nil(t, vol.Threshold)
	assert.Equal(t, 20, vol.Window)
	assert.InDelta(t, 1.2, vol.Multiplier, 1e-9)
	assert.Equal(t, PriceVsSMA{Comparison: Above, SMAPeriod: 50}, def.EntryConditions[3])

	assert.Equal(t,
		[]string{"ema_9", "rsi_14", "sma_20", "sma_50", "sma_vol_20"},
		def.RequiredIndicators())
}

func TestParseRejectsInvalidUnits(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{
			name:  "missing code",
			data:  `{"scan": {"type": "ma_cross"}}`,
			field: "strategy_code",
		},
		{
			name:  "unsupported scan type",
			data:  `{"strategy_code": "X", "scan": {"type": "breakout"}}`,
			field: "scan.type",
		},
		{
			name: "bad entry comparison",
			data: `{"strategy_code": "X", "scan": {"type": "ma_cross",
				"entry": {"comparison": ">", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"}}}`,
			field: "scan.entry.comparison",
		},
		{
			name: "missing slow indicator",
			data: `{"strategy_code": "X", "scan": {"type": "ma_cross",
				"entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit": {"comparison": "cross_down", "fast_indicator": "ema_9"}}}`,
			field: "scan.exit",
		},
		{
			name: "rsi invalid comparison",
			data: `{"strategy_code": "X", "scan": {"type": "ma_cross",
				"entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"entry_conditions": [{"indicator": "rsi", "comparison": "invalid", "params": {"period": 14}}]}}`,
			field: "scan.entry_conditions[0]",
		},
		{
			name: "volume between",
			data: `{"strategy_code": "X", "scan": {"type": "ma_cross",
				"entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit_conditions": [{"indicator": "volume", "comparison": "between"}]}}`,
			field: "scan.exit_conditions[0]",
		},
		{
			name: "unknown indicator",
			data: `{"strategy_code": "X", "scan": {"type": "ma_cross",
				"entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"entry_conditions": [{"indicator": "macd", "comparison": ">"}]}}`,
			field: "scan.entry_conditions[0]",
		},
		{
			name: "fractional period",
			data: `{"strategy_code": "X", "scan": {"type": "ma_cross",
				"entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"entry_conditions": [{"indicator": "rsi", "comparison": ">", "params": {"period": 14.5}}]}}`,
			field: "scan.entry_conditions[0]",
		},
		{
			name: "non-positive top_n",
			data: `{"strategy_code": "X", "scan": {"type": "ma_cross",
				"entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
				"exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"}},
				"filters": {"top_n": 0}}`,
			field: "filters.top_n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := Parse("x.json", []byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, def)
			assert.True(t, errors.Is(err, ErrInvalidDefinition))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "x.json", verr.Source)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse("broken.json", []byte(`{"strategy_code": "X", "scan": {"entry_conditions": [{"params": {"period": "fourteen"}}]}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "esm.json", esmJSON)
	writeFile(t, dir, "pf.yaml", pfYAML)
	writeFile(t, dir, "README.md", "ignored")

	defs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "esm.json", defs["ESM"].Source)
	assert.Equal(t, "pf.yaml", defs["PF"].Source)
}

func TestLoadFailsClosed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_esm.json", esmJSON)
	writeFile(t, dir, "b_bad.json", `{"strategy_code": "BAD", "scan": {"type": "ma_cross",
		"entry": {"comparison": "cross_up", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
		"exit": {"comparison": "cross_down", "fast_indicator": "ema_9", "slow_indicator": "sma_20"},
		"entry_conditions": [{"indicator": "rsi", "comparison": "invalid"}]}}`)

	defs, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	assert.Nil(t, defs)
}

func TestLoadDuplicateCode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "esm.json", esmJSON)
	writeFile(t, dir, "esm_copy.json", esmJSON)

	_, err := Load(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidDefinition))
}

func TestLoadBundledStrategies(t *testing.T) {
	defs, err := Load(filepath.Join("..", "..", "strategies"))
	require.NoError(t, err)
	require.Contains(t, defs, "ESM")
	require.Contains(t, defs, "PF")

	assert.Empty(t, defs["ESM"].EntryConditions)
	assert.Equal(t, []string{"ema_9", "sma_20"}, defs["ESM"].RequiredIndicators())

	pf := defs["PF"]
	require.Len(t, pf.EntryConditions, 4)
	assert.Equal(t, []string{"ema_9", "rsi_14", "sma_20", "sma_50", "sma_vol_20"}, pf.RequiredIndicators())
}
