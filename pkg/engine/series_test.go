package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesOrdersDatesDescending(t *testing.T) {
	s := NewSeries(NewColumns([]string{"ema_9", "sma_20"}), 8)
	s.Set(day("2024-03-06"), "ema_9", 1)
	s.Set(day("2024-03-08"), "ema_9", 3)
	s.Set(day("2024-03-07"), "ema_9", 2)
	s.Set(day("2024-03-07"), "sma_20", 20)

	require.Equal(t, 3, s.Len())
	assert.Equal(t, day("2024-03-08"), s.Date(0))
	assert.Equal(t, day("2024-03-07"), s.Date(1))
	assert.Equal(t, day("2024-03-06"), s.Date(2))

	v, ok := s.Row(1).Value("ema_9")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	v, ok = s.Row(1).Value("sma_20")
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	_, ok = s.Row(0).Value("sma_20")
	assert.False(t, ok, "sparse cell reads as missing")
	_, ok = s.Row(0).Value("rsi_14")
	assert.False(t, ok, "unknown column reads as missing")
}

func TestSeriesBoundedWindow(t *testing.T) {
	s := NewSeries(NewColumns([]string{"ema_9"}), 3)
	for i, d := range []string{"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07"} {
		s.Set(day(d), "ema_9", float64(i))
	}
	require.Equal(t, 3, s.Len())
	assert.Equal(t, day("2024-03-07"), s.Date(0))
	assert.Equal(t, day("2024-03-05"), s.Date(2))

	assert.False(t, s.Set(day("2024-03-01"), "ema_9", 9), "older than a full window")
	assert.Equal(t, 3, s.Len())

	v, _ := s.Row(2).Value("ema_9")
	assert.Equal(t, 1.0, v)
}

func TestSeriesNormalisesTimestamps(t *testing.T) {
	s := NewSeries(NewColumns([]string{"ema_9"}), 8)
	loc := time.FixedZone("EST", -5*3600)
	s.Set(time.Date(2024, 3, 8, 0, 0, 0, 0, loc), "ema_9", 1)
	s.Set(time.Date(2024, 3, 8, 16, 30, 0, 0, time.UTC), "ema_9", 2)

	require.Equal(t, 1, s.Len())
	v, _ := s.Row(0).Value("ema_9")
	assert.Equal(t, 2.0, v)
}

func TestSeriesPrices(t *testing.T) {
	s := NewSeries(NewColumns([]string{"ema_9"}), 8)
	c1, c2 := 10.0, 11.0
	s.SetPrice(day("2024-03-06"), &c1, nil)
	s.SetPrice(day("2024-03-07"), nil, nil)
	s.SetPrice(day("2024-03-05"), &c2, nil)

	px, ok := s.PriceOn(day("2024-03-07"))
	assert.True(t, ok)
	assert.Nil(t, px.Close)

	v, d, ok := s.LatestClose()
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
	assert.Equal(t, day("2024-03-06"), d)
}
