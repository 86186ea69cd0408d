package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar(t *testing.T) {
	cal, err := New("America/New_York", []string{"2024-07-04"})
	require.NoError(t, err)

	tests := []struct {
		date    string
		trading bool
	}{
		{"2024-07-03", true},
		{"2024-07-04", false},
		{"2024-07-06", false},
		{"2024-07-07", false},
		{"2024-07-08", true},
	}
	for _, tt := range tests {
		d, err := ParseDate(tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.trading, cal.IsTradingDay(d), tt.date)
	}

	mon, _ := ParseDate("2024-07-08")
	fri, _ := ParseDate("2024-07-05")
	wed, _ := ParseDate("2024-07-03")
	assert.Equal(t, fri, cal.PreviousTradingDay(mon))
	assert.Equal(t, wed, cal.PreviousTradingDay(fri))
}

func TestCalendarToday(t *testing.T) {
	cal, err := New("America/New_York", nil)
	require.NoError(t, err)

	// 01:30 UTC on the 9th is still the 8th in New York
	now := time.Date(2024, 3, 9, 1, 30, 0, 0, time.UTC)
	want, _ := ParseDate("2024-03-08")
	assert.Equal(t, want, cal.Today(now))
}

func TestCalendarRejectsBadInput(t *testing.T) {
	_, err := New("Mars/Olympus", nil)
	assert.Error(t, err)
	_, err = New("UTC", []string{"July 4th"})
	assert.Error(t, err)
}
