package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{12_345, "12.3K"},
		{1_000_000, "1.0M"},
		{2_500_000, "2.5M"},
		{1_234_567_890, "1234.6M"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in), "FormatNumber(%d)", tt.in)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hours minutes seconds", "PT1H30M15S", "1:30:15"},
		{"minutes only", "PT5M", "05:00"},
		{"seconds only", "PT45S", "00:45"},
		{"hours only", "PT2H", "2:00:00"},
		{"minutes not carried", "PT90M", "90:00"},
		{"days fold into hours", "P1DT2H3M4S", "26:03:04"},
		{"zero days", "P0D", "00:00"},
		{"fractional seconds", "PT10M5.5S", "10:05"},
		{"empty", "", "00:00"},
		{"bare designators", "PT", "00:00"},
		{"garbage", "ten minutes", "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("PT1H30M15S")
	require.NoError(t, err)
	assert.Equal(t, time.Hour+30*time.Minute+15*time.Second, d)

	d, err = ParseDuration("P0D")
	require.NoError(t, err)
	assert.Zero(t, d)

	for _, bad := range []string{"", "P", "PT", "1H30M", "PT1X"} {
		_, err := ParseDuration(bad)
		assert.ErrorIs(t, err, ErrInvalidDuration, "ParseDuration(%q)", bad)
	}
}

func TestFormatAgeAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"same instant", 0, "오늘"},
		{"an hour ago", time.Hour, "1일 전"},
		{"six days", 6 * day, "6일 전"},
		{"two weeks", 14 * day, "2주 전"},
		{"twenty nine days", 29 * day, "4주 전"},
		{"two months", 60 * day, "2개월 전"},
		{"over a year", 400 * day, "1년 전"},
		{"future is absolute", -3 * day, "3일 전"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAgeAt(now.Add(-tt.ago), now))
		})
	}

	assert.Empty(t, FormatAgeAt(time.Time{}, now), "zero time renders empty")
}
