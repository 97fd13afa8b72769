package insight

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidDuration is returned by ParseDuration for strings that are not
// ISO 8601 durations.
var ErrInvalidDuration = errors.New("insight: invalid ISO 8601 duration")

// isoDurationRegex matches P[nD][T[nH][nM][nS]]. Fractional seconds are accepted
// and truncated.
var isoDurationRegex = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.\d+)?S)?)?$`)

const day = 24 * time.Hour

// FormatNumber abbreviates n with K and M suffixes (1500 -> "1.5K").
func FormatNumber(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return strconv.FormatInt(n, 10)
}

// durationParts splits an ISO 8601 duration into hours, minutes and seconds.
// Days are folded into hours; minutes and seconds are not carried.
func durationParts(iso string) (h, m, s int64, ok bool) {
	match := isoDurationRegex.FindStringSubmatch(iso)
	if match == nil || iso == "P" || iso == "PT" {
		return 0, 0, 0, false
	}
	field := func(i int) int64 {
		if match[i] == "" {
			return 0
		}
		n, _ := strconv.ParseInt(match[i], 10, 64)
		return n
	}
	return field(1)*24 + field(2), field(3), field(4), true
}

// ParseDuration converts an ISO 8601 duration such as "PT1H30M15S" to a
// time.Duration.
func ParseDuration(iso string) (time.Duration, error) {
	h, m, s, ok := durationParts(iso)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, iso)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
}

// FormatDuration renders an ISO 8601 duration as H:MM:SS, or MM:SS when it
// is shorter than an hour. Malformed input renders as "00:00".
func FormatDuration(iso string) string {
	h, m, s, ok := durationParts(iso)
	if !ok {
		return "00:00"
	}
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatAge renders how long ago t was, relative to now.
func FormatAge(t time.Time) string {
	return FormatAgeAt(t, time.Now())
}

// FormatAgeAt renders how long ago t was, relative to now, in Korean
// relative-age bands ("오늘", "3일 전", "2주 전", "5개월 전", "1년 전").
func FormatAgeAt(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	days := int64(math.Ceil(float64(diff) / float64(day)))

	switch {
	case days < 1:
		return "오늘"
	case days < 7:
		return fmt.Sprintf("%d일 전", days)
	case days < 30:
		return fmt.Sprintf("%d주 전", days/7)
	case days < 365:
		return fmt.Sprintf("%d개월 전", days/30)
	}
	return fmt.Sprintf("%d년 전", days/365)
}
