package domain

import (
	"fmt"
	"time"
)

// Period is a recognized time-window token for metric queries. The token set
// is fixed; unknown tokens are rejected at the boundary rather than coerced.
type Period string

const (
	Period1D  Period = "1d"
	Period3D  Period = "3d"
	Period7D  Period = "7d"
	Period14D Period = "14d"
	Period30D Period = "30d"
	Period90D Period = "90d"
	PeriodAll Period = "all"
)

var periodDurations = map[Period]time.Duration{
	Period1D:  24 * time.Hour,
	Period3D:  3 * 24 * time.Hour,
	Period7D:  7 * 24 * time.Hour,
	Period14D: 14 * 24 * time.Hour,
	Period30D: 30 * 24 * time.Hour,
	Period90D: 90 * 24 * time.Hour,
}

// ParsePeriod validates a period token. It returns ErrInvalidParameter for
// anything outside the recognized set.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if p == PeriodAll {
		return p, nil
	}
	if _, ok := periodDurations[p]; !ok {
		return "", fmt.Errorf("%w: unknown period %q", ErrInvalidParameter, s)
	}
	return p, nil
}

// Duration returns the window length for bounded periods. The second return
// value is false for PeriodAll, which has no lower bound.
func (p Period) Duration() (time.Duration, bool) {
	d, ok := periodDurations[p]
	return d, ok
}

// Start returns the lower window boundary measured from now. Boundaries are
// always anchored at the query time, never at the oldest or newest
// observation. The second return value is false for PeriodAll.
func (p Period) Start(now time.Time) (time.Time, bool) {
	d, ok := periodDurations[p]
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-d), true
}

// Interval is a recognized time-series bucket width token.
type Interval string

const (
	IntervalDaily  Interval = "1d"
	IntervalWeekly Interval = "1w"
)

// ParseInterval validates an interval token.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case IntervalDaily, IntervalWeekly:
		return Interval(s), nil
	default:
		return "", fmt.Errorf("%w: unknown interval %q", ErrInvalidParameter, s)
	}
}

// Days returns the bucket width in days.
func (i Interval) Days() int {
	if i == IntervalWeekly {
		return 7
	}
	return 1
}

// EMAWindows enumerates the recognized EMA window lengths in days.
var EMAWindows = []int{7, 14, 30}

// ValidEMAWindow reports whether w is a recognized EMA window length.
func ValidEMAWindow(w int) bool {
	for _, v := range EMAWindows {
		if v == w {
			return true
		}
	}
	return false
}

// DeltaPeriods enumerates the periods accepted by the price-delta metric.
var DeltaPeriods = []Period{Period1D, Period30D, PeriodAll}

// ValidDeltaPeriod reports whether p is accepted by the price-delta metric.
func ValidDeltaPeriod(p Period) bool {
	for _, v := range DeltaPeriods {
		if v == p {
			return true
		}
	}
	return false
}
