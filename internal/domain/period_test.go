package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	valid := []string{"1d", "3d", "7d", "14d", "30d", "90d", "all"}
	for _, s := range valid {
		p, err := ParsePeriod(s)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", s, err)
		}
		if string(p) != s {
			t.Errorf("%q: token mangled to %q", s, p)
		}
	}

	invalid := []string{"", "2d", "1w", "30", "ALL", "30 d"}
	for _, s := range invalid {
		if _, err := ParsePeriod(s); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("%q: want ErrInvalidParameter, got %v", s, err)
		}
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	start, ok := Period7D.Start(now)
	if !ok {
		t.Fatal("7d should be bounded")
	}
	if want := now.Add(-7 * 24 * time.Hour); !start.Equal(want) {
		t.Errorf("want %v, got %v", want, start)
	}

	if _, ok := PeriodAll.Start(now); ok {
		t.Error("all-time must not have a lower bound")
	}
}

func TestParseInterval(t *testing.T) {
	if i, err := ParseInterval("1d"); err != nil || i.Days() != 1 {
		t.Errorf("1d: got %v, %v", i, err)
	}
	if i, err := ParseInterval("1w"); err != nil || i.Days() != 7 {
		t.Errorf("1w: got %v, %v", i, err)
	}
	if _, err := ParseInterval("1m"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("1m: want ErrInvalidParameter, got %v", err)
	}
}

func TestParseGroupMode(t *testing.T) {
	if m, err := ParseGroupMode(""); err != nil || m != GroupNone {
		t.Errorf("empty token should default to none, got %v, %v", m, err)
	}
	if _, err := ParseGroupMode("color"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("want ErrInvalidParameter, got %v", err)
	}
}

func TestValidEMAWindow(t *testing.T) {
	for _, w := range []int{7, 14, 30} {
		if !ValidEMAWindow(w) {
			t.Errorf("window %d should be valid", w)
		}
	}
	for _, w := range []int{0, 1, 10, 90} {
		if ValidEMAWindow(w) {
			t.Errorf("window %d should be invalid", w)
		}
	}
}
