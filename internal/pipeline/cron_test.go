package pipeline

import (
	"testing"
	"time"
)

func TestNextCronTimeDaily(t *testing.T) {
	after := time.Date(2026, 3, 15, 12, 30, 45, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 16, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextCronTimeSameDay(t *testing.T) {
	after := time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextCronTimeMonthly(t *testing.T) {
	after := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 1 * *", after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestNextCronTimeListField(t *testing.T) {
	after := time.Date(2026, 3, 15, 10, 20, 0, 0, time.UTC)

	next, err := nextCronTime("0,30 * * * *", after)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("expected %v, got %v", want, next)
	}
}

func TestParseCronRejectsBadExpressions(t *testing.T) {
	cases := []string{
		"",
		"0 3 * *",
		"0 3 * * * *",
		"x 3 * * *",
	}
	for _, expr := range cases {
		if _, err := parseCron(expr); err == nil {
			t.Errorf("expected error for %q", expr)
		}
	}
}
