package util

import (
	"strconv"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := date(2024, 3, 5)
	for _, s := range []string{"2024-03-05", "2024-03-05T13:00:00", "2024/03/05", "03/05/2024", "05-Mar-2024", "\"2024-03-05\""} {
		got, err := ParseDate(s)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseDateUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, err := ParseDate(strconv.FormatInt(ts, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(date(2024, 10, 10)) {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-date", "2024-13-45"} {
		if _, err := ParseDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestMonthEnd(t *testing.T) {
	cases := map[time.Time]time.Time{
		date(2024, 2, 10):  date(2024, 2, 29),
		date(2023, 2, 28):  date(2023, 2, 28),
		date(2023, 12, 31): date(2023, 12, 31),
		date(2024, 4, 1):   date(2024, 4, 30),
	}
	for in, want := range cases {
		if got := MonthEnd(in); !got.Equal(want) {
			t.Fatalf("MonthEnd(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestMonthEndsRollForwardFromMonthEnd(t *testing.T) {
	got := MonthEnds(date(2023, 12, 31), 3, RollForward)
	want := []time.Time{date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31)}
	assertDates(t, got, want)
}

func TestMonthEndsRollForwardMidMonthStaysInMonth(t *testing.T) {
	got := MonthEnds(date(2024, 5, 15), 2, RollForward)
	assertDates(t, got, []time.Time{date(2024, 5, 31), date(2024, 6, 30)})
}

func TestMonthEndsRollForwardDayBeforeMonthEnd(t *testing.T) {
	got := MonthEnds(date(2024, 1, 30), 1, RollForward)
	assertDates(t, got, []time.Time{date(2024, 1, 31)})
}

func TestMonthEndsNextMonth(t *testing.T) {
	assertDates(t, MonthEnds(date(2023, 12, 31), 3, NextMonth),
		[]time.Time{date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31)})
	assertDates(t, MonthEnds(date(2024, 5, 15), 2, NextMonth),
		[]time.Time{date(2024, 6, 30), date(2024, 7, 31)})
}

func TestMonthEndsNoDayOverflow(t *testing.T) {
	// stepping from Jan 31 must not skip February
	got := MonthEnds(date(2024, 12, 31), 3, RollForward)
	assertDates(t, got, []time.Time{date(2025, 1, 31), date(2025, 2, 28), date(2025, 3, 31)})
}

func TestMonthEndsAlwaysAfterCutoff(t *testing.T) {
	start := date(2020, 1, 1)
	for i := 0; i < 800; i++ {
		cutoff := start.AddDate(0, 0, i)
		for _, rule := range []MonthEndRule{RollForward, NextMonth} {
			got := MonthEnds(cutoff, 36, rule)
			if len(got) != 36 {
				t.Fatalf("len = %d", len(got))
			}
			if !got[0].After(cutoff) {
				t.Fatalf("%s: first %v not after cutoff %v", rule, got[0], cutoff)
			}
			for j := 1; j < len(got); j++ {
				if !got[j].After(got[j-1]) || !IsMonthEnd(got[j]) {
					t.Fatalf("%s: bad step %v -> %v", rule, got[j-1], got[j])
				}
			}
		}
	}
}

func TestMonthEndsNonPositive(t *testing.T) {
	if got := MonthEnds(date(2024, 1, 1), 0, RollForward); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestParseMonthEndRule(t *testing.T) {
	if r, err := ParseMonthEndRule(""); err != nil || r != RollForward {
		t.Fatalf("default rule: %v %v", r, err)
	}
	if r, err := ParseMonthEndRule("NEXT_MONTH"); err != nil || r != NextMonth {
		t.Fatalf("next_month: %v %v", r, err)
	}
	if _, err := ParseMonthEndRule("weekly"); err == nil {
		t.Fatalf("expected error")
	}
}

func assertDates(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("date[%d] = %s, want %s", i, got[i].Format("2006-01-02"), want[i].Format("2006-01-02"))
		}
	}
}
