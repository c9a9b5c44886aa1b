package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMaxIncreaseViolation(t *testing.T) {
	t.Parallel()
	res := Validate(models.RateSubmission{
		CurrentAmount:  500,
		ProposedAmount: 540,
	}, models.RateRule{MaxIncreasePercent: floatPtr(5)}, date(2025, time.March, 10))
	if res.IsValid {
		t.Fatal("expected violation for 8% over 5% limit")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected one violation, got %d", len(res.Violations))
	}
	v := res.Violations[0]
	if v.Rule != RuleMaxIncrease {
		t.Fatalf("expected %s, got %s", RuleMaxIncrease, v.Rule)
	}
	if !strings.Contains(v.Message, "8.00%") || !strings.Contains(v.Message, "5.00%") {
		t.Fatalf("message should cite computed and limit percentages: %q", v.Message)
	}
}

func TestMaxIncreaseDecreaseAlwaysValid(t *testing.T) {
	t.Parallel()
	res := Validate(models.RateSubmission{
		CurrentAmount:  500,
		ProposedAmount: 450,
	}, models.RateRule{MaxIncreasePercent: floatPtr(0)}, date(2025, time.March, 10))
	if !res.IsValid {
		t.Fatalf("decrease must always pass: %+v", res.Violations)
	}
}

func TestMaxIncreaseZeroCurrentConservative(t *testing.T) {
	t.Parallel()
	if got := Increase(0, 700); got != 1.0 {
		t.Fatalf("current<=0 must be treated as 100%% increase, got %v", got)
	}
	res := Validate(models.RateSubmission{
		CurrentAmount:  0,
		ProposedAmount: 700,
	}, models.RateRule{MaxIncreasePercent: floatPtr(50)}, date(2025, time.March, 10))
	if res.IsValid {
		t.Fatal("expected violation for zero-current fallback")
	}
}

func TestIncreaseSignMatchesDelta(t *testing.T) {
	t.Parallel()
	cases := []struct{ current, proposed float64 }{
		{500, 540}, {500, 500}, {500, 460}, {100, 101}, {100, 99.99},
	}
	for _, c := range cases {
		pct := Increase(c.current, c.proposed)
		delta := c.proposed - c.current
		if (pct > 0) != (delta > 0) || (pct < 0) != (delta < 0) {
			t.Fatalf("sign mismatch for %v->%v: pct=%v", c.current, c.proposed, pct)
		}
	}
}

func TestFreezePeriod(t *testing.T) {
	t.Parallel()
	rule := models.RateRule{FreezePeriodMonths: intPtr(12)}
	sub := models.RateSubmission{
		CurrentAmount:     500,
		ProposedAmount:    510,
		LastEffectiveDate: date(2024, time.June, 1),
	}
	res := Validate(sub, rule, date(2025, time.May, 31))
	if res.IsValid {
		t.Fatal("expected freeze violation one day before freeze end")
	}
	res = Validate(sub, rule, date(2025, time.June, 1))
	if !res.IsValid {
		t.Fatalf("freeze should lift exactly at freeze end: %+v", res.Violations)
	}
}

func TestFreezePeriodMonthBoundary(t *testing.T) {
	t.Parallel()
	// Jan 31 + 1 month normalizes to Mar 3 (non-leap year).
	rule := models.RateRule{FreezePeriodMonths: intPtr(1)}
	sub := models.RateSubmission{
		CurrentAmount:     500,
		ProposedAmount:    505,
		LastEffectiveDate: date(2025, time.January, 31),
	}
	if res := Validate(sub, rule, date(2025, time.March, 2)); res.IsValid {
		t.Fatal("expected freeze violation on Mar 2")
	}
	if res := Validate(sub, rule, date(2025, time.March, 3)); !res.IsValid {
		t.Fatal("freeze should lift on Mar 3")
	}
}

func TestNoticePeriod(t *testing.T) {
	t.Parallel()
	rule := models.RateRule{NoticeRequiredDays: intPtr(30)}
	today := date(2025, time.April, 1)
	sub := models.RateSubmission{
		CurrentAmount:     500,
		ProposedAmount:    505,
		ProposedEffective: date(2025, time.April, 30),
	}
	if res := Validate(sub, rule, today); res.IsValid {
		t.Fatal("expected notice violation for 29 days")
	}
	sub.ProposedEffective = date(2025, time.May, 1)
	if res := Validate(sub, rule, today); !res.IsValid {
		t.Fatalf("exactly 30 days notice should pass: %+v", res.Violations)
	}
	// Time of day must be stripped before comparison.
	sub.ProposedEffective = time.Date(2025, time.May, 1, 0, 30, 0, 0, time.UTC)
	if res := Validate(sub, rule, time.Date(2025, time.April, 1, 23, 45, 0, 0, time.UTC)); !res.IsValid {
		t.Fatalf("date-only comparison expected: %+v", res.Violations)
	}
}

func TestSubmissionWindowNonWrapping(t *testing.T) {
	t.Parallel()
	w := models.SubmissionWindow{StartMonth: 3, StartDay: 1, EndMonth: 6, EndDay: 30}
	cases := []struct {
		day  time.Time
		want bool
	}{
		{date(2025, time.March, 1), true},
		{date(2025, time.June, 30), true},
		{date(2025, time.February, 28), false},
		{date(2025, time.July, 1), false},
		{date(2025, time.April, 15), true},
	}
	for _, c := range cases {
		if got := windowContains(w, c.day); got != c.want {
			t.Fatalf("window %v on %s: got %v want %v", w, c.day.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestSubmissionWindowWrapping(t *testing.T) {
	t.Parallel()
	w := models.SubmissionWindow{StartMonth: 11, StartDay: 1, EndMonth: 2, EndDay: 28}
	cases := []struct {
		day  time.Time
		want bool
	}{
		{date(2025, time.November, 1), true},
		{date(2025, time.December, 25), true},
		{date(2026, time.January, 10), true},
		{date(2026, time.February, 28), true},
		{date(2026, time.March, 1), false},
		{date(2025, time.October, 31), false},
	}
	for _, c := range cases {
		if got := windowContains(w, c.day); got != c.want {
			t.Fatalf("wrap window on %s: got %v want %v", c.day.Format("2006-01-02"), got, c.want)
		}
	}
}

func TestSubmissionWindowBoundsWrapResolution(t *testing.T) {
	t.Parallel()
	w := models.SubmissionWindow{StartMonth: 11, StartDay: 1, EndMonth: 2, EndDay: 28}
	// In January the current cycle started the previous November.
	start, end := windowBounds(w, date(2026, time.January, 10))
	if start.Year() != 2025 || start.Month() != time.November {
		t.Fatalf("start should resolve to Nov 2025, got %s", start.Format("2006-01-02"))
	}
	if end.Year() != 2026 || end.Month() != time.February {
		t.Fatalf("end should resolve to Feb 2026, got %s", end.Format("2006-01-02"))
	}
	// In December the cycle ends the following February.
	start, end = windowBounds(w, date(2025, time.December, 5))
	if start.Year() != 2025 || end.Year() != 2026 {
		t.Fatalf("bounds should span the year boundary, got %s..%s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
}

func TestSubmissionWindowViolationMessage(t *testing.T) {
	t.Parallel()
	res := Validate(models.RateSubmission{CurrentAmount: 500, ProposedAmount: 500},
		models.RateRule{SubmissionWindow: &models.SubmissionWindow{StartMonth: 3, StartDay: 1, EndMonth: 6, EndDay: 30}},
		date(2025, time.August, 10))
	if res.IsValid {
		t.Fatal("expected submission window violation")
	}
	if !strings.Contains(res.Violations[0].Message, "Mar 1") || !strings.Contains(res.Violations[0].Message, "Jun 30") {
		t.Fatalf("message should format window bounds: %q", res.Violations[0].Message)
	}
}

func TestMultipleViolationsAccumulate(t *testing.T) {
	t.Parallel()
	rule := models.RateRule{
		MaxIncreasePercent: floatPtr(5),
		FreezePeriodMonths: intPtr(24),
		NoticeRequiredDays: intPtr(60),
		SubmissionWindow:   &models.SubmissionWindow{StartMonth: 1, StartDay: 1, EndMonth: 1, EndDay: 31},
	}
	res := Validate(models.RateSubmission{
		CurrentAmount:     500,
		ProposedAmount:    600,
		LastEffectiveDate: date(2025, time.January, 1),
		ProposedEffective: date(2025, time.July, 1),
	}, rule, date(2025, time.June, 15))
	if res.IsValid {
		t.Fatal("expected violations")
	}
	if len(res.Violations) != 4 {
		t.Fatalf("expected 4 accumulated violations, got %d: %+v", len(res.Violations), res.Violations)
	}
}

func TestNoRulesAlwaysValid(t *testing.T) {
	t.Parallel()
	res := Validate(models.RateSubmission{CurrentAmount: 100, ProposedAmount: 900},
		models.RateRule{}, date(2025, time.June, 15))
	if !res.IsValid || len(res.Violations) != 0 {
		t.Fatalf("empty rule set must pass everything: %+v", res.Violations)
	}
}
