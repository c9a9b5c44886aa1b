package rules

import (
	"fmt"
	"time"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

const (
	RuleMaxIncrease      = "MAX_INCREASE"
	RuleFreezePeriod     = "FREEZE_PERIOD"
	RuleNoticePeriod     = "NOTICE_PERIOD"
	RuleSubmissionWindow = "SUBMISSION_WINDOW"
)

// Validate evaluates one candidate rate against a client's rule set. All
// outcomes are data; it never panics and reports every violation at once.
func Validate(candidate models.RateSubmission, rule models.RateRule, today time.Time) models.ValidationResult {
	today = dateOnly(today)
	var violations []models.Violation

	if rule.MaxIncreasePercent != nil {
		if v := checkMaxIncrease(candidate, *rule.MaxIncreasePercent); v != nil {
			violations = append(violations, *v)
		}
	}
	if rule.FreezePeriodMonths != nil {
		if v := checkFreezePeriod(candidate, *rule.FreezePeriodMonths, today); v != nil {
			violations = append(violations, *v)
		}
	}
	if rule.NoticeRequiredDays != nil {
		if v := checkNoticePeriod(candidate, *rule.NoticeRequiredDays, today); v != nil {
			violations = append(violations, *v)
		}
	}
	if rule.SubmissionWindow != nil {
		if v := checkSubmissionWindow(*rule.SubmissionWindow, today); v != nil {
			violations = append(violations, *v)
		}
	}
	return models.ValidationResult{IsValid: len(violations) == 0, Violations: violations}
}

// Increase returns the fractional increase of proposed over current.
// current <= 0 is treated as a 100% increase.
func Increase(current, proposed float64) float64 {
	if current <= 0 {
		return 1.0
	}
	return (proposed - current) / current
}

func checkMaxIncrease(candidate models.RateSubmission, maxPercent float64) *models.Violation {
	pct := Increase(candidate.CurrentAmount, candidate.ProposedAmount)
	if pct <= 0 {
		return nil
	}
	if pct*100 > maxPercent {
		return &models.Violation{
			Rule: RuleMaxIncrease,
			Message: fmt.Sprintf("proposed increase %.2f%% exceeds client maximum %.2f%%",
				pct*100, maxPercent),
		}
	}
	return nil
}

func checkFreezePeriod(candidate models.RateSubmission, months int, today time.Time) *models.Violation {
	if candidate.LastEffectiveDate.IsZero() || months <= 0 {
		return nil
	}
	freezeEnd := dateOnly(candidate.LastEffectiveDate).AddDate(0, months, 0)
	if today.Before(freezeEnd) {
		return &models.Violation{
			Rule: RuleFreezePeriod,
			Message: fmt.Sprintf("rate is frozen until %s (%d month freeze from %s)",
				freezeEnd.Format("2006-01-02"), months, candidate.LastEffectiveDate.Format("2006-01-02")),
		}
	}
	return nil
}

func checkNoticePeriod(candidate models.RateSubmission, days int, today time.Time) *models.Violation {
	if days <= 0 || candidate.ProposedEffective.IsZero() {
		return nil
	}
	minEffective := today.AddDate(0, 0, days)
	if dateOnly(candidate.ProposedEffective).Before(minEffective) {
		return &models.Violation{
			Rule: RuleNoticePeriod,
			Message: fmt.Sprintf("effective date %s is earlier than the %d day notice minimum %s",
				candidate.ProposedEffective.Format("2006-01-02"), days, minEffective.Format("2006-01-02")),
		}
	}
	return nil
}

func checkSubmissionWindow(w models.SubmissionWindow, today time.Time) *models.Violation {
	if !windowContains(w, today) {
		start, end := windowBounds(w, today)
		return &models.Violation{
			Rule: RuleSubmissionWindow,
			Message: fmt.Sprintf("submissions are only accepted between %s and %s",
				start.Format("Jan 2"), end.Format("Jan 2")),
		}
	}
	return nil
}

// windowContains reports whether today falls inside the annually recurring
// window, honoring windows that wrap the year boundary.
func windowContains(w models.SubmissionWindow, today time.Time) bool {
	md := int(today.Month())*100 + today.Day()
	start := w.StartMonth*100 + w.StartDay
	end := w.EndMonth*100 + w.EndDay
	if start <= end {
		return md >= start && md <= end
	}
	return md >= start || md <= end
}

// windowBounds resolves the recurring window to concrete dates for the cycle
// nearest to today, for violation messages.
func windowBounds(w models.SubmissionWindow, today time.Time) (time.Time, time.Time) {
	year := today.Year()
	start := time.Date(year, time.Month(w.StartMonth), w.StartDay, 0, 0, 0, 0, today.Location())
	end := time.Date(year, time.Month(w.EndMonth), w.EndDay, 0, 0, 0, 0, today.Location())
	if end.Before(start) {
		// Wrapping window: pick whichever year-adjusted interval is current.
		md := int(today.Month())*100 + today.Day()
		if md <= w.EndMonth*100+w.EndDay {
			start = start.AddDate(-1, 0, 0)
		} else {
			end = end.AddDate(1, 0, 0)
		}
	}
	return start, end
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
