package negotiation

import (
	"fmt"
	"math"
	"time"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/analytics"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/rules"
)

// SubmitResult carries the outcome of a firm's rate submission. When
// Violations is non-empty nothing was submitted and the negotiation is
// unchanged.
type SubmitResult struct {
	Negotiation models.Negotiation     `json:"negotiation"`
	Rates       []models.Rate          `json:"rates,omitempty"`
	Impact      analytics.ImpactResult `json:"impact"`
	Violations  []models.Violation     `json:"violations,omitempty"`
}

// Submit validates every proposed rate against the client's rules and, only
// if all pass, moves the whole set to SUBMITTED with computed impact attached.
// A single failing rate rejects the entire submission.
func Submit(neg models.Negotiation, proposed, current []models.Rate, rule models.RateRule, billing []models.BillingRecord, actor string, now time.Time) (SubmitResult, error) {
	if neg.Status != Requested {
		return SubmitResult{Negotiation: neg}, models.ErrInvalidTransition
	}
	if len(proposed) == 0 {
		return SubmitResult{Negotiation: neg}, models.ErrInvalidInput
	}
	currentBy := map[string]models.Rate{}
	for _, r := range current {
		currentBy[r.AttorneyID] = r
	}

	var violations []models.Violation
	for _, r := range proposed {
		if r.Amount <= 0 {
			return SubmitResult{Negotiation: neg}, models.ErrInvalidInput
		}
		if r.ExpirationDate != nil && !r.ExpirationDate.After(r.EffectiveDate) {
			return SubmitResult{Negotiation: neg}, models.ErrInvalidInput
		}
		cur := currentBy[r.AttorneyID]
		res := rules.Validate(models.RateSubmission{
			RateID:            r.ID,
			AttorneyID:        r.AttorneyID,
			CurrentAmount:     cur.Amount,
			ProposedAmount:    r.Amount,
			LastEffectiveDate: cur.EffectiveDate,
			ProposedEffective: r.EffectiveDate,
		}, rule, now)
		for _, v := range res.Violations {
			v.Message = fmt.Sprintf("rate %s: %s", r.ID, v.Message)
			violations = append(violations, v)
		}
	}
	if len(violations) > 0 {
		return SubmitResult{Negotiation: neg, Violations: violations}, nil
	}

	updated := make([]models.Rate, 0, len(proposed))
	for _, r := range proposed {
		r.Status = RateSubmitted
		r.Type = TypeProposed
		r.History = appendHistory(r, actor, "submitted for review", now)
		updated = append(updated, r)
	}
	out, err := Transition(neg, Submitted, now)
	if err != nil {
		return SubmitResult{Negotiation: neg}, err
	}
	return SubmitResult{
		Negotiation: out,
		Rates:       updated,
		Impact:      analytics.ComputeImpact(current, proposed, billing),
	}, nil
}

// BulkPayload parameterizes a bulk action. CounterAmounts is required for
// COUNTER_PROPOSE: exactly one finite, positive amount per targeted rate id.
type BulkPayload struct {
	CounterAmounts map[string]float64 `json:"counter_amounts,omitempty"`
	Message        string             `json:"message,omitempty"`
}

// BulkAction applies one action to every targeted rate. The batch is
// pre-checked as a whole: any illegal rate state, unknown id, or bad counter
// amount rejects the entire batch before any rate mutates.
func BulkAction(all []models.Rate, rateIDs []string, action, role, actor string, payload BulkPayload, now time.Time) ([]models.Rate, error) {
	if len(rateIDs) == 0 {
		return nil, models.ErrInvalidInput
	}
	byID := map[string]models.Rate{}
	for _, r := range all {
		byID[r.ID] = r
	}

	// Atomic pre-check, not per-rate rollback.
	for _, id := range rateIDs {
		r, ok := byID[id]
		if !ok {
			return nil, models.ErrNotFound
		}
		if err := RateActionAllowed(role, action, r); err != nil {
			return nil, err
		}
		if action == ActionCounterPropose {
			amount, ok := payload.CounterAmounts[id]
			if !ok {
				return nil, models.ErrInvalidInput
			}
			if err := validAmount(amount); err != nil {
				return nil, err
			}
		}
	}

	updated := make([]models.Rate, 0, len(rateIDs))
	for _, id := range rateIDs {
		r := byID[id]
		next, err := applyRateAction(r, role, action, payload.CounterAmounts[id], actor, payload.Message, now)
		if err != nil {
			return nil, err
		}
		updated = append(updated, next)
	}
	return updated, nil
}

// Accept is the single-rate firm acceptance of a client counter.
func Accept(r models.Rate, actor string, now time.Time) (models.Rate, error) {
	if err := RateActionAllowed(RoleFirm, ActionAccept, r); err != nil {
		return r, err
	}
	return applyRateAction(r, RoleFirm, ActionAccept, 0, actor, "", now)
}

// Counter is the single-rate counter-proposal, legal for either role subject
// to the same state discipline as the bulk variant.
func Counter(r models.Rate, role string, amount float64, actor, message string, now time.Time) (models.Rate, error) {
	if err := RateActionAllowed(role, ActionCounterPropose, r); err != nil {
		return r, err
	}
	if err := validAmount(amount); err != nil {
		return r, err
	}
	return applyRateAction(r, role, ActionCounterPropose, amount, actor, message, now)
}

func applyRateAction(r models.Rate, role, action string, amount float64, actor, message string, now time.Time) (models.Rate, error) {
	switch action {
	case ActionApprove, ActionAccept:
		r.Status = RateApproved
		r.Type = TypeApproved
		r.CounteredBy = ""
	case ActionReject:
		r.Status = RateRejected
		r.CounteredBy = ""
	case ActionCounterPropose:
		r.Status = RateUnderReview
		r.Type = TypeCounterProposed
		r.Amount = amount
		r.CounteredBy = role
	default:
		return r, models.ErrInvalidInput
	}
	r.History = appendHistory(r, actor, message, now)
	return r, nil
}

func validAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return models.ErrInvalidInput
	}
	return nil
}

// appendHistory records the rate as it stands after a change. History is
// append-only and never rewritten.
func appendHistory(r models.Rate, actor, message string, now time.Time) []models.RateHistoryEntry {
	entry := models.RateHistoryEntry{
		Amount:    r.Amount,
		Type:      r.Type,
		Status:    r.Status,
		Timestamp: now,
		Actor:     actor,
		Message:   message,
	}
	out := make([]models.RateHistoryEntry, 0, len(r.History)+1)
	out = append(out, r.History...)
	return append(out, entry)
}
