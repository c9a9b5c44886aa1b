package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/analytics"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/audit"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/negotiation"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/ocg"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/rules"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/statebus"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/stream"
)

// Repository is the persistence port. Save methods perform an optimistic
// version check and return models.ErrVersionConflict when the row moved
// underneath the caller; loads return models.ErrNotFound for unknown ids.
type Repository interface {
	Negotiation(ctx context.Context, id string) (models.Negotiation, error)
	SaveNegotiation(ctx context.Context, n models.Negotiation) (models.Negotiation, error)
	Rates(ctx context.Context, ids []string) ([]models.Rate, error)
	SaveRates(ctx context.Context, rates []models.Rate) ([]models.Rate, error)
	CurrentRates(ctx context.Context, clientID, firmID string) ([]models.Rate, error)
	RateRule(ctx context.Context, clientID string) (models.RateRule, error)
	BillingHistory(ctx context.Context, clientID, firmID string) ([]models.BillingRecord, error)
	OCGDocument(ctx context.Context, id string) (models.OCGDocument, error)
	SaveOCGDocument(ctx context.Context, doc models.OCGDocument) (models.OCGDocument, error)
	OCGNegotiation(ctx context.Context, id string) (models.OCGNegotiation, error)
	SaveOCGNegotiation(ctx context.Context, n models.OCGNegotiation) (models.OCGNegotiation, error)
}

// Auditor is the audit-trail port; *audit.Writer satisfies it.
type Auditor interface {
	Append(ctx context.Context, rec audit.Record) error
}

// Core exposes the decision engines as one API surface. The core itself is
// synchronous and stateless between calls except for the batch-mode pending
// event buffer, which belongs to the orchestrator, not the engines.
type Core struct {
	Repo    Repository
	Bus     statebus.Publisher
	Hub     *stream.Hub
	Auditor Auditor
	Now     func() time.Time

	mu      sync.Mutex
	pending map[string][]statebus.Event
}

func New(repo Repository) *Core {
	return &Core{
		Repo:    repo,
		Now:     func() time.Time { return time.Now().UTC() },
		pending: map[string][]statebus.Event{},
	}
}

// ValidateRate evaluates one candidate against a rule set without touching
// any state.
func (c *Core) ValidateRate(candidate models.RateSubmission, rule models.RateRule) models.ValidationResult {
	return rules.Validate(candidate, rule, c.now())
}

// ComputeImpact is the analytics pass-through for callers holding their own
// rate and billing data.
func (c *Core) ComputeImpact(current, proposed []models.Rate, billing []models.BillingRecord) analytics.ImpactResult {
	return analytics.ComputeImpact(current, proposed, billing)
}

// SubmitRates runs the whole-submission protocol: all rates validate or
// nothing is persisted.
func (c *Core) SubmitRates(ctx context.Context, negotiationID string, proposed []models.Rate, actor string) (negotiation.SubmitResult, error) {
	neg, err := c.Repo.Negotiation(ctx, negotiationID)
	if err != nil {
		return negotiation.SubmitResult{}, err
	}
	rule, err := c.Repo.RateRule(ctx, neg.ClientID)
	if err != nil {
		return negotiation.SubmitResult{}, err
	}
	current, err := c.Repo.CurrentRates(ctx, neg.ClientID, neg.FirmID)
	if err != nil {
		return negotiation.SubmitResult{}, err
	}
	billing, err := c.Repo.BillingHistory(ctx, neg.ClientID, neg.FirmID)
	if err != nil {
		return negotiation.SubmitResult{}, err
	}

	res, err := negotiation.Submit(neg, proposed, current, rule, billing, actor, c.now())
	if err != nil {
		return res, err
	}
	if len(res.Violations) > 0 {
		c.audit(ctx, "SUBMIT", "negotiation", negotiationID, rateIDs(proposed), actor, negotiation.RoleFirm, "rejected", res.Violations)
		return res, nil
	}

	savedRates, err := c.Repo.SaveRates(ctx, res.Rates)
	if err != nil {
		return negotiation.SubmitResult{}, err
	}
	res.Rates = savedRates
	res.Negotiation.RateIDs = rateIDs(savedRates)
	savedNeg, err := c.Repo.SaveNegotiation(ctx, res.Negotiation)
	if err != nil {
		return negotiation.SubmitResult{}, err
	}
	res.Negotiation = savedNeg

	c.audit(ctx, "SUBMIT", "negotiation", negotiationID, res.Negotiation.RateIDs, actor, negotiation.RoleFirm, "applied", nil)
	c.emit(ctx, savedNeg, statebus.Event{
		Type:          statebus.EventRatesSubmitted,
		NegotiationID: negotiationID,
		RateIDs:       res.Negotiation.RateIDs,
		Actor:         actor,
		At:            c.now(),
	})
	return res, nil
}

// BulkResult reports an applied bulk action.
type BulkResult struct {
	Updated     []models.Rate      `json:"updated"`
	Negotiation models.Negotiation `json:"negotiation"`
}

// ApplyBulkAction applies one action to a batch of rates within a
// negotiation, all-or-nothing, then recomputes the negotiation status from
// the aggregate of its rates.
func (c *Core) ApplyBulkAction(ctx context.Context, negotiationID string, ids []string, action, role, actor string, payload negotiation.BulkPayload) (BulkResult, error) {
	neg, err := c.Repo.Negotiation(ctx, negotiationID)
	if err != nil {
		return BulkResult{}, err
	}
	owned := map[string]struct{}{}
	for _, id := range neg.RateIDs {
		owned[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := owned[id]; !ok {
			return BulkResult{}, fmt.Errorf("rate %s not in negotiation %s: %w", id, negotiationID, models.ErrInvalidInput)
		}
	}
	all, err := c.Repo.Rates(ctx, neg.RateIDs)
	if err != nil {
		return BulkResult{}, err
	}

	updated, err := negotiation.BulkAction(all, ids, action, role, actor, payload, c.now())
	if err != nil {
		c.audit(ctx, action, "negotiation", negotiationID, ids, actor, role, "refused", nil)
		return BulkResult{}, err
	}
	return c.persistRateChanges(ctx, neg, all, updated, action, role, actor)
}

// AcceptRate is the single-rate firm acceptance.
func (c *Core) AcceptRate(ctx context.Context, negotiationID, rateID, actor string) (BulkResult, error) {
	return c.applySingle(ctx, negotiationID, rateID, negotiation.RoleFirm, negotiation.ActionAccept, actor,
		func(r models.Rate) (models.Rate, error) {
			return negotiation.Accept(r, actor, c.now())
		})
}

// CounterRate is the single-rate counter for either role.
func (c *Core) CounterRate(ctx context.Context, negotiationID, rateID, role string, amount float64, actor, message string) (BulkResult, error) {
	return c.applySingle(ctx, negotiationID, rateID, role, negotiation.ActionCounterPropose, actor,
		func(r models.Rate) (models.Rate, error) {
			return negotiation.Counter(r, role, amount, actor, message, c.now())
		})
}

func (c *Core) applySingle(ctx context.Context, negotiationID, rateID, role, action, actor string, apply func(models.Rate) (models.Rate, error)) (BulkResult, error) {
	neg, err := c.Repo.Negotiation(ctx, negotiationID)
	if err != nil {
		return BulkResult{}, err
	}
	all, err := c.Repo.Rates(ctx, neg.RateIDs)
	if err != nil {
		return BulkResult{}, err
	}
	var target *models.Rate
	for i := range all {
		if all[i].ID == rateID {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return BulkResult{}, models.ErrNotFound
	}
	next, err := apply(*target)
	if err != nil {
		c.audit(ctx, action, "rate", rateID, []string{rateID}, actor, role, "refused", nil)
		return BulkResult{}, err
	}
	return c.persistRateChanges(ctx, neg, all, []models.Rate{next}, action, role, actor)
}

func (c *Core) persistRateChanges(ctx context.Context, neg models.Negotiation, all, updated []models.Rate, action, role, actor string) (BulkResult, error) {
	saved, err := c.Repo.SaveRates(ctx, updated)
	if err != nil {
		return BulkResult{}, err
	}

	merged := make([]models.Rate, len(all))
	copy(merged, all)
	for _, u := range saved {
		for i := range merged {
			if merged[i].ID == u.ID {
				merged[i] = u
				break
			}
		}
	}
	derived := negotiation.DeriveNegotiationStatus(merged, role)
	if derived != neg.Status && negotiation.CanTransition(neg.Status, derived) {
		next, err := negotiation.Transition(neg, derived, c.now())
		if err != nil {
			return BulkResult{}, err
		}
		if neg, err = c.Repo.SaveNegotiation(ctx, next); err != nil {
			return BulkResult{}, err
		}
		c.emit(ctx, neg, statebus.Event{
			Type:          statebus.EventNegotiationMoved,
			NegotiationID: neg.ID,
			Actor:         actor,
			At:            c.now(),
		})
	}

	ids := rateIDs(saved)
	c.audit(ctx, action, "negotiation", neg.ID, ids, actor, role, "applied", nil)
	c.emit(ctx, neg, statebus.Event{
		Type:          statebus.EventRatesUpdated,
		NegotiationID: neg.ID,
		RateIDs:       ids,
		Actor:         actor,
		At:            c.now(),
	})
	return BulkResult{Updated: saved, Negotiation: neg}, nil
}

// SelectOCGAlternative applies the point-budget protocol and persists only a
// legal selection. An over-budget selection comes back as data, not an error.
func (c *Core) SelectOCGAlternative(ctx context.Context, ocgNegotiationID, sectionID, alternativeID, actor string) (ocg.SelectionResult, error) {
	neg, err := c.Repo.OCGNegotiation(ctx, ocgNegotiationID)
	if err != nil {
		return ocg.SelectionResult{}, err
	}
	doc, err := c.Repo.OCGDocument(ctx, neg.OCGID)
	if err != nil {
		return ocg.SelectionResult{}, err
	}
	next, res, err := ocg.SelectAlternative(doc, neg, sectionID, alternativeID)
	if err != nil {
		return ocg.SelectionResult{}, err
	}
	if !res.OK {
		return res, nil
	}
	if _, err := c.Repo.SaveOCGNegotiation(ctx, next); err != nil {
		return ocg.SelectionResult{}, err
	}
	c.audit(ctx, "OCG_SELECT", "ocg_negotiation", ocgNegotiationID, nil, actor, negotiation.RoleFirm, "applied", nil)
	c.emitOCG(ctx, statebus.Event{
		Type:          statebus.EventOCGSelection,
		NegotiationID: ocgNegotiationID,
		OCGID:         neg.OCGID,
		Actor:         actor,
		At:            c.now(),
	})
	return res, nil
}

// PublishOCGDocument moves a draft document to Published, freezing its
// content and opening it to firm negotiations.
func (c *Core) PublishOCGDocument(ctx context.Context, docID, actor string) (models.OCGDocument, error) {
	doc, err := c.Repo.OCGDocument(ctx, docID)
	if err != nil {
		return models.OCGDocument{}, err
	}
	moved, err := ocg.TransitionDocument(doc, ocg.DocPublished)
	if err != nil {
		return models.OCGDocument{}, err
	}
	saved, err := c.Repo.SaveOCGDocument(ctx, moved)
	if err != nil {
		return models.OCGDocument{}, err
	}
	c.audit(ctx, "OCG_PUBLISH", "ocg_document", docID, nil, actor, negotiation.RoleClient, "applied", nil)
	c.emitOCG(ctx, statebus.Event{
		Type:  statebus.EventDocumentPublished,
		OCGID: docID,
		Actor: actor,
		At:    c.now(),
	})
	return saved, nil
}

// SubmitOCG submits a firm's completed selection set.
func (c *Core) SubmitOCG(ctx context.Context, ocgNegotiationID, actor string) (ocg.SubmitResult, error) {
	neg, err := c.Repo.OCGNegotiation(ctx, ocgNegotiationID)
	if err != nil {
		return ocg.SubmitResult{}, err
	}
	doc, err := c.Repo.OCGDocument(ctx, neg.OCGID)
	if err != nil {
		return ocg.SubmitResult{}, err
	}
	next, res, err := ocg.Submit(doc, neg)
	if err != nil {
		return ocg.SubmitResult{}, err
	}
	if !res.OK {
		return res, nil
	}
	if _, err := c.Repo.SaveOCGNegotiation(ctx, next); err != nil {
		return ocg.SubmitResult{}, err
	}
	// First submission moves the published document into negotiation.
	if doc.Status == ocg.DocPublished {
		if moved, err := ocg.TransitionDocument(doc, ocg.DocNegotiating); err == nil {
			if _, err := c.Repo.SaveOCGDocument(ctx, moved); err != nil {
				return ocg.SubmitResult{}, err
			}
		}
	}
	c.audit(ctx, "OCG_SUBMIT", "ocg_negotiation", ocgNegotiationID, nil, actor, negotiation.RoleFirm, "applied", nil)
	c.emitOCG(ctx, statebus.Event{
		Type:          statebus.EventOCGSubmitted,
		NegotiationID: ocgNegotiationID,
		OCGID:         neg.OCGID,
		Actor:         actor,
		At:            c.now(),
	})
	return res, nil
}

// OpenOCGNegotiation starts a firm's negotiation of a published document
// with defaults preselected and the firm's point budget fixed.
func (c *Core) OpenOCGNegotiation(ctx context.Context, docID, firmID string, pointBudget int, actor string) (models.OCGNegotiation, error) {
	doc, err := c.Repo.OCGDocument(ctx, docID)
	if err != nil {
		return models.OCGNegotiation{}, err
	}
	neg, err := ocg.NewNegotiation(doc, uuid.NewString(), firmID, pointBudget)
	if err != nil {
		return models.OCGNegotiation{}, err
	}
	saved, err := c.Repo.SaveOCGNegotiation(ctx, neg)
	if err != nil {
		return models.OCGNegotiation{}, err
	}
	c.audit(ctx, "OCG_OPEN", "ocg_negotiation", saved.ID, nil, actor, negotiation.RoleFirm, "applied", nil)
	c.emitOCG(ctx, statebus.Event{
		Type:          statebus.EventOCGOpened,
		NegotiationID: saved.ID,
		OCGID:         docID,
		Actor:         actor,
		At:            c.now(),
	})
	return saved, nil
}

// OCG response decisions a client may record against a submitted selection set.
const (
	OCGDecisionAccept  = "ACCEPT"
	OCGDecisionReject  = "REJECT"
	OCGDecisionCounter = "COUNTER"
)

// RespondOCG records the client's decision on a submitted OCG negotiation:
// accept or reject it outright, or counter-propose and hand it back to the
// firm.
func (c *Core) RespondOCG(ctx context.Context, ocgNegotiationID, decision, actor string) (models.OCGNegotiation, error) {
	var target string
	switch decision {
	case OCGDecisionAccept:
		target = ocg.Accepted
	case OCGDecisionReject:
		target = ocg.Rejected
	case OCGDecisionCounter:
		target = ocg.CounterProposed
	default:
		return models.OCGNegotiation{}, fmt.Errorf("unknown decision %q: %w", decision, models.ErrInvalidInput)
	}
	return c.moveOCGNegotiation(ctx, ocgNegotiationID, target, "OCG_RESPOND", negotiation.RoleClient, actor)
}

// ReopenOCG resumes a counter-proposed negotiation so the firm can revise its
// selections.
func (c *Core) ReopenOCG(ctx context.Context, ocgNegotiationID, actor string) (models.OCGNegotiation, error) {
	return c.moveOCGNegotiation(ctx, ocgNegotiationID, ocg.InProgress, "OCG_REOPEN", negotiation.RoleFirm, actor)
}

// CompleteOCG closes out an accepted or rejected negotiation.
func (c *Core) CompleteOCG(ctx context.Context, ocgNegotiationID, actor string) (models.OCGNegotiation, error) {
	return c.moveOCGNegotiation(ctx, ocgNegotiationID, ocg.Completed, "OCG_COMPLETE", negotiation.RoleClient, actor)
}

func (c *Core) moveOCGNegotiation(ctx context.Context, id, target, action, role, actor string) (models.OCGNegotiation, error) {
	neg, err := c.Repo.OCGNegotiation(ctx, id)
	if err != nil {
		return models.OCGNegotiation{}, err
	}
	next, err := ocg.TransitionNegotiation(neg, target)
	if err != nil {
		c.audit(ctx, action, "ocg_negotiation", id, nil, actor, role, "refused", nil)
		return models.OCGNegotiation{}, err
	}
	saved, err := c.Repo.SaveOCGNegotiation(ctx, next)
	if err != nil {
		return models.OCGNegotiation{}, err
	}
	c.audit(ctx, action, "ocg_negotiation", id, nil, actor, role, "applied", nil)
	c.emitOCG(ctx, statebus.Event{
		Type:          statebus.EventOCGResponded,
		NegotiationID: id,
		OCGID:         saved.OCGID,
		Actor:         actor,
		At:            c.now(),
	})
	return saved, nil
}

// SignOCGDocument closes the document lifecycle once negotiations settle.
func (c *Core) SignOCGDocument(ctx context.Context, docID, actor string) (models.OCGDocument, error) {
	doc, err := c.Repo.OCGDocument(ctx, docID)
	if err != nil {
		return models.OCGDocument{}, err
	}
	moved, err := ocg.TransitionDocument(doc, ocg.DocSigned)
	if err != nil {
		return models.OCGDocument{}, err
	}
	saved, err := c.Repo.SaveOCGDocument(ctx, moved)
	if err != nil {
		return models.OCGDocument{}, err
	}
	c.audit(ctx, "OCG_SIGN", "ocg_document", docID, nil, actor, negotiation.RoleClient, "applied", nil)
	c.emitOCG(ctx, statebus.Event{
		Type:  statebus.EventDocumentSigned,
		OCGID: docID,
		Actor: actor,
		At:    c.now(),
	})
	return saved, nil
}

// Draft document editing. Every mutation is draft-only and persisted through
// the same optimistic-version save as any other aggregate.

func (c *Core) AddOCGSection(ctx context.Context, docID string, section models.OCGSection, actor string) (models.OCGDocument, error) {
	return c.editOCGDocument(ctx, docID, "OCG_SECTION_ADD", actor, func(doc models.OCGDocument) (models.OCGDocument, error) {
		return ocg.AddSection(doc, section)
	})
}

// UpdateOCGSection replaces a section. Disabling negotiability on a section
// that still has alternatives clears them and requires confirmDestructive.
func (c *Core) UpdateOCGSection(ctx context.Context, docID string, section models.OCGSection, confirmDestructive bool, actor string) (models.OCGDocument, error) {
	return c.editOCGDocument(ctx, docID, "OCG_SECTION_UPDATE", actor, func(doc models.OCGDocument) (models.OCGDocument, error) {
		return ocg.UpdateSection(doc, section, confirmDestructive)
	})
}

func (c *Core) RemoveOCGSection(ctx context.Context, docID, sectionID, actor string) (models.OCGDocument, error) {
	return c.editOCGDocument(ctx, docID, "OCG_SECTION_REMOVE", actor, func(doc models.OCGDocument) (models.OCGDocument, error) {
		return ocg.RemoveSection(doc, sectionID)
	})
}

func (c *Core) AddOCGAlternative(ctx context.Context, docID, sectionID string, alt models.OCGAlternative, actor string) (models.OCGDocument, error) {
	return c.editOCGDocument(ctx, docID, "OCG_ALTERNATIVE_ADD", actor, func(doc models.OCGDocument) (models.OCGDocument, error) {
		return ocg.AddAlternative(doc, sectionID, alt)
	})
}

func (c *Core) UpdateOCGAlternative(ctx context.Context, docID, sectionID string, alt models.OCGAlternative, actor string) (models.OCGDocument, error) {
	return c.editOCGDocument(ctx, docID, "OCG_ALTERNATIVE_UPDATE", actor, func(doc models.OCGDocument) (models.OCGDocument, error) {
		return ocg.UpdateAlternative(doc, sectionID, alt)
	})
}

func (c *Core) RemoveOCGAlternative(ctx context.Context, docID, sectionID, altID, actor string) (models.OCGDocument, error) {
	return c.editOCGDocument(ctx, docID, "OCG_ALTERNATIVE_REMOVE", actor, func(doc models.OCGDocument) (models.OCGDocument, error) {
		return ocg.RemoveAlternative(doc, sectionID, altID)
	})
}

func (c *Core) editOCGDocument(ctx context.Context, docID, action, actor string, mutate func(models.OCGDocument) (models.OCGDocument, error)) (models.OCGDocument, error) {
	doc, err := c.Repo.OCGDocument(ctx, docID)
	if err != nil {
		return models.OCGDocument{}, err
	}
	edited, err := mutate(doc)
	if err != nil {
		c.audit(ctx, action, "ocg_document", docID, nil, actor, negotiation.RoleClient, "refused", nil)
		return models.OCGDocument{}, err
	}
	saved, err := c.Repo.SaveOCGDocument(ctx, edited)
	if err != nil {
		return models.OCGDocument{}, err
	}
	c.audit(ctx, action, "ocg_document", docID, nil, actor, negotiation.RoleClient, "applied", nil)
	c.emitOCG(ctx, statebus.Event{
		Type:  statebus.EventDocumentEdited,
		OCGID: docID,
		Actor: actor,
		At:    c.now(),
	})
	return saved, nil
}

// FlushBatch drains events accumulated for a BATCH-mode negotiation and
// publishes them in arrival order. Returns the number of events flushed.
func (c *Core) FlushBatch(ctx context.Context, negotiationID string) (int, error) {
	c.mu.Lock()
	events := c.pending[negotiationID]
	delete(c.pending, negotiationID)
	c.mu.Unlock()

	for i, evt := range events {
		if err := c.publish(ctx, evt); err != nil {
			// Requeue what did not go out; the caller may flush again.
			c.mu.Lock()
			c.pending[negotiationID] = append(events[i:], c.pending[negotiationID]...)
			c.mu.Unlock()
			return i, err
		}
	}
	if len(events) > 0 {
		_ = c.publish(ctx, statebus.Event{
			Type:          statebus.EventBatchFlushed,
			NegotiationID: negotiationID,
			At:            c.now(),
		})
	}
	return len(events), nil
}

// PendingEvents reports how many events wait for a batch flush.
func (c *Core) PendingEvents(negotiationID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending[negotiationID])
}

// emit routes an event per the negotiation's flush policy: REALTIME publishes
// immediately, BATCH parks the event until FlushBatch.
func (c *Core) emit(ctx context.Context, neg models.Negotiation, evt statebus.Event) {
	if neg.Mode == models.ModeBatch {
		c.mu.Lock()
		if c.pending == nil {
			c.pending = map[string][]statebus.Event{}
		}
		c.pending[neg.ID] = append(c.pending[neg.ID], evt)
		c.mu.Unlock()
		return
	}
	_ = c.publish(ctx, evt)
}

// emitOCG always publishes immediately; OCG negotiation has no batch mode.
func (c *Core) emitOCG(ctx context.Context, evt statebus.Event) {
	_ = c.publish(ctx, evt)
}

func (c *Core) publish(ctx context.Context, evt statebus.Event) error {
	if c.Hub != nil {
		c.Hub.Publish(stream.NewEvent(evt.Type, evt.NegotiationID, evt))
	}
	if c.Bus == nil {
		return nil
	}
	value, err := evt.Encode()
	if err != nil {
		return err
	}
	return c.Bus.Publish(ctx, evt.NegotiationID, value)
}

func (c *Core) audit(ctx context.Context, action, kind, entityID string, ids []string, actor, role, outcome string, violations []models.Violation) {
	if c.Auditor == nil {
		return
	}
	_ = c.Auditor.Append(ctx, audit.Record{
		DecisionID: uuid.NewString(),
		Action:     action,
		EntityKind: kind,
		EntityID:   entityID,
		RateIDs:    ids,
		Actor:      actor,
		Role:       role,
		Outcome:    outcome,
		Violations: violations,
		CreatedAt:  c.now(),
	})
}

func (c *Core) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func rateIDs(rates []models.Rate) []string {
	out := make([]string, 0, len(rates))
	for _, r := range rates {
		out = append(out, r.ID)
	}
	return out
}
