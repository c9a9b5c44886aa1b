package ocg

import (
	"fmt"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

// Document statuses. The document lifecycle is linear: no regression once
// Published.
const (
	DocDraft       = "Draft"
	DocPublished   = "Published"
	DocNegotiating = "Negotiating"
	DocSigned      = "Signed"
)

// Per-firm negotiation statuses.
const (
	InProgress      = "InProgress"
	Submitted       = "Submitted"
	CounterProposed = "CounterProposed"
	Accepted        = "Accepted"
	Rejected        = "Rejected"
	Completed       = "Completed"
)

func CanTransitionDocument(from, to string) bool {
	switch from {
	case DocDraft:
		return to == DocPublished
	case DocPublished:
		return to == DocNegotiating
	case DocNegotiating:
		return to == DocSigned
	default:
		return false
	}
}

func TransitionDocument(doc models.OCGDocument, to string) (models.OCGDocument, error) {
	if !CanTransitionDocument(doc.Status, to) {
		return doc, models.ErrInvalidTransition
	}
	doc.Status = to
	if to == DocPublished {
		doc.Version++
	}
	return doc, nil
}

func CanTransitionNegotiation(from, to string) bool {
	switch from {
	case InProgress:
		return to == Submitted
	case Submitted:
		return to == CounterProposed || to == Accepted || to == Rejected
	case CounterProposed:
		return to == InProgress
	case Accepted, Rejected:
		return to == Completed
	default:
		return false
	}
}

func TransitionNegotiation(neg models.OCGNegotiation, to string) (models.OCGNegotiation, error) {
	if !CanTransitionNegotiation(neg.Status, to) {
		return neg, models.ErrInvalidTransition
	}
	neg.Status = to
	return neg, nil
}

// NewNegotiation opens a firm's negotiation of a published document with every
// negotiable section preselected to its default alternative.
func NewNegotiation(doc models.OCGDocument, id, firmID string, pointBudget int) (models.OCGNegotiation, error) {
	if doc.Status == DocDraft {
		return models.OCGNegotiation{}, models.ErrInvalidTransition
	}
	if pointBudget < 0 {
		return models.OCGNegotiation{}, models.ErrInvalidInput
	}
	selections := map[string]string{}
	for _, s := range doc.Sections {
		if !s.IsNegotiable {
			continue
		}
		for _, alt := range s.Alternatives {
			if alt.IsDefault {
				selections[s.ID] = alt.ID
				break
			}
		}
	}
	return models.OCGNegotiation{
		ID:          id,
		OCGID:       doc.ID,
		FirmID:      firmID,
		PointBudget: pointBudget,
		Selections:  selections,
		Status:      InProgress,
	}, nil
}

// PointsUsed sums the points of the selected alternative of every negotiable
// section. Sections without a selection contribute nothing.
func PointsUsed(doc models.OCGDocument, selections map[string]string) int {
	used := 0
	for _, s := range doc.Sections {
		if !s.IsNegotiable {
			continue
		}
		altID, ok := selections[s.ID]
		if !ok {
			continue
		}
		for _, alt := range s.Alternatives {
			if alt.ID == altID {
				used += alt.Points
				break
			}
		}
	}
	return used
}

// SelectionResult reports a selection attempt. On rejection Shortfall is the
// number of points the firm is over budget by; the negotiation is unchanged.
type SelectionResult struct {
	OK              bool   `json:"ok"`
	PointsUsed      int    `json:"points_used"`
	PointsRemaining int    `json:"points_remaining"`
	Shortfall       int    `json:"shortfall,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// SelectAlternative applies the point-budget protocol: the candidate is legal
// iff the delta over the section's current selection fits in the points left
// across all other sections. Re-selecting the current alternative is a no-op.
func SelectAlternative(doc models.OCGDocument, neg models.OCGNegotiation, sectionID, alternativeID string) (models.OCGNegotiation, SelectionResult, error) {
	if neg.Status != InProgress {
		return neg, SelectionResult{}, models.ErrInvalidTransition
	}
	section, ok := findSection(doc, sectionID)
	if !ok {
		return neg, SelectionResult{}, models.ErrNotFound
	}
	if !section.IsNegotiable {
		return neg, SelectionResult{}, models.ErrInvalidInput
	}
	candidate, ok := findAlternative(section, alternativeID)
	if !ok {
		return neg, SelectionResult{}, models.ErrNotFound
	}

	currentUsed := PointsUsed(doc, neg.Selections)
	if neg.Selections[sectionID] == alternativeID {
		return neg, SelectionResult{
			OK:              true,
			PointsUsed:      currentUsed,
			PointsRemaining: neg.PointBudget - currentUsed,
		}, nil
	}

	currentPoints := 0
	if selectedID, ok := neg.Selections[sectionID]; ok {
		if selected, ok := findAlternative(section, selectedID); ok {
			currentPoints = selected.Points
		}
	}
	usedOthers := currentUsed - currentPoints
	usedAfter := usedOthers + candidate.Points
	if usedAfter > neg.PointBudget {
		shortfall := usedAfter - neg.PointBudget
		return neg, SelectionResult{
			OK:              false,
			PointsUsed:      currentUsed,
			PointsRemaining: neg.PointBudget - currentUsed,
			Shortfall:       shortfall,
			Reason: fmt.Sprintf("selecting %q needs %d more point(s) than the budget allows",
				candidate.Title, shortfall),
		}, nil
	}

	selections := make(map[string]string, len(neg.Selections)+1)
	for k, v := range neg.Selections {
		selections[k] = v
	}
	selections[sectionID] = alternativeID
	neg.Selections = selections
	return neg, SelectionResult{
		OK:              true,
		PointsUsed:      usedAfter,
		PointsRemaining: neg.PointBudget - usedAfter,
	}, nil
}

// SubmitResult reports a submission attempt. When OK is false nothing changed.
type SubmitResult struct {
	OK              bool     `json:"ok"`
	MissingSections []string `json:"missing_sections,omitempty"`
	PointsUsed      int      `json:"points_used"`
	PointsRemaining int      `json:"points_remaining"`
	Overage         int      `json:"overage,omitempty"`
}

// Submit requires exactly one selection per negotiable section and a total
// within budget, then moves the negotiation to Submitted.
func Submit(doc models.OCGDocument, neg models.OCGNegotiation) (models.OCGNegotiation, SubmitResult, error) {
	if neg.Status != InProgress {
		return neg, SubmitResult{}, models.ErrInvalidTransition
	}
	var missing []string
	for _, s := range doc.Sections {
		if !s.IsNegotiable {
			continue
		}
		if _, ok := neg.Selections[s.ID]; !ok {
			missing = append(missing, s.ID)
		}
	}
	used := PointsUsed(doc, neg.Selections)
	result := SubmitResult{
		PointsUsed:      used,
		PointsRemaining: neg.PointBudget - used,
		MissingSections: missing,
	}
	if used > neg.PointBudget {
		result.Overage = used - neg.PointBudget
	}
	if len(missing) > 0 || result.Overage > 0 {
		return neg, result, nil
	}
	out, err := TransitionNegotiation(neg, Submitted)
	if err != nil {
		return neg, SubmitResult{}, err
	}
	result.OK = true
	return out, result, nil
}

func findSection(doc models.OCGDocument, sectionID string) (models.OCGSection, bool) {
	for _, s := range doc.Sections {
		if s.ID == sectionID {
			return s, true
		}
	}
	return models.OCGSection{}, false
}

func findAlternative(section models.OCGSection, altID string) (models.OCGAlternative, bool) {
	for _, alt := range section.Alternatives {
		if alt.ID == altID {
			return alt, true
		}
	}
	return models.OCGAlternative{}, false
}
