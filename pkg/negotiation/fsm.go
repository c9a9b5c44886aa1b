package negotiation

import (
	"time"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

// Negotiation statuses.
const (
	Requested             = "REQUESTED"
	Submitted             = "SUBMITTED"
	UnderReview           = "UNDER_REVIEW"
	ClientApproved        = "CLIENT_APPROVED"
	ClientRejected        = "CLIENT_REJECTED"
	ClientCounterProposed = "CLIENT_COUNTER_PROPOSED"
	FirmAccepted          = "FIRM_ACCEPTED"
	FirmCounterProposed   = "FIRM_COUNTER_PROPOSED"
	PendingApproval       = "PENDING_APPROVAL"
	Approved              = "APPROVED"
	Rejected              = "REJECTED"
	Modified              = "MODIFIED"
	Exported              = "EXPORTED"
	Active                = "ACTIVE"
	Expired               = "EXPIRED"
)

// Rate statuses.
const (
	RateDraft       = "DRAFT"
	RateSubmitted   = "SUBMITTED"
	RateUnderReview = "UNDER_REVIEW"
	RateApproved    = "APPROVED"
	RateRejected    = "REJECTED"
)

// Rate types.
const (
	TypeStandard        = "STANDARD"
	TypeApproved        = "APPROVED"
	TypeProposed        = "PROPOSED"
	TypeCounterProposed = "COUNTER_PROPOSED"
)

// Actor roles.
const (
	RoleClient = "client"
	RoleFirm   = "firm"
)

// Rate actions.
const (
	ActionApprove        = "APPROVE"
	ActionReject         = "REJECT"
	ActionCounterPropose = "COUNTER_PROPOSE"
	ActionAccept         = "ACCEPT"
)

func CanTransition(from, to string) bool {
	switch from {
	case Requested:
		return to == Submitted
	case Submitted:
		return to == UnderReview || to == ClientApproved || to == ClientRejected || to == ClientCounterProposed || to == PendingApproval
	case UnderReview:
		// PendingApproval covers a mixed outcome: every rate decided but the
		// client split between approvals and rejections.
		return to == ClientApproved || to == ClientRejected || to == ClientCounterProposed || to == PendingApproval
	case ClientApproved:
		return to == PendingApproval
	case ClientRejected:
		return to == PendingApproval
	case ClientCounterProposed:
		return to == FirmAccepted || to == FirmCounterProposed || to == PendingApproval
	case FirmAccepted:
		return to == PendingApproval
	case FirmCounterProposed:
		return to == ClientApproved || to == ClientRejected || to == ClientCounterProposed || to == PendingApproval
	case PendingApproval:
		return to == Approved || to == Rejected || to == Modified
	case Approved, Modified:
		return to == Exported
	case Exported:
		return to == Active
	case Active:
		return to == Expired
	default:
		return false
	}
}

func IsTerminal(status string) bool {
	return status == Rejected || status == Expired
}

// Transition returns a copy of the negotiation moved to the target status, or
// the unchanged negotiation with ErrInvalidTransition.
func Transition(n models.Negotiation, to string, now time.Time) (models.Negotiation, error) {
	if !CanTransition(n.Status, to) {
		return n, models.ErrInvalidTransition
	}
	n.Status = to
	switch to {
	case Approved, Rejected, Modified:
		done := now
		n.CompletionDate = &done
	}
	return n, nil
}

// RateActionAllowed enforces role-scoped legality: clients act on submitted or
// in-review rates; firms act only on rates the client has countered.
func RateActionAllowed(role, action string, r models.Rate) error {
	switch role {
	case RoleClient:
		if action != ActionApprove && action != ActionReject && action != ActionCounterPropose {
			return models.ErrInvalidInput
		}
		if r.Status != RateSubmitted && r.Status != RateUnderReview {
			return models.ErrInvalidTransition
		}
		return nil
	case RoleFirm:
		if action != ActionAccept && action != ActionCounterPropose {
			return models.ErrInvalidInput
		}
		if r.Status != RateUnderReview || r.Type != TypeCounterProposed || r.CounteredBy != RoleClient {
			return models.ErrInvalidTransition
		}
		return nil
	default:
		return models.ErrInvalidInput
	}
}

// DeriveNegotiationStatus recomputes the negotiation status candidate from the
// aggregate of its rates. actorRole is the role that performed the last action.
func DeriveNegotiationStatus(rates []models.Rate, actorRole string) string {
	if len(rates) == 0 {
		return Requested
	}
	counteredByFirm, counteredByClient := false, false
	approved, rejected, decided := 0, 0, 0
	for _, r := range rates {
		switch r.Status {
		case RateApproved:
			approved++
			decided++
		case RateRejected:
			rejected++
			decided++
		default:
			// Countered flags only hold the aggregate open while the rate
			// itself is still undecided.
			switch r.CounteredBy {
			case RoleFirm:
				counteredByFirm = true
			case RoleClient:
				counteredByClient = true
			}
		}
	}
	switch {
	case counteredByFirm:
		return FirmCounterProposed
	case counteredByClient:
		return ClientCounterProposed
	case approved == len(rates):
		if actorRole == RoleFirm {
			return FirmAccepted
		}
		return ClientApproved
	case rejected == len(rates):
		return ClientRejected
	case decided == len(rates):
		return PendingApproval
	default:
		return UnderReview
	}
}
