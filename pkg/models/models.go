package models

import (
	"time"
)

// Rate is one attorney's billing rate under negotiation between a firm and a client.
type Rate struct {
	ID             string             `json:"id"`
	AttorneyID     string             `json:"attorney_id"`
	ClientID       string             `json:"client_id"`
	FirmID         string             `json:"firm_id"`
	StaffClassID   string             `json:"staff_class_id,omitempty"`
	OfficeID       string             `json:"office_id,omitempty"`
	Amount         float64            `json:"amount"`
	Currency       string             `json:"currency"`
	Type           string             `json:"type"`
	EffectiveDate  time.Time          `json:"effective_date"`
	ExpirationDate *time.Time         `json:"expiration_date,omitempty"`
	Status         string             `json:"status"`
	CounteredBy    string             `json:"countered_by,omitempty"`
	History        []RateHistoryEntry `json:"history,omitempty"`
	Version        int64              `json:"version"`
}

// RateHistoryEntry records the rate at the moment of one change. Append-only.
type RateHistoryEntry struct {
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Message   string    `json:"message,omitempty"`
}

// RateRule is a client's rule set for incoming rate submissions.
// A nil field means that constraint is not enforced.
type RateRule struct {
	MaxIncreasePercent *float64          `json:"max_increase_percent,omitempty"`
	FreezePeriodMonths *int              `json:"freeze_period_months,omitempty"`
	NoticeRequiredDays *int              `json:"notice_required_days,omitempty"`
	SubmissionWindow   *SubmissionWindow `json:"submission_window,omitempty"`
}

// SubmissionWindow is an annually recurring month/day window. It may wrap the
// year boundary (e.g. Nov 1 - Feb 28).
type SubmissionWindow struct {
	StartMonth int `json:"start_month"`
	StartDay   int `json:"start_day"`
	EndMonth   int `json:"end_month"`
	EndDay     int `json:"end_day"`
}

// RateSubmission is one candidate rate evaluated by the rule validator.
type RateSubmission struct {
	RateID            string    `json:"rate_id"`
	AttorneyID        string    `json:"attorney_id"`
	CurrentAmount     float64   `json:"current_amount"`
	ProposedAmount    float64   `json:"proposed_amount"`
	LastEffectiveDate time.Time `json:"last_effective_date,omitempty"`
	ProposedEffective time.Time `json:"proposed_effective"`
}

// Violation describes one failed business rule. Violations are data, not errors.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type ValidationResult struct {
	IsValid    bool        `json:"is_valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// Negotiation owns the set of rates being negotiated between one client and one firm.
type Negotiation struct {
	ID                 string     `json:"id"`
	Type               string     `json:"type"`
	ClientID           string     `json:"client_id"`
	FirmID             string     `json:"firm_id"`
	RateIDs            []string   `json:"rate_ids"`
	Status             string     `json:"status"`
	Mode               string     `json:"mode"`
	RequestDate        time.Time  `json:"request_date"`
	SubmissionDeadline *time.Time `json:"submission_deadline,omitempty"`
	CompletionDate     *time.Time `json:"completion_date,omitempty"`
	Version            int64      `json:"version"`
}

const (
	NegotiationTypeStandard = "STANDARD"
	NegotiationTypeOCG      = "OCG"

	ModeRealtime = "REALTIME"
	ModeBatch    = "BATCH"
)

// OCGDocument is a client's Outside Counsel Guidelines document. Content is
// mutable only while in Draft.
type OCGDocument struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Version     int          `json:"doc_version"`
	Status      string       `json:"status"`
	ClientID    string       `json:"client_id"`
	Sections    []OCGSection `json:"sections"`
	TotalPoints int          `json:"total_points"`
	RowVersion  int64        `json:"version"`
}

type OCGSection struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Content      string           `json:"content"`
	IsNegotiable bool             `json:"is_negotiable"`
	Alternatives []OCGAlternative `json:"alternatives,omitempty"`
	Order        int              `json:"order"`
}

type OCGAlternative struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Points    int    `json:"points"`
	IsDefault bool   `json:"is_default"`
}

// OCGNegotiation is one firm's point-budgeted negotiation of a published OCG.
type OCGNegotiation struct {
	ID          string            `json:"id"`
	OCGID       string            `json:"ocg_id"`
	FirmID      string            `json:"firm_id"`
	PointBudget int               `json:"point_budget"`
	Selections  map[string]string `json:"selections"`
	Status      string            `json:"status"`
	Comments    []OCGComment      `json:"comments,omitempty"`
	Version     int64             `json:"version"`
}

type OCGComment struct {
	Actor     string    `json:"actor"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// BillingRecord is one attorney's billed hours for a period, supplied by the
// billing-history source.
type BillingRecord struct {
	AttorneyID string  `json:"attorney_id"`
	Hours      float64 `json:"hours"`
	Period     string  `json:"period"`
}
