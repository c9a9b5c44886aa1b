package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

type auditDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Writer appends negotiation decisions to the audit trail. Records are
// append-only; with Redact set, actor identifiers are salted-hashed before
// they reach storage.
type Writer struct {
	DB       auditDB
	HashSalt []byte
	Redact   bool
}

// Record is one applied (or refused) action on a negotiation or OCG entity.
type Record struct {
	DecisionID string             `json:"decision_id"`
	Action     string             `json:"action"`
	EntityKind string             `json:"entity_kind"`
	EntityID   string             `json:"entity_id"`
	RateIDs    []string           `json:"rate_ids,omitempty"`
	Actor      string             `json:"actor"`
	Role       string             `json:"role"`
	Outcome    string             `json:"outcome"`
	Violations []models.Violation `json:"violations,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

func (w *Writer) Append(ctx context.Context, rec Record) error {
	if w.Redact {
		rec.Actor = hashActor(rec.Actor, w.HashSalt)
	}
	violations, err := json.Marshal(rec.Violations)
	if err != nil {
		return err
	}
	_, err = w.DB.Exec(ctx, `
		INSERT INTO audit_records
		(decision_id, action, entity_kind, entity_id, rate_ids, actor, role, outcome, violations, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rec.DecisionID, rec.Action, rec.EntityKind, rec.EntityID, rec.RateIDs, rec.Actor, rec.Role, rec.Outcome, violations, rec.CreatedAt)
	return err
}

func (w *Writer) Get(ctx context.Context, decisionID string) (Record, error) {
	var rec Record
	var violations []byte
	row := w.DB.QueryRow(ctx, `
		SELECT decision_id, action, entity_kind, entity_id, rate_ids, actor, role, outcome, violations, created_at
		FROM audit_records WHERE decision_id=$1
	`, decisionID)
	if err := row.Scan(&rec.DecisionID, &rec.Action, &rec.EntityKind, &rec.EntityID, &rec.RateIDs,
		&rec.Actor, &rec.Role, &rec.Outcome, &violations, &rec.CreatedAt); err != nil {
		return rec, err
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &rec.Violations); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func hashActor(actor string, salt []byte) string {
	if actor == "" {
		return ""
	}
	h := sha256.New()
	if len(salt) > 0 {
		_, _ = h.Write(salt)
	}
	_, _ = h.Write([]byte(actor))
	return hex.EncodeToString(h.Sum(nil))
}
