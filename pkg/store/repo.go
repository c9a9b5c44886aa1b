package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGRepository persists the domain entities as JSONB documents with a few
// indexed columns pulled out for querying. Every save is an optimistic
// compare-and-swap on the row version: a stale caller gets
// models.ErrVersionConflict and must reload.
type PGRepository struct {
	DB DB
}

func NewPGRepository(db DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Negotiation(ctx context.Context, id string) (models.Negotiation, error) {
	var n models.Negotiation
	version, err := r.loadDoc(ctx, "negotiations", id, &n)
	if err != nil {
		return models.Negotiation{}, err
	}
	n.Version = version
	return n, nil
}

func (r *PGRepository) SaveNegotiation(ctx context.Context, n models.Negotiation) (models.Negotiation, error) {
	version, err := r.upsertDoc(ctx, r.DB,
		`INSERT INTO negotiations (id, client_id, firm_id, status, payload, version)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 ON CONFLICT (id) DO UPDATE
		 SET client_id = EXCLUDED.client_id, firm_id = EXCLUDED.firm_id,
		     status = EXCLUDED.status, payload = EXCLUDED.payload,
		     version = negotiations.version + 1
		 WHERE negotiations.version = $6
		 RETURNING version`,
		n, n.Version, n.ID, n.ClientID, n.FirmID, n.Status)
	if err != nil {
		return models.Negotiation{}, err
	}
	n.Version = version
	return n, nil
}

func (r *PGRepository) Rates(ctx context.Context, ids []string) ([]models.Rate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.DB.Query(ctx,
		`SELECT payload, version FROM rates WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	rates, err := scanRates(rows)
	if err != nil {
		return nil, err
	}
	if len(rates) != len(ids) {
		return nil, models.ErrNotFound
	}
	byID := map[string]models.Rate{}
	for _, rate := range rates {
		byID[rate.ID] = rate
	}
	// Preserve the caller's ordering.
	out := make([]models.Rate, 0, len(ids))
	for _, id := range ids {
		rate, ok := byID[id]
		if !ok {
			return nil, models.ErrNotFound
		}
		out = append(out, rate)
	}
	return out, nil
}

// SaveRates writes the whole batch in one transaction; a version conflict on
// any rate rolls back every rate.
func (r *PGRepository) SaveRates(ctx context.Context, rates []models.Rate) ([]models.Rate, error) {
	if len(rates) == 0 {
		return nil, nil
	}
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]models.Rate, 0, len(rates))
	for _, rate := range rates {
		version, err := r.upsertDoc(ctx, tx,
			`INSERT INTO rates (id, client_id, firm_id, attorney_id, status, payload, version)
			 VALUES ($1, $2, $3, $4, $5, $6, 1)
			 ON CONFLICT (id) DO UPDATE
			 SET client_id = EXCLUDED.client_id, firm_id = EXCLUDED.firm_id,
			     attorney_id = EXCLUDED.attorney_id, status = EXCLUDED.status,
			     payload = EXCLUDED.payload, version = rates.version + 1
			 WHERE rates.version = $7
			 RETURNING version`,
			rate, rate.Version, rate.ID, rate.ClientID, rate.FirmID, rate.AttorneyID, rate.Status)
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", rate.ID, err)
		}
		rate.Version = version
		out = append(out, rate)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentRates returns the approved in-force rates between a client and firm,
// the baseline a new submission is validated against.
func (r *PGRepository) CurrentRates(ctx context.Context, clientID, firmID string) ([]models.Rate, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT payload, version FROM rates
		 WHERE client_id = $1 AND firm_id = $2 AND status = 'APPROVED'`,
		clientID, firmID)
	if err != nil {
		return nil, err
	}
	return scanRates(rows)
}

// RateRule loads the client's rule set. A client with no stored rules gets the
// empty rule set, which enforces nothing.
func (r *PGRepository) RateRule(ctx context.Context, clientID string) (models.RateRule, error) {
	var body []byte
	err := r.DB.QueryRow(ctx,
		`SELECT payload FROM rate_rules WHERE client_id = $1`, clientID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RateRule{}, nil
	}
	if err != nil {
		return models.RateRule{}, err
	}
	var rule models.RateRule
	if err := json.Unmarshal(body, &rule); err != nil {
		return models.RateRule{}, err
	}
	return rule, nil
}

func (r *PGRepository) SaveRateRule(ctx context.Context, clientID string, rule models.RateRule) error {
	body, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx,
		`INSERT INTO rate_rules (client_id, payload) VALUES ($1, $2)
		 ON CONFLICT (client_id) DO UPDATE SET payload = EXCLUDED.payload`,
		clientID, body)
	return err
}

func (r *PGRepository) BillingHistory(ctx context.Context, clientID, firmID string) ([]models.BillingRecord, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT attorney_id, hours, period FROM billing_history
		 WHERE client_id = $1 AND firm_id = $2
		 ORDER BY period, attorney_id`,
		clientID, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.BillingRecord
	for rows.Next() {
		var rec models.BillingRecord
		if err := rows.Scan(&rec.AttorneyID, &rec.Hours, &rec.Period); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepository) OCGDocument(ctx context.Context, id string) (models.OCGDocument, error) {
	var doc models.OCGDocument
	version, err := r.loadDoc(ctx, "ocg_documents", id, &doc)
	if err != nil {
		return models.OCGDocument{}, err
	}
	doc.RowVersion = version
	return doc, nil
}

func (r *PGRepository) SaveOCGDocument(ctx context.Context, doc models.OCGDocument) (models.OCGDocument, error) {
	version, err := r.upsertDoc(ctx, r.DB,
		`INSERT INTO ocg_documents (id, client_id, status, payload, version)
		 VALUES ($1, $2, $3, $4, 1)
		 ON CONFLICT (id) DO UPDATE
		 SET client_id = EXCLUDED.client_id, status = EXCLUDED.status,
		     payload = EXCLUDED.payload, version = ocg_documents.version + 1
		 WHERE ocg_documents.version = $5
		 RETURNING version`,
		doc, doc.RowVersion, doc.ID, doc.ClientID, doc.Status)
	if err != nil {
		return models.OCGDocument{}, err
	}
	doc.RowVersion = version
	return doc, nil
}

func (r *PGRepository) OCGNegotiation(ctx context.Context, id string) (models.OCGNegotiation, error) {
	var n models.OCGNegotiation
	version, err := r.loadDoc(ctx, "ocg_negotiations", id, &n)
	if err != nil {
		return models.OCGNegotiation{}, err
	}
	n.Version = version
	return n, nil
}

func (r *PGRepository) SaveOCGNegotiation(ctx context.Context, n models.OCGNegotiation) (models.OCGNegotiation, error) {
	version, err := r.upsertDoc(ctx, r.DB,
		`INSERT INTO ocg_negotiations (id, ocg_id, firm_id, status, payload, version)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 ON CONFLICT (id) DO UPDATE
		 SET ocg_id = EXCLUDED.ocg_id, firm_id = EXCLUDED.firm_id,
		     status = EXCLUDED.status, payload = EXCLUDED.payload,
		     version = ocg_negotiations.version + 1
		 WHERE ocg_negotiations.version = $6
		 RETURNING version`,
		n, n.Version, n.ID, n.OCGID, n.FirmID, n.Status)
	if err != nil {
		return models.OCGNegotiation{}, err
	}
	n.Version = version
	return n, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// upsertDoc runs an insert-or-CAS-update statement ending in RETURNING
// version. The statement's final placeholder is the expected current version;
// no row back means the row exists at a different version. The returned
// version is the row's actual one, so a fresh insert always reports 1
// whatever version the caller expected.
func (r *PGRepository) upsertDoc(ctx context.Context, db rowQuerier, sql string, entity any, expectedVersion int64, keys ...any) (int64, error) {
	body, err := json.Marshal(entity)
	if err != nil {
		return 0, err
	}
	args := make([]any, 0, len(keys)+2)
	args = append(args, keys...)
	args = append(args, body, expectedVersion)
	var version int64
	err = db.QueryRow(ctx, sql, args...).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (r *PGRepository) loadDoc(ctx context.Context, table, id string, dest any) (int64, error) {
	var body []byte
	var version int64
	err := r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT payload, version FROM %s WHERE id = $1`, table), id).
		Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return 0, err
	}
	return version, nil
}

func scanRates(rows pgx.Rows) ([]models.Rate, error) {
	defer rows.Close()
	var out []models.Rate
	for rows.Next() {
		var body []byte
		var version int64
		if err := rows.Scan(&body, &version); err != nil {
			return nil, err
		}
		var rate models.Rate
		if err := json.Unmarshal(body, &rate); err != nil {
			return nil, err
		}
		rate.Version = version
		out = append(out, rate)
	}
	return out, rows.Err()
}
