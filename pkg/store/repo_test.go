package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

type stubUpsertRow struct {
	version int64
	err     error
}

func (r stubUpsertRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.version
	return nil
}

type stubRepoDB struct {
	row  stubUpsertRow
	sql  string
	args []any
}

func (db *stubRepoDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected Exec")
}

func (db *stubRepoDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (db *stubRepoDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.sql = sql
	db.args = args
	return db.row
}

func (db *stubRepoDB) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected Begin")
}

func TestSaveNegotiationReportsRowVersion(t *testing.T) {
	// A fresh insert lands at version 1 no matter what version the caller
	// expected; the repository must report the row's version, not a guess.
	db := &stubRepoDB{row: stubUpsertRow{version: 1}}
	repo := NewPGRepository(db)

	saved, err := repo.SaveNegotiation(context.Background(), models.Negotiation{
		ID: "n1", ClientID: "c1", FirmID: "f1", Status: "REQUESTED", Version: 7,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Version != 1 {
		t.Fatalf("version = %d, want the row's version 1", saved.Version)
	}
	if db.args[len(db.args)-1] != int64(7) {
		t.Fatalf("expected version 7 passed as the CAS guard, args = %v", db.args)
	}
}

func TestSaveNegotiationStaleVersionConflicts(t *testing.T) {
	db := &stubRepoDB{row: stubUpsertRow{err: pgx.ErrNoRows}}
	repo := NewPGRepository(db)

	_, err := repo.SaveNegotiation(context.Background(), models.Negotiation{
		ID: "n1", ClientID: "c1", FirmID: "f1", Status: "REQUESTED", Version: 3,
	})
	if !errors.Is(err, models.ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}
}

func TestSaveOCGDocumentReportsRowVersion(t *testing.T) {
	db := &stubRepoDB{row: stubUpsertRow{version: 4}}
	repo := NewPGRepository(db)

	saved, err := repo.SaveOCGDocument(context.Background(), models.OCGDocument{
		ID: "ocg-1", ClientID: "c1", Status: "Draft", RowVersion: 3,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.RowVersion != 4 {
		t.Fatalf("row version = %d, want 4", saved.RowVersion)
	}
}
