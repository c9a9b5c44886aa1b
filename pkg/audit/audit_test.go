package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/models"
)

type fakeDB struct {
	lastSQL  string
	lastArgs []any
	execErr  error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	f.lastArgs = args
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.lastArgs = args
	return nil
}

func TestAppendRedactsActor(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	w := &Writer{DB: db, HashSalt: []byte("salt"), Redact: true}
	err := w.Append(context.Background(), Record{
		DecisionID: "d1",
		Action:     "BULK_APPROVE",
		EntityKind: "negotiation",
		EntityID:   "n1",
		Actor:      "client-user-1",
		Role:       "client",
		Outcome:    "applied",
		Violations: []models.Violation{{Rule: "MAX_INCREASE", Message: "over"}},
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.lastSQL, "INSERT INTO audit_records") {
		t.Fatalf("unexpected sql: %s", db.lastSQL)
	}
	actor, ok := db.lastArgs[5].(string)
	if !ok {
		t.Fatalf("actor arg: %T", db.lastArgs[5])
	}
	if actor == "client-user-1" {
		t.Fatal("actor must be hashed when redaction is on")
	}
	if len(actor) != 64 {
		t.Fatalf("expected sha256 hex actor, got %q", actor)
	}
}

func TestAppendPlainActorWithoutRedaction(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	w := &Writer{DB: db}
	if err := w.Append(context.Background(), Record{DecisionID: "d1", Actor: "u1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.lastArgs[5] != "u1" {
		t.Fatalf("actor should pass through untouched, got %v", db.lastArgs[5])
	}
}

func TestHashActorStable(t *testing.T) {
	t.Parallel()
	a := hashActor("user", []byte("s"))
	b := hashActor("user", []byte("s"))
	if a != b {
		t.Fatal("hash must be deterministic")
	}
	if hashActor("user", []byte("other")) == a {
		t.Fatal("salt must change the hash")
	}
	if hashActor("", []byte("s")) != "" {
		t.Fatal("empty actor stays empty")
	}
}
