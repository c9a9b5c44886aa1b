package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/stream"
)

func TestWebhookForwarderDelivers(t *testing.T) {
	received := make(chan stream.Event, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer hook-secret" {
			t.Errorf("missing webhook auth header, got %q", got)
		}
		var evt stream.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode webhook payload: %v", err)
		}
		received <- evt
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	hub := stream.NewHub()
	f := newWebhookForwarder(srv.URL, "hook-secret")
	f.logf = func(string, ...any) {}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.run(ctx, hub)
		close(done)
	}()

	// Publish until the forwarder has subscribed and delivered.
	deadline := time.After(2 * time.Second)
	for {
		hub.Publish(stream.NewEvent("rates.submitted", "n1", map[string]any{"rate_ids": []string{"r1"}}))
		select {
		case evt := <-received:
			if evt.Type != "rates.submitted" || evt.NegotiationID != "n1" {
				t.Fatalf("unexpected webhook event: %+v", evt)
			}
			cancel()
			<-done
			return
		case <-time.After(25 * time.Millisecond):
		case <-deadline:
			t.Fatal("webhook event never delivered")
		}
	}
}

func TestWebhookForwarderLogsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	var logged []string
	f := newWebhookForwarder(srv.URL, "")
	f.retries = 0
	f.delay = 0
	f.logf = func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}

	f.deliver(context.Background(), stream.NewEvent("ocg.submitted", "on-1", nil))
	if len(logged) != 1 || !strings.Contains(logged[0], "403") {
		t.Fatalf("expected a status log line, got %v", logged)
	}

	logged = nil
	f.url = "http://127.0.0.1:1"
	f.deliver(context.Background(), stream.NewEvent("ocg.submitted", "on-1", nil))
	if len(logged) != 1 || !strings.Contains(logged[0], "delivery failed") {
		t.Fatalf("expected a failure log line, got %v", logged)
	}
}
