package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/httpx"
	"github.com/Rate-Review/rate-review-pi0hhf-sub001/pkg/stream"
)

// webhookForwarder mirrors hub events to an external HTTP endpoint so
// client and firm systems can react to negotiation changes without
// consuming the kafka topic. Delivery is best effort; failures are
// logged and the event is dropped after retries.
type webhookForwarder struct {
	url     string
	token   string
	client  *http.Client
	retries int
	delay   time.Duration
	logf    func(format string, args ...any)
}

func newWebhookForwarder(url, token string) *webhookForwarder {
	return &webhookForwarder{
		url:     url,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: 2,
		delay:   250 * time.Millisecond,
		logf:    log.Printf,
	}
}

func (f *webhookForwarder) run(ctx context.Context, hub *stream.Hub) {
	sub := hub.Subscribe(128)
	defer hub.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub:
			if !ok {
				return
			}
			f.deliver(ctx, evt)
		}
	}
}

func (f *webhookForwarder) deliver(ctx context.Context, evt stream.Event) {
	body, err := json.Marshal(evt)
	if err != nil {
		return
	}
	var headers map[string]string
	if f.token != "" {
		headers = map[string]string{"Authorization": "Bearer " + f.token}
	}
	status, _, err := httpx.RequestJSON(ctx, f.client, http.MethodPost, f.url, body, headers, f.retries, f.delay)
	if err != nil {
		f.logf("webhook delivery failed for %s: %v", evt.Type, err)
		return
	}
	if status >= 300 {
		f.logf("webhook delivery for %s returned status %d", evt.Type, status)
	}
}
