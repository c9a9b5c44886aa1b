package statebus

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one negotiation or OCG state change announced on the bus.
type Event struct {
	Type          string    `json:"type"`
	NegotiationID string    `json:"negotiation_id,omitempty"`
	OCGID         string    `json:"ocg_id,omitempty"`
	RateIDs       []string  `json:"rate_ids,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	At            time.Time `json:"at"`
}

const (
	EventRatesSubmitted    = "rates.submitted"
	EventRatesUpdated      = "rates.updated"
	EventNegotiationMoved  = "negotiation.status_changed"
	EventOCGSelection      = "ocg.selection"
	EventOCGSubmitted      = "ocg.submitted"
	EventOCGOpened         = "ocg.negotiation_opened"
	EventOCGResponded      = "ocg.response_recorded"
	EventBatchFlushed      = "negotiation.batch_flushed"
	EventDocumentPublished = "ocg.document_published"
	EventDocumentEdited    = "ocg.document_updated"
	EventDocumentSigned    = "ocg.document_signed"
)

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Event) Decode(data []byte) error {
	return json.Unmarshal(data, e)
}

type Message struct {
	Key   []byte
	Value []byte
}

type Consumer interface {
	ReadMessage(ctx context.Context) (Message, error)
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}
