package amqp

import (
	"encoding/json"
	"time"

	"sismobi/internal/core"
)

// Routing keys of the published events.
const (
	EventAlertRaised          = "alert.raised"
	EventTransactionProjected = "transaction.projected"
)

// Event announces a record the reconciler appended to storage.
// Exactly one of Alert and Transaction is set, matching Type.
type Event struct {
	Type        string            `json:"type"`
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Alert       *core.Alert       `json:"alert,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
}

// NewAlertRaised creates the event for a newly stored alert
func NewAlertRaised(a core.Alert) *Event {
	return &Event{
		Type:      EventAlertRaised,
		ID:        a.ID,
		Timestamp: time.Now(),
		Alert:     &a,
	}
}

// NewTransactionProjected creates the event for a newly stored recurring instance
func NewTransactionProjected(t core.Transaction) *Event {
	return &Event{
		Type:        EventTransactionProjected,
		ID:          t.ID,
		Timestamp:   time.Now(),
		Transaction: &t,
	}
}

// ToJSON converts the message to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
