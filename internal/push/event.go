// Package push listens to the backend push channel for print-job events.
package push

import (
	"encoding/json"

	"github.com/adcondev/ticket-bridge/internal/receipt"
)

// Event types sent by the backend.
const (
	JobCreated   = "printJob:created"
	JobCompleted = "printJob:completed"
	JobFailed    = "printJob:failed"
)

// Event is one print-job notification.
type Event struct {
	Type  string         `json:"type"`
	JobID string         `json:"jobId,omitempty"`
	Order *receipt.Order `json:"order,omitempty"`
	Error string         `json:"error,omitempty"`
}

// frame is the wire envelope: {"type": "...", "data": {...}}.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type jobPayload struct {
	ID    string         `json:"id"`
	JobID string         `json:"jobId"`
	Order *receipt.Order `json:"order"`
	Error string         `json:"error"`
}

func decodeEvent(f frame) (Event, error) {
	ev := Event{Type: f.Type}
	if len(f.Data) == 0 {
		return ev, nil
	}
	var p jobPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		return ev, err
	}
	ev.JobID = p.JobID
	if ev.JobID == "" {
		ev.JobID = p.ID
	}
	ev.Order = p.Order
	ev.Error = p.Error
	return ev, nil
}
