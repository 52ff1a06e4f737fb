// Package printjobs is the client of the backend print-job queue used when no
// printer is linked locally.
package printjobs

import "time"

// Job status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusPrinted    = "printed"
	StatusFailed     = "failed"
)

// Job is a backend print job.
type Job struct {
	ID         string     `json:"id"`
	OrderID    string     `json:"orderId"`
	PrinterID  string     `json:"printerId,omitempty"`
	Status     string     `json:"status"`
	RetryCount int        `json:"retryCount"`
	Error      string     `json:"error,omitempty"`
	PrintedAt  *time.Time `json:"printedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Stats counts jobs per status.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Printed    int `json:"printed"`
	Failed     int `json:"failed"`
}

// Filter narrows List. Empty fields are not sent.
type Filter struct {
	Status  string `json:"status,omitempty" validate:"omitempty,oneof=pending processing printed failed"`
	OrderID string `json:"orderId,omitempty"`
	Limit   int    `json:"limit,omitempty" validate:"gte=0,lte=500"`
}
