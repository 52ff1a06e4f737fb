package daemon

import (
	"github.com/adcondev/ticket-bridge/internal/printer"
)

// HealthResponse representa el estado de salud del servicio.
type HealthResponse struct {
	Status  string          `json:"status"`
	Queue   QueueStatus     `json:"queue"`
	Worker  WorkerStatus    `json:"worker"`
	Printer printer.Summary `json:"printer"`
	Backend BackendStatus   `json:"backend"`
	Push    PushStatus      `json:"push"`
	Build   BuildInfo       `json:"build"`
	Uptime  int             `json:"uptime_seconds"`
}

// QueueStatus representa el estado de la cola local.
type QueueStatus struct {
	Current     int     `json:"current"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// WorkerStatus representa el estado del trabajador de impresión.
type WorkerStatus struct {
	Running       bool  `json:"running"`
	JobsProcessed int64 `json:"jobs_processed"`
	JobsQueued    int64 `json:"jobs_queued"`
	JobsFailed    int64 `json:"jobs_failed"`
}

// BackendStatus indica si la cola de impresión del backend está configurada.
type BackendStatus struct {
	Enabled bool `json:"enabled"`
}

// PushStatus representa el canal de eventos push y los eventos en espera.
type PushStatus struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
	Pending   int  `json:"pending"`
}

// BuildInfo contiene información sobre la compilación del servicio.
type BuildInfo struct {
	Env  string `json:"env"`
	Date string `json:"date"`
	Time string `json:"time"`
}
