package http

import (
	"time"

	"github.com/sawpanic/scorelab/internal/persistence"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"` // "healthy", "degraded"
	Timestamp time.Time                `json:"timestamp"`
	Uptime    string                   `json:"uptime"`
	Version   string                   `json:"version"`
	Store     string                   `json:"store"` // "postgres" or "files"
	Database  *persistence.HealthCheck `json:"database,omitempty"`
}

// RunsResponse lists stored backtest runs
type RunsResponse struct {
	Count int                      `json:"count"`
	Runs  []persistence.RunSummary `json:"runs"`
}

// EventsResponse lists the events of one run
type EventsResponse struct {
	RunID  string                    `json:"run_id"`
	Count  int                       `json:"count"`
	Events []persistence.EventRecord `json:"events"`
}

// TunesResponse lists stored tuning results
type TunesResponse struct {
	Count int                      `json:"count"`
	Tunes []persistence.TuneRecord `json:"tunes"`
}
