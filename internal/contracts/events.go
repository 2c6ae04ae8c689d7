package contracts

import "time"

// JobEvent types
const (
	JobStarted   = "started"
	JobProgress  = "progress"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// JobEvent reports progress of a batch job (ingest, export)
// ⭐ SSOT: 작업 진행 이벤트 (WebSocket 으로 전달)
type JobEvent struct {
	RunID   string    `json:"runId"`
	Job     string    `json:"job"`
	Type    string    `json:"type"`
	Symbol  string    `json:"symbol,omitempty"`
	Done    int       `json:"done"`
	Total   int       `json:"total,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// EventPublisher receives job events. Implementations must not block.
type EventPublisher interface {
	Publish(evt JobEvent)
}

// NopPublisher discards events
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(JobEvent) {}
