package jobscheduler

import "time"

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

// DispatchEvent is the audit trail of one scheduled job run (race clock,
// calendar sync).
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	RaceID       string
	Season       int
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
