package jobscheduler

import "context"

// Repository records job dispatch outcomes for auditing.
type Repository interface {
	UpsertEvent(ctx context.Context, event DispatchEvent) error
}
