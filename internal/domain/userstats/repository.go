package userstats

import "context"

type Repository interface {
	Get(ctx context.Context, userID string) (UserStats, bool, error)
	Upsert(ctx context.Context, item UserStats) error
}
