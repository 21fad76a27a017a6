package race

import (
	"context"
	"time"
)

type PastQuery struct {
	Season int
	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, item Race) error
	Update(ctx context.Context, item Race) error
	UpdateStatus(ctx context.Context, raceID string, status Status) error
	GetByID(ctx context.Context, raceID string) (Race, bool, error)
	GetBySeasonRound(ctx context.Context, season, round int) (Race, bool, error)
	ListBySeason(ctx context.Context, season int, status Status) ([]Race, error)
	NextScheduled(ctx context.Context, now time.Time) (Race, bool, error)
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]Race, error)
	ListPast(ctx context.Context, query PastQuery) ([]Race, int, error)
	CountByStatus(ctx context.Context, season int) (map[Status]int, error)

	// ReplaceResults swaps the full result set of a race and forces the race
	// to completed, all within one transaction.
	ReplaceResults(ctx context.Context, raceID string, results []Result) error
	ListResults(ctx context.Context, raceID string) ([]Result, error)
}
