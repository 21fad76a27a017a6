package pilot

import "context"

type Repository interface {
	List(ctx context.Context) ([]Pilot, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]Pilot, error)
	Upsert(ctx context.Context, items []Pilot) error
}
