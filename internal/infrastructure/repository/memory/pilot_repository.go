package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
)

type PilotRepository struct {
	mu    sync.RWMutex
	items map[string]pilot.Pilot
}

func NewPilotRepository(pilots []pilot.Pilot) *PilotRepository {
	items := make(map[string]pilot.Pilot, len(pilots))
	for _, item := range pilots {
		items[item.ID] = item
	}
	return &PilotRepository{items: items}
}

func (r *PilotRepository) List(_ context.Context) ([]pilot.Pilot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]pilot.Pilot, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Acronym < out[j].Acronym })
	return out, nil
}

func (r *PilotRepository) GetByIDs(_ context.Context, ids []string) (map[string]pilot.Pilot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]pilot.Pilot, len(ids))
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

// Upsert matches rows by acronym the way the SQL implementation does, so a
// re-import never forks a pilot's identity.
func (r *PilotRepository) Upsert(_ context.Context, items []pilot.Pilot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byAcronym := make(map[string]string, len(r.items))
	for id, existing := range r.items {
		byAcronym[existing.Acronym] = id
	}

	for _, item := range items {
		if existingID, ok := byAcronym[item.Acronym]; ok {
			existing := r.items[existingID]
			existing.Name = item.Name
			existing.Number = item.Number
			existing.Team = item.Team
			existing.UpdatedAt = item.UpdatedAt
			r.items[existingID] = existing
			continue
		}
		r.items[item.ID] = item
		byAcronym[item.Acronym] = item.ID
	}
	return nil
}
