package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

type RaceRepository struct {
	mu      sync.RWMutex
	items   map[string]race.Race
	results map[string][]race.Result
}

func NewRaceRepository(races []race.Race) *RaceRepository {
	items := make(map[string]race.Race, len(races))
	for _, item := range races {
		items[item.ID] = item
	}
	return &RaceRepository{
		items:   items,
		results: make(map[string][]race.Result),
	}
}

func (r *RaceRepository) Create(_ context.Context, item race.Race) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Season == item.Season && existing.Round == item.Round {
			return fmt.Errorf("%w: race season=%d round=%d already exists", usecase.ErrConflict, item.Season, item.Round)
		}
	}
	r.items[item.ID] = item
	return nil
}

func (r *RaceRepository) Update(_ context.Context, item race.Race) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("%w: race=%s", usecase.ErrNotFound, item.ID)
	}
	r.items[item.ID] = item
	return nil
}

func (r *RaceRepository) UpdateStatus(_ context.Context, raceID string, status race.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[raceID]
	if !ok {
		return fmt.Errorf("%w: race=%s", usecase.ErrNotFound, raceID)
	}
	item.Status = status
	item.UpdatedAt = time.Now().UTC()
	r.items[raceID] = item
	return nil
}

func (r *RaceRepository) GetByID(_ context.Context, raceID string) (race.Race, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[raceID]
	return item, ok, nil
}

func (r *RaceRepository) GetBySeasonRound(_ context.Context, season, round int) (race.Race, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Season == season && item.Round == round {
			return item, true, nil
		}
	}
	return race.Race{}, false, nil
}

func (r *RaceRepository) ListBySeason(_ context.Context, season int, status race.Status) ([]race.Race, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]race.Race, 0)
	for _, item := range r.items {
		if item.Season != season {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

func (r *RaceRepository) NextScheduled(_ context.Context, now time.Time) (race.Race, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var next race.Race
	found := false
	for _, item := range r.items {
		if item.Status != race.StatusScheduled || !item.RaceDate.After(now) {
			continue
		}
		if !found || item.RaceDate.Before(next.RaceDate) {
			next = item
			found = true
		}
	}
	return next, found, nil
}

func (r *RaceRepository) ListUpcoming(_ context.Context, now time.Time, limit int) ([]race.Race, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]race.Race, 0)
	for _, item := range r.items {
		if !item.RaceDate.After(now) {
			continue
		}
		if item.Status != race.StatusScheduled && item.Status != race.StatusQualifying {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RaceDate.Before(out[j].RaceDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *RaceRepository) ListPast(_ context.Context, query race.PastQuery) ([]race.Race, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]race.Race, 0)
	for _, item := range r.items {
		if item.Status != race.StatusCompleted {
			continue
		}
		if query.Season > 0 && item.Season != query.Season {
			continue
		}
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RaceDate.After(all[j].RaceDate) })

	total := len(all)
	if query.Offset >= len(all) {
		return []race.Race{}, total, nil
	}
	all = all[query.Offset:]
	if query.Limit > 0 && len(all) > query.Limit {
		all = all[:query.Limit]
	}
	return all, total, nil
}

func (r *RaceRepository) CountByStatus(_ context.Context, season int) (map[race.Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[race.Status]int)
	for _, item := range r.items {
		if item.Season == season {
			out[item.Status]++
		}
	}
	return out, nil
}

func (r *RaceRepository) ReplaceResults(_ context.Context, raceID string, results []race.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[raceID]
	if !ok {
		return fmt.Errorf("%w: race=%s", usecase.ErrNotFound, raceID)
	}

	stored := make([]race.Result, len(results))
	copy(stored, results)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	r.results[raceID] = stored

	item.Status = race.StatusCompleted
	item.UpdatedAt = time.Now().UTC()
	r.items[raceID] = item
	return nil
}

func (r *RaceRepository) ListResults(_ context.Context, raceID string) ([]race.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.results[raceID]
	out := make([]race.Result, len(stored))
	copy(out, stored)
	return out, nil
}
