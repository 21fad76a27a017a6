// Package cache wraps repositories with a read-through TTL cache. Only the
// hot public read paths are cached; every write invalidates the whole
// namespace of the affected repository.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	basecache "github.com/gridpredict/gridpredict/internal/platform/cache"
)

type RaceRepository struct {
	next  race.Repository
	cache *basecache.Store
}

func NewRaceRepository(next race.Repository, cache *basecache.Store) *RaceRepository {
	return &RaceRepository{next: next, cache: cache}
}

func (r *RaceRepository) Create(ctx context.Context, item race.Race) error {
	if err := r.next.Create(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "race:")
	return nil
}

func (r *RaceRepository) Update(ctx context.Context, item race.Race) error {
	if err := r.next.Update(ctx, item); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "race:")
	return nil
}

func (r *RaceRepository) UpdateStatus(ctx context.Context, raceID string, status race.Status) error {
	if err := r.next.UpdateStatus(ctx, raceID, status); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "race:")
	return nil
}

func (r *RaceRepository) GetByID(ctx context.Context, raceID string) (race.Race, bool, error) {
	key := "race:id:" + raceID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, raceID)
		if err != nil {
			return nil, err
		}
		return cachedRace{value: item, exists: exists}, nil
	})
	if err != nil {
		return race.Race{}, false, err
	}

	cached, _ := v.(cachedRace)
	return cached.value, cached.exists, nil
}

func (r *RaceRepository) GetBySeasonRound(ctx context.Context, season, round int) (race.Race, bool, error) {
	key := fmt.Sprintf("race:round:%d:%d", season, round)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetBySeasonRound(ctx, season, round)
		if err != nil {
			return nil, err
		}
		return cachedRace{value: item, exists: exists}, nil
	})
	if err != nil {
		return race.Race{}, false, err
	}

	cached, _ := v.(cachedRace)
	return cached.value, cached.exists, nil
}

func (r *RaceRepository) ListBySeason(ctx context.Context, season int, status race.Status) ([]race.Race, error) {
	key := "race:season:" + strconv.Itoa(season) + ":" + string(status)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListBySeason(ctx, season, status)
		if err != nil {
			return nil, err
		}
		return append([]race.Race(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]race.Race)
	return append([]race.Race(nil), items...), nil
}

// NextScheduled and the other clock-relative queries are not cached: their
// answer changes with the wall clock, not with writes.
func (r *RaceRepository) NextScheduled(ctx context.Context, now time.Time) (race.Race, bool, error) {
	return r.next.NextScheduled(ctx, now)
}

func (r *RaceRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]race.Race, error) {
	return r.next.ListUpcoming(ctx, now, limit)
}

func (r *RaceRepository) ListPast(ctx context.Context, query race.PastQuery) ([]race.Race, int, error) {
	return r.next.ListPast(ctx, query)
}

func (r *RaceRepository) CountByStatus(ctx context.Context, season int) (map[race.Status]int, error) {
	key := "race:stats:" + strconv.Itoa(season)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		counts, err := r.next.CountByStatus(ctx, season)
		if err != nil {
			return nil, err
		}
		return counts, nil
	})
	if err != nil {
		return nil, err
	}

	counts, _ := v.(map[race.Status]int)
	out := make(map[race.Status]int, len(counts))
	for status, count := range counts {
		out[status] = count
	}
	return out, nil
}

func (r *RaceRepository) ReplaceResults(ctx context.Context, raceID string, results []race.Result) error {
	if err := r.next.ReplaceResults(ctx, raceID, results); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "race:")
	return nil
}

func (r *RaceRepository) ListResults(ctx context.Context, raceID string) ([]race.Result, error) {
	key := "race:results:" + raceID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListResults(ctx, raceID)
		if err != nil {
			return nil, err
		}
		return append([]race.Result(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]race.Result)
	return append([]race.Result(nil), items...), nil
}

type cachedRace struct {
	value  race.Race
	exists bool
}

type PilotRepository struct {
	next  pilot.Repository
	cache *basecache.Store
}

func NewPilotRepository(next pilot.Repository, cache *basecache.Store) *PilotRepository {
	return &PilotRepository{next: next, cache: cache}
}

func (r *PilotRepository) List(ctx context.Context) ([]pilot.Pilot, error) {
	v, err := r.cache.GetOrLoad(ctx, "pilot:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]pilot.Pilot(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]pilot.Pilot)
	return append([]pilot.Pilot(nil), items...), nil
}

func (r *PilotRepository) GetByIDs(ctx context.Context, ids []string) (map[string]pilot.Pilot, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	key := "pilot:ids:" + strings.Join(sorted, ",")

	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.(map[string]pilot.Pilot)
	out := make(map[string]pilot.Pilot, len(items))
	for id, item := range items {
		out[id] = item
	}
	return out, nil
}

func (r *PilotRepository) Upsert(ctx context.Context, items []pilot.Pilot) error {
	if err := r.next.Upsert(ctx, items); err != nil {
		return err
	}
	r.cache.DeletePrefix(ctx, "pilot:")
	return nil
}
