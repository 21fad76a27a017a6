package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

// PredictionRepository keeps predictions in memory. Race dates for the
// newest-first orderings come from the race repository it is built with.
type PredictionRepository struct {
	mu    sync.RWMutex
	items map[string]prediction.Prediction
	races *RaceRepository
}

func NewPredictionRepository(races *RaceRepository) *PredictionRepository {
	return &PredictionRepository{
		items: make(map[string]prediction.Prediction),
		races: races,
	}
}

func (r *PredictionRepository) UpsertDraft(_ context.Context, item prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.items {
		if id != item.ID &&
			existing.UserID == item.UserID &&
			existing.RaceID == item.RaceID &&
			existing.LeagueID == item.LeagueID {
			return fmt.Errorf("%w: prediction already exists", usecase.ErrConflict)
		}
	}
	r.items[item.ID] = clonePrediction(item)
	return nil
}

func (r *PredictionRepository) UpdateStatus(_ context.Context, predictionID string, status prediction.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[predictionID]
	if !ok {
		return fmt.Errorf("%w: prediction=%s", usecase.ErrNotFound, predictionID)
	}
	item.Status = status
	item.UpdatedAt = time.Now().UTC()
	r.items[predictionID] = item
	return nil
}

func (r *PredictionRepository) GetByID(_ context.Context, predictionID string) (prediction.Prediction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[predictionID]
	if !ok {
		return prediction.Prediction{}, false, nil
	}
	return clonePrediction(item), true, nil
}

func (r *PredictionRepository) GetByUserRaceLeague(_ context.Context, userID, raceID, leagueID string) (prediction.Prediction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.UserID == userID && item.RaceID == raceID && item.LeagueID == leagueID {
			return clonePrediction(item), true, nil
		}
	}
	return prediction.Prediction{}, false, nil
}

func (r *PredictionRepository) HasForRace(_ context.Context, userID, raceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.UserID == userID && item.RaceID == raceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *PredictionRepository) List(_ context.Context, query prediction.ListQuery) ([]prediction.Prediction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]prediction.Prediction, 0)
	for _, item := range r.items {
		if query.UserID != "" && item.UserID != query.UserID {
			continue
		}
		if query.Status != "" && item.Status != query.Status {
			continue
		}
		all = append(all, clonePrediction(item))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if query.Offset >= len(all) {
		return []prediction.Prediction{}, total, nil
	}
	all = all[query.Offset:]
	if query.Limit > 0 && len(all) > query.Limit {
		all = all[:query.Limit]
	}
	return all, total, nil
}

func (r *PredictionRepository) ListForScoring(_ context.Context, raceID string, includeScored bool) ([]prediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range r.items {
		if item.RaceID != raceID {
			continue
		}
		switch item.Status {
		case prediction.StatusSubmitted, prediction.StatusLocked:
		case prediction.StatusScored:
			if !includeScored {
				continue
			}
		default:
			continue
		}
		out = append(out, clonePrediction(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PredictionRepository) SaveScore(_ context.Context, item prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("%w: prediction=%s", usecase.ErrNotFound, item.ID)
	}
	r.items[item.ID] = clonePrediction(item)
	return nil
}

func (r *PredictionRepository) LockSubmittedByRace(_ context.Context, raceID string) (int, error) {
	return r.moveByRace(raceID, map[prediction.Status]struct{}{
		prediction.StatusSubmitted: {},
	}, prediction.StatusLocked), nil
}

func (r *PredictionRepository) CancelByRace(_ context.Context, raceID string) (int, error) {
	return r.moveByRace(raceID, map[prediction.Status]struct{}{
		prediction.StatusDraft:     {},
		prediction.StatusSubmitted: {},
		prediction.StatusLocked:    {},
	}, prediction.StatusCancelled), nil
}

func (r *PredictionRepository) moveByRace(raceID string, from map[prediction.Status]struct{}, to prediction.Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	moved := 0
	now := time.Now().UTC()
	for id, item := range r.items {
		if item.RaceID != raceID {
			continue
		}
		if _, ok := from[item.Status]; !ok {
			continue
		}
		item.Status = to
		item.UpdatedAt = now
		r.items[id] = item
		moved++
	}
	return moved
}

func (r *PredictionRepository) ListScoredByUser(ctx context.Context, userID string, limit int) ([]prediction.Prediction, error) {
	r.mu.RLock()
	all := make([]prediction.Prediction, 0)
	for _, item := range r.items {
		if item.UserID == userID && item.Status == prediction.StatusScored {
			all = append(all, clonePrediction(item))
		}
	}
	r.mu.RUnlock()

	r.sortByRaceDateDesc(ctx, all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *PredictionRepository) MostPickedPilot(_ context.Context, userID string) (prediction.PilotPickCount, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		for _, pick := range item.Items {
			counts[pick.PilotID]++
		}
	}
	if len(counts) == 0 {
		return prediction.PilotPickCount{}, false, nil
	}

	best := prediction.PilotPickCount{}
	for pilotID, count := range counts {
		if count > best.Count || (count == best.Count && pilotID < best.PilotID) {
			best = prediction.PilotPickCount{PilotID: pilotID, Count: count}
		}
	}
	return best, true, nil
}

func (r *PredictionRepository) BestPerformingPilot(_ context.Context, userID string, minPicks int) (prediction.PilotHitRate, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	picks := make(map[string]int)
	hits := make(map[string]int)
	for _, item := range r.items {
		if item.UserID != userID || item.Status != prediction.StatusScored {
			continue
		}
		for _, pick := range item.Items {
			picks[pick.PilotID]++
			if pick.IsCorrect {
				hits[pick.PilotID]++
			}
		}
	}

	best := prediction.PilotHitRate{}
	found := false
	for pilotID, count := range picks {
		if count < minPicks {
			continue
		}
		rate := float64(hits[pilotID]) / float64(count)
		candidate := prediction.PilotHitRate{
			PilotID:     pilotID,
			Picks:       count,
			Hits:        hits[pilotID],
			SuccessRate: rate,
		}
		if !found ||
			candidate.SuccessRate > best.SuccessRate ||
			(candidate.SuccessRate == best.SuccessRate && candidate.Picks > best.Picks) ||
			(candidate.SuccessRate == best.SuccessRate && candidate.Picks == best.Picks && candidate.PilotID < best.PilotID) {
			best = candidate
			found = true
		}
	}
	return best, found, nil
}

func (r *PredictionRepository) ListScoredByUserLeague(ctx context.Context, userID, leagueID string) ([]prediction.Prediction, error) {
	r.mu.RLock()
	all := make([]prediction.Prediction, 0)
	for _, item := range r.items {
		if item.UserID == userID && item.LeagueID == leagueID && item.Status == prediction.StatusScored {
			all = append(all, clonePrediction(item))
		}
	}
	r.mu.RUnlock()

	r.sortByRaceDateDesc(ctx, all)
	return all, nil
}

func (r *PredictionRepository) sortByRaceDateDesc(ctx context.Context, items []prediction.Prediction) {
	dates := make(map[string]time.Time, len(items))
	if r.races != nil {
		for _, item := range items {
			if _, ok := dates[item.RaceID]; ok {
				continue
			}
			if raceItem, found, err := r.races.GetByID(ctx, item.RaceID); err == nil && found {
				dates[item.RaceID] = raceItem.RaceDate
			}
		}
	}
	sort.Slice(items, func(i, j int) bool {
		left, right := dates[items[i].RaceID], dates[items[j].RaceID]
		if !left.Equal(right) {
			return left.After(right)
		}
		return items[i].ID > items[j].ID
	})
}

func clonePrediction(item prediction.Prediction) prediction.Prediction {
	out := item
	out.Items = make([]prediction.Item, len(item.Items))
	copy(out.Items, item.Items)
	return out
}
