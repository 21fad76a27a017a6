package memory

import (
	"context"
	"sync"

	"github.com/gridpredict/gridpredict/internal/domain/userstats"
)

type UserStatsRepository struct {
	mu    sync.RWMutex
	items map[string]userstats.UserStats
}

func NewUserStatsRepository() *UserStatsRepository {
	return &UserStatsRepository{items: make(map[string]userstats.UserStats)}
}

func (r *UserStatsRepository) Get(_ context.Context, userID string) (userstats.UserStats, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[userID]
	return item, ok, nil
}

func (r *UserStatsRepository) Upsert(_ context.Context, item userstats.UserStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.UserID] = item
	return nil
}
