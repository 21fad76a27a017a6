package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gridpredict/gridpredict/internal/domain/userstats"
	qb "github.com/gridpredict/gridpredict/internal/platform/querybuilder"
)

type UserStatsRepository struct {
	db *sqlx.DB
}

func NewUserStatsRepository(db *sqlx.DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

func (r *UserStatsRepository) Get(ctx context.Context, userID string) (userstats.UserStats, bool, error) {
	query, args, err := qb.Select("*").From("user_stats").
		Where(qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return userstats.UserStats{}, false, fmt.Errorf("build get user stats query: %w", err)
	}
	var row userStatsTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return userstats.UserStats{}, false, nil
		}
		return userstats.UserStats{}, false, fmt.Errorf("get user stats: %w", err)
	}
	return userStatsFromRow(row), true, nil
}

func (r *UserStatsRepository) Upsert(ctx context.Context, item userstats.UserStats) error {
	query, args, err := qb.InsertModel("user_stats", userStatsToInsertModel(item), `ON CONFLICT (user_id)
DO UPDATE SET
    total_points = EXCLUDED.total_points,
    total_predictions = EXCLUDED.total_predictions,
    scored_predictions = EXCLUDED.scored_predictions,
    current_streak = EXCLUDED.current_streak,
    best_streak = EXCLUDED.best_streak,
    perfect_predictions = EXCLUDED.perfect_predictions,
    total_correct_positions = EXCLUDED.total_correct_positions,
    avg_points_per_race = EXCLUDED.avg_points_per_race,
    avg_correct_positions = EXCLUDED.avg_correct_positions,
    most_picked_pilot_id = EXCLUDED.most_picked_pilot_id,
    most_picked_count = EXCLUDED.most_picked_count,
    best_performing_pilot_id = EXCLUDED.best_performing_pilot_id,
    best_performing_success_rate = EXCLUDED.best_performing_success_rate,
    last_calculated_at = EXCLUDED.last_calculated_at,
    cache_version = EXCLUDED.cache_version,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert user stats query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert user stats: %w", err)
	}
	return nil
}
