package postgres

import (
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/userstats"
)

type userStatsTableModel struct {
	ID                        int64     `db:"id"`
	UserID                    string    `db:"user_id"`
	TotalPoints               int       `db:"total_points"`
	TotalPredictions          int       `db:"total_predictions"`
	ScoredPredictions         int       `db:"scored_predictions"`
	CurrentStreak             int       `db:"current_streak"`
	BestStreak                int       `db:"best_streak"`
	PerfectPredictions        int       `db:"perfect_predictions"`
	TotalCorrectPositions     int       `db:"total_correct_positions"`
	AvgPointsPerRace          float64   `db:"avg_points_per_race"`
	AvgCorrectPositions       float64   `db:"avg_correct_positions"`
	MostPickedPilotID         string    `db:"most_picked_pilot_id"`
	MostPickedCount           int       `db:"most_picked_count"`
	BestPerformingPilotID     string    `db:"best_performing_pilot_id"`
	BestPerformingSuccessRate float64   `db:"best_performing_success_rate"`
	LastCalculatedAt          time.Time `db:"last_calculated_at"`
	CacheVersion              int       `db:"cache_version"`
	CreatedAt                 time.Time `db:"created_at"`
	UpdatedAt                 time.Time `db:"updated_at"`
}

type userStatsInsertModel struct {
	UserID                    string    `db:"user_id"`
	TotalPoints               int       `db:"total_points"`
	TotalPredictions          int       `db:"total_predictions"`
	ScoredPredictions         int       `db:"scored_predictions"`
	CurrentStreak             int       `db:"current_streak"`
	BestStreak                int       `db:"best_streak"`
	PerfectPredictions        int       `db:"perfect_predictions"`
	TotalCorrectPositions     int       `db:"total_correct_positions"`
	AvgPointsPerRace          float64   `db:"avg_points_per_race"`
	AvgCorrectPositions       float64   `db:"avg_correct_positions"`
	MostPickedPilotID         string    `db:"most_picked_pilot_id"`
	MostPickedCount           int       `db:"most_picked_count"`
	BestPerformingPilotID     string    `db:"best_performing_pilot_id"`
	BestPerformingSuccessRate float64   `db:"best_performing_success_rate"`
	LastCalculatedAt          time.Time `db:"last_calculated_at"`
	CacheVersion              int       `db:"cache_version"`
}

func userStatsFromRow(row userStatsTableModel) userstats.UserStats {
	return userstats.UserStats{
		UserID:                    row.UserID,
		TotalPoints:               row.TotalPoints,
		TotalPredictions:          row.TotalPredictions,
		ScoredPredictions:         row.ScoredPredictions,
		CurrentStreak:             row.CurrentStreak,
		BestStreak:                row.BestStreak,
		PerfectPredictions:        row.PerfectPredictions,
		TotalCorrectPositions:     row.TotalCorrectPositions,
		AvgPointsPerRace:          row.AvgPointsPerRace,
		AvgCorrectPositions:       row.AvgCorrectPositions,
		MostPickedPilotID:         row.MostPickedPilotID,
		MostPickedCount:           row.MostPickedCount,
		BestPerformingPilotID:     row.BestPerformingPilotID,
		BestPerformingSuccessRate: row.BestPerformingSuccessRate,
		LastCalculatedAt:          row.LastCalculatedAt,
		CacheVersion:              row.CacheVersion,
		CreatedAt:                 row.CreatedAt,
		UpdatedAt:                 row.UpdatedAt,
	}
}

func userStatsToInsertModel(item userstats.UserStats) userStatsInsertModel {
	return userStatsInsertModel{
		UserID:                    item.UserID,
		TotalPoints:               item.TotalPoints,
		TotalPredictions:          item.TotalPredictions,
		ScoredPredictions:         item.ScoredPredictions,
		CurrentStreak:             item.CurrentStreak,
		BestStreak:                item.BestStreak,
		PerfectPredictions:        item.PerfectPredictions,
		TotalCorrectPositions:     item.TotalCorrectPositions,
		AvgPointsPerRace:          item.AvgPointsPerRace,
		AvgCorrectPositions:       item.AvgCorrectPositions,
		MostPickedPilotID:         item.MostPickedPilotID,
		MostPickedCount:           item.MostPickedCount,
		BestPerformingPilotID:     item.BestPerformingPilotID,
		BestPerformingSuccessRate: item.BestPerformingSuccessRate,
		LastCalculatedAt:          item.LastCalculatedAt,
		CacheVersion:              item.CacheVersion,
	}
}
