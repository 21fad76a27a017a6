package postgres

import (
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/prediction"
)

type predictionTableModel struct {
	ID               int64      `db:"id"`
	PublicID         string     `db:"public_id"`
	UserID           string     `db:"user_id"`
	RaceID           string     `db:"race_public_id"`
	LeagueID         *string    `db:"league_public_id"`
	Status           string     `db:"status"`
	TotalPoints      int        `db:"total_points"`
	CorrectPositions int        `db:"correct_positions"`
	TotalPositions   int        `db:"total_positions"`
	SubmittedAt      *time.Time `db:"submitted_at"`
	ScoredAt         *time.Time `db:"scored_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

type predictionInsertModel struct {
	PublicID         string     `db:"public_id"`
	UserID           string     `db:"user_id"`
	RaceID           string     `db:"race_public_id"`
	LeagueID         *string    `db:"league_public_id"`
	Status           string     `db:"status"`
	TotalPoints      int        `db:"total_points"`
	CorrectPositions int        `db:"correct_positions"`
	TotalPositions   int        `db:"total_positions"`
	SubmittedAt      *time.Time `db:"submitted_at"`
	ScoredAt         *time.Time `db:"scored_at"`
}

type predictionItemTableModel struct {
	ID             int64  `db:"id"`
	PublicID       string `db:"public_id"`
	PredictionID   string `db:"prediction_public_id"`
	Position       int    `db:"position"`
	PilotID        string `db:"pilot_public_id"`
	PointsEarned   int    `db:"points_earned"`
	IsCorrect      bool   `db:"is_correct"`
	ActualPosition int    `db:"actual_position"`
	PositionDiff   int    `db:"position_diff"`
}

type predictionItemInsertModel struct {
	PublicID       string `db:"public_id"`
	PredictionID   string `db:"prediction_public_id"`
	Position       int    `db:"position"`
	PilotID        string `db:"pilot_public_id"`
	PointsEarned   int    `db:"points_earned"`
	IsCorrect      bool   `db:"is_correct"`
	ActualPosition int    `db:"actual_position"`
	PositionDiff   int    `db:"position_diff"`
}

// nullableLeagueID maps an empty league id (a personal prediction) to NULL.
func nullableLeagueID(leagueID string) *string {
	if leagueID == "" {
		return nil
	}
	return &leagueID
}

func predictionFromRow(row predictionTableModel) prediction.Prediction {
	leagueID := ""
	if row.LeagueID != nil {
		leagueID = *row.LeagueID
	}
	return prediction.Prediction{
		ID:               row.PublicID,
		UserID:           row.UserID,
		RaceID:           row.RaceID,
		LeagueID:         leagueID,
		Status:           prediction.Status(row.Status),
		TotalPoints:      row.TotalPoints,
		CorrectPositions: row.CorrectPositions,
		TotalPositions:   row.TotalPositions,
		SubmittedAt:      row.SubmittedAt,
		ScoredAt:         row.ScoredAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func predictionItemFromRow(row predictionItemTableModel) prediction.Item {
	return prediction.Item{
		ID:             row.PublicID,
		PredictionID:   row.PredictionID,
		Position:       row.Position,
		PilotID:        row.PilotID,
		PointsEarned:   row.PointsEarned,
		IsCorrect:      row.IsCorrect,
		ActualPosition: row.ActualPosition,
		PositionDiff:   row.PositionDiff,
	}
}

func predictionToInsertModel(item prediction.Prediction) predictionInsertModel {
	return predictionInsertModel{
		PublicID:         item.ID,
		UserID:           item.UserID,
		RaceID:           item.RaceID,
		LeagueID:         nullableLeagueID(item.LeagueID),
		Status:           string(item.Status),
		TotalPoints:      item.TotalPoints,
		CorrectPositions: item.CorrectPositions,
		TotalPositions:   item.TotalPositions,
		SubmittedAt:      item.SubmittedAt,
		ScoredAt:         item.ScoredAt,
	}
}
