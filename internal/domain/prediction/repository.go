package prediction

import "context"

type Repository interface {
	// UpsertDraft replaces the prediction row and its items in one
	// transaction, keyed by (userID, raceID, leagueID).
	UpsertDraft(ctx context.Context, item Prediction) error
	UpdateStatus(ctx context.Context, predictionID string, status Status) error
	GetByID(ctx context.Context, predictionID string) (Prediction, bool, error)
	GetByUserRaceLeague(ctx context.Context, userID, raceID, leagueID string) (Prediction, bool, error)
	HasForRace(ctx context.Context, userID, raceID string) (bool, error)
	List(ctx context.Context, query ListQuery) ([]Prediction, int, error)

	// ListForScoring returns submitted and locked predictions of a race with
	// their items; rescoring also picks up already scored ones.
	ListForScoring(ctx context.Context, raceID string, includeScored bool) ([]Prediction, error)
	// SaveScore persists the scored prediction and its item scores in one
	// transaction.
	SaveScore(ctx context.Context, item Prediction) error
	LockSubmittedByRace(ctx context.Context, raceID string) (int, error)
	CancelByRace(ctx context.Context, raceID string) (int, error)

	// ListScoredByUser returns scored predictions newest first.
	ListScoredByUser(ctx context.Context, userID string, limit int) ([]Prediction, error)
	MostPickedPilot(ctx context.Context, userID string) (PilotPickCount, bool, error)
	// BestPerformingPilot considers pilots picked at least minPicks times.
	BestPerformingPilot(ctx context.Context, userID string, minPicks int) (PilotHitRate, bool, error)
	// ListScoredByUserLeague feeds member aggregate rebuilds.
	ListScoredByUserLeague(ctx context.Context, userID, leagueID string) ([]Prediction, error)
}
