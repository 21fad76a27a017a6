package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	qb "github.com/gridpredict/gridpredict/internal/platform/querybuilder"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// UpsertDraft writes the prediction row and swaps its full item set in one
// transaction. The row is keyed by (user, race, league); the public id of an
// existing row never changes.
func (r *PredictionRepository) UpsertDraft(ctx context.Context, item prediction.Prediction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert prediction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.InsertModel("predictions", predictionToInsertModel(item), `ON CONFLICT (user_id, race_public_id, league_public_id)
DO UPDATE SET
    status = EXCLUDED.status,
    total_points = EXCLUDED.total_points,
    correct_positions = EXCLUDED.correct_positions,
    total_positions = EXCLUDED.total_positions,
    submitted_at = EXCLUDED.submitted_at,
    scored_at = EXCLUDED.scored_at,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert prediction query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: prediction already exists", usecase.ErrConflict)
		}
		return fmt.Errorf("upsert prediction: %w", err)
	}

	if err := replacePredictionItems(ctx, tx, item); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert prediction tx: %w", err)
	}
	return nil
}

func (r *PredictionRepository) UpdateStatus(ctx context.Context, predictionID string, status prediction.Status) error {
	query, args, err := qb.Update("predictions").
		Set("status", string(status)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", predictionID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update prediction status query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update prediction status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update prediction status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: prediction=%s", usecase.ErrNotFound, predictionID)
	}
	return nil
}

func (r *PredictionRepository) GetByID(ctx context.Context, predictionID string) (prediction.Prediction, bool, error) {
	return r.getOne(ctx, qb.Eq("public_id", predictionID))
}

func (r *PredictionRepository) GetByUserRaceLeague(ctx context.Context, userID, raceID, leagueID string) (prediction.Prediction, bool, error) {
	return r.getOne(ctx,
		qb.Eq("user_id", userID),
		qb.Eq("race_public_id", raceID),
		leagueCondition("league_public_id", leagueID),
	)
}

// leagueCondition matches personal predictions (empty league id) via NULL.
func leagueCondition(column, leagueID string) qb.Condition {
	if leagueID == "" {
		return qb.IsNull(column)
	}
	return qb.Eq(column, leagueID)
}

func (r *PredictionRepository) getOne(ctx context.Context, conditions ...qb.Condition) (prediction.Prediction, bool, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("build get prediction query: %w", err)
	}
	var row predictionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.Prediction{}, false, nil
		}
		return prediction.Prediction{}, false, fmt.Errorf("get prediction: %w", err)
	}

	item := predictionFromRow(row)
	items, err := r.loadItems(ctx, []string{item.ID})
	if err != nil {
		return prediction.Prediction{}, false, err
	}
	item.Items = items[item.ID]
	return item, true, nil
}

func (r *PredictionRepository) HasForRace(ctx context.Context, userID, raceID string) (bool, error) {
	query, args, err := qb.Select("1").From("predictions").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("race_public_id", raceID),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build has prediction for race query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("has prediction for race: %w", err)
	}
	return true, nil
}

func (r *PredictionRepository) List(ctx context.Context, query prediction.ListQuery) ([]prediction.Prediction, int, error) {
	conditions := make([]qb.Condition, 0, 2)
	if query.UserID != "" {
		conditions = append(conditions, qb.Eq("user_id", query.UserID))
	}
	if query.Status != "" {
		conditions = append(conditions, qb.Eq("status", string(query.Status)))
	}

	countQuery, countArgs, err := qb.Select("COUNT(1)").From("predictions").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count predictions query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count predictions: %w", err)
	}

	listQuery, listArgs, err := qb.Select("*").From("predictions").
		Where(conditions...).
		OrderBy("created_at DESC", "id DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list predictions query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list predictions: %w", err)
	}

	out, err := r.withItems(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PredictionRepository) ListForScoring(ctx context.Context, raceID string, includeScored bool) ([]prediction.Prediction, error) {
	statuses := []any{
		string(prediction.StatusSubmitted),
		string(prediction.StatusLocked),
	}
	if includeScored {
		statuses = append(statuses, string(prediction.StatusScored))
	}

	query, args, err := qb.Select("*").From("predictions").
		Where(
			qb.Eq("race_public_id", raceID),
			qb.In("status", statuses),
		).
		OrderBy("id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list predictions for scoring query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions for scoring: %w", err)
	}
	return r.withItems(ctx, rows)
}

// SaveScore persists the scored prediction row and its per-item scores in one
// transaction.
func (r *PredictionRepository) SaveScore(ctx context.Context, item prediction.Prediction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx save prediction score: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.Update("predictions").
		Set("status", string(item.Status)).
		Set("total_points", item.TotalPoints).
		Set("correct_positions", item.CorrectPositions).
		Set("scored_at", item.ScoredAt).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build save prediction score query: %w", err)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save prediction score: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected save prediction score: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: prediction=%s", usecase.ErrNotFound, item.ID)
	}

	for _, pick := range item.Items {
		itemQuery, itemArgs, err := qb.Update("prediction_items").
			Set("points_earned", pick.PointsEarned).
			Set("is_correct", pick.IsCorrect).
			Set("actual_position", pick.ActualPosition).
			Set("position_diff", pick.PositionDiff).
			Where(
				qb.Eq("prediction_public_id", item.ID),
				qb.Eq("position", pick.Position),
			).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build save prediction item score query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, itemQuery, itemArgs...); err != nil {
			return fmt.Errorf("save prediction item score position=%d: %w", pick.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save prediction score tx: %w", err)
	}
	return nil
}

func (r *PredictionRepository) LockSubmittedByRace(ctx context.Context, raceID string) (int, error) {
	return r.moveByRace(ctx, raceID, []any{string(prediction.StatusSubmitted)}, prediction.StatusLocked)
}

func (r *PredictionRepository) CancelByRace(ctx context.Context, raceID string) (int, error) {
	return r.moveByRace(ctx, raceID, []any{
		string(prediction.StatusDraft),
		string(prediction.StatusSubmitted),
		string(prediction.StatusLocked),
	}, prediction.StatusCancelled)
}

func (r *PredictionRepository) moveByRace(ctx context.Context, raceID string, from []any, to prediction.Status) (int, error) {
	query, args, err := qb.Update("predictions").
		Set("status", string(to)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("race_public_id", raceID),
			qb.In("status", from),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build move predictions query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("move predictions to %s: %w", to, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected move predictions: %w", err)
	}
	return int(affected), nil
}

func (r *PredictionRepository) ListScoredByUser(ctx context.Context, userID string, limit int) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("p.*").
		From("predictions p JOIN races r ON r.public_id = p.race_public_id").
		Where(
			qb.Eq("p.user_id", userID),
			qb.Eq("p.status", string(prediction.StatusScored)),
		).
		OrderBy("r.race_date DESC", "p.id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list scored predictions query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scored predictions: %w", err)
	}
	return r.withItems(ctx, rows)
}

func (r *PredictionRepository) MostPickedPilot(ctx context.Context, userID string) (prediction.PilotPickCount, bool, error) {
	const query = `
SELECT pi.pilot_public_id AS pilot_id, COUNT(1) AS picks
FROM prediction_items pi
JOIN predictions p ON p.public_id = pi.prediction_public_id
WHERE p.user_id = $1
GROUP BY pi.pilot_public_id
ORDER BY picks DESC, pi.pilot_public_id ASC
LIMIT 1`

	var row struct {
		PilotID string `db:"pilot_id"`
		Picks   int    `db:"picks"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if isNotFound(err) {
			return prediction.PilotPickCount{}, false, nil
		}
		return prediction.PilotPickCount{}, false, fmt.Errorf("get most picked pilot: %w", err)
	}
	return prediction.PilotPickCount{PilotID: row.PilotID, Count: row.Picks}, true, nil
}

func (r *PredictionRepository) BestPerformingPilot(ctx context.Context, userID string, minPicks int) (prediction.PilotHitRate, bool, error) {
	const query = `
SELECT
    pi.pilot_public_id AS pilot_id,
    COUNT(1) AS picks,
    COUNT(1) FILTER (WHERE pi.is_correct) AS hits
FROM prediction_items pi
JOIN predictions p ON p.public_id = pi.prediction_public_id
WHERE p.user_id = $1 AND p.status = $2
GROUP BY pi.pilot_public_id
HAVING COUNT(1) >= $3
ORDER BY (COUNT(1) FILTER (WHERE pi.is_correct))::float / COUNT(1) DESC, picks DESC, pi.pilot_public_id ASC
LIMIT 1`

	var row struct {
		PilotID string `db:"pilot_id"`
		Picks   int    `db:"picks"`
		Hits    int    `db:"hits"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID, string(prediction.StatusScored), minPicks); err != nil {
		if isNotFound(err) {
			return prediction.PilotHitRate{}, false, nil
		}
		return prediction.PilotHitRate{}, false, fmt.Errorf("get best performing pilot: %w", err)
	}

	out := prediction.PilotHitRate{PilotID: row.PilotID, Picks: row.Picks, Hits: row.Hits}
	if row.Picks > 0 {
		out.SuccessRate = float64(row.Hits) / float64(row.Picks)
	}
	return out, true, nil
}

func (r *PredictionRepository) ListScoredByUserLeague(ctx context.Context, userID, leagueID string) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("p.*").
		From("predictions p JOIN races r ON r.public_id = p.race_public_id").
		Where(
			qb.Eq("p.user_id", userID),
			leagueCondition("p.league_public_id", leagueID),
			qb.Eq("p.status", string(prediction.StatusScored)),
		).
		OrderBy("r.race_date DESC", "p.id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list scored predictions by league query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scored predictions by league: %w", err)
	}
	return r.withItems(ctx, rows)
}

func (r *PredictionRepository) withItems(ctx context.Context, rows []predictionTableModel) ([]prediction.Prediction, error) {
	out := make([]prediction.Prediction, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, predictionFromRow(row))
		ids = append(ids, row.PublicID)
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *PredictionRepository) loadItems(ctx context.Context, predictionIDs []string) (map[string][]prediction.Item, error) {
	values := make([]any, 0, len(predictionIDs))
	for _, id := range predictionIDs {
		values = append(values, id)
	}
	query, args, err := qb.Select("*").From("prediction_items").
		Where(qb.In("prediction_public_id", values)).
		OrderBy("position ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list prediction items query: %w", err)
	}

	var rows []predictionItemTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list prediction items: %w", err)
	}

	out := make(map[string][]prediction.Item, len(predictionIDs))
	for _, row := range rows {
		out[row.PredictionID] = append(out[row.PredictionID], predictionItemFromRow(row))
	}
	return out, nil
}

func replacePredictionItems(ctx context.Context, tx *sqlx.Tx, item prediction.Prediction) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM prediction_items WHERE prediction_public_id = $1`, item.ID); err != nil {
		return fmt.Errorf("delete old prediction items: %w", err)
	}

	for _, pick := range item.Items {
		insertModel := predictionItemInsertModel{
			PublicID:       pick.ID,
			PredictionID:   item.ID,
			Position:       pick.Position,
			PilotID:        pick.PilotID,
			PointsEarned:   pick.PointsEarned,
			IsCorrect:      pick.IsCorrect,
			ActualPosition: pick.ActualPosition,
			PositionDiff:   pick.PositionDiff,
		}
		query, args, err := qb.InsertModel("prediction_items", insertModel, "")
		if err != nil {
			return fmt.Errorf("build insert prediction item query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert prediction item position=%d: %w", pick.Position, err)
		}
	}
	return nil
}
