package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gridpredict/gridpredict/internal/domain/race"
	qb "github.com/gridpredict/gridpredict/internal/platform/querybuilder"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

type RaceRepository struct {
	db *sqlx.DB
}

func NewRaceRepository(db *sqlx.DB) *RaceRepository {
	return &RaceRepository{db: db}
}

func (r *RaceRepository) Create(ctx context.Context, item race.Race) error {
	query, args, err := qb.InsertModel("races", raceToInsertModel(item), "")
	if err != nil {
		return fmt.Errorf("build create race query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: race season=%d round=%d already exists", usecase.ErrConflict, item.Season, item.Round)
		}
		return fmt.Errorf("create race: %w", err)
	}
	return nil
}

func (r *RaceRepository) Update(ctx context.Context, item race.Race) error {
	query, args, err := qb.Update("races").
		Set("name", item.Name).
		Set("official_name", item.OfficialName).
		Set("circuit", item.Circuit).
		Set("country", item.Country).
		Set("city", item.City).
		Set("flag_url", item.FlagURL).
		Set("circuit_image_url", item.CircuitImageURL).
		Set("race_date", item.RaceDate).
		Set("qualifying_date", item.QualifyingDate).
		Set("sprint_date", item.SprintDate).
		Set("fp1_date", item.FP1Date).
		Set("fp2_date", item.FP2Date).
		Set("fp3_date", item.FP3Date).
		Set("prediction_deadline", item.PredictionDeadline).
		Set("laps", item.Laps).
		Set("circuit_length", item.CircuitLength).
		Set("timezone", item.Timezone).
		Set("is_sprint", item.IsSprint).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update race query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update race: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update race: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: race=%s", usecase.ErrNotFound, item.ID)
	}
	return nil
}

func (r *RaceRepository) UpdateStatus(ctx context.Context, raceID string, status race.Status) error {
	query, args, err := qb.Update("races").
		Set("status", string(status)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", raceID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update race status query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update race status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update race status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: race=%s", usecase.ErrNotFound, raceID)
	}
	return nil
}

func (r *RaceRepository) GetByID(ctx context.Context, raceID string) (race.Race, bool, error) {
	query, args, err := qb.Select("*").From("races").
		Where(qb.Eq("public_id", raceID)).
		ToSQL()
	if err != nil {
		return race.Race{}, false, fmt.Errorf("build get race by id query: %w", err)
	}
	var row raceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return race.Race{}, false, nil
		}
		return race.Race{}, false, fmt.Errorf("get race by id: %w", err)
	}
	return raceFromRow(row), true, nil
}

func (r *RaceRepository) GetBySeasonRound(ctx context.Context, season, round int) (race.Race, bool, error) {
	query, args, err := qb.Select("*").From("races").
		Where(
			qb.Eq("season", season),
			qb.Eq("round", round),
		).
		ToSQL()
	if err != nil {
		return race.Race{}, false, fmt.Errorf("build get race by season round query: %w", err)
	}
	var row raceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return race.Race{}, false, nil
		}
		return race.Race{}, false, fmt.Errorf("get race by season round: %w", err)
	}
	return raceFromRow(row), true, nil
}

func (r *RaceRepository) ListBySeason(ctx context.Context, season int, status race.Status) ([]race.Race, error) {
	builder := qb.Select("*").From("races").
		Where(qb.Eq("season", season)).
		OrderBy("round ASC")
	if status != "" {
		builder = builder.Where(qb.Eq("status", string(status)))
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list races by season query: %w", err)
	}

	var rows []raceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list races by season: %w", err)
	}
	return racesFromRows(rows), nil
}

func (r *RaceRepository) NextScheduled(ctx context.Context, now time.Time) (race.Race, bool, error) {
	query, args, err := qb.Select("*").From("races").
		Where(
			qb.Eq("status", string(race.StatusScheduled)),
			qb.Expr("race_date > ?", now.UTC()),
		).
		OrderBy("race_date ASC").
		Limit(1).
		ToSQL()
	if err != nil {
		return race.Race{}, false, fmt.Errorf("build next scheduled race query: %w", err)
	}
	var row raceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return race.Race{}, false, nil
		}
		return race.Race{}, false, fmt.Errorf("get next scheduled race: %w", err)
	}
	return raceFromRow(row), true, nil
}

func (r *RaceRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]race.Race, error) {
	query, args, err := qb.Select("*").From("races").
		Where(
			qb.In("status", []any{string(race.StatusScheduled), string(race.StatusQualifying)}),
			qb.Expr("race_date > ?", now.UTC()),
		).
		OrderBy("race_date ASC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list upcoming races query: %w", err)
	}

	var rows []raceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list upcoming races: %w", err)
	}
	return racesFromRows(rows), nil
}

func (r *RaceRepository) ListPast(ctx context.Context, query race.PastQuery) ([]race.Race, int, error) {
	conditions := []qb.Condition{qb.Eq("status", string(race.StatusCompleted))}
	if query.Season > 0 {
		conditions = append(conditions, qb.Eq("season", query.Season))
	}

	countQuery, countArgs, err := qb.Select("COUNT(1)").From("races").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count past races query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count past races: %w", err)
	}

	listQuery, listArgs, err := qb.Select("*").From("races").
		Where(conditions...).
		OrderBy("race_date DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list past races query: %w", err)
	}

	var rows []raceTableModel
	if err := r.db.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list past races: %w", err)
	}
	return racesFromRows(rows), total, nil
}

func (r *RaceRepository) CountByStatus(ctx context.Context, season int) (map[race.Status]int, error) {
	query, args, err := qb.Select("status", "COUNT(1) AS total").
		From("races").
		Where(qb.Eq("season", season)).
		GroupBy("status").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count races by status query: %w", err)
	}

	var rows []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count races by status: %w", err)
	}

	out := make(map[race.Status]int, len(rows))
	for _, row := range rows {
		out[race.Status(row.Status)] = row.Total
	}
	return out, nil
}

func (r *RaceRepository) ReplaceResults(ctx context.Context, raceID string, results []race.Result) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx replace race results: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM race_results WHERE race_public_id = $1`, raceID); err != nil {
		return fmt.Errorf("delete old race results: %w", err)
	}

	for _, item := range results {
		insertModel := raceResultInsertModel{
			PublicID:   item.ID,
			RaceID:     raceID,
			PilotID:    item.PilotID,
			Position:   item.Position,
			Points:     item.Points,
			Status:     string(item.Status),
			TimeOrGap:  item.TimeOrGap,
			FastestLap: item.FastestLap,
		}
		query, args, err := qb.InsertModel("race_results", insertModel, "")
		if err != nil {
			return fmt.Errorf("build insert race result query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert race result position=%d: %w", item.Position, err)
		}
	}

	statusQuery, statusArgs, err := qb.Update("races").
		Set("status", string(race.StatusCompleted)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", raceID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build complete race query: %w", err)
	}
	statusResult, err := tx.ExecContext(ctx, statusQuery, statusArgs...)
	if err != nil {
		return fmt.Errorf("complete race: %w", err)
	}
	affected, err := statusResult.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected complete race: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: race=%s", usecase.ErrNotFound, raceID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace race results tx: %w", err)
	}
	return nil
}

func (r *RaceRepository) ListResults(ctx context.Context, raceID string) ([]race.Result, error) {
	query, args, err := qb.Select("*").From("race_results").
		Where(qb.Eq("race_public_id", raceID)).
		OrderBy("position ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list race results query: %w", err)
	}

	var rows []raceResultTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list race results: %w", err)
	}

	out := make([]race.Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, raceResultFromRow(row))
	}
	return out, nil
}

func raceToInsertModel(item race.Race) raceInsertModel {
	return raceInsertModel{
		PublicID:           item.ID,
		Name:               item.Name,
		OfficialName:       item.OfficialName,
		Circuit:            item.Circuit,
		Country:            item.Country,
		City:               item.City,
		FlagURL:            item.FlagURL,
		CircuitImageURL:    item.CircuitImageURL,
		Round:              item.Round,
		Season:             item.Season,
		RaceDate:           item.RaceDate,
		QualifyingDate:     item.QualifyingDate,
		SprintDate:         item.SprintDate,
		FP1Date:            item.FP1Date,
		FP2Date:            item.FP2Date,
		FP3Date:            item.FP3Date,
		PredictionDeadline: item.PredictionDeadline,
		Status:             string(item.Status),
		Laps:               item.Laps,
		CircuitLength:      item.CircuitLength,
		Timezone:           item.Timezone,
		IsSprint:           item.IsSprint,
	}
}

func racesFromRows(rows []raceTableModel) []race.Race {
	out := make([]race.Race, 0, len(rows))
	for _, row := range rows {
		out = append(out, raceFromRow(row))
	}
	return out
}
