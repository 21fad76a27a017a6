package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	qb "github.com/gridpredict/gridpredict/internal/platform/querybuilder"
)

type PilotRepository struct {
	db *sqlx.DB
}

func NewPilotRepository(db *sqlx.DB) *PilotRepository {
	return &PilotRepository{db: db}
}

func (r *PilotRepository) List(ctx context.Context) ([]pilot.Pilot, error) {
	query, args, err := qb.Select("*").From("pilots").
		OrderBy("acronym ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list pilots query: %w", err)
	}

	var rows []pilotTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pilots: %w", err)
	}

	out := make([]pilot.Pilot, 0, len(rows))
	for _, row := range rows {
		out = append(out, pilotFromRow(row))
	}
	return out, nil
}

func (r *PilotRepository) GetByIDs(ctx context.Context, ids []string) (map[string]pilot.Pilot, error) {
	if len(ids) == 0 {
		return map[string]pilot.Pilot{}, nil
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	query, args, err := qb.Select("*").From("pilots").
		Where(qb.In("public_id", values)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get pilots by ids query: %w", err)
	}

	var rows []pilotTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get pilots by ids: %w", err)
	}

	out := make(map[string]pilot.Pilot, len(rows))
	for _, row := range rows {
		out[row.PublicID] = pilotFromRow(row)
	}
	return out, nil
}

// Upsert inserts pilots keyed by acronym; rows for known acronyms keep their
// public id and get refreshed attributes.
func (r *PilotRepository) Upsert(ctx context.Context, items []pilot.Pilot) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx upsert pilots: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		insertModel := pilotInsertModel{
			PublicID: item.ID,
			Name:     item.Name,
			Acronym:  item.Acronym,
			Number:   item.Number,
			Team:     item.Team,
		}
		query, args, err := qb.InsertModel("pilots", insertModel, `ON CONFLICT (acronym)
DO UPDATE SET
    name = EXCLUDED.name,
    number = EXCLUDED.number,
    team = EXCLUDED.team,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert pilot query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert pilot %s: %w", item.Acronym, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert pilots tx: %w", err)
	}
	return nil
}
