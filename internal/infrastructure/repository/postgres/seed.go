package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gridpredict/gridpredict/internal/infrastructure/repository/memory"
)

// BootstrapSeed loads the starter grid and season calendar into an empty
// database. A database that already has races is left alone.
func BootstrapSeed(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM races`); err != nil {
		return fmt.Errorf("count races for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range memory.SeedPilots() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO pilots (public_id, name, acronym, number, team)
VALUES (:public_id, :name, :acronym, :number, :team)
ON CONFLICT (acronym) DO NOTHING`, map[string]any{
			"public_id": p.ID,
			"name":      p.Name,
			"acronym":   p.Acronym,
			"number":    p.Number,
			"team":      p.Team,
		})
		if err != nil {
			return fmt.Errorf("bind seed pilot %s query: %w", p.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed pilot %s: %w", p.ID, err)
		}
	}

	for _, item := range memory.SeedRaces() {
		sqlQuery, args, err := sqlx.Named(`
INSERT INTO races (public_id, name, official_name, circuit, country, city, round, season,
    race_date, qualifying_date, sprint_date, status, laps, circuit_length, timezone, is_sprint)
VALUES (:public_id, :name, :official_name, :circuit, :country, :city, :round, :season,
    :race_date, :qualifying_date, :sprint_date, :status, :laps, :circuit_length, :timezone, :is_sprint)
ON CONFLICT (season, round) DO NOTHING`, map[string]any{
			"public_id":       item.ID,
			"name":            item.Name,
			"official_name":   item.OfficialName,
			"circuit":         item.Circuit,
			"country":         item.Country,
			"city":            item.City,
			"round":           item.Round,
			"season":          item.Season,
			"race_date":       item.RaceDate,
			"qualifying_date": item.QualifyingDate,
			"sprint_date":     item.SprintDate,
			"status":          string(item.Status),
			"laps":            item.Laps,
			"circuit_length":  item.CircuitLength,
			"timezone":        item.Timezone,
			"is_sprint":       item.IsSprint,
		})
		if err != nil {
			return fmt.Errorf("bind seed race %s query: %w", item.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed race %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
