package postgres

import (
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
)

type pilotTableModel struct {
	ID        int64     `db:"id"`
	PublicID  string    `db:"public_id"`
	Name      string    `db:"name"`
	Acronym   string    `db:"acronym"`
	Number    string    `db:"number"`
	Team      string    `db:"team"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type pilotInsertModel struct {
	PublicID string `db:"public_id"`
	Name     string `db:"name"`
	Acronym  string `db:"acronym"`
	Number   string `db:"number"`
	Team     string `db:"team"`
}

func pilotFromRow(row pilotTableModel) pilot.Pilot {
	return pilot.Pilot{
		ID:        row.PublicID,
		Name:      row.Name,
		Acronym:   row.Acronym,
		Number:    row.Number,
		Team:      row.Team,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
