package postgres

import (
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/race"
)

type raceTableModel struct {
	ID                 int64      `db:"id"`
	PublicID           string     `db:"public_id"`
	Name               string     `db:"name"`
	OfficialName       string     `db:"official_name"`
	Circuit            string     `db:"circuit"`
	Country            string     `db:"country"`
	City               string     `db:"city"`
	FlagURL            string     `db:"flag_url"`
	CircuitImageURL    string     `db:"circuit_image_url"`
	Round              int        `db:"round"`
	Season             int        `db:"season"`
	RaceDate           time.Time  `db:"race_date"`
	QualifyingDate     *time.Time `db:"qualifying_date"`
	SprintDate         *time.Time `db:"sprint_date"`
	FP1Date            *time.Time `db:"fp1_date"`
	FP2Date            *time.Time `db:"fp2_date"`
	FP3Date            *time.Time `db:"fp3_date"`
	PredictionDeadline *time.Time `db:"prediction_deadline"`
	Status             string     `db:"status"`
	Laps               int        `db:"laps"`
	CircuitLength      float64    `db:"circuit_length"`
	Timezone           string     `db:"timezone"`
	IsSprint           bool       `db:"is_sprint"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

type raceInsertModel struct {
	PublicID           string     `db:"public_id"`
	Name               string     `db:"name"`
	OfficialName       string     `db:"official_name"`
	Circuit            string     `db:"circuit"`
	Country            string     `db:"country"`
	City               string     `db:"city"`
	FlagURL            string     `db:"flag_url"`
	CircuitImageURL    string     `db:"circuit_image_url"`
	Round              int        `db:"round"`
	Season             int        `db:"season"`
	RaceDate           time.Time  `db:"race_date"`
	QualifyingDate     *time.Time `db:"qualifying_date"`
	SprintDate         *time.Time `db:"sprint_date"`
	FP1Date            *time.Time `db:"fp1_date"`
	FP2Date            *time.Time `db:"fp2_date"`
	FP3Date            *time.Time `db:"fp3_date"`
	PredictionDeadline *time.Time `db:"prediction_deadline"`
	Status             string     `db:"status"`
	Laps               int        `db:"laps"`
	CircuitLength      float64    `db:"circuit_length"`
	Timezone           string     `db:"timezone"`
	IsSprint           bool       `db:"is_sprint"`
}

type raceResultTableModel struct {
	ID         int64     `db:"id"`
	PublicID   string    `db:"public_id"`
	RaceID     string    `db:"race_public_id"`
	PilotID    string    `db:"pilot_public_id"`
	Position   int       `db:"position"`
	Points     float64   `db:"points"`
	Status     string    `db:"status"`
	TimeOrGap  string    `db:"time_or_gap"`
	FastestLap bool      `db:"fastest_lap"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type raceResultInsertModel struct {
	PublicID   string  `db:"public_id"`
	RaceID     string  `db:"race_public_id"`
	PilotID    string  `db:"pilot_public_id"`
	Position   int     `db:"position"`
	Points     float64 `db:"points"`
	Status     string  `db:"status"`
	TimeOrGap  string  `db:"time_or_gap"`
	FastestLap bool    `db:"fastest_lap"`
}

func raceFromRow(row raceTableModel) race.Race {
	return race.Race{
		ID:                 row.PublicID,
		Name:               row.Name,
		OfficialName:       row.OfficialName,
		Circuit:            row.Circuit,
		Country:            row.Country,
		City:               row.City,
		FlagURL:            row.FlagURL,
		CircuitImageURL:    row.CircuitImageURL,
		Round:              row.Round,
		Season:             row.Season,
		RaceDate:           row.RaceDate,
		QualifyingDate:     row.QualifyingDate,
		SprintDate:         row.SprintDate,
		FP1Date:            row.FP1Date,
		FP2Date:            row.FP2Date,
		FP3Date:            row.FP3Date,
		PredictionDeadline: row.PredictionDeadline,
		Status:             race.Status(row.Status),
		Laps:               row.Laps,
		CircuitLength:      row.CircuitLength,
		Timezone:           row.Timezone,
		IsSprint:           row.IsSprint,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func raceResultFromRow(row raceResultTableModel) race.Result {
	return race.Result{
		ID:         row.PublicID,
		RaceID:     row.RaceID,
		PilotID:    row.PilotID,
		Position:   row.Position,
		Points:     row.Points,
		Status:     race.ResultStatus(row.Status),
		TimeOrGap:  row.TimeOrGap,
		FastestLap: row.FastestLap,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
