package memory

import (
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	"github.com/gridpredict/gridpredict/internal/domain/race"
)

const SeedSeason = 2026

func SeedPilots() []pilot.Pilot {
	return []pilot.Pilot{
		{ID: "pil-ver", Name: "Max Verstappen", Acronym: "VER", Number: "1", Team: "Red Bull Racing"},
		{ID: "pil-tsu", Name: "Yuki Tsunoda", Acronym: "TSU", Number: "22", Team: "Red Bull Racing"},
		{ID: "pil-lec", Name: "Charles Leclerc", Acronym: "LEC", Number: "16", Team: "Ferrari"},
		{ID: "pil-ham", Name: "Lewis Hamilton", Acronym: "HAM", Number: "44", Team: "Ferrari"},
		{ID: "pil-rus", Name: "George Russell", Acronym: "RUS", Number: "63", Team: "Mercedes"},
		{ID: "pil-ant", Name: "Andrea Kimi Antonelli", Acronym: "ANT", Number: "12", Team: "Mercedes"},
		{ID: "pil-nor", Name: "Lando Norris", Acronym: "NOR", Number: "4", Team: "McLaren"},
		{ID: "pil-pia", Name: "Oscar Piastri", Acronym: "PIA", Number: "81", Team: "McLaren"},
		{ID: "pil-alo", Name: "Fernando Alonso", Acronym: "ALO", Number: "14", Team: "Aston Martin"},
		{ID: "pil-str", Name: "Lance Stroll", Acronym: "STR", Number: "18", Team: "Aston Martin"},
		{ID: "pil-gas", Name: "Pierre Gasly", Acronym: "GAS", Number: "10", Team: "Alpine"},
		{ID: "pil-col", Name: "Franco Colapinto", Acronym: "COL", Number: "43", Team: "Alpine"},
		{ID: "pil-alb", Name: "Alexander Albon", Acronym: "ALB", Number: "23", Team: "Williams"},
		{ID: "pil-sai", Name: "Carlos Sainz", Acronym: "SAI", Number: "55", Team: "Williams"},
		{ID: "pil-law", Name: "Liam Lawson", Acronym: "LAW", Number: "30", Team: "Racing Bulls"},
		{ID: "pil-had", Name: "Isack Hadjar", Acronym: "HAD", Number: "6", Team: "Racing Bulls"},
		{ID: "pil-hul", Name: "Nico Hulkenberg", Acronym: "HUL", Number: "27", Team: "Sauber"},
		{ID: "pil-bor", Name: "Gabriel Bortoleto", Acronym: "BOR", Number: "5", Team: "Sauber"},
		{ID: "pil-oco", Name: "Esteban Ocon", Acronym: "OCO", Number: "31", Team: "Haas"},
		{ID: "pil-bea", Name: "Oliver Bearman", Acronym: "BEA", Number: "87", Team: "Haas"},
	}
}

func SeedRaces() []race.Race {
	at := func(year, month, day, hour int) time.Time {
		return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	}
	ptr := func(t time.Time) *time.Time { return &t }

	return []race.Race{
		{
			ID:             "race-2026-01",
			Name:           "Australian Grand Prix",
			OfficialName:   "Formula 1 Australian Grand Prix 2026",
			Circuit:        "Albert Park Circuit",
			Country:        "Australia",
			City:           "Melbourne",
			Round:          1,
			Season:         SeedSeason,
			RaceDate:       at(2026, 3, 8, 5),
			QualifyingDate: ptr(at(2026, 3, 7, 5)),
			Status:         race.StatusScheduled,
			Laps:           58,
			CircuitLength:  5.278,
			Timezone:       "Australia/Melbourne",
		},
		{
			ID:             "race-2026-02",
			Name:           "Chinese Grand Prix",
			OfficialName:   "Formula 1 Chinese Grand Prix 2026",
			Circuit:        "Shanghai International Circuit",
			Country:        "China",
			City:           "Shanghai",
			Round:          2,
			Season:         SeedSeason,
			RaceDate:       at(2026, 3, 15, 7),
			QualifyingDate: ptr(at(2026, 3, 14, 7)),
			SprintDate:     ptr(at(2026, 3, 14, 3)),
			Status:         race.StatusScheduled,
			Laps:           56,
			CircuitLength:  5.451,
			Timezone:       "Asia/Shanghai",
			IsSprint:       true,
		},
		{
			ID:             "race-2026-03",
			Name:           "Japanese Grand Prix",
			OfficialName:   "Formula 1 Japanese Grand Prix 2026",
			Circuit:        "Suzuka International Racing Course",
			Country:        "Japan",
			City:           "Suzuka",
			Round:          3,
			Season:         SeedSeason,
			RaceDate:       at(2026, 3, 29, 5),
			QualifyingDate: ptr(at(2026, 3, 28, 6)),
			Status:         race.StatusScheduled,
			Laps:           53,
			CircuitLength:  5.807,
			Timezone:       "Asia/Tokyo",
		},
		{
			ID:             "race-2026-04",
			Name:           "Bahrain Grand Prix",
			OfficialName:   "Formula 1 Bahrain Grand Prix 2026",
			Circuit:        "Bahrain International Circuit",
			Country:        "Bahrain",
			City:           "Sakhir",
			Round:          4,
			Season:         SeedSeason,
			RaceDate:       at(2026, 4, 12, 15),
			QualifyingDate: ptr(at(2026, 4, 11, 16)),
			Status:         race.StatusScheduled,
			Laps:           57,
			CircuitLength:  5.412,
			Timezone:       "Asia/Bahrain",
		},
		{
			ID:             "race-2026-05",
			Name:           "Miami Grand Prix",
			OfficialName:   "Formula 1 Miami Grand Prix 2026",
			Circuit:        "Miami International Autodrome",
			Country:        "United States",
			City:           "Miami",
			Round:          5,
			Season:         SeedSeason,
			RaceDate:       at(2026, 5, 3, 20),
			QualifyingDate: ptr(at(2026, 5, 2, 20)),
			SprintDate:     ptr(at(2026, 5, 2, 16)),
			Status:         race.StatusScheduled,
			Laps:           57,
			CircuitLength:  5.412,
			Timezone:       "America/New_York",
			IsSprint:       true,
		},
		{
			ID:             "race-2026-06",
			Name:           "Monaco Grand Prix",
			OfficialName:   "Formula 1 Monaco Grand Prix 2026",
			Circuit:        "Circuit de Monaco",
			Country:        "Monaco",
			City:           "Monte Carlo",
			Round:          6,
			Season:         SeedSeason,
			RaceDate:       at(2026, 6, 7, 13),
			QualifyingDate: ptr(at(2026, 6, 6, 14)),
			Status:         race.StatusScheduled,
			Laps:           78,
			CircuitLength:  3.337,
			Timezone:       "Europe/Monaco",
		},
		{
			ID:             "race-2026-07",
			Name:           "British Grand Prix",
			OfficialName:   "Formula 1 British Grand Prix 2026",
			Circuit:        "Silverstone Circuit",
			Country:        "United Kingdom",
			City:           "Silverstone",
			Round:          7,
			Season:         SeedSeason,
			RaceDate:       at(2026, 7, 5, 14),
			QualifyingDate: ptr(at(2026, 7, 4, 14)),
			Status:         race.StatusScheduled,
			Laps:           52,
			CircuitLength:  5.891,
			Timezone:       "Europe/London",
		},
		{
			ID:             "race-2026-08",
			Name:           "Italian Grand Prix",
			OfficialName:   "Formula 1 Italian Grand Prix 2026",
			Circuit:        "Autodromo Nazionale Monza",
			Country:        "Italy",
			City:           "Monza",
			Round:          8,
			Season:         SeedSeason,
			RaceDate:       at(2026, 9, 6, 13),
			QualifyingDate: ptr(at(2026, 9, 5, 14)),
			Status:         race.StatusScheduled,
			Laps:           53,
			CircuitLength:  5.793,
			Timezone:       "Europe/Rome",
		},
	}
}
