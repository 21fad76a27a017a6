package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	idgen "github.com/gridpredict/gridpredict/internal/platform/id"
	"github.com/gridpredict/gridpredict/internal/platform/logging"
)

// ExternalRace is one calendar entry from the season data provider.
type ExternalRace struct {
	Season         int
	Round          int
	Name           string
	OfficialName   string
	Circuit        string
	Country        string
	City           string
	RaceDate       time.Time
	QualifyingDate *time.Time
	SprintDate     *time.Time
	Laps           int
	CircuitLength  float64
	Timezone       string
	IsSprint       bool
}

// ExternalPilot is one roster entry from the season data provider.
type ExternalPilot struct {
	Name    string
	Acronym string
	Number  string
	Team    string
}

// seasonDataProvider is the upstream F1 data source.
type seasonDataProvider interface {
	FetchSeasonCalendar(ctx context.Context, season int) ([]ExternalRace, error)
	FetchPilots(ctx context.Context, season int) ([]ExternalPilot, error)
}

type CalendarSyncSummary struct {
	Season        int
	RacesCreated  int
	RacesUpdated  int
	RacesSkipped  int
	PilotsUpdated int
}

type CalendarSyncService struct {
	provider  seasonDataProvider
	raceRepo  race.Repository
	pilotRepo pilot.Repository
	idGen     idgen.Generator
	logger    *logging.Logger
	now       func() time.Time
}

func NewCalendarSyncService(
	provider seasonDataProvider,
	raceRepo race.Repository,
	pilotRepo pilot.Repository,
	idGen idgen.Generator,
	logger *logging.Logger,
) *CalendarSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarSyncService{
		provider:  provider,
		raceRepo:  raceRepo,
		pilotRepo: pilotRepo,
		idGen:     idGen,
		logger:    logger,
		now:       time.Now,
	}
}

// SyncSeason imports the provider calendar for a season, upserting races by
// (season, round). Completed races are never touched.
func (s *CalendarSyncService) SyncSeason(ctx context.Context, season int) (CalendarSyncSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CalendarSyncService.SyncSeason")
	defer span.End()

	now := s.now().UTC()
	if season == 0 {
		season = now.Year()
	}
	if season < 1950 {
		return CalendarSyncSummary{}, fmt.Errorf("%w: invalid season %d", ErrInvalidInput, season)
	}

	entries, err := s.provider.FetchSeasonCalendar(ctx, season)
	if err != nil {
		return CalendarSyncSummary{}, fmt.Errorf("fetch season calendar: %w", err)
	}

	summary := CalendarSyncSummary{Season: season}
	for _, entry := range entries {
		if entry.Round < 1 || entry.RaceDate.IsZero() || strings.TrimSpace(entry.Name) == "" {
			summary.RacesSkipped++
			continue
		}

		existing, exists, err := s.raceRepo.GetBySeasonRound(ctx, season, entry.Round)
		if err != nil {
			return summary, fmt.Errorf("get race season=%d round=%d: %w", season, entry.Round, err)
		}

		if exists {
			if existing.Status == race.StatusCompleted {
				summary.RacesSkipped++
				continue
			}
			existing.Name = strings.TrimSpace(entry.Name)
			existing.OfficialName = strings.TrimSpace(entry.OfficialName)
			existing.Circuit = strings.TrimSpace(entry.Circuit)
			existing.Country = strings.TrimSpace(entry.Country)
			existing.City = strings.TrimSpace(entry.City)
			existing.RaceDate = entry.RaceDate.UTC()
			existing.QualifyingDate = utcOrNil(entry.QualifyingDate)
			existing.SprintDate = utcOrNil(entry.SprintDate)
			existing.Laps = entry.Laps
			existing.CircuitLength = entry.CircuitLength
			existing.Timezone = strings.TrimSpace(entry.Timezone)
			existing.IsSprint = entry.IsSprint
			existing.UpdatedAt = now
			if err := s.raceRepo.Update(ctx, existing); err != nil {
				return summary, fmt.Errorf("update race season=%d round=%d: %w", season, entry.Round, err)
			}
			summary.RacesUpdated++
			continue
		}

		raceID, err := s.idGen.NewID()
		if err != nil {
			return summary, fmt.Errorf("generate race id: %w", err)
		}
		item := race.Race{
			ID:             raceID,
			Name:           strings.TrimSpace(entry.Name),
			OfficialName:   strings.TrimSpace(entry.OfficialName),
			Circuit:        strings.TrimSpace(entry.Circuit),
			Country:        strings.TrimSpace(entry.Country),
			City:           strings.TrimSpace(entry.City),
			Round:          entry.Round,
			Season:         season,
			RaceDate:       entry.RaceDate.UTC(),
			QualifyingDate: utcOrNil(entry.QualifyingDate),
			SprintDate:     utcOrNil(entry.SprintDate),
			Status:         race.StatusScheduled,
			Laps:           entry.Laps,
			CircuitLength:  entry.CircuitLength,
			Timezone:       strings.TrimSpace(entry.Timezone),
			IsSprint:       entry.IsSprint,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.raceRepo.Create(ctx, item); err != nil {
			return summary, fmt.Errorf("create race season=%d round=%d: %w", season, entry.Round, err)
		}
		summary.RacesCreated++
	}

	updated, err := s.syncPilots(ctx, season, now)
	if err != nil {
		return summary, err
	}
	summary.PilotsUpdated = updated

	s.logger.InfoContext(ctx, "season calendar synced",
		"season", season,
		"created", summary.RacesCreated,
		"updated", summary.RacesUpdated,
		"skipped", summary.RacesSkipped,
		"pilots", summary.PilotsUpdated,
	)
	return summary, nil
}

func (s *CalendarSyncService) syncPilots(ctx context.Context, season int, now time.Time) (int, error) {
	entries, err := s.provider.FetchPilots(ctx, season)
	if err != nil {
		return 0, fmt.Errorf("fetch pilots: %w", err)
	}

	items := make([]pilot.Pilot, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		acronym := strings.ToUpper(strings.TrimSpace(entry.Acronym))
		name := strings.TrimSpace(entry.Name)
		if acronym == "" || name == "" {
			continue
		}
		if _, dup := seen[acronym]; dup {
			continue
		}
		seen[acronym] = struct{}{}

		pilotID, err := s.idGen.NewID()
		if err != nil {
			return 0, fmt.Errorf("generate pilot id: %w", err)
		}
		items = append(items, pilot.Pilot{
			ID:        pilotID,
			Name:      name,
			Acronym:   acronym,
			Number:    strings.TrimSpace(entry.Number),
			Team:      strings.TrimSpace(entry.Team),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if len(items) == 0 {
		return 0, nil
	}

	if err := s.pilotRepo.Upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert pilots: %w", err)
	}
	return len(items), nil
}
