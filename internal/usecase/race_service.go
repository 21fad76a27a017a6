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

type CreateRaceInput struct {
	Name               string
	OfficialName       string
	Circuit            string
	Country            string
	City               string
	FlagURL            string
	CircuitImageURL    string
	Round              int
	Season             int
	RaceDate           time.Time
	QualifyingDate     *time.Time
	SprintDate         *time.Time
	PredictionDeadline *time.Time
	Laps               int
	CircuitLength      float64
	Timezone           string
	IsSprint           bool
}

type UpdateRaceInput struct {
	RaceID             string
	Name               *string
	OfficialName       *string
	Circuit            *string
	Country            *string
	City               *string
	RaceDate           *time.Time
	QualifyingDate     *time.Time
	SprintDate         *time.Time
	PredictionDeadline *time.Time
	Laps               *int
	CircuitLength      *float64
	Timezone           *string
	IsSprint           *bool
}

type ResultEntry struct {
	PilotID    string
	Position   int
	Points     float64
	Status     race.ResultStatus
	TimeOrGap  string
	FastestLap bool
}

type RecordResultsInput struct {
	RaceID  string
	Entries []ResultEntry
}

type RaceWithResults struct {
	Race    race.Race
	Results []race.Result
	Pilots  map[string]pilot.Pilot
}

type CanPredictResult struct {
	RaceID     string
	CanPredict bool
	Reason     string
	Deadline   time.Time
}

type CalendarMonth struct {
	Year  int
	Month time.Month
	Races []race.Race
}

// racePredictionLifecycle is what the race lifecycle needs from predictions.
type racePredictionLifecycle interface {
	LockSubmittedByRace(ctx context.Context, raceID string) (int, error)
	CancelByRace(ctx context.Context, raceID string) (int, error)
}

// raceScorer scores every prediction of a completed race.
type raceScorer interface {
	ScoreRace(ctx context.Context, raceID string) error
}

type RaceService struct {
	raceRepo    race.Repository
	pilotRepo   pilot.Repository
	predictions racePredictionLifecycle
	scorer      raceScorer
	idGen       idgen.Generator
	logger      *logging.Logger
	now         func() time.Time
}

func NewRaceService(
	raceRepo race.Repository,
	pilotRepo pilot.Repository,
	predictions racePredictionLifecycle,
	scorer raceScorer,
	idGen idgen.Generator,
	logger *logging.Logger,
) *RaceService {
	if logger == nil {
		logger = logging.Default()
	}
	return &RaceService{
		raceRepo:    raceRepo,
		pilotRepo:   pilotRepo,
		predictions: predictions,
		scorer:      scorer,
		idGen:       idGen,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *RaceService) Create(ctx context.Context, input CreateRaceInput) (race.Race, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.Create")
	defer span.End()

	input.Name = strings.TrimSpace(input.Name)
	input.Circuit = strings.TrimSpace(input.Circuit)
	input.Country = strings.TrimSpace(input.Country)
	if input.Name == "" || input.Circuit == "" || input.Country == "" {
		return race.Race{}, fmt.Errorf("%w: name, circuit and country are required", ErrInvalidInput)
	}
	if input.Round < 1 {
		return race.Race{}, fmt.Errorf("%w: round must be positive", ErrInvalidInput)
	}
	if input.RaceDate.IsZero() {
		return race.Race{}, fmt.Errorf("%w: race date is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	season := input.Season
	if season == 0 {
		season = input.RaceDate.Year()
	}

	if _, exists, err := s.raceRepo.GetBySeasonRound(ctx, season, input.Round); err != nil {
		return race.Race{}, fmt.Errorf("check season round: %w", err)
	} else if exists {
		return race.Race{}, fmt.Errorf("%w: round %d already exists for season %d", ErrConflict, input.Round, season)
	}

	raceID, err := s.idGen.NewID()
	if err != nil {
		return race.Race{}, fmt.Errorf("generate race id: %w", err)
	}

	item := race.Race{
		ID:                 raceID,
		Name:               input.Name,
		OfficialName:       strings.TrimSpace(input.OfficialName),
		Circuit:            input.Circuit,
		Country:            input.Country,
		City:               strings.TrimSpace(input.City),
		FlagURL:            strings.TrimSpace(input.FlagURL),
		CircuitImageURL:    strings.TrimSpace(input.CircuitImageURL),
		Round:              input.Round,
		Season:             season,
		RaceDate:           input.RaceDate.UTC(),
		QualifyingDate:     utcOrNil(input.QualifyingDate),
		SprintDate:         utcOrNil(input.SprintDate),
		PredictionDeadline: utcOrNil(input.PredictionDeadline),
		Status:             race.StatusScheduled,
		Laps:               input.Laps,
		CircuitLength:      input.CircuitLength,
		Timezone:           strings.TrimSpace(input.Timezone),
		IsSprint:           input.IsSprint,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.raceRepo.Create(ctx, item); err != nil {
		return race.Race{}, fmt.Errorf("create race: %w", err)
	}
	return item, nil
}

func (s *RaceService) Update(ctx context.Context, input UpdateRaceInput) (race.Race, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.Update")
	defer span.End()

	item, err := s.getRace(ctx, input.RaceID)
	if err != nil {
		return race.Race{}, err
	}
	if item.Status == race.StatusCompleted {
		return race.Race{}, fmt.Errorf("%w: completed races cannot be edited", ErrInvalidState)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return race.Race{}, fmt.Errorf("%w: race name cannot be empty", ErrInvalidInput)
		}
		item.Name = name
	}
	if input.OfficialName != nil {
		item.OfficialName = strings.TrimSpace(*input.OfficialName)
	}
	if input.Circuit != nil {
		item.Circuit = strings.TrimSpace(*input.Circuit)
	}
	if input.Country != nil {
		item.Country = strings.TrimSpace(*input.Country)
	}
	if input.City != nil {
		item.City = strings.TrimSpace(*input.City)
	}
	if input.RaceDate != nil {
		item.RaceDate = input.RaceDate.UTC()
	}
	if input.QualifyingDate != nil {
		item.QualifyingDate = utcOrNil(input.QualifyingDate)
	}
	if input.SprintDate != nil {
		item.SprintDate = utcOrNil(input.SprintDate)
	}
	if input.PredictionDeadline != nil {
		item.PredictionDeadline = utcOrNil(input.PredictionDeadline)
	}
	if input.Laps != nil {
		item.Laps = *input.Laps
	}
	if input.CircuitLength != nil {
		item.CircuitLength = *input.CircuitLength
	}
	if input.Timezone != nil {
		item.Timezone = strings.TrimSpace(*input.Timezone)
	}
	if input.IsSprint != nil {
		item.IsSprint = *input.IsSprint
	}

	item.UpdatedAt = s.now().UTC()
	if err := s.raceRepo.Update(ctx, item); err != nil {
		return race.Race{}, fmt.Errorf("update race: %w", err)
	}
	return item, nil
}

// TransitionStatus enforces the lifecycle graph. Completing a race locks its
// submitted predictions; cancelling a race cancels them.
func (s *RaceService) TransitionStatus(ctx context.Context, raceID string, target race.Status) (race.Race, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.TransitionStatus")
	defer span.End()

	if !race.ValidStatus(target) {
		return race.Race{}, fmt.Errorf("%w: unknown race status %q", ErrInvalidInput, target)
	}

	item, err := s.getRace(ctx, raceID)
	if err != nil {
		return race.Race{}, err
	}
	if !item.Status.CanTransitionTo(target) {
		return race.Race{}, fmt.Errorf("%w: cannot transition race from %s to %s", ErrInvalidState, item.Status, target)
	}

	if err := s.raceRepo.UpdateStatus(ctx, item.ID, target); err != nil {
		return race.Race{}, fmt.Errorf("update race status: %w", err)
	}
	item.Status = target
	item.UpdatedAt = s.now().UTC()

	switch target {
	case race.StatusCompleted:
		locked, err := s.predictions.LockSubmittedByRace(ctx, item.ID)
		if err != nil {
			return race.Race{}, fmt.Errorf("lock predictions for completed race: %w", err)
		}
		s.logger.InfoContext(ctx, "race completed, predictions locked", "race_id", item.ID, "locked", locked)
	case race.StatusCancelled:
		cancelled, err := s.predictions.CancelByRace(ctx, item.ID)
		if err != nil {
			return race.Race{}, fmt.Errorf("cancel predictions for cancelled race: %w", err)
		}
		s.logger.InfoContext(ctx, "race cancelled, predictions cancelled", "race_id", item.ID, "cancelled", cancelled)
	}

	return item, nil
}

// RecordResults replaces the race's result set, forces it to completed, locks
// outstanding submitted predictions and triggers scoring. Recording twice is
// allowed and rescores the race.
func (s *RaceService) RecordResults(ctx context.Context, input RecordResultsInput) (RaceWithResults, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.RecordResults")
	defer span.End()

	item, err := s.getRace(ctx, input.RaceID)
	if err != nil {
		return RaceWithResults{}, err
	}
	if item.Status == race.StatusCancelled || item.Status == race.StatusPostponed {
		return RaceWithResults{}, fmt.Errorf("%w: cannot record results for a %s race", ErrInvalidState, item.Status)
	}
	if len(input.Entries) == 0 {
		return RaceWithResults{}, fmt.Errorf("%w: at least one result entry is required", ErrInvalidInput)
	}

	pilotIDs := make([]string, 0, len(input.Entries))
	seenPositions := make(map[int]struct{}, len(input.Entries))
	seenPilots := make(map[string]struct{}, len(input.Entries))
	for _, entry := range input.Entries {
		pilotID := strings.TrimSpace(entry.PilotID)
		if pilotID == "" {
			return RaceWithResults{}, fmt.Errorf("%w: result entry is missing a pilot id", ErrInvalidInput)
		}
		if entry.Position < race.MinPosition || entry.Position > race.MaxPosition {
			return RaceWithResults{}, fmt.Errorf("%w: position %d is out of range", ErrInvalidInput, entry.Position)
		}
		if _, dup := seenPositions[entry.Position]; dup {
			return RaceWithResults{}, fmt.Errorf("%w: duplicate position %d", ErrInvalidInput, entry.Position)
		}
		if _, dup := seenPilots[pilotID]; dup {
			return RaceWithResults{}, fmt.Errorf("%w: duplicate pilot %s", ErrInvalidInput, pilotID)
		}
		if entry.Status != "" && !race.ValidResultStatus(entry.Status) {
			return RaceWithResults{}, fmt.Errorf("%w: unknown result status %q", ErrInvalidInput, entry.Status)
		}
		seenPositions[entry.Position] = struct{}{}
		seenPilots[pilotID] = struct{}{}
		pilotIDs = append(pilotIDs, pilotID)
	}

	pilots, err := s.pilotRepo.GetByIDs(ctx, pilotIDs)
	if err != nil {
		return RaceWithResults{}, fmt.Errorf("load pilots for results: %w", err)
	}
	for _, pilotID := range pilotIDs {
		if _, ok := pilots[pilotID]; !ok {
			return RaceWithResults{}, fmt.Errorf("%w: pilot %s does not exist", ErrInvalidInput, pilotID)
		}
	}

	now := s.now().UTC()
	results := make([]race.Result, 0, len(input.Entries))
	for _, entry := range input.Entries {
		resultID, err := s.idGen.NewID()
		if err != nil {
			return RaceWithResults{}, fmt.Errorf("generate result id: %w", err)
		}
		status := entry.Status
		if status == "" {
			status = race.ResultFinished
		}
		results = append(results, race.Result{
			ID:         resultID,
			RaceID:     item.ID,
			PilotID:    strings.TrimSpace(entry.PilotID),
			Position:   entry.Position,
			Points:     entry.Points,
			Status:     status,
			TimeOrGap:  strings.TrimSpace(entry.TimeOrGap),
			FastestLap: entry.FastestLap,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.raceRepo.ReplaceResults(ctx, item.ID, results); err != nil {
		return RaceWithResults{}, fmt.Errorf("replace race results: %w", err)
	}
	item.Status = race.StatusCompleted

	if _, err := s.predictions.LockSubmittedByRace(ctx, item.ID); err != nil {
		return RaceWithResults{}, fmt.Errorf("lock predictions after results: %w", err)
	}
	if err := s.scorer.ScoreRace(ctx, item.ID); err != nil {
		return RaceWithResults{}, fmt.Errorf("score race %s: %w", item.ID, err)
	}

	return RaceWithResults{Race: item, Results: results, Pilots: pilots}, nil
}

func (s *RaceService) GetByID(ctx context.Context, raceID string) (race.Race, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.GetByID")
	defer span.End()
	return s.getRace(ctx, raceID)
}

func (s *RaceService) GetWithResults(ctx context.Context, raceID string) (RaceWithResults, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.GetWithResults")
	defer span.End()

	item, err := s.getRace(ctx, raceID)
	if err != nil {
		return RaceWithResults{}, err
	}

	results, err := s.raceRepo.ListResults(ctx, item.ID)
	if err != nil {
		return RaceWithResults{}, fmt.Errorf("list race results: %w", err)
	}

	pilotIDs := make([]string, 0, len(results))
	for _, result := range results {
		pilotIDs = append(pilotIDs, result.PilotID)
	}
	pilots, err := s.pilotRepo.GetByIDs(ctx, pilotIDs)
	if err != nil {
		return RaceWithResults{}, fmt.Errorf("load pilots for results: %w", err)
	}

	return RaceWithResults{Race: item, Results: results, Pilots: pilots}, nil
}

func (s *RaceService) ListBySeason(ctx context.Context, season int, status race.Status) ([]race.Race, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.ListBySeason")
	defer span.End()

	if season == 0 {
		season = s.now().UTC().Year()
	}
	if status != "" && !race.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown race status %q", ErrInvalidInput, status)
	}

	items, err := s.raceRepo.ListBySeason(ctx, season, status)
	if err != nil {
		return nil, fmt.Errorf("list races by season: %w", err)
	}
	return items, nil
}

func (s *RaceService) Next(ctx context.Context) (race.Race, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.Next")
	defer span.End()

	item, exists, err := s.raceRepo.NextScheduled(ctx, s.now().UTC())
	if err != nil {
		return race.Race{}, false, fmt.Errorf("get next race: %w", err)
	}
	return item, exists, nil
}

func (s *RaceService) Upcoming(ctx context.Context, limit int) ([]race.Race, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.Upcoming")
	defer span.End()

	items, err := s.raceRepo.ListUpcoming(ctx, s.now().UTC(), normalizeLimit(limit, 5))
	if err != nil {
		return nil, fmt.Errorf("list upcoming races: %w", err)
	}
	return items, nil
}

func (s *RaceService) Past(ctx context.Context, query race.PastQuery) ([]race.Race, int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.Past")
	defer span.End()

	query.Limit = normalizeLimit(query.Limit, 10)
	query.Offset = maxOf(query.Offset, 0)
	items, total, err := s.raceRepo.ListPast(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("list past races: %w", err)
	}
	return items, total, nil
}

func (s *RaceService) SeasonStats(ctx context.Context, season int) (race.SeasonStats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.SeasonStats")
	defer span.End()

	if season < 1950 {
		return race.SeasonStats{}, fmt.Errorf("%w: invalid season %d", ErrInvalidInput, season)
	}

	byStatus, err := s.raceRepo.CountByStatus(ctx, season)
	if err != nil {
		return race.SeasonStats{}, fmt.Errorf("count races by status: %w", err)
	}

	stats := race.SeasonStats{Season: season, ByStatus: byStatus}
	for _, count := range byStatus {
		stats.Total += count
	}
	stats.Completed = byStatus[race.StatusCompleted]
	return stats, nil
}

func (s *RaceService) SeasonCalendar(ctx context.Context, season int) ([]CalendarMonth, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.SeasonCalendar")
	defer span.End()

	items, err := s.ListBySeason(ctx, season, "")
	if err != nil {
		return nil, err
	}

	months := make([]CalendarMonth, 0, 12)
	for _, item := range items {
		date := item.RaceDate.UTC()
		if n := len(months); n > 0 && months[n-1].Year == date.Year() && months[n-1].Month == date.Month() {
			months[n-1].Races = append(months[n-1].Races, item)
			continue
		}
		months = append(months, CalendarMonth{
			Year:  date.Year(),
			Month: date.Month(),
			Races: []race.Race{item},
		})
	}
	return months, nil
}

func (s *RaceService) CanPredict(ctx context.Context, raceID string) (CanPredictResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceService.CanPredict")
	defer span.End()

	item, err := s.getRace(ctx, raceID)
	if err != nil {
		return CanPredictResult{}, err
	}

	now := s.now().UTC()
	out := CanPredictResult{
		RaceID:   item.ID,
		Deadline: item.EffectiveDeadline(),
	}
	switch {
	case item.Status != race.StatusScheduled:
		out.Reason = fmt.Sprintf("race is %s", item.Status)
	case !now.Before(out.Deadline):
		out.Reason = "prediction deadline has passed"
	default:
		out.CanPredict = true
	}
	return out, nil
}

func (s *RaceService) getRace(ctx context.Context, raceID string) (race.Race, error) {
	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return race.Race{}, fmt.Errorf("%w: race id is required", ErrInvalidInput)
	}
	item, exists, err := s.raceRepo.GetByID(ctx, raceID)
	if err != nil {
		return race.Race{}, fmt.Errorf("get race by id: %w", err)
	}
	if !exists {
		return race.Race{}, fmt.Errorf("%w: race not found", ErrNotFound)
	}
	return item, nil
}

func utcOrNil(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	v := value.UTC()
	return &v
}
