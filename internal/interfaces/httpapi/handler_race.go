package httpapi

import (
	"net/http"
	"strings"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func (h *Handler) CreateRace(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateRace")
	defer span.End()

	if _, err := requireAdmin(ctx); err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createRaceRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	input, err := req.toInput()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.raceService.Create(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "create race failed", "season", req.Season, "round", req.Round, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, raceToDTO(created))
}

func (h *Handler) UpdateRace(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateRace")
	defer span.End()

	if _, err := requireAdmin(ctx); err != nil {
		writeError(ctx, w, err)
		return
	}

	raceID := strings.TrimSpace(r.PathValue("raceID"))
	var req updateRaceRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	input, err := req.toInput(raceID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.raceService.Update(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "update race failed", "race_id", raceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, raceToDTO(updated))
}

func (h *Handler) TransitionRace(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TransitionRace")
	defer span.End()

	if _, err := requireAdmin(ctx); err != nil {
		writeError(ctx, w, err)
		return
	}

	raceID := strings.TrimSpace(r.PathValue("raceID"))
	var req transitionRaceRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.raceService.TransitionStatus(ctx, raceID, race.Status(req.Status))
	if err != nil {
		h.logger.WarnContext(ctx, "transition race failed", "race_id", raceID, "target", req.Status, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, raceToDTO(updated))
}

func (h *Handler) RecordRaceResults(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordRaceResults")
	defer span.End()

	if _, err := requireAdmin(ctx); err != nil {
		writeError(ctx, w, err)
		return
	}

	raceID := strings.TrimSpace(r.PathValue("raceID"))
	var req recordResultsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	entries := make([]usecase.ResultEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		entries = append(entries, usecase.ResultEntry{
			PilotID:    entry.PilotID,
			Position:   entry.Position,
			Points:     entry.Points,
			Status:     race.ResultStatus(entry.Status),
			TimeOrGap:  entry.TimeOrGap,
			FastestLap: entry.FastestLap,
		})
	}

	recorded, err := h.raceService.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID:  raceID,
		Entries: entries,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record race results failed", "race_id", raceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, raceWithResultsToDTO(recorded))
}

func (h *Handler) GetRace(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRace")
	defer span.End()

	raceID := strings.TrimSpace(r.PathValue("raceID"))
	item, err := h.raceService.GetByID(ctx, raceID)
	if err != nil {
		h.logger.WarnContext(ctx, "get race failed", "race_id", raceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, raceToDTO(item))
}

func (h *Handler) GetRaceResults(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRaceResults")
	defer span.End()

	raceID := strings.TrimSpace(r.PathValue("raceID"))
	item, err := h.raceService.GetWithResults(ctx, raceID)
	if err != nil {
		h.logger.WarnContext(ctx, "get race results failed", "race_id", raceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, raceWithResultsToDTO(item))
}

func (h *Handler) CanPredictRace(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CanPredictRace")
	defer span.End()

	raceID := strings.TrimSpace(r.PathValue("raceID"))
	result, err := h.raceService.CanPredict(ctx, raceID)
	if err != nil {
		h.logger.WarnContext(ctx, "can-predict check failed", "race_id", raceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, canPredictDTO{
		RaceID:     result.RaceID,
		CanPredict: result.CanPredict,
		Reason:     result.Reason,
		Deadline:   formatTime(result.Deadline),
	})
}

func (h *Handler) NextRace(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.NextRace")
	defer span.End()

	item, exists, err := h.raceService.Next(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get next race failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	if !exists {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, raceToDTO(item))
}

func (h *Handler) UpcomingRaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpcomingRaces")
	defer span.End()

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	races, err := h.raceService.Upcoming(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list upcoming races failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, racesToDTOs(races))
}

func (h *Handler) PastRaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PastRaces")
	defer span.End()

	season, err := queryInt(r, "season", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	races, total, err := h.raceService.Past(ctx, race.PastQuery{
		Season: season,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list past races failed", "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, pagedDTO{
		Items:  racesToDTOs(races),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *Handler) SeasonRaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SeasonRaces")
	defer span.End()

	season, err := pathInt(r, "season")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	status := race.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	races, err := h.raceService.ListBySeason(ctx, season, status)
	if err != nil {
		h.logger.WarnContext(ctx, "list season races failed", "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, racesToDTOs(races))
}

func (h *Handler) SeasonCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SeasonCalendar")
	defer span.End()

	season, err := pathInt(r, "season")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	months, err := h.raceService.SeasonCalendar(ctx, season)
	if err != nil {
		h.logger.WarnContext(ctx, "season calendar failed", "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]calendarMonthDTO, 0, len(months))
	for _, month := range months {
		items = append(items, calendarMonthDTO{
			Year:  month.Year,
			Month: int(month.Month),
			Races: racesToDTOs(month.Races),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) SeasonStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SeasonStats")
	defer span.End()

	season, err := pathInt(r, "season")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	stats, err := h.raceService.SeasonStats(ctx, season)
	if err != nil {
		h.logger.WarnContext(ctx, "season stats failed", "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}

	writeSuccess(ctx, w, http.StatusOK, seasonStatsDTO{
		Season:    stats.Season,
		Total:     stats.Total,
		Completed: stats.Completed,
		ByStatus:  byStatus,
	})
}

type createRaceRequest struct {
	Name               string  `json:"name" validate:"required,max=150"`
	OfficialName       string  `json:"official_name" validate:"max=250"`
	Circuit            string  `json:"circuit" validate:"max=150"`
	Country            string  `json:"country" validate:"max=100"`
	City               string  `json:"city" validate:"max=100"`
	FlagURL            string  `json:"flag_url" validate:"omitempty,url"`
	CircuitImageURL    string  `json:"circuit_image_url" validate:"omitempty,url"`
	Round              int     `json:"round" validate:"required,min=1"`
	Season             int     `json:"season" validate:"required,min=1950"`
	RaceDate           string  `json:"race_date" validate:"required"`
	QualifyingDate     *string `json:"qualifying_date"`
	SprintDate         *string `json:"sprint_date"`
	PredictionDeadline *string `json:"prediction_deadline"`
	Laps               int     `json:"laps" validate:"min=0"`
	CircuitLength      float64 `json:"circuit_length" validate:"min=0"`
	Timezone           string  `json:"timezone" validate:"max=64"`
	IsSprint           bool    `json:"is_sprint"`
}

func (req createRaceRequest) toInput() (usecase.CreateRaceInput, error) {
	raceDate, err := parseTimeRequired(req.RaceDate, "race_date")
	if err != nil {
		return usecase.CreateRaceInput{}, err
	}
	qualifyingDate, err := parseTimePtr(req.QualifyingDate, "qualifying_date")
	if err != nil {
		return usecase.CreateRaceInput{}, err
	}
	sprintDate, err := parseTimePtr(req.SprintDate, "sprint_date")
	if err != nil {
		return usecase.CreateRaceInput{}, err
	}
	deadline, err := parseTimePtr(req.PredictionDeadline, "prediction_deadline")
	if err != nil {
		return usecase.CreateRaceInput{}, err
	}

	return usecase.CreateRaceInput{
		Name:               req.Name,
		OfficialName:       req.OfficialName,
		Circuit:            req.Circuit,
		Country:            req.Country,
		City:               req.City,
		FlagURL:            req.FlagURL,
		CircuitImageURL:    req.CircuitImageURL,
		Round:              req.Round,
		Season:             req.Season,
		RaceDate:           raceDate,
		QualifyingDate:     qualifyingDate,
		SprintDate:         sprintDate,
		PredictionDeadline: deadline,
		Laps:               req.Laps,
		CircuitLength:      req.CircuitLength,
		Timezone:           req.Timezone,
		IsSprint:           req.IsSprint,
	}, nil
}

type updateRaceRequest struct {
	Name               *string  `json:"name"`
	OfficialName       *string  `json:"official_name"`
	Circuit            *string  `json:"circuit"`
	Country            *string  `json:"country"`
	City               *string  `json:"city"`
	RaceDate           *string  `json:"race_date"`
	QualifyingDate     *string  `json:"qualifying_date"`
	SprintDate         *string  `json:"sprint_date"`
	PredictionDeadline *string  `json:"prediction_deadline"`
	Laps               *int     `json:"laps"`
	CircuitLength      *float64 `json:"circuit_length"`
	Timezone           *string  `json:"timezone"`
	IsSprint           *bool    `json:"is_sprint"`
}

func (req updateRaceRequest) toInput(raceID string) (usecase.UpdateRaceInput, error) {
	raceDate, err := parseTimePtr(req.RaceDate, "race_date")
	if err != nil {
		return usecase.UpdateRaceInput{}, err
	}
	qualifyingDate, err := parseTimePtr(req.QualifyingDate, "qualifying_date")
	if err != nil {
		return usecase.UpdateRaceInput{}, err
	}
	sprintDate, err := parseTimePtr(req.SprintDate, "sprint_date")
	if err != nil {
		return usecase.UpdateRaceInput{}, err
	}
	deadline, err := parseTimePtr(req.PredictionDeadline, "prediction_deadline")
	if err != nil {
		return usecase.UpdateRaceInput{}, err
	}

	return usecase.UpdateRaceInput{
		RaceID:             raceID,
		Name:               req.Name,
		OfficialName:       req.OfficialName,
		Circuit:            req.Circuit,
		Country:            req.Country,
		City:               req.City,
		RaceDate:           raceDate,
		QualifyingDate:     qualifyingDate,
		SprintDate:         sprintDate,
		PredictionDeadline: deadline,
		Laps:               req.Laps,
		CircuitLength:      req.CircuitLength,
		Timezone:           req.Timezone,
		IsSprint:           req.IsSprint,
	}, nil
}

type transitionRaceRequest struct {
	Status string `json:"status" validate:"required"`
}

type resultEntryRequest struct {
	PilotID    string  `json:"pilot_id" validate:"required"`
	Position   int     `json:"position" validate:"required,min=1,max=22"`
	Points     float64 `json:"points" validate:"min=0"`
	Status     string  `json:"status" validate:"required,oneof=finished dnf dsq dns"`
	TimeOrGap  string  `json:"time_or_gap" validate:"max=32"`
	FastestLap bool    `json:"fastest_lap"`
}

type recordResultsRequest struct {
	Entries []resultEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

type raceDTO struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	OfficialName       string  `json:"official_name,omitempty"`
	Circuit            string  `json:"circuit,omitempty"`
	Country            string  `json:"country,omitempty"`
	City               string  `json:"city,omitempty"`
	FlagURL            string  `json:"flag_url,omitempty"`
	CircuitImageURL    string  `json:"circuit_image_url,omitempty"`
	Round              int     `json:"round"`
	Season             int     `json:"season"`
	RaceDate           string  `json:"race_date"`
	QualifyingDate     *string `json:"qualifying_date,omitempty"`
	SprintDate         *string `json:"sprint_date,omitempty"`
	PredictionDeadline string  `json:"prediction_deadline"`
	Status             string  `json:"status"`
	Laps               int     `json:"laps,omitempty"`
	CircuitLength      float64 `json:"circuit_length,omitempty"`
	Timezone           string  `json:"timezone,omitempty"`
	IsSprint           bool    `json:"is_sprint"`
}

type raceResultDTO struct {
	PilotID    string  `json:"pilot_id"`
	PilotName  string  `json:"pilot_name,omitempty"`
	Acronym    string  `json:"acronym,omitempty"`
	Team       string  `json:"team,omitempty"`
	Position   int     `json:"position"`
	Points     float64 `json:"points"`
	Status     string  `json:"status"`
	TimeOrGap  string  `json:"time_or_gap,omitempty"`
	FastestLap bool    `json:"fastest_lap"`
}

type raceWithResultsDTO struct {
	Race    raceDTO         `json:"race"`
	Results []raceResultDTO `json:"results"`
}

type canPredictDTO struct {
	RaceID     string `json:"race_id"`
	CanPredict bool   `json:"can_predict"`
	Reason     string `json:"reason,omitempty"`
	Deadline   string `json:"deadline"`
}

type calendarMonthDTO struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Races []raceDTO `json:"races"`
}

type seasonStatsDTO struct {
	Season    int            `json:"season"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	ByStatus  map[string]int `json:"by_status"`
}

func raceToDTO(v race.Race) raceDTO {
	return raceDTO{
		ID:                 v.ID,
		Name:               v.Name,
		OfficialName:       v.OfficialName,
		Circuit:            v.Circuit,
		Country:            v.Country,
		City:               v.City,
		FlagURL:            v.FlagURL,
		CircuitImageURL:    v.CircuitImageURL,
		Round:              v.Round,
		Season:             v.Season,
		RaceDate:           formatTime(v.RaceDate),
		QualifyingDate:     formatTimePtr(v.QualifyingDate),
		SprintDate:         formatTimePtr(v.SprintDate),
		PredictionDeadline: formatTime(v.EffectiveDeadline()),
		Status:             string(v.Status),
		Laps:               v.Laps,
		CircuitLength:      v.CircuitLength,
		Timezone:           v.Timezone,
		IsSprint:           v.IsSprint,
	}
}

func racesToDTOs(races []race.Race) []raceDTO {
	items := make([]raceDTO, 0, len(races))
	for _, item := range races {
		items = append(items, raceToDTO(item))
	}
	return items
}

func raceWithResultsToDTO(v usecase.RaceWithResults) raceWithResultsDTO {
	results := make([]raceResultDTO, 0, len(v.Results))
	for _, result := range v.Results {
		results = append(results, raceResultToDTO(result, v.Pilots))
	}
	return raceWithResultsDTO{
		Race:    raceToDTO(v.Race),
		Results: results,
	}
}

func raceResultToDTO(v race.Result, pilots map[string]pilot.Pilot) raceResultDTO {
	dto := raceResultDTO{
		PilotID:    v.PilotID,
		Position:   v.Position,
		Points:     v.Points,
		Status:     string(v.Status),
		TimeOrGap:  v.TimeOrGap,
		FastestLap: v.FastestLap,
	}
	if item, ok := pilots[v.PilotID]; ok {
		dto.PilotName = item.Name
		dto.Acronym = item.Acronym
		dto.Team = item.Team
	}
	return dto
}
