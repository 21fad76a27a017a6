package httpapi

import (
	"net/http"

	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	"github.com/gridpredict/gridpredict/internal/domain/userstats"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDashboard")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	dashboard, err := h.dashboardService.Get(ctx, principal.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get dashboard failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, dashboardToDTO(dashboard))
}

func (h *Handler) ListPilots(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPilots")
	defer span.End()

	pilots, err := h.pilotService.List(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list pilots failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]pilotDTO, 0, len(pilots))
	for _, item := range pilots {
		items = append(items, pilotToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type pilotDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
	Number  string `json:"number,omitempty"`
	Team    string `json:"team,omitempty"`
}

type userStatsDTO struct {
	TotalPoints               int     `json:"total_points"`
	TotalPredictions          int     `json:"total_predictions"`
	ScoredPredictions         int     `json:"scored_predictions"`
	CurrentStreak             int     `json:"current_streak"`
	BestStreak                int     `json:"best_streak"`
	PerfectPredictions        int     `json:"perfect_predictions"`
	TotalCorrectPositions     int     `json:"total_correct_positions"`
	AvgPointsPerRace          float64 `json:"avg_points_per_race"`
	AvgCorrectPositions       float64 `json:"avg_correct_positions"`
	MostPickedPilotID         string  `json:"most_picked_pilot_id,omitempty"`
	MostPickedCount           int     `json:"most_picked_count,omitempty"`
	BestPerformingPilotID     string  `json:"best_performing_pilot_id,omitempty"`
	BestPerformingSuccessRate float64 `json:"best_performing_success_rate,omitempty"`
	LastCalculatedAt          string  `json:"last_calculated_at"`
}

type nextRaceDTO struct {
	Race             raceDTO `json:"race"`
	CanPredict       bool    `json:"can_predict"`
	Deadline         string  `json:"deadline"`
	AlreadyPredicted bool    `json:"already_predicted"`
}

type dashboardDTO struct {
	Stats    userStatsDTO       `json:"stats"`
	NextRace *nextRaceDTO       `json:"next_race,omitempty"`
	Recent   []predictionDTO    `json:"recent_predictions"`
	Leagues  []leagueDetailsDTO `json:"leagues"`
}

func pilotToDTO(v pilot.Pilot) pilotDTO {
	return pilotDTO{
		ID:      v.ID,
		Name:    v.Name,
		Acronym: v.Acronym,
		Number:  v.Number,
		Team:    v.Team,
	}
}

func userStatsToDTO(v userstats.UserStats) userStatsDTO {
	return userStatsDTO{
		TotalPoints:               v.TotalPoints,
		TotalPredictions:          v.TotalPredictions,
		ScoredPredictions:         v.ScoredPredictions,
		CurrentStreak:             v.CurrentStreak,
		BestStreak:                v.BestStreak,
		PerfectPredictions:        v.PerfectPredictions,
		TotalCorrectPositions:     v.TotalCorrectPositions,
		AvgPointsPerRace:          v.AvgPointsPerRace,
		AvgCorrectPositions:       v.AvgCorrectPositions,
		MostPickedPilotID:         v.MostPickedPilotID,
		MostPickedCount:           v.MostPickedCount,
		BestPerformingPilotID:     v.BestPerformingPilotID,
		BestPerformingSuccessRate: v.BestPerformingSuccessRate,
		LastCalculatedAt:          formatTime(v.LastCalculatedAt),
	}
}

func dashboardToDTO(v usecase.Dashboard) dashboardDTO {
	recent := make([]predictionDTO, 0, len(v.Recent))
	for _, item := range v.Recent {
		recent = append(recent, predictionToDTO(item))
	}

	leagues := make([]leagueDetailsDTO, 0, len(v.Leagues))
	for _, item := range v.Leagues {
		leagues = append(leagues, leagueDetailsToDTO(item, memberCanSeeInvite(item.Viewer)))
	}

	dto := dashboardDTO{
		Stats:   userStatsToDTO(v.Stats),
		Recent:  recent,
		Leagues: leagues,
	}
	if v.NextRace != nil {
		dto.NextRace = &nextRaceDTO{
			Race:             raceToDTO(v.NextRace.Race),
			CanPredict:       v.NextRace.CanPredict,
			Deadline:         formatTime(v.NextRace.Deadline),
			AlreadyPredicted: v.NextRace.AlreadyPredicted,
		}
	}
	return dto
}
