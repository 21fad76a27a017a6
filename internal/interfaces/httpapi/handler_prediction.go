package httpapi

import (
	"net/http"
	"strings"

	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func (h *Handler) SavePrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SavePrediction")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req savePredictionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	picks := make([]usecase.PredictionPick, 0, len(req.Picks))
	for _, pick := range req.Picks {
		picks = append(picks, usecase.PredictionPick{
			Position: pick.Position,
			PilotID:  pick.PilotID,
		})
	}

	saved, err := h.predictionService.SaveDraft(ctx, usecase.SavePredictionInput{
		UserID:   principal.UserID,
		RaceID:   req.RaceID,
		LeagueID: req.LeagueID,
		Picks:    picks,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save prediction failed", "user_id", principal.UserID, "race_id", req.RaceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, predictionToDTO(saved))
}

func (h *Handler) SubmitPrediction(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitPrediction")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	predictionID := strings.TrimSpace(r.PathValue("predictionID"))
	submitted, err := h.predictionService.Submit(ctx, principal.UserID, predictionID)
	if err != nil {
		h.logger.WarnContext(ctx, "submit prediction failed", "prediction_id", predictionID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, predictionToDTO(submitted))
}

func (h *Handler) GetPredictionForRace(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPredictionForRace")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	raceID := strings.TrimSpace(r.PathValue("raceID"))
	leagueID := strings.TrimSpace(r.URL.Query().Get("league_id"))

	item, err := h.predictionService.GetForRace(ctx, principal.UserID, raceID, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get prediction failed", "race_id", raceID, "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, predictionToDTO(item))
}

func (h *Handler) ListMyPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyPredictions")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, total, err := h.predictionService.ListMine(ctx, usecase.ListPredictionsInput{
		UserID: principal.UserID,
		Status: prediction.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list predictions failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	dtos := make([]predictionDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, predictionToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, pagedDTO{
		Items:  dtos,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

type predictionPickRequest struct {
	Position int    `json:"position" validate:"required,min=1,max=22"`
	PilotID  string `json:"pilot_id" validate:"required"`
}

type savePredictionRequest struct {
	RaceID string `json:"race_id" validate:"required"`
	// Empty for a personal prediction outside any league.
	LeagueID string                  `json:"league_id"`
	Picks    []predictionPickRequest `json:"picks" validate:"required,min=1,dive"`
}

type predictionItemDTO struct {
	Position       int    `json:"position"`
	PilotID        string `json:"pilot_id"`
	PointsEarned   int    `json:"points_earned"`
	IsCorrect      bool   `json:"is_correct"`
	ActualPosition int    `json:"actual_position,omitempty"`
	PositionDiff   int    `json:"position_diff,omitempty"`
}

type predictionDTO struct {
	ID               string              `json:"id"`
	RaceID           string              `json:"race_id"`
	LeagueID         string              `json:"league_id,omitempty"`
	Status           string              `json:"status"`
	TotalPoints      int                 `json:"total_points"`
	CorrectPositions int                 `json:"correct_positions"`
	TotalPositions   int                 `json:"total_positions"`
	SubmittedAt      *string             `json:"submitted_at,omitempty"`
	ScoredAt         *string             `json:"scored_at,omitempty"`
	Items            []predictionItemDTO `json:"items"`
}

func predictionToDTO(v prediction.Prediction) predictionDTO {
	items := make([]predictionItemDTO, 0, len(v.Items))
	for _, item := range v.Items {
		items = append(items, predictionItemDTO{
			Position:       item.Position,
			PilotID:        item.PilotID,
			PointsEarned:   item.PointsEarned,
			IsCorrect:      item.IsCorrect,
			ActualPosition: item.ActualPosition,
			PositionDiff:   item.PositionDiff,
		})
	}

	return predictionDTO{
		ID:               v.ID,
		RaceID:           v.RaceID,
		LeagueID:         v.LeagueID,
		Status:           string(v.Status),
		TotalPoints:      v.TotalPoints,
		CorrectPositions: v.CorrectPositions,
		TotalPositions:   v.TotalPositions,
		SubmittedAt:      formatTimePtr(v.SubmittedAt),
		ScoredAt:         formatTimePtr(v.ScoredAt),
		Items:            items,
	}
}
