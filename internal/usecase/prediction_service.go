package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/domain/pilot"
	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	idgen "github.com/gridpredict/gridpredict/internal/platform/id"
)

type PredictionPick struct {
	Position int
	PilotID  string
}

type SavePredictionInput struct {
	UserID   string
	RaceID   string
	LeagueID string
	Picks    []PredictionPick
}

type ListPredictionsInput struct {
	UserID string
	Status prediction.Status
	Limit  int
	Offset int
}

// activeMembershipChecker is what predictions need from league membership.
type activeMembershipChecker interface {
	RequireActiveMember(ctx context.Context, leagueID, userID string) (league.Member, error)
}

type PredictionService struct {
	predictionRepo prediction.Repository
	raceRepo       race.Repository
	pilotRepo      pilot.Repository
	membership     activeMembershipChecker
	idGen          idgen.Generator
	now            func() time.Time
}

func NewPredictionService(
	predictionRepo prediction.Repository,
	raceRepo race.Repository,
	pilotRepo pilot.Repository,
	membership activeMembershipChecker,
	idGen idgen.Generator,
) *PredictionService {
	return &PredictionService{
		predictionRepo: predictionRepo,
		raceRepo:       raceRepo,
		pilotRepo:      pilotRepo,
		membership:     membership,
		idGen:          idGen,
		now:            time.Now,
	}
}

// SaveDraft creates or replaces the caller's prediction for a race. An empty
// league id makes it a personal prediction outside any league. Replacing
// resets the prediction to draft until it is submitted again.
func (s *PredictionService) SaveDraft(ctx context.Context, input SavePredictionInput) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.SaveDraft")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.RaceID = strings.TrimSpace(input.RaceID)
	input.LeagueID = strings.TrimSpace(input.LeagueID)
	if input.UserID == "" || input.RaceID == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: user and race ids are required", ErrInvalidInput)
	}
	if len(input.Picks) == 0 {
		return prediction.Prediction{}, fmt.Errorf("%w: at least one pick is required", ErrInvalidInput)
	}
	if len(input.Picks) > race.MaxPosition {
		return prediction.Prediction{}, fmt.Errorf("%w: too many picks", ErrInvalidInput)
	}

	seenPositions := make(map[int]struct{}, len(input.Picks))
	seenPilots := make(map[string]struct{}, len(input.Picks))
	pilotIDs := make([]string, 0, len(input.Picks))
	for _, pick := range input.Picks {
		pilotID := strings.TrimSpace(pick.PilotID)
		if pilotID == "" {
			return prediction.Prediction{}, fmt.Errorf("%w: pick is missing a pilot id", ErrInvalidInput)
		}
		if pick.Position < race.MinPosition || pick.Position > race.MaxPosition {
			return prediction.Prediction{}, fmt.Errorf("%w: position %d is out of range", ErrInvalidInput, pick.Position)
		}
		if _, dup := seenPositions[pick.Position]; dup {
			return prediction.Prediction{}, fmt.Errorf("%w: duplicate position %d", ErrInvalidInput, pick.Position)
		}
		if _, dup := seenPilots[pilotID]; dup {
			return prediction.Prediction{}, fmt.Errorf("%w: duplicate pilot %s", ErrInvalidInput, pilotID)
		}
		seenPositions[pick.Position] = struct{}{}
		seenPilots[pilotID] = struct{}{}
		pilotIDs = append(pilotIDs, pilotID)
	}

	pilots, err := s.pilotRepo.GetByIDs(ctx, pilotIDs)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("load pilots for prediction: %w", err)
	}
	for _, pilotID := range pilotIDs {
		if _, ok := pilots[pilotID]; !ok {
			return prediction.Prediction{}, fmt.Errorf("%w: pilot %s does not exist", ErrInvalidInput, pilotID)
		}
	}

	raceItem, exists, err := s.raceRepo.GetByID(ctx, input.RaceID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get race by id: %w", err)
	}
	if !exists {
		return prediction.Prediction{}, fmt.Errorf("%w: race not found", ErrNotFound)
	}
	if !raceItem.AcceptsPredictions(s.now().UTC()) {
		return prediction.Prediction{}, fmt.Errorf("%w: race is not accepting predictions", ErrInvalidState)
	}

	if input.LeagueID != "" {
		if _, err := s.membership.RequireActiveMember(ctx, input.LeagueID, input.UserID); err != nil {
			return prediction.Prediction{}, err
		}
	}

	now := s.now().UTC()
	item, exists, err := s.predictionRepo.GetByUserRaceLeague(ctx, input.UserID, input.RaceID, input.LeagueID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get existing prediction: %w", err)
	}
	if exists {
		switch item.Status {
		case prediction.StatusDraft, prediction.StatusSubmitted:
		default:
			return prediction.Prediction{}, fmt.Errorf("%w: prediction is %s and can no longer change", ErrInvalidState, item.Status)
		}
	} else {
		predictionID, err := s.idGen.NewID()
		if err != nil {
			return prediction.Prediction{}, fmt.Errorf("generate prediction id: %w", err)
		}
		item = prediction.Prediction{
			ID:        predictionID,
			UserID:    input.UserID,
			RaceID:    input.RaceID,
			LeagueID:  input.LeagueID,
			CreatedAt: now,
		}
	}

	items := make([]prediction.Item, 0, len(input.Picks))
	for _, pick := range input.Picks {
		itemID, err := s.idGen.NewID()
		if err != nil {
			return prediction.Prediction{}, fmt.Errorf("generate prediction item id: %w", err)
		}
		items = append(items, prediction.Item{
			ID:           itemID,
			PredictionID: item.ID,
			Position:     pick.Position,
			PilotID:      strings.TrimSpace(pick.PilotID),
		})
	}

	item.Status = prediction.StatusDraft
	item.TotalPoints = 0
	item.CorrectPositions = 0
	item.TotalPositions = len(items)
	item.SubmittedAt = nil
	item.ScoredAt = nil
	item.UpdatedAt = now
	item.Items = items

	if err := s.predictionRepo.UpsertDraft(ctx, item); err != nil {
		return prediction.Prediction{}, fmt.Errorf("save prediction draft: %w", err)
	}
	return item, nil
}

func (s *PredictionService) Submit(ctx context.Context, userID, predictionID string) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Submit")
	defer span.End()

	userID = strings.TrimSpace(userID)
	predictionID = strings.TrimSpace(predictionID)
	if userID == "" || predictionID == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: user id and prediction id are required", ErrInvalidInput)
	}

	item, exists, err := s.predictionRepo.GetByID(ctx, predictionID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get prediction by id: %w", err)
	}
	if !exists || item.UserID != userID {
		return prediction.Prediction{}, fmt.Errorf("%w: prediction not found", ErrNotFound)
	}
	if item.Status != prediction.StatusDraft {
		return prediction.Prediction{}, fmt.Errorf("%w: only draft predictions can be submitted", ErrInvalidState)
	}

	raceItem, exists, err := s.raceRepo.GetByID(ctx, item.RaceID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get race by id: %w", err)
	}
	if !exists {
		return prediction.Prediction{}, fmt.Errorf("%w: race not found", ErrNotFound)
	}
	now := s.now().UTC()
	if !raceItem.AcceptsPredictions(now) {
		return prediction.Prediction{}, fmt.Errorf("%w: race is not accepting predictions", ErrInvalidState)
	}

	item.Status = prediction.StatusSubmitted
	item.SubmittedAt = &now
	item.UpdatedAt = now
	if err := s.predictionRepo.UpsertDraft(ctx, item); err != nil {
		return prediction.Prediction{}, fmt.Errorf("submit prediction: %w", err)
	}
	return item, nil
}

func (s *PredictionService) GetForRace(ctx context.Context, userID, raceID, leagueID string) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.GetForRace")
	defer span.End()

	userID = strings.TrimSpace(userID)
	raceID = strings.TrimSpace(raceID)
	leagueID = strings.TrimSpace(leagueID)
	if userID == "" || raceID == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: user and race ids are required", ErrInvalidInput)
	}

	item, exists, err := s.predictionRepo.GetByUserRaceLeague(ctx, userID, raceID, leagueID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get prediction: %w", err)
	}
	if !exists {
		return prediction.Prediction{}, fmt.Errorf("%w: prediction not found", ErrNotFound)
	}
	return item, nil
}

func (s *PredictionService) ListMine(ctx context.Context, input ListPredictionsInput) ([]prediction.Prediction, int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.ListMine")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return nil, 0, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if input.Status != "" && !prediction.ValidStatus(input.Status) {
		return nil, 0, fmt.Errorf("%w: unknown prediction status %q", ErrInvalidInput, input.Status)
	}

	items, total, err := s.predictionRepo.List(ctx, prediction.ListQuery{
		UserID: input.UserID,
		Status: input.Status,
		Limit:  normalizeLimit(input.Limit, 20),
		Offset: maxOf(input.Offset, 0),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list predictions: %w", err)
	}
	return items, total, nil
}
