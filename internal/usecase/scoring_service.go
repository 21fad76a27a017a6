package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/platform/logging"
)

const (
	defaultExactPoints    = 10
	defaultNearMissPoints = 3
)

// PointsPolicy awards points for one predicted position given the actual
// finishing position. actual <= 0 means the pilot has no recorded result.
type PointsPolicy func(predicted, actual int) (points int, correct bool)

// DefaultPointsPolicy: exact position 10, off by one 3, otherwise 0.
func DefaultPointsPolicy(predicted, actual int) (int, bool) {
	if actual <= 0 {
		return 0, false
	}
	if predicted == actual {
		return defaultExactPoints, true
	}
	diff := actual - predicted
	if diff == 1 || diff == -1 {
		return defaultNearMissPoints, false
	}
	return 0, false
}

type ScoringService struct {
	predictionRepo prediction.Repository
	raceRepo       race.Repository
	leagueRepo     league.Repository
	policy         PointsPolicy
	pool           *ants.Pool
	logger         *logging.Logger
	now            func() time.Time
}

func NewScoringService(
	predictionRepo prediction.Repository,
	raceRepo race.Repository,
	leagueRepo league.Repository,
	policy PointsPolicy,
	poolSize int,
	logger *logging.Logger,
) (*ScoringService, error) {
	if policy == nil {
		policy = DefaultPointsPolicy
	}
	if logger == nil {
		logger = logging.Default()
	}
	if poolSize < 1 {
		poolSize = 8
	}

	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create scoring worker pool: %w", err)
	}

	return &ScoringService{
		predictionRepo: predictionRepo,
		raceRepo:       raceRepo,
		leagueRepo:     leagueRepo,
		policy:         policy,
		pool:           pool,
		logger:         logger,
		now:            time.Now,
	}, nil
}

func (s *ScoringService) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// ScoreRace scores every outstanding prediction of a race against its
// recorded results and rebuilds the affected league member aggregates.
// Rescoring an already scored race recomputes everything.
func (s *ScoringService) ScoreRace(ctx context.Context, raceID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoringService.ScoreRace")
	defer span.End()

	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return fmt.Errorf("%w: race id is required", ErrInvalidInput)
	}

	results, err := s.raceRepo.ListResults(ctx, raceID)
	if err != nil {
		return fmt.Errorf("list results for scoring: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("%w: race has no recorded results", ErrInvalidState)
	}
	positionByPilot := make(map[string]int, len(results))
	for _, result := range results {
		positionByPilot[result.PilotID] = result.Position
	}

	items, err := s.predictionRepo.ListForScoring(ctx, raceID, true)
	if err != nil {
		return fmt.Errorf("list predictions for scoring: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	now := s.now().UTC()

	type memberKey struct {
		userID   string
		leagueID string
	}
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failed   int
		affected = make(map[memberKey]struct{}, len(items))
	)
	for i := range items {
		item := items[i]
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			if err := s.scorePrediction(ctx, item, positionByPilot, now); err != nil {
				s.logger.ErrorContext(ctx, "score prediction failed",
					"prediction_id", item.ID,
					"race_id", raceID,
					"error", err,
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			// Personal predictions have no league member to update.
			if item.LeagueID == "" {
				return
			}
			mu.Lock()
			affected[memberKey{userID: item.UserID, leagueID: item.LeagueID}] = struct{}{}
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			return fmt.Errorf("submit scoring task: %w", submitErr)
		}
	}
	wg.Wait()

	keys := make([]memberKey, 0, len(affected))
	for key := range affected {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].leagueID != keys[j].leagueID {
			return keys[i].leagueID < keys[j].leagueID
		}
		return keys[i].userID < keys[j].userID
	})
	for _, key := range keys {
		if err := s.rebuildMemberAggregates(ctx, key.userID, key.leagueID, now); err != nil {
			return fmt.Errorf("rebuild aggregates user=%s league=%s: %w", key.userID, key.leagueID, err)
		}
	}

	s.logger.InfoContext(ctx, "race scored",
		"race_id", raceID,
		"predictions", len(items),
		"failed", failed,
		"members_updated", len(keys),
	)
	return nil
}

func (s *ScoringService) scorePrediction(ctx context.Context, item prediction.Prediction, positionByPilot map[string]int, now time.Time) error {
	totalPoints := 0
	correctPositions := 0
	for i := range item.Items {
		pick := &item.Items[i]
		actual := positionByPilot[pick.PilotID]
		points, correct := s.policy(pick.Position, actual)

		pick.ActualPosition = actual
		if actual > 0 {
			pick.PositionDiff = actual - pick.Position
		} else {
			pick.PositionDiff = 0
		}
		pick.PointsEarned = points
		pick.IsCorrect = correct

		totalPoints += points
		if correct {
			correctPositions++
		}
	}

	item.TotalPoints = totalPoints
	item.CorrectPositions = correctPositions
	item.Status = prediction.StatusScored
	item.ScoredAt = &now
	item.UpdatedAt = now

	if err := s.predictionRepo.SaveScore(ctx, item); err != nil {
		return fmt.Errorf("save prediction score: %w", err)
	}
	return nil
}

// rebuildMemberAggregates recomputes a member's points, hit counts and
// streaks from their scored predictions in that league.
func (s *ScoringService) rebuildMemberAggregates(ctx context.Context, userID, leagueID string, now time.Time) error {
	member, exists, err := s.leagueRepo.GetMember(ctx, leagueID, userID)
	if err != nil {
		return fmt.Errorf("get league member: %w", err)
	}
	if !exists {
		// Prediction from a membership that no longer exists; nothing to update.
		return nil
	}

	scored, err := s.predictionRepo.ListScoredByUserLeague(ctx, userID, leagueID)
	if err != nil {
		return fmt.Errorf("list scored predictions: %w", err)
	}

	totalPoints := 0
	correctPositions := 0
	pointsNewestFirst := make([]int, 0, len(scored))
	for _, item := range scored {
		totalPoints += item.TotalPoints
		correctPositions += item.CorrectPositions
		pointsNewestFirst = append(pointsNewestFirst, item.TotalPoints)
	}
	current, best := computeStreaks(pointsNewestFirst)

	member.TotalPoints = totalPoints
	member.PredictionsCount = len(scored)
	member.CorrectPositions = correctPositions
	member.CurrentStreak = current
	member.BestStreak = best
	member.UpdatedAt = now
	if err := s.leagueRepo.UpdateMember(ctx, member); err != nil {
		return fmt.Errorf("update member aggregates: %w", err)
	}
	return nil
}

// computeStreaks walks per-race points newest first. The current streak is
// the run of scoring races ending at the most recent one; the best streak is
// the longest run anywhere in the history.
func computeStreaks(pointsNewestFirst []int) (current, best int) {
	temp := 0
	atHead := true
	for _, points := range pointsNewestFirst {
		if points > 0 {
			temp++
			if temp > best {
				best = temp
			}
			if atHead {
				current = temp
			}
			continue
		}
		temp = 0
		atHead = false
	}
	return current, best
}
