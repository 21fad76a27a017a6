package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/domain/userstats"
	"github.com/gridpredict/gridpredict/internal/platform/logging"
	"github.com/gridpredict/gridpredict/internal/platform/resilience"
)

const (
	statsMaxAge          = time.Hour
	recentPredictionsMax = 5
	bestPilotMinPicks    = 3
)

// NextRaceInfo decorates the upcoming race with the viewer's prediction state.
type NextRaceInfo struct {
	Race             race.Race
	CanPredict       bool
	Deadline         time.Time
	AlreadyPredicted bool
}

type Dashboard struct {
	Stats    userstats.UserStats
	NextRace *NextRaceInfo
	Recent   []prediction.Prediction
	Leagues  []league.Details
}

// leagueDetailsLister is what the dashboard needs from leagues.
type leagueDetailsLister interface {
	ListMine(ctx context.Context, userID string) ([]league.Details, error)
}

type DashboardService struct {
	statsRepo      userstats.Repository
	predictionRepo prediction.Repository
	raceRepo       race.Repository
	leagues        leagueDetailsLister
	flight         resilience.SingleFlight
	logger         *logging.Logger
	now            func() time.Time
}

func NewDashboardService(
	statsRepo userstats.Repository,
	predictionRepo prediction.Repository,
	raceRepo race.Repository,
	leagues leagueDetailsLister,
	logger *logging.Logger,
) *DashboardService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DashboardService{
		statsRepo:      statsRepo,
		predictionRepo: predictionRepo,
		raceRepo:       raceRepo,
		leagues:        leagues,
		logger:         logger,
		now:            time.Now,
	}
}

// Get assembles the dashboard. The independent sections are fetched
// concurrently; user stats are recomputed lazily when stale.
func (s *DashboardService) Get(ctx context.Context, userID string) (Dashboard, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DashboardService.Get")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Dashboard{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	var out Dashboard
	group := pool.New().WithContext(ctx).WithCancelOnError()

	group.Go(func(ctx context.Context) error {
		stats, err := s.ensureStats(ctx, userID)
		if err != nil {
			return fmt.Errorf("ensure user stats: %w", err)
		}
		out.Stats = stats
		return nil
	})
	group.Go(func(ctx context.Context) error {
		info, err := s.nextRaceInfo(ctx, userID)
		if err != nil {
			return fmt.Errorf("resolve next race: %w", err)
		}
		out.NextRace = info
		return nil
	})
	group.Go(func(ctx context.Context) error {
		recent, err := s.predictionRepo.ListScoredByUser(ctx, userID, recentPredictionsMax)
		if err != nil {
			return fmt.Errorf("list recent predictions: %w", err)
		}
		out.Recent = recent
		return nil
	})
	group.Go(func(ctx context.Context) error {
		leagues, err := s.leagues.ListMine(ctx, userID)
		if err != nil {
			return fmt.Errorf("list viewer leagues: %w", err)
		}
		out.Leagues = leagues
		return nil
	})

	if err := group.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}

// ensureStats returns the cached aggregate, recomputing it when missing or
// older than statsMaxAge. Concurrent recomputes for one user collapse into a
// single pass.
func (s *DashboardService) ensureStats(ctx context.Context, userID string) (userstats.UserStats, error) {
	now := s.now().UTC()

	stats, exists, err := s.statsRepo.Get(ctx, userID)
	if err != nil {
		return userstats.UserStats{}, fmt.Errorf("get user stats: %w", err)
	}
	if exists && !stats.Stale(now, statsMaxAge) {
		return stats, nil
	}

	out, err, shared := s.flight.Do("userstats:"+userID, func() (any, error) {
		return s.recomputeStats(ctx, userID, stats, exists, now)
	})
	if err != nil {
		return userstats.UserStats{}, err
	}
	if shared {
		s.logger.InfoContext(ctx, "user stats recompute coalesced", "user_id", userID)
	}
	return out.(userstats.UserStats), nil
}

func (s *DashboardService) recomputeStats(ctx context.Context, userID string, previous userstats.UserStats, hadPrevious bool, now time.Time) (userstats.UserStats, error) {
	scored, err := s.predictionRepo.ListScoredByUser(ctx, userID, 0)
	if err != nil {
		return userstats.UserStats{}, fmt.Errorf("list scored predictions: %w", err)
	}
	_, totalPredictions, err := s.predictionRepo.List(ctx, prediction.ListQuery{UserID: userID, Limit: 1})
	if err != nil {
		return userstats.UserStats{}, fmt.Errorf("count predictions: %w", err)
	}

	stats := userstats.UserStats{
		UserID:           userID,
		TotalPredictions: totalPredictions,
		LastCalculatedAt: now,
		CacheVersion:     1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if hadPrevious {
		stats.CacheVersion = previous.CacheVersion + 1
		stats.CreatedAt = previous.CreatedAt
	}

	pointsNewestFirst := make([]int, 0, len(scored))
	for _, item := range scored {
		stats.ScoredPredictions++
		stats.TotalPoints += item.TotalPoints
		stats.TotalCorrectPositions += item.CorrectPositions
		if item.Perfect() {
			stats.PerfectPredictions++
		}
		pointsNewestFirst = append(pointsNewestFirst, item.TotalPoints)
	}
	stats.CurrentStreak, stats.BestStreak = computeStreaks(pointsNewestFirst)
	if stats.ScoredPredictions > 0 {
		stats.AvgPointsPerRace = float64(stats.TotalPoints) / float64(stats.ScoredPredictions)
		stats.AvgCorrectPositions = float64(stats.TotalCorrectPositions) / float64(stats.ScoredPredictions)
	}

	if picked, ok, err := s.predictionRepo.MostPickedPilot(ctx, userID); err != nil {
		return userstats.UserStats{}, fmt.Errorf("resolve most picked pilot: %w", err)
	} else if ok {
		stats.MostPickedPilotID = picked.PilotID
		stats.MostPickedCount = picked.Count
	}
	if best, ok, err := s.predictionRepo.BestPerformingPilot(ctx, userID, bestPilotMinPicks); err != nil {
		return userstats.UserStats{}, fmt.Errorf("resolve best performing pilot: %w", err)
	} else if ok {
		stats.BestPerformingPilotID = best.PilotID
		stats.BestPerformingSuccessRate = best.SuccessRate
	}

	if err := s.statsRepo.Upsert(ctx, stats); err != nil {
		return userstats.UserStats{}, fmt.Errorf("store user stats: %w", err)
	}
	return stats, nil
}

func (s *DashboardService) nextRaceInfo(ctx context.Context, userID string) (*NextRaceInfo, error) {
	item, exists, err := s.raceRepo.NextScheduled(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("get next race: %w", err)
	}
	if !exists {
		return nil, nil
	}

	predicted, err := s.predictionRepo.HasForRace(ctx, userID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing prediction: %w", err)
	}

	return &NextRaceInfo{
		Race:             item,
		CanPredict:       item.AcceptsPredictions(s.now().UTC()),
		Deadline:         item.EffectiveDeadline(),
		AlreadyPredicted: predicted,
	}, nil
}
