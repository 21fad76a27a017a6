package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/infrastructure/repository/memory"
	idgen "github.com/gridpredict/gridpredict/internal/platform/id"
	"github.com/gridpredict/gridpredict/internal/platform/logging"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

// openRace is a scheduled race whose deadline is far enough out that
// predictions stay open for the duration of any test run.
func openRace(id string, round int) race.Race {
	raceDate := time.Now().UTC().Add(30 * 24 * time.Hour)
	qualifying := raceDate.Add(-22 * time.Hour)
	return race.Race{
		ID:             id,
		Name:           "Test Grand Prix",
		Circuit:        "Test Circuit",
		Country:        "Testland",
		Round:          round,
		Season:         raceDate.Year(),
		RaceDate:       raceDate,
		QualifyingDate: &qualifying,
		Status:         race.StatusScheduled,
	}
}

// closedRace is a scheduled race whose deadline already passed.
func closedRace(id string, round int) race.Race {
	item := openRace(id, round)
	raceDate := time.Now().UTC().Add(-2 * time.Hour)
	qualifying := raceDate.Add(-22 * time.Hour)
	item.RaceDate = raceDate
	item.QualifyingDate = &qualifying
	return item
}

type fixture struct {
	races       *memory.RaceRepository
	pilots      *memory.PilotRepository
	leagues     *memory.LeagueRepository
	predictions *memory.PredictionRepository
	stats       *memory.UserStatsRepository

	leagueSvc     *usecase.LeagueService
	scoringSvc    *usecase.ScoringService
	raceSvc       *usecase.RaceService
	predictionSvc *usecase.PredictionService
	dashboardSvc  *usecase.DashboardService
}

func newFixture(t *testing.T, races ...race.Race) *fixture {
	t.Helper()

	f := &fixture{
		races:   memory.NewRaceRepository(races),
		pilots:  memory.NewPilotRepository(memory.SeedPilots()),
		leagues: memory.NewLeagueRepository(),
		stats:   memory.NewUserStatsRepository(),
	}
	f.predictions = memory.NewPredictionRepository(f.races)

	gen := idgen.NewRandomGenerator()
	logger := logging.NewNop()

	f.leagueSvc = usecase.NewLeagueService(f.leagues, gen)

	scoringSvc, err := usecase.NewScoringService(f.predictions, f.races, f.leagues, nil, 4, logger)
	require.NoError(t, err)
	t.Cleanup(scoringSvc.Close)
	f.scoringSvc = scoringSvc

	f.raceSvc = usecase.NewRaceService(f.races, f.pilots, f.predictions, scoringSvc, gen, logger)
	f.predictionSvc = usecase.NewPredictionService(f.predictions, f.races, f.pilots, f.leagueSvc, gen)
	f.dashboardSvc = usecase.NewDashboardService(f.stats, f.predictions, f.races, f.leagueSvc, logger)
	return f
}

func (f *fixture) createLeague(t *testing.T, userID, name string) league.Details {
	t.Helper()
	details, err := f.leagueSvc.Create(context.Background(), usecase.CreateLeagueInput{
		UserID: userID,
		Name:   name,
	})
	require.NoError(t, err)
	return details
}

func (f *fixture) joinLeague(t *testing.T, userID, leagueID string) {
	t.Helper()
	_, err := f.leagueSvc.JoinPublic(context.Background(), userID, leagueID)
	require.NoError(t, err)
}

// submitPrediction saves and submits picks for the first len(pilotIDs)
// positions in order.
func (f *fixture) submitPrediction(t *testing.T, userID, raceID, leagueID string, pilotIDs ...string) string {
	t.Helper()

	picks := make([]usecase.PredictionPick, 0, len(pilotIDs))
	for i, pilotID := range pilotIDs {
		picks = append(picks, usecase.PredictionPick{Position: i + 1, PilotID: pilotID})
	}
	draft, err := f.predictionSvc.SaveDraft(context.Background(), usecase.SavePredictionInput{
		UserID:   userID,
		RaceID:   raceID,
		LeagueID: leagueID,
		Picks:    picks,
	})
	require.NoError(t, err)

	_, err = f.predictionSvc.Submit(context.Background(), userID, draft.ID)
	require.NoError(t, err)
	return draft.ID
}

// capturingQueue records enqueued jobs for assertions.
type capturingQueue struct {
	mu   sync.Mutex
	jobs []capturedJob
}

type capturedJob struct {
	Path    string
	Delay   time.Duration
	DedupID string
}

func (q *capturingQueue) Enqueue(_ context.Context, path string, _ any, delay time.Duration, dedupID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, capturedJob{Path: path, Delay: delay, DedupID: dedupID})
	return nil
}

func (q *capturingQueue) captured() []capturedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]capturedJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}
