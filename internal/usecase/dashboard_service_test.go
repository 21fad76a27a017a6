package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridpredict/gridpredict/internal/domain/userstats"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func TestDashboardService_RequiresUserID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.dashboardSvc.Get(context.Background(), "  ")
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestDashboardService_ComputesStatsOnColdCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1), openRace("race-2", 2))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")
	f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver", "pil-nor", "pil-lec")

	_, err := f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID: "race-1",
		Entries: []usecase.ResultEntry{
			{PilotID: "pil-ver", Position: 1},
			{PilotID: "pil-lec", Position: 2},
			{PilotID: "pil-nor", Position: 3},
		},
	})
	require.NoError(t, err)

	out, err := f.dashboardSvc.Get(ctx, "user-1")
	require.NoError(t, err)

	require.Equal(t, 16, out.Stats.TotalPoints)
	require.Equal(t, 1, out.Stats.ScoredPredictions)
	require.Equal(t, 1, out.Stats.TotalPredictions)
	require.Equal(t, 1, out.Stats.CurrentStreak)
	require.Equal(t, 1, out.Stats.CacheVersion)
	require.Equal(t, 1, out.Stats.MostPickedCount)
	require.InDelta(t, 16.0, out.Stats.AvgPointsPerRace, 0.001)

	require.Len(t, out.Recent, 1)
	require.Len(t, out.Leagues, 1)
	require.Equal(t, details.League.ID, out.Leagues[0].League.ID)

	require.NotNil(t, out.NextRace)
	require.Equal(t, "race-2", out.NextRace.Race.ID)
	require.True(t, out.NextRace.CanPredict)
	require.False(t, out.NextRace.AlreadyPredicted)
}

func TestDashboardService_FreshStatsAreNotRecomputed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	seeded := userstats.UserStats{
		UserID:           "user-1",
		TotalPoints:      999,
		CacheVersion:     7,
		LastCalculatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.stats.Upsert(ctx, seeded))

	out, err := f.dashboardSvc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 999, out.Stats.TotalPoints)
	require.Equal(t, 7, out.Stats.CacheVersion)
}

func TestDashboardService_StaleStatsAreRecomputed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	seeded := userstats.UserStats{
		UserID:           "user-1",
		TotalPoints:      999,
		CacheVersion:     7,
		LastCalculatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, f.stats.Upsert(ctx, seeded))

	out, err := f.dashboardSvc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 0, out.Stats.TotalPoints)
	require.Equal(t, 8, out.Stats.CacheVersion)

	stored, exists, err := f.stats.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, 8, stored.CacheVersion)
}

func TestDashboardService_MarksPredictedNextRace(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")
	f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver")

	out, err := f.dashboardSvc.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, out.NextRace)
	require.True(t, out.NextRace.AlreadyPredicted)
	require.Equal(t, out.NextRace.Race.EffectiveDeadline(), out.NextRace.Deadline)
}
