package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func TestRaceService_CreateRejectsDuplicateRound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	raceDate := time.Now().UTC().Add(60 * 24 * time.Hour)

	input := usecase.CreateRaceInput{
		Name:     "Monaco Grand Prix",
		Circuit:  "Circuit de Monaco",
		Country:  "Monaco",
		Round:    6,
		Season:   raceDate.Year(),
		RaceDate: raceDate,
	}
	created, err := f.raceSvc.Create(ctx, input)
	require.NoError(t, err)
	require.Equal(t, race.StatusScheduled, created.Status)

	_, err = f.raceSvc.Create(ctx, input)
	require.ErrorIs(t, err, usecase.ErrConflict)
}

func TestRaceService_TransitionStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()

	_, err := f.raceSvc.TransitionStatus(ctx, "race-1", race.Status("bogus"))
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = f.raceSvc.TransitionStatus(ctx, "race-1", race.StatusCompleted)
	require.ErrorIs(t, err, usecase.ErrInvalidState)

	for _, target := range []race.Status{race.StatusQualifying, race.StatusInProgress, race.StatusCompleted} {
		updated, err := f.raceSvc.TransitionStatus(ctx, "race-1", target)
		require.NoError(t, err)
		require.Equal(t, target, updated.Status)
	}

	// Completed is terminal.
	_, err = f.raceSvc.TransitionStatus(ctx, "race-1", race.StatusCancelled)
	require.ErrorIs(t, err, usecase.ErrInvalidState)

	_, err = f.raceSvc.TransitionStatus(ctx, "missing", race.StatusQualifying)
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestRaceService_CompletingRaceLocksPredictions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")
	f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver")

	for _, target := range []race.Status{race.StatusQualifying, race.StatusInProgress, race.StatusCompleted} {
		_, err := f.raceSvc.TransitionStatus(ctx, "race-1", target)
		require.NoError(t, err)
	}

	got, err := f.predictionSvc.GetForRace(ctx, "user-1", "race-1", details.League.ID)
	require.NoError(t, err)
	require.Equal(t, prediction.StatusLocked, got.Status)

	// No new predictions once the race is completed.
	_, err = f.predictionSvc.SaveDraft(ctx, usecase.SavePredictionInput{
		UserID:   "user-1",
		RaceID:   "race-1",
		LeagueID: details.League.ID,
		Picks:    []usecase.PredictionPick{{Position: 1, PilotID: "pil-nor"}},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestRaceService_CancellingRaceCancelsPredictions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")
	f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver")

	_, err := f.raceSvc.TransitionStatus(ctx, "race-1", race.StatusCancelled)
	require.NoError(t, err)

	got, err := f.predictionSvc.GetForRace(ctx, "user-1", "race-1", details.League.ID)
	require.NoError(t, err)
	require.Equal(t, prediction.StatusCancelled, got.Status)

	// Cancelled races can be rescheduled.
	updated, err := f.raceSvc.TransitionStatus(ctx, "race-1", race.StatusScheduled)
	require.NoError(t, err)
	require.Equal(t, race.StatusScheduled, updated.Status)
}

func TestRaceService_RecordResultsValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()

	_, err := f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{RaceID: "race-1"})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID: "race-1",
		Entries: []usecase.ResultEntry{
			{PilotID: "pil-ver", Position: 1},
			{PilotID: "pil-nor", Position: 1},
		},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID:  "race-1",
		Entries: []usecase.ResultEntry{{PilotID: "pil-nobody", Position: 1}},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID:  "race-1",
		Entries: []usecase.ResultEntry{{PilotID: "pil-ver", Position: 1, Status: race.ResultStatus("vanished")}},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = f.raceSvc.TransitionStatus(ctx, "race-1", race.StatusCancelled)
	require.NoError(t, err)
	_, err = f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID:  "race-1",
		Entries: []usecase.ResultEntry{{PilotID: "pil-ver", Position: 1}},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestRaceService_FailedResultSaveLeavesPriorResults(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()

	_, err := f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID: "race-1",
		Entries: []usecase.ResultEntry{
			{PilotID: "pil-ver", Position: 1},
			{PilotID: "pil-nor", Position: 2},
		},
	})
	require.NoError(t, err)

	_, err = f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID: "race-1",
		Entries: []usecase.ResultEntry{
			{PilotID: "pil-lec", Position: 1},
			{PilotID: "pil-ham", Position: 1},
		},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	got, err := f.raceSvc.GetWithResults(ctx, "race-1")
	require.NoError(t, err)
	require.Len(t, got.Results, 2)
	require.Equal(t, "pil-ver", got.Results[0].PilotID)
	require.Equal(t, "pil-nor", got.Results[1].PilotID)
}

func TestRaceService_RecordResultsScoresPredictions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")
	f.joinLeague(t, "user-2", details.League.ID)

	f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver", "pil-nor", "pil-lec")
	f.submitPrediction(t, "user-2", "race-1", details.League.ID, "pil-ham", "pil-rus", "pil-alo")

	out, err := f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID: "race-1",
		Entries: []usecase.ResultEntry{
			{PilotID: "pil-ver", Position: 1, Points: 25},
			{PilotID: "pil-lec", Position: 2, Points: 18},
			{PilotID: "pil-nor", Position: 3, Points: 15},
		},
	})
	require.NoError(t, err)
	require.Equal(t, race.StatusCompleted, out.Race.Status)
	require.Len(t, out.Results, 3)
	require.Contains(t, out.Pilots, "pil-ver")

	// user-1: P1 exact (10), P2 pick finished P3 (3), P3 pick finished P2 (3).
	scored, err := f.predictionSvc.GetForRace(ctx, "user-1", "race-1", details.League.ID)
	require.NoError(t, err)
	require.Equal(t, prediction.StatusScored, scored.Status)
	require.Equal(t, 16, scored.TotalPoints)
	require.Equal(t, 1, scored.CorrectPositions)
	require.NotNil(t, scored.ScoredAt)

	// user-2 picked pilots with no recorded result.
	missed, err := f.predictionSvc.GetForRace(ctx, "user-2", "race-1", details.League.ID)
	require.NoError(t, err)
	require.Equal(t, prediction.StatusScored, missed.Status)
	require.Equal(t, 0, missed.TotalPoints)

	ranked, _, err := f.leagueSvc.Ranking(ctx, "user-1", details.League.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, "user-1", ranked[0].Member.UserID)
	require.Equal(t, 16, ranked[0].Member.TotalPoints)
	require.Equal(t, 1, ranked[0].Member.CurrentStreak)
	require.Equal(t, 0, ranked[1].Member.CurrentStreak)
}

func TestRaceService_RecordResultsRescoreIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")
	f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver", "pil-nor")

	entries := []usecase.ResultEntry{
		{PilotID: "pil-ver", Position: 1},
		{PilotID: "pil-nor", Position: 2},
	}
	_, err := f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{RaceID: "race-1", Entries: entries})
	require.NoError(t, err)

	// Stewards swap the order; rescoring replaces, not accumulates.
	_, err = f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID: "race-1",
		Entries: []usecase.ResultEntry{
			{PilotID: "pil-nor", Position: 1},
			{PilotID: "pil-ver", Position: 2},
		},
	})
	require.NoError(t, err)

	scored, err := f.predictionSvc.GetForRace(ctx, "user-1", "race-1", details.League.ID)
	require.NoError(t, err)
	require.Equal(t, 6, scored.TotalPoints)
	require.Equal(t, 0, scored.CorrectPositions)

	ranked, _, err := f.leagueSvc.Ranking(ctx, "user-1", details.League.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 6, ranked[0].Member.TotalPoints)
	require.Equal(t, 1, ranked[0].Member.PredictionsCount)
}

func TestRaceService_CanPredict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1), closedRace("race-2", 2))
	ctx := context.Background()

	open, err := f.raceSvc.CanPredict(ctx, "race-1")
	require.NoError(t, err)
	require.True(t, open.CanPredict)
	require.False(t, open.Deadline.IsZero())

	closed, err := f.raceSvc.CanPredict(ctx, "race-2")
	require.NoError(t, err)
	require.False(t, closed.CanPredict)
	require.Equal(t, "prediction deadline has passed", closed.Reason)

	_, err = f.raceSvc.TransitionStatus(ctx, "race-1", race.StatusQualifying)
	require.NoError(t, err)
	inQuali, err := f.raceSvc.CanPredict(ctx, "race-1")
	require.NoError(t, err)
	require.False(t, inQuali.CanPredict)
	require.Equal(t, "race is qualifying", inQuali.Reason)
}

func TestRaceService_SeasonStatsAndCalendar(t *testing.T) {
	t.Parallel()

	at := func(month time.Month, day int) time.Time {
		return time.Date(2031, month, day, 13, 0, 0, 0, time.UTC)
	}
	first := openRace("race-1", 1)
	first.Season = 2031
	first.RaceDate = at(time.March, 8)
	second := openRace("race-2", 2)
	second.Season = 2031
	second.RaceDate = at(time.May, 3)
	third := openRace("race-3", 3)
	third.Season = 2031
	third.RaceDate = at(time.May, 24)
	third.Status = race.StatusCompleted

	f := newFixture(t, first, second, third)
	ctx := context.Background()

	stats, err := f.raceSvc.SeasonStats(ctx, 2031)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 1, stats.Completed)
	require.Equal(t, 2, stats.ByStatus[race.StatusScheduled])

	_, err = f.raceSvc.SeasonStats(ctx, 1949)
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	months, err := f.raceSvc.SeasonCalendar(ctx, 2031)
	require.NoError(t, err)
	require.Len(t, months, 2)
	require.Len(t, months[0].Races, 1)
	require.Len(t, months[1].Races, 2)
}
