package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridpredict/gridpredict/internal/domain/prediction"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func TestPredictionService_SaveDraftValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")

	cases := []struct {
		name  string
		input usecase.SavePredictionInput
	}{
		{
			name:  "missing ids",
			input: usecase.SavePredictionInput{UserID: "user-1", Picks: []usecase.PredictionPick{{Position: 1, PilotID: "pil-ver"}}},
		},
		{
			name:  "no picks",
			input: usecase.SavePredictionInput{UserID: "user-1", RaceID: "race-1", LeagueID: details.League.ID},
		},
		{
			name: "position out of range",
			input: usecase.SavePredictionInput{
				UserID: "user-1", RaceID: "race-1", LeagueID: details.League.ID,
				Picks: []usecase.PredictionPick{{Position: 23, PilotID: "pil-ver"}},
			},
		},
		{
			name: "duplicate position",
			input: usecase.SavePredictionInput{
				UserID: "user-1", RaceID: "race-1", LeagueID: details.League.ID,
				Picks: []usecase.PredictionPick{{Position: 1, PilotID: "pil-ver"}, {Position: 1, PilotID: "pil-nor"}},
			},
		},
		{
			name: "duplicate pilot",
			input: usecase.SavePredictionInput{
				UserID: "user-1", RaceID: "race-1", LeagueID: details.League.ID,
				Picks: []usecase.PredictionPick{{Position: 1, PilotID: "pil-ver"}, {Position: 2, PilotID: "pil-ver"}},
			},
		},
		{
			name: "unknown pilot",
			input: usecase.SavePredictionInput{
				UserID: "user-1", RaceID: "race-1", LeagueID: details.League.ID,
				Picks: []usecase.PredictionPick{{Position: 1, PilotID: "pil-nobody"}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.predictionSvc.SaveDraft(ctx, tc.input)
			require.ErrorIs(t, err, usecase.ErrInvalidInput)
		})
	}
}

func TestPredictionService_SaveDraftRequiresMembership(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	details := f.createLeague(t, "owner", "Monaco Masters")

	_, err := f.predictionSvc.SaveDraft(context.Background(), usecase.SavePredictionInput{
		UserID:   "stranger",
		RaceID:   "race-1",
		LeagueID: details.League.ID,
		Picks:    []usecase.PredictionPick{{Position: 1, PilotID: "pil-ver"}},
	})
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)
}

func TestPredictionService_PersonalPredictionWithoutLeague(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()

	// No league exists at all; an empty league id is a personal prediction.
	draft, err := f.predictionSvc.SaveDraft(ctx, usecase.SavePredictionInput{
		UserID: "user-1",
		RaceID: "race-1",
		Picks:  []usecase.PredictionPick{{Position: 1, PilotID: "pil-ver"}, {Position: 2, PilotID: "pil-nor"}},
	})
	require.NoError(t, err)
	require.Empty(t, draft.LeagueID)

	_, err = f.predictionSvc.Submit(ctx, "user-1", draft.ID)
	require.NoError(t, err)

	got, err := f.predictionSvc.GetForRace(ctx, "user-1", "race-1", "")
	require.NoError(t, err)
	require.Equal(t, draft.ID, got.ID)
	require.Equal(t, prediction.StatusSubmitted, got.Status)

	// Recording results scores the personal prediction even though there is
	// no league member to update.
	_, err = f.raceSvc.RecordResults(ctx, usecase.RecordResultsInput{
		RaceID: "race-1",
		Entries: []usecase.ResultEntry{
			{PilotID: "pil-ver", Position: 1},
			{PilotID: "pil-nor", Position: 3},
		},
	})
	require.NoError(t, err)

	scored, err := f.predictionSvc.GetForRace(ctx, "user-1", "race-1", "")
	require.NoError(t, err)
	require.Equal(t, prediction.StatusScored, scored.Status)
	require.Equal(t, 13, scored.TotalPoints)
	require.Equal(t, 1, scored.CorrectPositions)
}

func TestPredictionService_SaveDraftClosedRace(t *testing.T) {
	t.Parallel()

	f := newFixture(t, closedRace("race-1", 1))
	details := f.createLeague(t, "user-1", "Monaco Masters")

	_, err := f.predictionSvc.SaveDraft(context.Background(), usecase.SavePredictionInput{
		UserID:   "user-1",
		RaceID:   "race-1",
		LeagueID: details.League.ID,
		Picks:    []usecase.PredictionPick{{Position: 1, PilotID: "pil-ver"}},
	})
	require.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestPredictionService_SaveDraftReplacesSubmitted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")

	predictionID := f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver", "pil-nor")

	got, err := f.predictionSvc.GetForRace(ctx, "user-1", "race-1", details.League.ID)
	require.NoError(t, err)
	require.Equal(t, prediction.StatusSubmitted, got.Status)
	require.NotNil(t, got.SubmittedAt)

	// Saving again reuses the same prediction and resets it to draft.
	updated, err := f.predictionSvc.SaveDraft(ctx, usecase.SavePredictionInput{
		UserID:   "user-1",
		RaceID:   "race-1",
		LeagueID: details.League.ID,
		Picks:    []usecase.PredictionPick{{Position: 1, PilotID: "pil-nor"}, {Position: 2, PilotID: "pil-ver"}},
	})
	require.NoError(t, err)
	require.Equal(t, predictionID, updated.ID)
	require.Equal(t, prediction.StatusDraft, updated.Status)
	require.Nil(t, updated.SubmittedAt)
	require.Equal(t, "pil-nor", updated.Items[0].PilotID)
}

func TestPredictionService_SubmitRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")

	draft, err := f.predictionSvc.SaveDraft(ctx, usecase.SavePredictionInput{
		UserID:   "user-1",
		RaceID:   "race-1",
		LeagueID: details.League.ID,
		Picks:    []usecase.PredictionPick{{Position: 1, PilotID: "pil-ver"}},
	})
	require.NoError(t, err)

	_, err = f.predictionSvc.Submit(ctx, "someone-else", draft.ID)
	require.ErrorIs(t, err, usecase.ErrNotFound)

	submitted, err := f.predictionSvc.Submit(ctx, "user-1", draft.ID)
	require.NoError(t, err)
	require.Equal(t, prediction.StatusSubmitted, submitted.Status)

	_, err = f.predictionSvc.Submit(ctx, "user-1", draft.ID)
	require.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestPredictionService_ListMine(t *testing.T) {
	t.Parallel()

	f := newFixture(t, openRace("race-1", 1), openRace("race-2", 2))
	ctx := context.Background()
	details := f.createLeague(t, "user-1", "Monaco Masters")

	f.submitPrediction(t, "user-1", "race-1", details.League.ID, "pil-ver")
	_, err := f.predictionSvc.SaveDraft(ctx, usecase.SavePredictionInput{
		UserID:   "user-1",
		RaceID:   "race-2",
		LeagueID: details.League.ID,
		Picks:    []usecase.PredictionPick{{Position: 1, PilotID: "pil-nor"}},
	})
	require.NoError(t, err)

	_, total, err := f.predictionSvc.ListMine(ctx, usecase.ListPredictionsInput{UserID: "user-1"})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	drafts, total, err := f.predictionSvc.ListMine(ctx, usecase.ListPredictionsInput{
		UserID: "user-1",
		Status: prediction.StatusDraft,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, drafts, 1)
	require.Equal(t, "race-2", drafts[0].RaceID)

	_, _, err = f.predictionSvc.ListMine(ctx, usecase.ListPredictionsInput{
		UserID: "user-1",
		Status: prediction.Status("bogus"),
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
}
