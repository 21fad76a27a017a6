package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func TestLeagueService_CreateMakesCreatorAdmin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	details := f.createLeague(t, "user-1", "Monaco Masters")

	require.Equal(t, "monaco-masters", details.League.Slug)
	require.True(t, details.League.IsPublic)
	require.Empty(t, details.League.InviteCode)
	require.Equal(t, 1, details.MemberCount)
	require.NotNil(t, details.Viewer)
	require.Equal(t, league.RoleAdmin, details.Viewer.Role)
	require.Equal(t, 1, details.ViewerRank)

	got, err := f.leagueSvc.GetBySlug(context.Background(), "user-1", "monaco-masters")
	require.NoError(t, err)
	require.Equal(t, details.League.ID, got.League.ID)
}

func TestLeagueService_CreateValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.leagueSvc.Create(ctx, usecase.CreateLeagueInput{Name: "Valid Name"})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = f.leagueSvc.Create(ctx, usecase.CreateLeagueInput{UserID: "user-1", Name: "ab"})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	zero := 0
	_, err = f.leagueSvc.Create(ctx, usecase.CreateLeagueInput{UserID: "user-1", Name: "Valid Name", MaxMembers: &zero})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestLeagueService_SlugCollisionGetsSuffix(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.createLeague(t, "user-1", "Monaco Masters")
	second := f.createLeague(t, "user-2", "Monaco Masters")

	require.Equal(t, "monaco-masters", first.League.Slug)
	require.Equal(t, "monaco-masters-1", second.League.Slug)
}

func TestLeagueService_PrivateLeagueJoinFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	isPublic := false
	details, err := f.leagueSvc.Create(ctx, usecase.CreateLeagueInput{
		UserID:   "owner",
		Name:     "Secret Paddock",
		IsPublic: &isPublic,
	})
	require.NoError(t, err)
	require.NotEmpty(t, details.League.InviteCode)

	_, err = f.leagueSvc.JoinPublic(ctx, "guest", details.League.ID)
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)

	joined, err := f.leagueSvc.JoinByInviteCode(ctx, "guest", details.League.InviteCode)
	require.NoError(t, err)
	require.Equal(t, 2, joined.MemberCount)
	require.Equal(t, league.RoleMember, joined.Viewer.Role)

	_, err = f.leagueSvc.JoinByInviteCode(ctx, "guest", details.League.InviteCode)
	require.ErrorIs(t, err, usecase.ErrConflict)

	_, err = f.leagueSvc.JoinByInviteCode(ctx, "other", "NOSUCHCODE")
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestLeagueService_CapacityIsEnforced(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	limit := 2
	details, err := f.leagueSvc.Create(ctx, usecase.CreateLeagueInput{
		UserID:     "owner",
		Name:       "Tiny League",
		MaxMembers: &limit,
	})
	require.NoError(t, err)

	f.joinLeague(t, "second", details.League.ID)

	_, err = f.leagueSvc.JoinPublic(ctx, "third", details.League.ID)
	require.ErrorIs(t, err, usecase.ErrConflict)

	// Leaving frees a seat again.
	require.NoError(t, f.leagueSvc.Leave(ctx, "second", details.League.ID))
	_, err = f.leagueSvc.JoinPublic(ctx, "third", details.League.ID)
	require.NoError(t, err)
}

func TestLeagueService_RejoinReactivatesMembership(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	details := f.createLeague(t, "owner", "Monaco Masters")
	f.joinLeague(t, "second", details.League.ID)

	before, exists, err := f.leagues.GetMember(ctx, details.League.ID, "second")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, f.leagueSvc.Leave(ctx, "second", details.League.ID))
	f.joinLeague(t, "second", details.League.ID)

	// Rejoining reactivates the existing membership row.
	after, _, err := f.leagues.GetMember(ctx, details.League.ID, "second")
	require.NoError(t, err)
	require.Equal(t, before.ID, after.ID)
	require.Equal(t, league.MemberActive, after.Status)
}

func TestLeagueService_LastAdminCannotLeave(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	details := f.createLeague(t, "owner", "Monaco Masters")

	err := f.leagueSvc.Leave(ctx, "owner", details.League.ID)
	require.ErrorIs(t, err, usecase.ErrInvalidState)

	err = f.leagueSvc.Leave(ctx, "stranger", details.League.ID)
	require.ErrorIs(t, err, usecase.ErrNotFound)

	// A second admin unblocks the first one.
	f.joinLeague(t, "second", details.League.ID)
	require.NoError(t, f.leagueSvc.ChangeMemberRole(ctx, usecase.ChangeMemberRoleInput{
		RequesterID:  "owner",
		LeagueID:     details.League.ID,
		TargetUserID: "second",
		Role:         league.RoleAdmin,
	}))
	require.NoError(t, f.leagueSvc.Leave(ctx, "owner", details.League.ID))
}

func TestLeagueService_ChangeMemberRoleRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	details := f.createLeague(t, "owner", "Monaco Masters")
	f.joinLeague(t, "member-1", details.League.ID)

	err := f.leagueSvc.ChangeMemberRole(ctx, usecase.ChangeMemberRoleInput{
		RequesterID:  "owner",
		LeagueID:     details.League.ID,
		TargetUserID: "owner",
		Role:         league.RoleMember,
	})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	err = f.leagueSvc.ChangeMemberRole(ctx, usecase.ChangeMemberRoleInput{
		RequesterID:  "member-1",
		LeagueID:     details.League.ID,
		TargetUserID: "owner",
		Role:         league.RoleMember,
	})
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)

	require.NoError(t, f.leagueSvc.ChangeMemberRole(ctx, usecase.ChangeMemberRoleInput{
		RequesterID:  "owner",
		LeagueID:     details.League.ID,
		TargetUserID: "member-1",
		Role:         league.RoleModerator,
	}))

	member, err := f.leagueSvc.RequireActiveMember(ctx, details.League.ID, "member-1")
	require.NoError(t, err)
	require.Equal(t, league.RoleModerator, member.Role)
}

func TestLeagueService_BanRules(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	details := f.createLeague(t, "owner", "Monaco Masters")
	f.joinLeague(t, "mod-1", details.League.ID)
	f.joinLeague(t, "mod-2", details.League.ID)
	f.joinLeague(t, "member-1", details.League.ID)

	for _, userID := range []string{"mod-1", "mod-2"} {
		require.NoError(t, f.leagueSvc.ChangeMemberRole(ctx, usecase.ChangeMemberRoleInput{
			RequesterID:  "owner",
			LeagueID:     details.League.ID,
			TargetUserID: userID,
			Role:         league.RoleModerator,
		}))
	}

	err := f.leagueSvc.BanMember(ctx, usecase.BanMemberInput{
		RequesterID:  "member-1",
		LeagueID:     details.League.ID,
		TargetUserID: "mod-1",
	})
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)

	err = f.leagueSvc.BanMember(ctx, usecase.BanMemberInput{
		RequesterID:  "mod-1",
		LeagueID:     details.League.ID,
		TargetUserID: "mod-2",
	})
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)

	err = f.leagueSvc.BanMember(ctx, usecase.BanMemberInput{
		RequesterID:  "mod-1",
		LeagueID:     details.League.ID,
		TargetUserID: "owner",
	})
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)

	require.NoError(t, f.leagueSvc.BanMember(ctx, usecase.BanMemberInput{
		RequesterID:  "mod-1",
		LeagueID:     details.League.ID,
		TargetUserID: "member-1",
	}))

	// Banned members cannot rejoin.
	_, err = f.leagueSvc.JoinPublic(ctx, "member-1", details.League.ID)
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)
}

func TestLeagueService_RegenerateInviteCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	isPublic := false
	details, err := f.leagueSvc.Create(ctx, usecase.CreateLeagueInput{
		UserID:   "owner",
		Name:     "Secret Paddock",
		IsPublic: &isPublic,
	})
	require.NoError(t, err)

	code, err := f.leagueSvc.RegenerateInviteCode(ctx, "owner", details.League.ID)
	require.NoError(t, err)
	require.NotEmpty(t, code)
	require.NotEqual(t, details.League.InviteCode, code)

	_, err = f.leagueSvc.JoinByInviteCode(ctx, "guest", details.League.InviteCode)
	require.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = f.leagueSvc.JoinByInviteCode(ctx, "guest", code)
	require.NoError(t, err)

	public := f.createLeague(t, "owner", "Open League")
	_, err = f.leagueSvc.RegenerateInviteCode(ctx, "owner", public.League.ID)
	require.ErrorIs(t, err, usecase.ErrInvalidState)
}

func TestLeagueService_RankingOrderAndTies(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	details := f.createLeague(t, "owner", "Monaco Masters")

	base := time.Date(2031, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		userID           string
		totalPoints      int
		correctPositions int
		joinedAt         time.Time
	}{
		{"owner", 50, 5, base},
		{"alice", 30, 2, base.Add(time.Hour)},
		{"bob", 30, 2, base.Add(2 * time.Hour)},
		{"carol", 30, 3, base.Add(3 * time.Hour)},
	}
	for _, s := range seed {
		if s.userID != "owner" {
			f.joinLeague(t, s.userID, details.League.ID)
		}
		member, _, err := f.leagues.GetMember(ctx, details.League.ID, s.userID)
		require.NoError(t, err)
		member.TotalPoints = s.totalPoints
		member.CorrectPositions = s.correctPositions
		member.JoinedAt = s.joinedAt
		require.NoError(t, f.leagues.UpdateMember(ctx, member))
	}

	// Points decide first, then correct positions, then the earlier joiner.
	ranked, total, err := f.leagueSvc.Ranking(ctx, "owner", details.League.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Len(t, ranked, 4)
	for idx, userID := range []string{"owner", "carol", "alice", "bob"} {
		require.Equal(t, idx+1, ranked[idx].Rank)
		require.Equal(t, userID, ranked[idx].Member.UserID)
	}

	// Ranks stay contiguous across pagination.
	page, total, err := f.leagueSvc.Ranking(ctx, "owner", details.League.ID, 2, 2)
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Len(t, page, 2)
	require.Equal(t, 3, page[0].Rank)
	require.Equal(t, "alice", page[0].Member.UserID)
	require.Equal(t, 4, page[1].Rank)
	require.Equal(t, "bob", page[1].Member.UserID)
}

func TestLeagueService_RankingRequiresMembership(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	details := f.createLeague(t, "owner", "Monaco Masters")

	_, _, err := f.leagueSvc.Ranking(ctx, "stranger", details.League.ID, 10, 0)
	require.ErrorIs(t, err, usecase.ErrPermissionDenied)

	ranked, total, err := f.leagueSvc.Ranking(ctx, "owner", details.League.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, ranked, 1)
	require.Equal(t, 1, ranked[0].Rank)
	require.Equal(t, "owner", ranked[0].Member.UserID)
}
