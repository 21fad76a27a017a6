package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

type memberKey struct {
	leagueID string
	userID   string
}

type LeagueRepository struct {
	mu      sync.RWMutex
	items   map[string]league.League
	members map[memberKey]league.Member
}

func NewLeagueRepository() *LeagueRepository {
	return &LeagueRepository{
		items:   make(map[string]league.League),
		members: make(map[memberKey]league.Member),
	}
}

func (r *LeagueRepository) CreateWithAdmin(_ context.Context, item league.League, admin league.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Slug == item.Slug {
			return fmt.Errorf("%w: league slug or invite code already taken", usecase.ErrConflict)
		}
		if item.InviteCode != "" && existing.InviteCode == item.InviteCode && existing.DeletedAt == nil {
			return fmt.Errorf("%w: league slug or invite code already taken", usecase.ErrConflict)
		}
	}

	r.items[item.ID] = item
	r.members[memberKey{leagueID: item.ID, userID: admin.UserID}] = admin
	return nil
}

func (r *LeagueRepository) Update(_ context.Context, item league.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ID]; !ok {
		return fmt.Errorf("%w: league=%s", usecase.ErrNotFound, item.ID)
	}
	r.items[item.ID] = item
	return nil
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[leagueID]
	if !ok || item.DeletedAt != nil {
		return league.League{}, false, nil
	}
	return item, true, nil
}

func (r *LeagueRepository) GetBySlug(_ context.Context, slug string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Slug == slug && item.DeletedAt == nil {
			return item, true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *LeagueRepository) GetByInviteCode(_ context.Context, code string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.InviteCode != "" && item.InviteCode == code && item.DeletedAt == nil {
			return item, true, nil
		}
	}
	return league.League{}, false, nil
}

func (r *LeagueRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *LeagueRepository) SearchPublic(_ context.Context, query league.SearchQuery) ([]league.League, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(query.Term))
	all := make([]league.League, 0)
	for _, item := range r.items {
		if !item.IsPublic || item.Status != league.StatusActive || item.DeletedAt != nil {
			continue
		}
		if query.Season > 0 && item.Season != query.Season {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(item.Name), term) &&
			!strings.Contains(strings.ToLower(item.Description), term) {
			continue
		}
		all = append(all, item)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if query.Offset >= len(all) {
		return []league.League{}, total, nil
	}
	all = all[query.Offset:]
	if query.Limit > 0 && len(all) > query.Limit {
		all = all[:query.Limit]
	}
	return all, total, nil
}

func (r *LeagueRepository) ListByMember(_ context.Context, userID string) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberships := make([]league.Member, 0)
	for key, member := range r.members {
		if key.userID == userID && member.Status == league.MemberActive {
			memberships = append(memberships, member)
		}
	}
	sort.Slice(memberships, func(i, j int) bool { return memberships[i].JoinedAt.Before(memberships[j].JoinedAt) })

	out := make([]league.League, 0, len(memberships))
	for _, member := range memberships {
		if item, ok := r.items[member.LeagueID]; ok && item.DeletedAt == nil {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *LeagueRepository) GetMember(_ context.Context, leagueID, userID string) (league.Member, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	member, ok := r.members[memberKey{leagueID: leagueID, userID: userID}]
	return member, ok, nil
}

func (r *LeagueRepository) CreateMember(_ context.Context, item league.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memberKey{leagueID: item.LeagueID, userID: item.UserID}
	if _, ok := r.members[key]; ok {
		return fmt.Errorf("%w: user is already a member of the league", usecase.ErrConflict)
	}
	r.members[key] = item
	return nil
}

func (r *LeagueRepository) UpdateMember(_ context.Context, item league.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memberKey{leagueID: item.LeagueID, userID: item.UserID}
	if _, ok := r.members[key]; !ok {
		return fmt.Errorf("%w: member league=%s user=%s", usecase.ErrNotFound, item.LeagueID, item.UserID)
	}
	r.members[key] = item
	return nil
}

func (r *LeagueRepository) CountActiveMembers(_ context.Context, leagueID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(leagueID, ""), nil
}

func (r *LeagueRepository) CountActiveAdmins(_ context.Context, leagueID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(leagueID, league.RoleAdmin), nil
}

func (r *LeagueRepository) countLocked(leagueID string, role league.Role) int {
	count := 0
	for key, member := range r.members {
		if key.leagueID != leagueID || member.Status != league.MemberActive {
			continue
		}
		if role != "" && member.Role != role {
			continue
		}
		count++
	}
	return count
}

func (r *LeagueRepository) ListRanking(_ context.Context, leagueID string, limit, offset int) ([]league.Member, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.rankedLocked(leagueID)
	total := len(all)
	if offset >= len(all) {
		return []league.Member{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *LeagueRepository) MemberRank(_ context.Context, leagueID, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for idx, member := range r.rankedLocked(leagueID) {
		if member.UserID == userID {
			return idx + 1, nil
		}
	}
	return 0, nil
}

func (r *LeagueRepository) rankedLocked(leagueID string) []league.Member {
	all := make([]league.Member, 0)
	for key, member := range r.members {
		if key.leagueID == leagueID && member.Status == league.MemberActive {
			all = append(all, member)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalPoints != all[j].TotalPoints {
			return all[i].TotalPoints > all[j].TotalPoints
		}
		if all[i].CorrectPositions != all[j].CorrectPositions {
			return all[i].CorrectPositions > all[j].CorrectPositions
		}
		return all[i].JoinedAt.Before(all[j].JoinedAt)
	})
	return all
}

func (r *LeagueRepository) GetStats(_ context.Context, leagueID string) (league.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := league.Stats{LeagueID: leagueID}
	totalPoints := 0
	for _, member := range r.rankedLocked(leagueID) {
		stats.MemberCount++
		stats.TotalPredictions += member.PredictionsCount
		totalPoints += member.TotalPoints
		if stats.TopScorerUserID == "" {
			stats.TopScorerUserID = member.UserID
			stats.TopScorerPoints = member.TotalPoints
		}
	}
	if stats.MemberCount > 0 {
		stats.AvgPoints = float64(totalPoints) / float64(stats.MemberCount)
	}
	return stats, nil
}
