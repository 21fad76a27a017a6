package usecase

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	idgen "github.com/gridpredict/gridpredict/internal/platform/id"
)

const (
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeLength   = 8

	minLeagueNameLen = 3
	maxLeagueNameLen = 100
)

type CreateLeagueInput struct {
	UserID      string
	Name        string
	Description string
	IsPublic    *bool
	MaxMembers  *int
	ImageURL    string
	Season      int
}

type UpdateLeagueInput struct {
	UserID      string
	LeagueID    string
	Name        *string
	Description *string
	IsPublic    *bool
	MaxMembers  *int
	ImageURL    *string
}

type ChangeMemberRoleInput struct {
	RequesterID  string
	LeagueID     string
	TargetUserID string
	Role         league.Role
}

type BanMemberInput struct {
	RequesterID  string
	LeagueID     string
	TargetUserID string
}

type SearchLeaguesInput struct {
	Term   string
	Season int
	Limit  int
	Offset int
}

// RankedMember is one ranking page row; Rank accounts for the page offset.
type RankedMember struct {
	Member league.Member
	Rank   int
}

type LeagueService struct {
	repo  league.Repository
	idGen idgen.Generator
	now   func() time.Time
}

func NewLeagueService(repo league.Repository, idGen idgen.Generator) *LeagueService {
	return &LeagueService{
		repo:  repo,
		idGen: idGen,
		now:   time.Now,
	}
}

func (s *LeagueService) Create(ctx context.Context, input CreateLeagueInput) (league.Details, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.Create")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	if input.UserID == "" {
		return league.Details{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if len(input.Name) < minLeagueNameLen || len(input.Name) > maxLeagueNameLen {
		return league.Details{}, fmt.Errorf("%w: league name must be between %d and %d characters", ErrInvalidInput, minLeagueNameLen, maxLeagueNameLen)
	}
	if input.MaxMembers != nil && *input.MaxMembers < 1 {
		return league.Details{}, fmt.Errorf("%w: max members must be at least 1", ErrInvalidInput)
	}

	now := s.now().UTC()
	season := input.Season
	if season == 0 {
		season = now.Year()
	}
	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	slug, err := GenerateUniqueSlug(ctx, input.Name, s.repo.SlugExists)
	if err != nil {
		return league.Details{}, fmt.Errorf("generate league slug: %w", err)
	}

	inviteCode := ""
	if !isPublic {
		inviteCode, err = generateInviteCode(inviteCodeLength)
		if err != nil {
			return league.Details{}, fmt.Errorf("generate invite code: %w", err)
		}
	}

	leagueID, err := s.idGen.NewID()
	if err != nil {
		return league.Details{}, fmt.Errorf("generate league id: %w", err)
	}
	memberID, err := s.idGen.NewID()
	if err != nil {
		return league.Details{}, fmt.Errorf("generate member id: %w", err)
	}

	item := league.League{
		ID:          leagueID,
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		IsPublic:    isPublic,
		InviteCode:  inviteCode,
		CreatedBy:   input.UserID,
		Season:      season,
		MaxMembers:  input.MaxMembers,
		ImageURL:    input.ImageURL,
		Status:      league.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	admin := league.Member{
		ID:           memberID,
		LeagueID:     leagueID,
		UserID:       input.UserID,
		Role:         league.RoleAdmin,
		JoinedAt:     now,
		Status:       league.MemberActive,
		LastActiveAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateWithAdmin(ctx, item, admin); err != nil {
		return league.Details{}, fmt.Errorf("create league: %w", err)
	}

	return league.Details{
		League:      item,
		MemberCount: 1,
		Viewer:      &admin,
		ViewerRank:  1,
	}, nil
}

func (s *LeagueService) Get(ctx context.Context, userID, leagueID string) (league.Details, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.Get")
	defer span.End()

	item, err := s.getActiveLeague(ctx, leagueID)
	if err != nil {
		return league.Details{}, err
	}
	return s.buildDetails(ctx, item, strings.TrimSpace(userID))
}

func (s *LeagueService) GetBySlug(ctx context.Context, userID, slug string) (league.Details, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.GetBySlug")
	defer span.End()

	slug = strings.TrimSpace(slug)
	if slug == "" {
		return league.Details{}, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}

	item, exists, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return league.Details{}, fmt.Errorf("get league by slug: %w", err)
	}
	if !exists || item.Status == league.StatusDeleted {
		return league.Details{}, fmt.Errorf("%w: league not found", ErrNotFound)
	}
	return s.buildDetails(ctx, item, strings.TrimSpace(userID))
}

func (s *LeagueService) Update(ctx context.Context, input UpdateLeagueInput) (league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.Update")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.LeagueID = strings.TrimSpace(input.LeagueID)
	if input.UserID == "" {
		return league.League{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	item, err := s.getActiveLeague(ctx, input.LeagueID)
	if err != nil {
		return league.League{}, err
	}
	if err := s.requireRole(ctx, item.ID, input.UserID, league.RoleAdmin); err != nil {
		return league.League{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < minLeagueNameLen || len(name) > maxLeagueNameLen {
			return league.League{}, fmt.Errorf("%w: league name must be between %d and %d characters", ErrInvalidInput, minLeagueNameLen, maxLeagueNameLen)
		}
		item.Name = name
	}
	if input.Description != nil {
		item.Description = strings.TrimSpace(*input.Description)
	}
	if input.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*input.ImageURL)
	}
	if input.MaxMembers != nil {
		activeCount, err := s.repo.CountActiveMembers(ctx, item.ID)
		if err != nil {
			return league.League{}, fmt.Errorf("count active members: %w", err)
		}
		if *input.MaxMembers < activeCount {
			return league.League{}, fmt.Errorf("%w: max members cannot be below current member count %d", ErrInvalidInput, activeCount)
		}
		item.MaxMembers = input.MaxMembers
	}
	if input.IsPublic != nil {
		item.IsPublic = *input.IsPublic
		if !item.IsPublic && item.InviteCode == "" {
			code, err := generateInviteCode(inviteCodeLength)
			if err != nil {
				return league.League{}, fmt.Errorf("generate invite code: %w", err)
			}
			item.InviteCode = code
		}
	}

	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return league.League{}, fmt.Errorf("update league: %w", err)
	}
	return item, nil
}

func (s *LeagueService) SearchPublic(ctx context.Context, input SearchLeaguesInput) ([]league.League, int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.SearchPublic")
	defer span.End()

	query := league.SearchQuery{
		Term:   strings.TrimSpace(input.Term),
		Season: input.Season,
		Limit:  normalizeLimit(input.Limit, 20),
		Offset: maxOf(input.Offset, 0),
	}
	items, total, err := s.repo.SearchPublic(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("search public leagues: %w", err)
	}
	return items, total, nil
}

func (s *LeagueService) ListMine(ctx context.Context, userID string) ([]league.Details, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ListMine")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	leagues, err := s.repo.ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list leagues by member: %w", err)
	}

	items := make([]league.Details, 0, len(leagues))
	for _, item := range leagues {
		details, err := s.buildDetails(ctx, item, userID)
		if err != nil {
			return nil, err
		}
		items = append(items, details)
	}
	return items, nil
}

func (s *LeagueService) JoinByInviteCode(ctx context.Context, userID, code string) (league.Details, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.JoinByInviteCode")
	defer span.End()

	userID = strings.TrimSpace(userID)
	code = strings.ToUpper(strings.TrimSpace(code))
	if userID == "" {
		return league.Details{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if code == "" {
		return league.Details{}, fmt.Errorf("%w: invite code is required", ErrInvalidInput)
	}

	item, exists, err := s.repo.GetByInviteCode(ctx, code)
	if err != nil {
		return league.Details{}, fmt.Errorf("get league by invite code: %w", err)
	}
	if !exists {
		return league.Details{}, fmt.Errorf("%w: invite code not found", ErrNotFound)
	}

	if err := s.join(ctx, item, userID); err != nil {
		return league.Details{}, err
	}
	return s.buildDetails(ctx, item, userID)
}

func (s *LeagueService) JoinPublic(ctx context.Context, userID, leagueID string) (league.Details, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.JoinPublic")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return league.Details{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	item, err := s.getActiveLeague(ctx, leagueID)
	if err != nil {
		return league.Details{}, err
	}
	if !item.IsPublic {
		return league.Details{}, fmt.Errorf("%w: league is private, join with an invite code", ErrPermissionDenied)
	}

	if err := s.join(ctx, item, userID); err != nil {
		return league.Details{}, err
	}
	return s.buildDetails(ctx, item, userID)
}

func (s *LeagueService) Leave(ctx context.Context, userID, leagueID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.Leave")
	defer span.End()

	userID = strings.TrimSpace(userID)
	leagueID = strings.TrimSpace(leagueID)
	if userID == "" || leagueID == "" {
		return fmt.Errorf("%w: user id and league id are required", ErrInvalidInput)
	}

	member, exists, err := s.repo.GetMember(ctx, leagueID, userID)
	if err != nil {
		return fmt.Errorf("get league member: %w", err)
	}
	if !exists || member.Status != league.MemberActive {
		return fmt.Errorf("%w: you are not a member of this league", ErrNotFound)
	}

	if member.Role == league.RoleAdmin {
		admins, err := s.repo.CountActiveAdmins(ctx, leagueID)
		if err != nil {
			return fmt.Errorf("count active admins: %w", err)
		}
		if admins <= 1 {
			return fmt.Errorf("%w: the only admin cannot leave the league", ErrInvalidState)
		}
	}

	member.Status = league.MemberInactive
	member.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateMember(ctx, member); err != nil {
		return fmt.Errorf("deactivate league member: %w", err)
	}
	return nil
}

func (s *LeagueService) ChangeMemberRole(ctx context.Context, input ChangeMemberRoleInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.ChangeMemberRole")
	defer span.End()

	input.RequesterID = strings.TrimSpace(input.RequesterID)
	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.TargetUserID = strings.TrimSpace(input.TargetUserID)
	if input.RequesterID == "" || input.LeagueID == "" || input.TargetUserID == "" {
		return fmt.Errorf("%w: requester, league and target user ids are required", ErrInvalidInput)
	}
	if !league.ValidRole(input.Role) {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, input.Role)
	}
	if input.RequesterID == input.TargetUserID {
		return fmt.Errorf("%w: you cannot change your own role", ErrInvalidInput)
	}

	if err := s.requireRole(ctx, input.LeagueID, input.RequesterID, league.RoleAdmin); err != nil {
		return err
	}

	target, exists, err := s.repo.GetMember(ctx, input.LeagueID, input.TargetUserID)
	if err != nil {
		return fmt.Errorf("get target member: %w", err)
	}
	if !exists || target.Status != league.MemberActive {
		return fmt.Errorf("%w: member not found", ErrNotFound)
	}

	if target.Role == league.RoleAdmin && input.Role != league.RoleAdmin {
		admins, err := s.repo.CountActiveAdmins(ctx, input.LeagueID)
		if err != nil {
			return fmt.Errorf("count active admins: %w", err)
		}
		if admins <= 1 {
			return fmt.Errorf("%w: cannot demote the last admin", ErrInvalidState)
		}
	}

	target.Role = input.Role
	target.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateMember(ctx, target); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

func (s *LeagueService) BanMember(ctx context.Context, input BanMemberInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.BanMember")
	defer span.End()

	input.RequesterID = strings.TrimSpace(input.RequesterID)
	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.TargetUserID = strings.TrimSpace(input.TargetUserID)
	if input.RequesterID == "" || input.LeagueID == "" || input.TargetUserID == "" {
		return fmt.Errorf("%w: requester, league and target user ids are required", ErrInvalidInput)
	}
	if input.RequesterID == input.TargetUserID {
		return fmt.Errorf("%w: you cannot ban yourself", ErrInvalidInput)
	}

	requester, exists, err := s.repo.GetMember(ctx, input.LeagueID, input.RequesterID)
	if err != nil {
		return fmt.Errorf("get requester member: %w", err)
	}
	if !exists || requester.Status != league.MemberActive {
		return fmt.Errorf("%w: you are not a member of this league", ErrPermissionDenied)
	}
	if requester.Role != league.RoleAdmin && requester.Role != league.RoleModerator {
		return fmt.Errorf("%w: only admins and moderators can ban members", ErrPermissionDenied)
	}

	target, exists, err := s.repo.GetMember(ctx, input.LeagueID, input.TargetUserID)
	if err != nil {
		return fmt.Errorf("get target member: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: member not found", ErrNotFound)
	}
	if target.Role == league.RoleAdmin {
		return fmt.Errorf("%w: admins cannot be banned", ErrPermissionDenied)
	}
	if requester.Role == league.RoleModerator && target.Role == league.RoleModerator {
		return fmt.Errorf("%w: moderators cannot ban other moderators", ErrPermissionDenied)
	}

	target.Status = league.MemberBanned
	target.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateMember(ctx, target); err != nil {
		return fmt.Errorf("ban member: %w", err)
	}
	return nil
}

func (s *LeagueService) RegenerateInviteCode(ctx context.Context, userID, leagueID string) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.RegenerateInviteCode")
	defer span.End()

	userID = strings.TrimSpace(userID)
	item, err := s.getActiveLeague(ctx, leagueID)
	if err != nil {
		return "", err
	}
	if err := s.requireRole(ctx, item.ID, userID, league.RoleAdmin); err != nil {
		return "", err
	}
	if item.IsPublic {
		return "", fmt.Errorf("%w: public leagues have no invite code", ErrInvalidState)
	}

	code, err := generateInviteCode(inviteCodeLength)
	if err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	item.InviteCode = code
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, item); err != nil {
		return "", fmt.Errorf("store regenerated invite code: %w", err)
	}
	return code, nil
}

func (s *LeagueService) Ranking(ctx context.Context, userID, leagueID string, limit, offset int) ([]RankedMember, int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.Ranking")
	defer span.End()

	userID = strings.TrimSpace(userID)
	item, err := s.getActiveLeague(ctx, leagueID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.requireMembership(ctx, item.ID, userID); err != nil {
		return nil, 0, err
	}

	limit = normalizeLimit(limit, 50)
	offset = maxOf(offset, 0)
	members, total, err := s.repo.ListRanking(ctx, item.ID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list league ranking: %w", err)
	}

	items := make([]RankedMember, 0, len(members))
	for idx, member := range members {
		items = append(items, RankedMember{Member: member, Rank: offset + idx + 1})
	}
	return items, total, nil
}

func (s *LeagueService) StatsFor(ctx context.Context, userID, leagueID string) (league.Stats, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeagueService.StatsFor")
	defer span.End()

	userID = strings.TrimSpace(userID)
	item, err := s.getActiveLeague(ctx, leagueID)
	if err != nil {
		return league.Stats{}, err
	}
	if err := s.requireMembership(ctx, item.ID, userID); err != nil {
		return league.Stats{}, err
	}

	stats, err := s.repo.GetStats(ctx, item.ID)
	if err != nil {
		return league.Stats{}, fmt.Errorf("get league stats: %w", err)
	}
	return stats, nil
}

// RequireActiveMember exposes the membership check to other services.
func (s *LeagueService) RequireActiveMember(ctx context.Context, leagueID, userID string) (league.Member, error) {
	member, exists, err := s.repo.GetMember(ctx, strings.TrimSpace(leagueID), strings.TrimSpace(userID))
	if err != nil {
		return league.Member{}, fmt.Errorf("get league member: %w", err)
	}
	if !exists || member.Status != league.MemberActive {
		return league.Member{}, fmt.Errorf("%w: you are not an active member of this league", ErrPermissionDenied)
	}
	return member, nil
}

func (s *LeagueService) join(ctx context.Context, item league.League, userID string) error {
	if item.Status != league.StatusActive {
		return fmt.Errorf("%w: league is not active", ErrInvalidState)
	}

	now := s.now().UTC()
	member, exists, err := s.repo.GetMember(ctx, item.ID, userID)
	if err != nil {
		return fmt.Errorf("get league member: %w", err)
	}

	if exists {
		switch member.Status {
		case league.MemberActive:
			return fmt.Errorf("%w: you are already a member of this league", ErrConflict)
		case league.MemberBanned:
			return fmt.Errorf("%w: you are banned from this league", ErrPermissionDenied)
		}

		if err := s.checkCapacity(ctx, item); err != nil {
			return err
		}
		member.Status = league.MemberActive
		member.JoinedAt = now
		member.LastActiveAt = now
		member.UpdatedAt = now
		if err := s.repo.UpdateMember(ctx, member); err != nil {
			return fmt.Errorf("reactivate league member: %w", err)
		}
		return nil
	}

	if err := s.checkCapacity(ctx, item); err != nil {
		return err
	}

	memberID, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate member id: %w", err)
	}
	newMember := league.Member{
		ID:           memberID,
		LeagueID:     item.ID,
		UserID:       userID,
		Role:         league.RoleMember,
		JoinedAt:     now,
		Status:       league.MemberActive,
		LastActiveAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateMember(ctx, newMember); err != nil {
		return fmt.Errorf("create league member: %w", err)
	}
	return nil
}

func (s *LeagueService) checkCapacity(ctx context.Context, item league.League) error {
	if item.MaxMembers == nil {
		return nil
	}
	active, err := s.repo.CountActiveMembers(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("count active members: %w", err)
	}
	if active >= *item.MaxMembers {
		return fmt.Errorf("%w: league is full", ErrConflict)
	}
	return nil
}

func (s *LeagueService) getActiveLeague(ctx context.Context, leagueID string) (league.League, error) {
	leagueID = strings.TrimSpace(leagueID)
	if leagueID == "" {
		return league.League{}, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}
	item, exists, err := s.repo.GetByID(ctx, leagueID)
	if err != nil {
		return league.League{}, fmt.Errorf("get league by id: %w", err)
	}
	if !exists || item.Status == league.StatusDeleted {
		return league.League{}, fmt.Errorf("%w: league not found", ErrNotFound)
	}
	return item, nil
}

func (s *LeagueService) requireRole(ctx context.Context, leagueID, userID string, role league.Role) error {
	member, exists, err := s.repo.GetMember(ctx, leagueID, userID)
	if err != nil {
		return fmt.Errorf("get league member: %w", err)
	}
	if !exists || member.Status != league.MemberActive || member.Role != role {
		return fmt.Errorf("%w: this action requires the %s role", ErrPermissionDenied, role)
	}
	return nil
}

func (s *LeagueService) requireMembership(ctx context.Context, leagueID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	member, exists, err := s.repo.GetMember(ctx, leagueID, userID)
	if err != nil {
		return fmt.Errorf("get league member: %w", err)
	}
	if !exists || member.Status != league.MemberActive {
		return fmt.Errorf("%w: you are not a member of this league", ErrPermissionDenied)
	}
	return nil
}

func (s *LeagueService) buildDetails(ctx context.Context, item league.League, userID string) (league.Details, error) {
	count, err := s.repo.CountActiveMembers(ctx, item.ID)
	if err != nil {
		return league.Details{}, fmt.Errorf("count active members: %w", err)
	}

	details := league.Details{League: item, MemberCount: count}
	if userID == "" {
		return details, nil
	}

	member, exists, err := s.repo.GetMember(ctx, item.ID, userID)
	if err != nil {
		return league.Details{}, fmt.Errorf("get league member: %w", err)
	}
	if exists && member.Status == league.MemberActive {
		details.Viewer = &member
		rank, err := s.repo.MemberRank(ctx, item.ID, userID)
		if err != nil {
			return league.Details{}, fmt.Errorf("resolve member rank: %w", err)
		}
		details.ViewerRank = rank
	}
	return details, nil
}

func generateInviteCode(length int) (string, error) {
	if length < 6 {
		length = 6
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes for invite code: %w", err)
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return string(out), nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
