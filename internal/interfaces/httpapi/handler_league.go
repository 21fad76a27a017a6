package httpapi

import (
	"net/http"
	"strings"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func (h *Handler) CreateLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateLeague")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createLeagueRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	details, err := h.leagueService.Create(ctx, usecase.CreateLeagueInput{
		UserID:      principal.UserID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		MaxMembers:  req.MaxMembers,
		ImageURL:    req.ImageURL,
		Season:      req.Season,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create league failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, leagueDetailsToDTO(details, true))
}

func (h *Handler) SearchLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SearchLeagues")
	defer span.End()

	season, err := queryInt(r, "season", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagues, total, err := h.leagueService.SearchPublic(ctx, usecase.SearchLeaguesInput{
		Term:   strings.TrimSpace(r.URL.Query().Get("q")),
		Season: season,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "search leagues failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leagueDTO, 0, len(leagues))
	for _, item := range leagues {
		items = append(items, leagueToDTO(item, false))
	}

	writeSuccess(ctx, w, http.StatusOK, pagedDTO{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *Handler) ListMyLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyLeagues")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagues, err := h.leagueService.ListMine(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "list my leagues failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leagueDetailsDTO, 0, len(leagues))
	for _, item := range leagues {
		items = append(items, leagueDetailsToDTO(item, memberCanSeeInvite(item.Viewer)))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeague")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	details, err := h.leagueService.Get(ctx, principal.UserID, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "get league failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueDetailsToDTO(details, memberCanSeeInvite(details.Viewer)))
}

func (h *Handler) GetLeagueBySlug(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeagueBySlug")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	slug := strings.TrimSpace(r.PathValue("slug"))
	details, err := h.leagueService.GetBySlug(ctx, principal.UserID, slug)
	if err != nil {
		h.logger.WarnContext(ctx, "get league by slug failed", "slug", slug, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueDetailsToDTO(details, memberCanSeeInvite(details.Viewer)))
}

func (h *Handler) UpdateLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateLeague")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	var req updateLeagueRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	updated, err := h.leagueService.Update(ctx, usecase.UpdateLeagueInput{
		UserID:      principal.UserID,
		LeagueID:    leagueID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		MaxMembers:  req.MaxMembers,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update league failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueToDTO(updated, true))
}

func (h *Handler) JoinLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.JoinLeague")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	details, err := h.leagueService.JoinPublic(ctx, principal.UserID, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "join league failed", "league_id", leagueID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueDetailsToDTO(details, memberCanSeeInvite(details.Viewer)))
}

func (h *Handler) JoinLeagueByInvite(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.JoinLeagueByInvite")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req joinByInviteRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	details, err := h.leagueService.JoinByInviteCode(ctx, principal.UserID, req.InviteCode)
	if err != nil {
		h.logger.WarnContext(ctx, "join league by invite failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueDetailsToDTO(details, memberCanSeeInvite(details.Viewer)))
}

func (h *Handler) LeaveLeague(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeaveLeague")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	if err := h.leagueService.Leave(ctx, principal.UserID, leagueID); err != nil {
		h.logger.WarnContext(ctx, "leave league failed", "league_id", leagueID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "left"})
}

func (h *Handler) ChangeLeagueMemberRole(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ChangeLeagueMemberRole")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	targetUserID := strings.TrimSpace(r.PathValue("userID"))
	var req changeMemberRoleRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	err = h.leagueService.ChangeMemberRole(ctx, usecase.ChangeMemberRoleInput{
		RequesterID:  principal.UserID,
		LeagueID:     leagueID,
		TargetUserID: targetUserID,
		Role:         league.Role(req.Role),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "change member role failed", "league_id", leagueID, "target_user_id", targetUserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) BanLeagueMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.BanLeagueMember")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	targetUserID := strings.TrimSpace(r.PathValue("userID"))
	err = h.leagueService.BanMember(ctx, usecase.BanMemberInput{
		RequesterID:  principal.UserID,
		LeagueID:     leagueID,
		TargetUserID: targetUserID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "ban member failed", "league_id", leagueID, "target_user_id", targetUserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "banned"})
}

func (h *Handler) RegenerateLeagueInviteCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegenerateLeagueInviteCode")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	code, err := h.leagueService.RegenerateInviteCode(ctx, principal.UserID, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "regenerate invite code failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"invite_code": code})
}

func (h *Handler) LeagueRanking(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeagueRanking")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	ranked, total, err := h.leagueService.Ranking(ctx, principal.UserID, leagueID, limit, offset)
	if err != nil {
		h.logger.WarnContext(ctx, "league ranking failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]rankedMemberDTO, 0, len(ranked))
	for _, row := range ranked {
		items = append(items, rankedMemberDTO{
			Rank:   row.Rank,
			Member: memberToDTO(row.Member),
		})
	}

	writeSuccess(ctx, w, http.StatusOK, pagedDTO{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *Handler) LeagueStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeagueStats")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	leagueID := strings.TrimSpace(r.PathValue("leagueID"))
	stats, err := h.leagueService.StatsFor(ctx, principal.UserID, leagueID)
	if err != nil {
		h.logger.WarnContext(ctx, "league stats failed", "league_id", leagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leagueStatsDTO{
		LeagueID:         stats.LeagueID,
		MemberCount:      stats.MemberCount,
		TotalPredictions: stats.TotalPredictions,
		AvgPoints:        stats.AvgPoints,
		TopScorerUserID:  stats.TopScorerUserID,
		TopScorerPoints:  stats.TopScorerPoints,
	})
}

type createLeagueRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsPublic    *bool  `json:"is_public"`
	MaxMembers  *int   `json:"max_members" validate:"omitempty,min=2,max=1000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Season      int    `json:"season" validate:"omitempty,min=1950"`
}

type updateLeagueRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
	MaxMembers  *int    `json:"max_members"`
	ImageURL    *string `json:"image_url"`
}

type joinByInviteRequest struct {
	InviteCode string `json:"invite_code" validate:"required,min=4,max=32"`
}

type changeMemberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin moderator member"`
}

type leagueDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	IsPublic    bool   `json:"is_public"`
	InviteCode  string `json:"invite_code,omitempty"`
	CreatedBy   string `json:"created_by"`
	Season      int    `json:"season"`
	MaxMembers  *int   `json:"max_members,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

type memberDTO struct {
	UserID           string `json:"user_id"`
	Role             string `json:"role"`
	TotalPoints      int    `json:"total_points"`
	PredictionsCount int    `json:"predictions_count"`
	CorrectPositions int    `json:"correct_positions"`
	CurrentStreak    int    `json:"current_streak"`
	BestStreak       int    `json:"best_streak"`
	Status           string `json:"status"`
	JoinedAt         string `json:"joined_at"`
}

type leagueDetailsDTO struct {
	League      leagueDTO  `json:"league"`
	MemberCount int        `json:"member_count"`
	Viewer      *memberDTO `json:"viewer,omitempty"`
	ViewerRank  int        `json:"viewer_rank,omitempty"`
}

type rankedMemberDTO struct {
	Rank   int       `json:"rank"`
	Member memberDTO `json:"member"`
}

type leagueStatsDTO struct {
	LeagueID         string  `json:"league_id"`
	MemberCount      int     `json:"member_count"`
	TotalPredictions int     `json:"total_predictions"`
	AvgPoints        float64 `json:"avg_points"`
	TopScorerUserID  string  `json:"top_scorer_user_id,omitempty"`
	TopScorerPoints  int     `json:"top_scorer_points"`
}

// memberCanSeeInvite gates the invite code to active members; search results
// and non-members never see it.
func memberCanSeeInvite(viewer *league.Member) bool {
	return viewer != nil && viewer.Status == league.MemberActive
}

func leagueToDTO(v league.League, includeInvite bool) leagueDTO {
	dto := leagueDTO{
		ID:          v.ID,
		Name:        v.Name,
		Slug:        v.Slug,
		Description: v.Description,
		IsPublic:    v.IsPublic,
		CreatedBy:   v.CreatedBy,
		Season:      v.Season,
		MaxMembers:  v.MaxMembers,
		ImageURL:    v.ImageURL,
		Status:      string(v.Status),
		CreatedAt:   formatTime(v.CreatedAt),
	}
	if includeInvite {
		dto.InviteCode = v.InviteCode
	}
	return dto
}

func memberToDTO(v league.Member) memberDTO {
	return memberDTO{
		UserID:           v.UserID,
		Role:             string(v.Role),
		TotalPoints:      v.TotalPoints,
		PredictionsCount: v.PredictionsCount,
		CorrectPositions: v.CorrectPositions,
		CurrentStreak:    v.CurrentStreak,
		BestStreak:       v.BestStreak,
		Status:           string(v.Status),
		JoinedAt:         formatTime(v.JoinedAt),
	}
}

func leagueDetailsToDTO(v league.Details, includeInvite bool) leagueDetailsDTO {
	dto := leagueDetailsDTO{
		League:      leagueToDTO(v.League, includeInvite),
		MemberCount: v.MemberCount,
		ViewerRank:  v.ViewerRank,
	}
	if v.Viewer != nil {
		member := memberToDTO(*v.Viewer)
		dto.Viewer = &member
	}
	return dto
}
