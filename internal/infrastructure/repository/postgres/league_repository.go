package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/gridpredict/gridpredict/internal/domain/league"
	qb "github.com/gridpredict/gridpredict/internal/platform/querybuilder"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) CreateWithAdmin(ctx context.Context, item league.League, admin league.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx create league: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	leagueQuery, leagueArgs, err := qb.InsertModel("leagues", leagueToInsertModel(item), "")
	if err != nil {
		return fmt.Errorf("build create league query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, leagueQuery, leagueArgs...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: league slug or invite code already taken", usecase.ErrConflict)
		}
		return fmt.Errorf("create league: %w", err)
	}

	memberQuery, memberArgs, err := qb.InsertModel("league_members", leagueMemberToInsertModel(admin), "")
	if err != nil {
		return fmt.Errorf("build create league admin query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, memberQuery, memberArgs...); err != nil {
		return fmt.Errorf("create league admin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create league tx: %w", err)
	}
	return nil
}

func (r *LeagueRepository) Update(ctx context.Context, item league.League) error {
	builder := qb.Update("leagues").
		Set("name", item.Name).
		Set("description", item.Description).
		Set("is_public", item.IsPublic).
		Set("invite_code", optionalString(item.InviteCode)).
		Set("max_members", item.MaxMembers).
		Set("image_url", item.ImageURL).
		Set("status", string(item.Status)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", item.ID))
	if item.DeletedAt != nil {
		builder = builder.Set("deleted_at", item.DeletedAt)
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return fmt.Errorf("build update league query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: league invite code already taken", usecase.ErrConflict)
		}
		return fmt.Errorf("update league: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update league: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: league=%s", usecase.ErrNotFound, item.ID)
	}
	return nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("public_id", leagueID))
}

func (r *LeagueRepository) GetBySlug(ctx context.Context, slug string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("slug", slug))
}

func (r *LeagueRepository) GetByInviteCode(ctx context.Context, code string) (league.League, bool, error) {
	return r.getOne(ctx, qb.Eq("invite_code", code))
}

func (r *LeagueRepository) getOne(ctx context.Context, condition qb.Condition) (league.League, bool, error) {
	query, args, err := qb.Select("*").From("leagues").
		Where(
			condition,
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build get league query: %w", err)
	}
	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("get league: %w", err)
	}
	return leagueFromRow(row), true, nil
}

// SlugExists checks soft-deleted rows too, so a slug is never reissued while
// a buried league still holds it.
func (r *LeagueRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query, args, err := qb.Select("1").From("leagues").
		Where(qb.Eq("slug", slug)).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build slug exists query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return true, nil
}

func (r *LeagueRepository) SearchPublic(ctx context.Context, query league.SearchQuery) ([]league.League, int, error) {
	conditions := []qb.Condition{
		qb.Eq("is_public", true),
		qb.Eq("status", string(league.StatusActive)),
		qb.IsNull("deleted_at"),
	}
	if term := strings.TrimSpace(query.Term); term != "" {
		conditions = append(conditions, qb.Expr("(name ILIKE ? OR description ILIKE ?)", "%"+term+"%", "%"+term+"%"))
	}
	if query.Season > 0 {
		conditions = append(conditions, qb.Eq("season", query.Season))
	}

	countQuery, countArgs, err := qb.Select("COUNT(1)").From("leagues").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count public leagues query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count public leagues: %w", err)
	}

	listQuery, listArgs, err := qb.Select("*").From("leagues").
		Where(conditions...).
		OrderBy("created_at DESC", "id DESC").
		Limit(query.Limit).
		Offset(query.Offset).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build search public leagues query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("search public leagues: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, leagueFromRow(row))
	}
	return out, total, nil
}

func (r *LeagueRepository) ListByMember(ctx context.Context, userID string) ([]league.League, error) {
	query, args, err := qb.Select("l.*").
		From("leagues l JOIN league_members lm ON lm.league_public_id = l.public_id").
		Where(
			qb.Eq("lm.user_id", userID),
			qb.Eq("lm.status", string(league.MemberActive)),
			qb.IsNull("l.deleted_at"),
		).
		OrderBy("lm.joined_at ASC", "l.id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list leagues by member query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list leagues by member: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		out = append(out, leagueFromRow(row))
	}
	return out, nil
}

func (r *LeagueRepository) GetMember(ctx context.Context, leagueID, userID string) (league.Member, bool, error) {
	query, args, err := qb.Select("*").From("league_members").
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.Eq("user_id", userID),
		).
		ToSQL()
	if err != nil {
		return league.Member{}, false, fmt.Errorf("build get league member query: %w", err)
	}
	var row leagueMemberTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.Member{}, false, nil
		}
		return league.Member{}, false, fmt.Errorf("get league member: %w", err)
	}
	return leagueMemberFromRow(row), true, nil
}

func (r *LeagueRepository) CreateMember(ctx context.Context, item league.Member) error {
	query, args, err := qb.InsertModel("league_members", leagueMemberToInsertModel(item), "")
	if err != nil {
		return fmt.Errorf("build create league member query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user is already a member of the league", usecase.ErrConflict)
		}
		return fmt.Errorf("create league member: %w", err)
	}
	return nil
}

func (r *LeagueRepository) UpdateMember(ctx context.Context, item league.Member) error {
	query, args, err := qb.Update("league_members").
		Set("role", string(item.Role)).
		Set("total_points", item.TotalPoints).
		Set("predictions_count", item.PredictionsCount).
		Set("correct_positions", item.CorrectPositions).
		Set("current_streak", item.CurrentStreak).
		Set("best_streak", item.BestStreak).
		Set("joined_at", item.JoinedAt).
		Set("status", string(item.Status)).
		Set("last_active_at", item.LastActiveAt).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("league_public_id", item.LeagueID),
			qb.Eq("user_id", item.UserID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update league member query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update league member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected update league member: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: member league=%s user=%s", usecase.ErrNotFound, item.LeagueID, item.UserID)
	}
	return nil
}

func (r *LeagueRepository) CountActiveMembers(ctx context.Context, leagueID string) (int, error) {
	return r.countMembers(ctx, leagueID, nil)
}

func (r *LeagueRepository) CountActiveAdmins(ctx context.Context, leagueID string) (int, error) {
	role := string(league.RoleAdmin)
	return r.countMembers(ctx, leagueID, &role)
}

func (r *LeagueRepository) countMembers(ctx context.Context, leagueID string, role *string) (int, error) {
	conditions := []qb.Condition{
		qb.Eq("league_public_id", leagueID),
		qb.Eq("status", string(league.MemberActive)),
	}
	if role != nil {
		conditions = append(conditions, qb.Eq("role", *role))
	}
	query, args, err := qb.Select("COUNT(1)").From("league_members").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count league members query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count league members: %w", err)
	}
	return count, nil
}

func (r *LeagueRepository) ListRanking(ctx context.Context, leagueID string, limit, offset int) ([]league.Member, int, error) {
	total, err := r.CountActiveMembers(ctx, leagueID)
	if err != nil {
		return nil, 0, err
	}

	query, args, err := qb.Select("*").From("league_members").
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.Eq("status", string(league.MemberActive)),
		).
		OrderBy("total_points DESC", "correct_positions DESC", "joined_at ASC").
		Limit(limit).
		Offset(offset).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list league ranking query: %w", err)
	}

	var rows []leagueMemberTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list league ranking: %w", err)
	}

	out := make([]league.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, leagueMemberFromRow(row))
	}
	return out, total, nil
}

// MemberRank counts active members strictly ahead in the ranking order. A
// missing or non-active membership ranks zero.
func (r *LeagueRepository) MemberRank(ctx context.Context, leagueID, userID string) (int, error) {
	member, exists, err := r.GetMember(ctx, leagueID, userID)
	if err != nil {
		return 0, err
	}
	if !exists || member.Status != league.MemberActive {
		return 0, nil
	}

	const query = `
SELECT COUNT(1) + 1
FROM league_members
WHERE league_public_id = $1
  AND status = $2
  AND (total_points > $3
    OR (total_points = $3 AND correct_positions > $4)
    OR (total_points = $3 AND correct_positions = $4 AND joined_at < $5))`

	var rank int
	if err := r.db.GetContext(ctx, &rank, query,
		leagueID, string(league.MemberActive),
		member.TotalPoints, member.CorrectPositions, member.JoinedAt,
	); err != nil {
		return 0, fmt.Errorf("get member rank: %w", err)
	}
	return rank, nil
}

func (r *LeagueRepository) GetStats(ctx context.Context, leagueID string) (league.Stats, error) {
	const query = `
SELECT
    COUNT(1) AS member_count,
    COALESCE(SUM(predictions_count), 0) AS total_predictions,
    COALESCE(AVG(total_points), 0) AS avg_points
FROM league_members
WHERE league_public_id = $1 AND status = $2`

	var row struct {
		MemberCount      int     `db:"member_count"`
		TotalPredictions int     `db:"total_predictions"`
		AvgPoints        float64 `db:"avg_points"`
	}
	if err := r.db.GetContext(ctx, &row, query, leagueID, string(league.MemberActive)); err != nil {
		return league.Stats{}, fmt.Errorf("get league stats: %w", err)
	}

	stats := league.Stats{
		LeagueID:         leagueID,
		MemberCount:      row.MemberCount,
		TotalPredictions: row.TotalPredictions,
		AvgPoints:        row.AvgPoints,
	}

	topQuery, topArgs, err := qb.Select("user_id", "total_points").
		From("league_members").
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.Eq("status", string(league.MemberActive)),
		).
		OrderBy("total_points DESC", "correct_positions DESC", "joined_at ASC").
		Limit(1).
		ToSQL()
	if err != nil {
		return league.Stats{}, fmt.Errorf("build top scorer query: %w", err)
	}
	var top struct {
		UserID      string `db:"user_id"`
		TotalPoints int    `db:"total_points"`
	}
	if err := r.db.GetContext(ctx, &top, topQuery, topArgs...); err != nil {
		if isNotFound(err) {
			return stats, nil
		}
		return league.Stats{}, fmt.Errorf("get top scorer: %w", err)
	}
	stats.TopScorerUserID = top.UserID
	stats.TopScorerPoints = top.TotalPoints

	return stats, nil
}
