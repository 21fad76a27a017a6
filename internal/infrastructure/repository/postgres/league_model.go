package postgres

import (
	"database/sql"
	"time"

	"github.com/gridpredict/gridpredict/internal/domain/league"
)

type leagueTableModel struct {
	ID          int64          `db:"id"`
	PublicID    string         `db:"public_id"`
	Name        string         `db:"name"`
	Slug        string         `db:"slug"`
	Description string         `db:"description"`
	IsPublic    bool           `db:"is_public"`
	InviteCode  sql.NullString `db:"invite_code"`
	CreatedBy   string         `db:"created_by"`
	Season      int            `db:"season"`
	MaxMembers  sql.NullInt64  `db:"max_members"`
	ImageURL    string         `db:"image_url"`
	Status      string         `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	DeletedAt   *time.Time     `db:"deleted_at"`
}

type leagueInsertModel struct {
	PublicID    string  `db:"public_id"`
	Name        string  `db:"name"`
	Slug        string  `db:"slug"`
	Description string  `db:"description"`
	IsPublic    bool    `db:"is_public"`
	InviteCode  *string `db:"invite_code"`
	CreatedBy   string  `db:"created_by"`
	Season      int     `db:"season"`
	MaxMembers  *int    `db:"max_members"`
	ImageURL    string  `db:"image_url"`
	Status      string  `db:"status"`
}

type leagueMemberTableModel struct {
	ID               int64     `db:"id"`
	PublicID         string    `db:"public_id"`
	LeagueID         string    `db:"league_public_id"`
	UserID           string    `db:"user_id"`
	Role             string    `db:"role"`
	TotalPoints      int       `db:"total_points"`
	PredictionsCount int       `db:"predictions_count"`
	CorrectPositions int       `db:"correct_positions"`
	CurrentStreak    int       `db:"current_streak"`
	BestStreak       int       `db:"best_streak"`
	JoinedAt         time.Time `db:"joined_at"`
	Status           string    `db:"status"`
	LastActiveAt     time.Time `db:"last_active_at"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type leagueMemberInsertModel struct {
	PublicID     string    `db:"public_id"`
	LeagueID     string    `db:"league_public_id"`
	UserID       string    `db:"user_id"`
	Role         string    `db:"role"`
	JoinedAt     time.Time `db:"joined_at"`
	Status       string    `db:"status"`
	LastActiveAt time.Time `db:"last_active_at"`
}

func leagueFromRow(row leagueTableModel) league.League {
	item := league.League{
		ID:          row.PublicID,
		Name:        row.Name,
		Slug:        row.Slug,
		Description: row.Description,
		IsPublic:    row.IsPublic,
		CreatedBy:   row.CreatedBy,
		Season:      row.Season,
		ImageURL:    row.ImageURL,
		Status:      league.Status(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		DeletedAt:   row.DeletedAt,
	}
	if row.InviteCode.Valid {
		item.InviteCode = row.InviteCode.String
	}
	if row.MaxMembers.Valid {
		maxMembers := int(row.MaxMembers.Int64)
		item.MaxMembers = &maxMembers
	}
	return item
}

func leagueMemberFromRow(row leagueMemberTableModel) league.Member {
	return league.Member{
		ID:               row.PublicID,
		LeagueID:         row.LeagueID,
		UserID:           row.UserID,
		Role:             league.Role(row.Role),
		TotalPoints:      row.TotalPoints,
		PredictionsCount: row.PredictionsCount,
		CorrectPositions: row.CorrectPositions,
		CurrentStreak:    row.CurrentStreak,
		BestStreak:       row.BestStreak,
		JoinedAt:         row.JoinedAt,
		Status:           league.MemberStatus(row.Status),
		LastActiveAt:     row.LastActiveAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func leagueToInsertModel(item league.League) leagueInsertModel {
	return leagueInsertModel{
		PublicID:    item.ID,
		Name:        item.Name,
		Slug:        item.Slug,
		Description: item.Description,
		IsPublic:    item.IsPublic,
		InviteCode:  optionalString(item.InviteCode),
		CreatedBy:   item.CreatedBy,
		Season:      item.Season,
		MaxMembers:  item.MaxMembers,
		ImageURL:    item.ImageURL,
		Status:      string(item.Status),
	}
}

func leagueMemberToInsertModel(item league.Member) leagueMemberInsertModel {
	return leagueMemberInsertModel{
		PublicID:     item.ID,
		LeagueID:     item.LeagueID,
		UserID:       item.UserID,
		Role:         string(item.Role),
		JoinedAt:     item.JoinedAt,
		Status:       string(item.Status),
		LastActiveAt: item.LastActiveAt,
	}
}
