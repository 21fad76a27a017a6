package league

import "context"

// Repository describes league and membership persistence needs from use cases.
type Repository interface {
	// CreateWithAdmin inserts the league row and the creator's admin
	// membership in one transaction.
	CreateWithAdmin(ctx context.Context, item League, admin Member) error
	Update(ctx context.Context, item League) error
	GetByID(ctx context.Context, leagueID string) (League, bool, error)
	GetBySlug(ctx context.Context, slug string) (League, bool, error)
	GetByInviteCode(ctx context.Context, code string) (League, bool, error)
	// SlugExists checks soft-deleted rows too so a recreated league never
	// collides with a buried slug.
	SlugExists(ctx context.Context, slug string) (bool, error)
	SearchPublic(ctx context.Context, query SearchQuery) ([]League, int, error)
	ListByMember(ctx context.Context, userID string) ([]League, error)

	GetMember(ctx context.Context, leagueID, userID string) (Member, bool, error)
	CreateMember(ctx context.Context, item Member) error
	UpdateMember(ctx context.Context, item Member) error
	CountActiveMembers(ctx context.Context, leagueID string) (int, error)
	CountActiveAdmins(ctx context.Context, leagueID string) (int, error)
	// ListRanking orders active members by totalPoints desc,
	// correctPositions desc, joinedAt asc and returns the total count.
	ListRanking(ctx context.Context, leagueID string, limit, offset int) ([]Member, int, error)
	MemberRank(ctx context.Context, leagueID, userID string) (int, error)
	GetStats(ctx context.Context, leagueID string) (Stats, error)
}
