package league

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
	MemberBanned   MemberStatus = "banned"
)

// League is a prediction league. Private leagues carry an invite code;
// public ones are joinable by id.
type League struct {
	ID          string
	Name        string
	Slug        string
	Description string
	IsPublic    bool
	InviteCode  string
	CreatedBy   string
	Season      int
	MaxMembers  *int
	ImageURL    string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

type Member struct {
	ID               string
	LeagueID         string
	UserID           string
	Role             Role
	TotalPoints      int
	PredictionsCount int
	CorrectPositions int
	CurrentStreak    int
	BestStreak       int
	JoinedAt         time.Time
	Status           MemberStatus
	LastActiveAt     time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Details is a league together with viewer-scoped context.
type Details struct {
	League      League
	MemberCount int
	Viewer      *Member
	ViewerRank  int
}

// Stats aggregates league-wide activity.
type Stats struct {
	LeagueID         string
	MemberCount      int
	TotalPredictions int
	AvgPoints        float64
	TopScorerUserID  string
	TopScorerPoints  int
}

type SearchQuery struct {
	Term   string
	Season int
	Limit  int
	Offset int
}
