package prediction

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusLocked    Status = "locked"
	StatusScored    Status = "scored"
	StatusCancelled Status = "cancelled"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusLocked, StatusScored, StatusCancelled:
		return true
	}
	return false
}

const DefaultTotalPositions = 10

// Prediction is one user's predicted finishing order for a race. LeagueID is
// empty for a personal prediction outside any league. Unique per
// (userID, raceID, leagueID), with the empty league counting as a value.
type Prediction struct {
	ID               string
	UserID           string
	RaceID           string
	LeagueID         string
	Status           Status
	TotalPoints      int
	CorrectPositions int
	TotalPositions   int
	SubmittedAt      *time.Time
	ScoredAt         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Items            []Item
}

// Item is one predicted position. ActualPosition and PositionDiff stay zero
// until the prediction is scored; ActualPosition is zero when the pilot has
// no recorded result.
type Item struct {
	ID             string
	PredictionID   string
	Position       int
	PilotID        string
	PointsEarned   int
	IsCorrect      bool
	ActualPosition int
	PositionDiff   int
}

// Perfect reports whether every predicted position was exact.
func (p Prediction) Perfect() bool {
	return p.TotalPositions > 0 && p.CorrectPositions == p.TotalPositions
}

// PilotPickCount is how often a user picked a pilot across predictions.
type PilotPickCount struct {
	PilotID string
	Count   int
}

// PilotHitRate is a pilot's exact-position success rate for a user.
type PilotHitRate struct {
	PilotID     string
	Picks       int
	Hits        int
	SuccessRate float64
}

type ListQuery struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}
