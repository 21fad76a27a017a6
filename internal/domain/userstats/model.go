package userstats

import "time"

// UserStats is the cached global aggregate for one user. It is recomputed
// lazily when stale rather than kept transactionally current.
type UserStats struct {
	UserID                    string
	TotalPoints               int
	TotalPredictions          int
	ScoredPredictions         int
	CurrentStreak             int
	BestStreak                int
	PerfectPredictions        int
	TotalCorrectPositions     int
	AvgPointsPerRace          float64
	AvgCorrectPositions       float64
	MostPickedPilotID         string
	MostPickedCount           int
	BestPerformingPilotID     string
	BestPerformingSuccessRate float64
	LastCalculatedAt          time.Time
	CacheVersion              int
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// Stale reports whether the aggregate is older than maxAge.
func (s UserStats) Stale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastCalculatedAt) > maxAge
}
