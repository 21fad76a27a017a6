package race

import "time"

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusQualifying Status = "qualifying"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusPostponed  Status = "postponed"
)

// transitions is the full lifecycle graph. Completed is terminal; cancelled
// and postponed races can be rescheduled.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusQualifying, StatusCancelled, StatusPostponed},
	StatusQualifying: {StatusInProgress, StatusCancelled, StatusPostponed},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {StatusScheduled},
	StatusPostponed:  {StatusScheduled},
}

func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s in one step.
func (s Status) AllowedTransitions() []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

const (
	MinPosition = 1
	MaxPosition = 22
)

type Race struct {
	ID                 string
	Name               string
	OfficialName       string
	Circuit            string
	Country            string
	City               string
	FlagURL            string
	CircuitImageURL    string
	Round              int
	Season             int
	RaceDate           time.Time
	QualifyingDate     *time.Time
	SprintDate         *time.Time
	FP1Date            *time.Time
	FP2Date            *time.Time
	FP3Date            *time.Time
	PredictionDeadline *time.Time
	Status             Status
	Laps               int
	CircuitLength      float64
	Timezone           string
	IsSprint           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EffectiveDeadline is the cutoff for predictions: the explicit deadline when
// set, otherwise qualifying start, otherwise race start.
func (r Race) EffectiveDeadline() time.Time {
	if r.PredictionDeadline != nil {
		return *r.PredictionDeadline
	}
	if r.QualifyingDate != nil {
		return *r.QualifyingDate
	}
	return r.RaceDate
}

func (r Race) AcceptsPredictions(now time.Time) bool {
	return r.Status == StatusScheduled && now.Before(r.EffectiveDeadline())
}

func (r Race) Completed() bool {
	return r.Status == StatusCompleted
}

type ResultStatus string

const (
	ResultFinished     ResultStatus = "finished"
	ResultDNF          ResultStatus = "dnf"
	ResultDisqualified ResultStatus = "dsq"
	ResultDNS          ResultStatus = "dns"
)

func ValidResultStatus(s ResultStatus) bool {
	switch s {
	case ResultFinished, ResultDNF, ResultDisqualified, ResultDNS:
		return true
	}
	return false
}

type Result struct {
	ID         string
	RaceID     string
	PilotID    string
	Position   int
	Points     float64
	Status     ResultStatus
	TimeOrGap  string
	FastestLap bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SeasonStats summarizes a season's calendar by lifecycle status.
type SeasonStats struct {
	Season    int
	Total     int
	ByStatus  map[Status]int
	Completed int
}
