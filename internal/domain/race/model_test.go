package race

import (
	"testing"
	"time"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusScheduled, StatusQualifying, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusPostponed, true},
		{StatusScheduled, StatusInProgress, false},
		{StatusScheduled, StatusCompleted, false},
		{StatusQualifying, StatusInProgress, true},
		{StatusQualifying, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusPostponed, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusScheduled, true},
		{StatusCancelled, StatusQualifying, false},
		{StatusPostponed, StatusScheduled, true},
		{StatusPostponed, StatusCompleted, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatus_CompletedIsTerminal(t *testing.T) {
	t.Parallel()

	if got := StatusCompleted.AllowedTransitions(); len(got) != 0 {
		t.Fatalf("expected no transitions out of completed, got %v", got)
	}
}

func TestValidStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusScheduled, StatusQualifying, StatusInProgress, StatusCompleted, StatusCancelled, StatusPostponed} {
		if !ValidStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ValidStatus(Status("delayed")) {
		t.Error("expected unknown status to be invalid")
	}
}

func TestRace_EffectiveDeadline(t *testing.T) {
	t.Parallel()

	raceDate := time.Date(2026, 5, 24, 13, 0, 0, 0, time.UTC)
	qualifying := raceDate.Add(-22 * time.Hour)
	explicit := raceDate.Add(-30 * time.Hour)

	r := Race{RaceDate: raceDate}
	if got := r.EffectiveDeadline(); !got.Equal(raceDate) {
		t.Fatalf("expected race date fallback, got %v", got)
	}

	r.QualifyingDate = &qualifying
	if got := r.EffectiveDeadline(); !got.Equal(qualifying) {
		t.Fatalf("expected qualifying date, got %v", got)
	}

	r.PredictionDeadline = &explicit
	if got := r.EffectiveDeadline(); !got.Equal(explicit) {
		t.Fatalf("expected explicit deadline, got %v", got)
	}
}

func TestRace_AcceptsPredictions(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2026, 5, 23, 15, 0, 0, 0, time.UTC)
	r := Race{
		Status:             StatusScheduled,
		RaceDate:           deadline.Add(22 * time.Hour),
		PredictionDeadline: &deadline,
	}

	if !r.AcceptsPredictions(deadline.Add(-time.Minute)) {
		t.Error("expected predictions open before the deadline")
	}
	if r.AcceptsPredictions(deadline) {
		t.Error("expected predictions closed at the deadline")
	}
	if r.AcceptsPredictions(deadline.Add(time.Minute)) {
		t.Error("expected predictions closed after the deadline")
	}

	r.Status = StatusQualifying
	if r.AcceptsPredictions(deadline.Add(-time.Hour)) {
		t.Error("expected predictions closed once qualifying starts")
	}
}

func TestValidResultStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []ResultStatus{ResultFinished, ResultDNF, ResultDisqualified, ResultDNS} {
		if !ValidResultStatus(s) {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ValidResultStatus(ResultStatus("retired")) {
		t.Error("expected unknown result status to be invalid")
	}
}
