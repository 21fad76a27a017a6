package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gridpredict/gridpredict/internal/domain/jobscheduler"
	"github.com/gridpredict/gridpredict/internal/domain/race"
	"github.com/gridpredict/gridpredict/internal/platform/logging"
)

// JobQueue enqueues delayed callbacks to the internal job endpoints.
type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type RaceClockConfig struct {
	TickInterval     time.Duration
	IdleTickInterval time.Duration
	CalendarInterval time.Duration
}

type RaceClockInput struct {
	Season int
	Force  bool
}

type RaceClockResult struct {
	Season           int      `json:"season"`
	RaceCount        int      `json:"race_count"`
	AdvancedCount    int      `json:"advanced_count"`
	QueuedCount      int      `json:"queued_count"`
	QueuedOperations []string `json:"queued_operations"`
}

// raceTransitioner is the slice of RaceService the clock needs; going through
// it keeps the side effects of status changes (prediction locking) in one
// place.
type raceTransitioner interface {
	TransitionStatus(ctx context.Context, raceID string, target race.Status) (race.Race, error)
}

// RaceClockService advances races through their lifecycle as their session
// times pass and keeps the next clock tick queued.
type RaceClockService struct {
	raceRepo     race.Repository
	races        raceTransitioner
	queue        JobQueue
	dispatchRepo jobscheduler.Repository
	cfg          RaceClockConfig
	logger       *logging.Logger
	now          func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewRaceClockService(
	raceRepo race.Repository,
	races raceTransitioner,
	queue JobQueue,
	dispatchRepo jobscheduler.Repository,
	cfg RaceClockConfig,
	logger *logging.Logger,
) *RaceClockService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Minute
	}
	if cfg.IdleTickInterval <= 0 {
		cfg.IdleTickInterval = 6 * time.Hour
	}
	if cfg.CalendarInterval <= 0 {
		cfg.CalendarInterval = 24 * time.Hour
	}

	return &RaceClockService{
		raceRepo:     raceRepo,
		races:        races,
		queue:        queue,
		dispatchRepo: dispatchRepo,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// RunTick advances every race whose qualifying or race start has passed and
// queues the next tick. Scheduled races whose race start passed without a
// qualifying slot step through qualifying in the same tick.
func (s *RaceClockService) RunTick(ctx context.Context, input RaceClockInput) (RaceClockResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceClockService.RunTick")
	defer span.End()

	now := s.now().UTC()
	season := input.Season
	if season == 0 {
		season = now.Year()
	}

	races, err := s.raceRepo.ListBySeason(ctx, season, "")
	if err != nil {
		return RaceClockResult{}, fmt.Errorf("list season races for clock: %w", err)
	}

	result := RaceClockResult{
		Season:           season,
		RaceCount:        len(races),
		QueuedOperations: make([]string, 0, 2),
	}

	for _, item := range races {
		advanced, err := s.advance(ctx, item, now)
		if err != nil {
			return RaceClockResult{}, err
		}
		result.AdvancedCount += advanced
	}

	delay := s.nextTickDelay(races, now)
	if input.Force {
		delay = 0
	}
	if err := s.enqueueTick(ctx, season, delay, now); err != nil {
		return RaceClockResult{}, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, fmt.Sprintf("race-clock:%d", season))

	s.logger.InfoContext(ctx, "race clock tick",
		"season", season,
		"races", result.RaceCount,
		"advanced", result.AdvancedCount,
		"next_tick_in", delay.String(),
	)
	return result, nil
}

// Bootstrap queues the first clock tick and a calendar sync for a season.
func (s *RaceClockService) Bootstrap(ctx context.Context, input RaceClockInput) (RaceClockResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RaceClockService.Bootstrap")
	defer span.End()

	now := s.now().UTC()
	season := input.Season
	if season == 0 {
		season = now.Year()
	}

	result := RaceClockResult{
		Season:           season,
		QueuedOperations: make([]string, 0, 2),
	}
	if err := s.enqueueTick(ctx, season, 0, now); err != nil {
		return RaceClockResult{}, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, fmt.Sprintf("race-clock:%d", season))

	if err := s.EnqueueCalendarSync(ctx, season, 0); err != nil {
		return RaceClockResult{}, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, fmt.Sprintf("calendar-sync:%d", season))

	return result, nil
}

// advance moves one race forward as far as its timestamps allow and returns
// the number of transitions applied.
func (s *RaceClockService) advance(ctx context.Context, item race.Race, now time.Time) (int, error) {
	advanced := 0

	if item.Status == race.StatusScheduled {
		due := false
		if item.QualifyingDate != nil && !now.Before(*item.QualifyingDate) {
			due = true
		}
		if !now.Before(item.RaceDate) {
			due = true
		}
		if !due {
			return 0, nil
		}
		updated, err := s.races.TransitionStatus(ctx, item.ID, race.StatusQualifying)
		if err != nil {
			return advanced, fmt.Errorf("advance race=%s to qualifying: %w", item.ID, err)
		}
		item = updated
		advanced++
	}

	if item.Status == race.StatusQualifying && !now.Before(item.RaceDate) {
		if _, err := s.races.TransitionStatus(ctx, item.ID, race.StatusInProgress); err != nil {
			return advanced, fmt.Errorf("advance race=%s to in_progress: %w", item.ID, err)
		}
		advanced++
	}

	return advanced, nil
}

// nextTickDelay picks the next wake-up: the nearest future qualifying or race
// start, clamped to the tick interval, or the idle interval when the season
// has nothing left to advance.
func (s *RaceClockService) nextTickDelay(races []race.Race, now time.Time) time.Duration {
	var nearest *time.Time
	consider := func(at *time.Time) {
		if at == nil || !at.After(now) {
			return
		}
		if nearest == nil || at.Before(*nearest) {
			next := *at
			nearest = &next
		}
	}

	for _, item := range races {
		switch item.Status {
		case race.StatusScheduled:
			consider(item.QualifyingDate)
			raceAt := item.RaceDate
			consider(&raceAt)
		case race.StatusQualifying:
			raceAt := item.RaceDate
			consider(&raceAt)
		}
	}

	if nearest == nil {
		return s.cfg.IdleTickInterval
	}
	delay := nearest.Sub(now)
	if delay > s.cfg.TickInterval {
		return s.cfg.TickInterval
	}
	if delay < time.Minute {
		return time.Minute
	}
	return delay
}

func (s *RaceClockService) enqueueTick(ctx context.Context, season int, delay time.Duration, now time.Time) error {
	seasonKey := fmt.Sprintf("%d", season)
	dedupID := dedupKey("race-clock", seasonKey, now.Add(delay), s.cfg.TickInterval)
	payload := map[string]any{
		"season":      season,
		"dispatch_id": dedupID,
	}
	if err := s.queue.Enqueue(ctx, "/v1/internal/jobs/race-clock", payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      "race-clock",
			JobPath:      "/v1/internal/jobs/race-clock",
			Season:       season,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return fmt.Errorf("enqueue race-clock season=%d: %w", season, err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    "race-clock",
		JobPath:    "/v1/internal/jobs/race-clock",
		Season:     season,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})
	return nil
}

// EnqueueCalendarSync queues a provider calendar import for a season.
func (s *RaceClockService) EnqueueCalendarSync(ctx context.Context, season int, delay time.Duration) error {
	now := s.now().UTC()
	seasonKey := fmt.Sprintf("%d", season)
	dedupID := dedupKey("calendar-sync", seasonKey, now.Add(delay), s.cfg.CalendarInterval)
	payload := map[string]any{
		"season":      season,
		"dispatch_id": dedupID,
	}
	if err := s.queue.Enqueue(ctx, "/v1/internal/jobs/calendar-sync", payload, delay, dedupID); err != nil {
		s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
			DispatchID:   dedupID,
			JobName:      "calendar-sync",
			JobPath:      "/v1/internal/jobs/calendar-sync",
			Season:       season,
			Status:       jobscheduler.StatusFailed,
			Payload:      payload,
			ErrorMessage: err.Error(),
			OccurredAt:   now,
		})
		return fmt.Errorf("enqueue calendar-sync season=%d: %w", season, err)
	}
	s.recordDispatchEvent(ctx, jobscheduler.DispatchEvent{
		DispatchID: dedupID,
		JobName:    "calendar-sync",
		JobPath:    "/v1/internal/jobs/calendar-sync",
		Season:     season,
		Status:     jobscheduler.StatusSent,
		Payload:    payload,
		OccurredAt: now,
	})
	return nil
}

func dedupKey(prefix, key string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	key = sanitizeDedupSegment(key)
	return prefix + "-" + key + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func (s *RaceClockService) recordDispatchEvent(ctx context.Context, event jobscheduler.DispatchEvent) {
	if s.dispatchRepo == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}
	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatchRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job dispatch event failed",
			"dispatch_id", event.DispatchID,
			"status", event.Status,
			"error", err,
		)
	}
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}
