package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gridpredict/gridpredict/internal/domain/jobscheduler"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type internalJobRequest struct {
	Season     int    `json:"season" validate:"omitempty,min=1950"`
	Force      bool   `json:"force"`
	DispatchID string `json:"dispatch_id"`
}

// RunRaceClockJob advances the season's races through their lifecycle and
// re-queues the next tick. QStash delivers here on schedule.
func (h *Handler) RunRaceClockJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRaceClockJob")
	defer span.End()

	if h.raceClockService == nil {
		writeError(ctx, w, fmt.Errorf("%w: race clock is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := h.decodeInternalJobRequest(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.raceClockService.RunTick(ctx, usecase.RaceClockInput{
		Season: req.Season,
		Force:  req.Force,
	})
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "race-clock",
			JobPath:      "/v1/internal/jobs/race-clock",
			Season:       req.Season,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run race clock job failed", "season", req.Season, "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "race-clock",
		JobPath:    "/v1/internal/jobs/race-clock",
		Season:     req.Season,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

// RunCalendarSyncJob pulls the season calendar and driver roster from the
// external provider and reconciles local races and pilots.
func (h *Handler) RunCalendarSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCalendarSyncJob")
	defer span.End()

	if h.calendarSyncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: calendar sync is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := h.decodeInternalJobRequest(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.calendarSyncService.SyncSeason(ctx, req.Season)
	if err != nil {
		h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
			JobName:      "calendar-sync",
			JobPath:      "/v1/internal/jobs/calendar-sync",
			Season:       req.Season,
			Status:       jobscheduler.StatusFailed,
			Payload:      buildInternalJobPayload(req),
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run calendar sync job failed", "season", req.Season, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, req, jobscheduler.DispatchEvent{
		JobName:    "calendar-sync",
		JobPath:    "/v1/internal/jobs/calendar-sync",
		Season:     summary.Season,
		Status:     jobscheduler.StatusCompleted,
		Payload:    buildInternalJobPayload(req),
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, calendarSyncSummaryDTO{
		Season:        summary.Season,
		RacesCreated:  summary.RacesCreated,
		RacesUpdated:  summary.RacesUpdated,
		RacesSkipped:  summary.RacesSkipped,
		PilotsUpdated: summary.PilotsUpdated,
	})
}

// RunBootstrapJob seeds the job queue: it enqueues the first race clock tick
// and an immediate calendar sync.
func (h *Handler) RunBootstrapJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunBootstrapJob")
	defer span.End()

	if h.raceClockService == nil {
		writeError(ctx, w, fmt.Errorf("%w: race clock is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := h.decodeInternalJobRequest(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.raceClockService.Bootstrap(ctx, usecase.RaceClockInput{
		Season: req.Season,
		Force:  req.Force,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run bootstrap job failed", "season", req.Season, "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) decodeInternalJobRequest(ctx context.Context, r *http.Request) (internalJobRequest, error) {
	var req internalJobRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		return internalJobRequest{}, err
	}
	if err := h.validateRequest(ctx, req); err != nil {
		return internalJobRequest{}, err
	}
	return req, nil
}

func (h *Handler) recordInternalJobDispatch(ctx context.Context, req internalJobRequest, event jobscheduler.DispatchEvent) {
	if h.jobDispatchRepo == nil {
		return
	}

	dispatchID := strings.TrimSpace(req.DispatchID)
	if dispatchID == "" {
		dispatchID = buildManualDispatchID(event.JobName, event.Season, event.OccurredAt)
	}
	event.DispatchID = dispatchID

	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID

	if err := h.jobDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record internal job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job_name", event.JobName,
			"status", event.Status,
			"error", err,
		)
	}
}

func buildInternalJobPayload(req internalJobRequest) map[string]any {
	payload := map[string]any{
		"season": req.Season,
		"force":  req.Force,
	}
	if strings.TrimSpace(req.DispatchID) != "" {
		payload["dispatch_id"] = req.DispatchID
	}
	return payload
}

func buildManualDispatchID(jobName string, season int, now time.Time) string {
	jobName = sanitizeDispatchPart(jobName)
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return fmt.Sprintf("manual-%s-%d-%s", jobName, season, ts)
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

type calendarSyncSummaryDTO struct {
	Season        int `json:"season"`
	RacesCreated  int `json:"races_created"`
	RacesUpdated  int `json:"races_updated"`
	RacesSkipped  int `json:"races_skipped"`
	PilotsUpdated int `json:"pilots_updated"`
}
