package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/gridpredict/gridpredict/internal/domain/jobscheduler"
	"github.com/gridpredict/gridpredict/internal/domain/user"
	"github.com/gridpredict/gridpredict/internal/platform/logging"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

type Handler struct {
	raceService         *usecase.RaceService
	leagueService       *usecase.LeagueService
	predictionService   *usecase.PredictionService
	dashboardService    *usecase.DashboardService
	pilotService        *usecase.PilotService
	raceClockService    *usecase.RaceClockService
	calendarSyncService *usecase.CalendarSyncService
	jobDispatchRepo     jobscheduler.Repository
	logger              *logging.Logger
	validator           *validator.Validate
}

func NewHandler(
	raceService *usecase.RaceService,
	leagueService *usecase.LeagueService,
	predictionService *usecase.PredictionService,
	dashboardService *usecase.DashboardService,
	pilotService *usecase.PilotService,
	raceClockService *usecase.RaceClockService,
	calendarSyncService *usecase.CalendarSyncService,
	jobDispatchRepo jobscheduler.Repository,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		raceService:         raceService,
		leagueService:       leagueService,
		predictionService:   predictionService,
		dashboardService:    dashboardService,
		pilotService:        pilotService,
		raceClockService:    raceClockService,
		calendarSyncService: calendarSyncService,
		jobDispatchRepo:     jobDispatchRepo,
		logger:              logger,
		validator:           validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// requirePrincipal pulls the authenticated caller out of the context; the
// auth middleware is responsible for putting it there.
func requirePrincipal(ctx context.Context) (user.Principal, error) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return user.Principal{}, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized)
	}
	return principal, nil
}

func requireAdmin(ctx context.Context) (user.Principal, error) {
	principal, err := requirePrincipal(ctx)
	if err != nil {
		return user.Principal{}, err
	}
	if !principal.IsAdmin() {
		return user.Principal{}, fmt.Errorf("%w: platform admin role is required", usecase.ErrPermissionDenied)
	}
	return principal, nil
}

func decodeJSONBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// decodeOptionalJSONBody tolerates an empty body for endpoints whose payload
// is entirely optional.
func decodeOptionalJSONBody(r *http.Request, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, name)
	}
	return value, nil
}

func pagination(r *http.Request) (limit, offset int, err error) {
	limit, err = queryInt(r, "limit", 0)
	if err != nil {
		return 0, 0, err
	}
	offset, err = queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if limit < 0 || offset < 0 {
		return 0, 0, fmt.Errorf("%w: limit and offset must not be negative", usecase.ErrInvalidInput)
	}
	return limit, offset, nil
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

func formatTimePtr(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := formatTime(*value)
	return &formatted
}

func parseTimePtr(raw *string, field string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", usecase.ErrInvalidInput, field)
	}
	utc := parsed.UTC()
	return &utc, nil
}

func parseTimeRequired(raw string, field string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", usecase.ErrInvalidInput, field)
	}
	return parsed.UTC(), nil
}

// pagedDTO wraps list payloads that carry a total count for paging.
type pagedDTO struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
