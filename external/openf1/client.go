package openf1

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/gridpredict/gridpredict/internal/platform/logging"
	"github.com/gridpredict/gridpredict/internal/platform/resilience"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

const (
	defaultBaseURL  = "https://api.openf1.org"
	defaultTimeout  = 20 * time.Second
	maxResponseSize = 6 << 20
)

var errOpenF1Transient = crerr.New("openf1 transient failure")

type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the OpenF1 public API. Responses are deduplicated through a
// single flight group and guarded by a circuit breaker.
type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	timeout        time.Duration
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient: &fasthttp.Client{
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseSize,
		},
		baseURL:        baseURL,
		timeout:        timeout,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchSeasonCalendar returns one entry per meeting of the season, with
// qualifying and sprint session times folded in. Rounds follow the calendar
// order of the meetings.
func (c *Client) FetchSeasonCalendar(ctx context.Context, season int) ([]usecase.ExternalRace, error) {
	if season <= 0 {
		return nil, fmt.Errorf("season must be greater than zero")
	}

	var meetings []meetingPayload
	if err := c.doJSON(ctx, "/v1/meetings", map[string]string{"year": itoa(season)}, &meetings); err != nil {
		return nil, fmt.Errorf("fetch meetings year=%d: %w", season, err)
	}

	var sessions []sessionPayload
	if err := c.doJSON(ctx, "/v1/sessions", map[string]string{"year": itoa(season)}, &sessions); err != nil {
		return nil, fmt.Errorf("fetch sessions year=%d: %w", season, err)
	}

	raceAt := make(map[int64]*time.Time, len(meetings))
	qualifyingAt := make(map[int64]*time.Time, len(meetings))
	sprintAt := make(map[int64]*time.Time, len(meetings))
	for _, session := range sessions {
		started := parseProviderTime(session.DateStart)
		if started == nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(session.SessionName)) {
		case "race":
			raceAt[session.MeetingKey] = started
		case "qualifying":
			qualifyingAt[session.MeetingKey] = started
		case "sprint":
			sprintAt[session.MeetingKey] = started
		}
	}

	sort.SliceStable(meetings, func(i, j int) bool {
		left := parseProviderTime(meetings[i].DateStart)
		right := parseProviderTime(meetings[j].DateStart)
		if left == nil || right == nil {
			return meetings[i].MeetingKey < meetings[j].MeetingKey
		}
		return left.Before(*right)
	})

	out := make([]usecase.ExternalRace, 0, len(meetings))
	for idx, meeting := range meetings {
		name := strings.TrimSpace(meeting.MeetingName)
		if name == "" {
			continue
		}

		raceDate := raceAt[meeting.MeetingKey]
		if raceDate == nil {
			raceDate = parseProviderTime(meeting.DateStart)
		}
		if raceDate == nil {
			continue
		}

		sprint := sprintAt[meeting.MeetingKey]
		out = append(out, usecase.ExternalRace{
			Season:         season,
			Round:          idx + 1,
			Name:           name,
			OfficialName:   strings.TrimSpace(meeting.MeetingOfficialName),
			Circuit:        strings.TrimSpace(meeting.CircuitShortName),
			Country:        strings.TrimSpace(meeting.CountryName),
			City:           strings.TrimSpace(meeting.Location),
			RaceDate:       *raceDate,
			QualifyingDate: qualifyingAt[meeting.MeetingKey],
			SprintDate:     sprint,
			Timezone:       strings.TrimSpace(meeting.GMTOffset),
			IsSprint:       sprint != nil,
		})
	}
	return out, nil
}

// FetchPilots returns the driver roster of the season's most recent meeting.
func (c *Client) FetchPilots(ctx context.Context, season int) ([]usecase.ExternalPilot, error) {
	if season <= 0 {
		return nil, fmt.Errorf("season must be greater than zero")
	}

	var meetings []meetingPayload
	if err := c.doJSON(ctx, "/v1/meetings", map[string]string{"year": itoa(season)}, &meetings); err != nil {
		return nil, fmt.Errorf("fetch meetings year=%d: %w", season, err)
	}
	if len(meetings) == 0 {
		return nil, nil
	}

	latest := meetings[0]
	for _, meeting := range meetings[1:] {
		if meeting.MeetingKey > latest.MeetingKey {
			latest = meeting
		}
	}

	var drivers []driverPayload
	if err := c.doJSON(ctx, "/v1/drivers", map[string]string{"meeting_key": i64toa(latest.MeetingKey)}, &drivers); err != nil {
		return nil, fmt.Errorf("fetch drivers meeting_key=%d: %w", latest.MeetingKey, err)
	}

	seen := make(map[string]struct{}, len(drivers))
	out := make([]usecase.ExternalPilot, 0, len(drivers))
	for _, driver := range drivers {
		acronym := strings.ToUpper(strings.TrimSpace(driver.NameAcronym))
		if acronym == "" {
			continue
		}
		if _, dup := seen[acronym]; dup {
			continue
		}
		seen[acronym] = struct{}{}
		out = append(out, usecase.ExternalPilot{
			Name:    strings.TrimSpace(driver.FullName),
			Acronym: acronym,
			Number:  i64toa(driver.DriverNumber),
			Team:    strings.TrimSpace(driver.TeamName),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Acronym < out[j].Acronym })
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "openf1 circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: race data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.buildURL(path, query)
	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isOpenF1CircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) buildURL(path string, query map[string]string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(c.baseURL)
	_, _ = buf.WriteString(path)

	if len(query) > 0 {
		values := url.Values{}
		for key, value := range query {
			values.Set(key, value)
		}
		_ = buf.WriteByte('?')
		_, _ = buf.WriteString(values.Encode())
	}
	return buf.String()
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := c.sendOnce(fullURL)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !isOpenF1CircuitFailure(err) {
			return nil, err
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.Warn("openf1 request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) sendOnce(fullURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.httpClient.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errOpenF1Transient, err)
	}

	statusCode := resp.StatusCode()
	if statusCode >= 200 && statusCode < 300 {
		body := resp.Body()
		raw := make([]byte, len(body))
		copy(raw, body)
		return raw, nil
	}

	if isRetryableStatus(statusCode) {
		return nil, fmt.Errorf("%w: provider status=%d body=%s", errOpenF1Transient, statusCode, abbreviateBody(resp.Body()))
	}
	return nil, fmt.Errorf("provider status=%d body=%s", statusCode, abbreviateBody(resp.Body()))
}

func isOpenF1CircuitFailure(err error) bool {
	return stderrors.Is(err, errOpenF1Transient)
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == fasthttp.StatusRequestTimeout ||
		statusCode == fasthttp.StatusTooManyRequests ||
		statusCode >= fasthttp.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > 512 {
		return text[:512] + "...(truncated)"
	}
	return text
}

func parseProviderTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}

func i64toa(value int64) string {
	return fmt.Sprintf("%d", value)
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
