package openf1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridpredict/gridpredict/internal/platform/logging"
	"github.com/gridpredict/gridpredict/internal/platform/resilience"
	"github.com/gridpredict/gridpredict/internal/usecase"
)

func newTestClient(baseURL string, breaker resilience.CircuitBreakerConfig) *Client {
	return NewClient(ClientConfig{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
}

func TestClient_FetchSeasonCalendar(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/meetings":
			if got := r.URL.Query().Get("year"); got != "2026" {
				t.Errorf("unexpected year query: %s", got)
			}
			_, _ = w.Write([]byte(`[
				{"meeting_key": 2, "meeting_name": "Chinese Grand Prix", "circuit_short_name": "Shanghai", "country_name": "China", "location": "Shanghai", "date_start": "2026-03-13T03:00:00+00:00", "gmt_offset": "08:00:00", "year": 2026},
				{"meeting_key": 1, "meeting_name": "Australian Grand Prix", "meeting_official_name": "Formula 1 Australian Grand Prix 2026", "circuit_short_name": "Melbourne", "country_name": "Australia", "location": "Melbourne", "date_start": "2026-03-06T01:00:00+00:00", "gmt_offset": "11:00:00", "year": 2026},
				{"meeting_key": 3, "meeting_name": "", "date_start": "2026-03-20T01:00:00+00:00"}
			]`))
		case "/v1/sessions":
			_, _ = w.Write([]byte(`[
				{"session_key": 11, "meeting_key": 1, "session_name": "Qualifying", "date_start": "2026-03-07T05:00:00+00:00"},
				{"session_key": 12, "meeting_key": 1, "session_name": "Race", "date_start": "2026-03-08T05:00:00+00:00"},
				{"session_key": 21, "meeting_key": 2, "session_name": "Sprint", "date_start": "2026-03-14T03:00:00+00:00"},
				{"session_key": 22, "meeting_key": 2, "session_name": "Race", "date_start": "2026-03-15T07:00:00+00:00"},
				{"session_key": 23, "meeting_key": 2, "session_name": "Practice 1", "date_start": "not-a-time"}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, resilience.CircuitBreakerConfig{})
	races, err := client.FetchSeasonCalendar(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, races, 2)

	melbourne := races[0]
	require.Equal(t, 1, melbourne.Round)
	require.Equal(t, "Australian Grand Prix", melbourne.Name)
	require.Equal(t, "Melbourne", melbourne.Circuit)
	require.Equal(t, time.Date(2026, 3, 8, 5, 0, 0, 0, time.UTC), melbourne.RaceDate)
	require.NotNil(t, melbourne.QualifyingDate)
	require.False(t, melbourne.IsSprint)

	shanghai := races[1]
	require.Equal(t, 2, shanghai.Round)
	require.True(t, shanghai.IsSprint)
	require.NotNil(t, shanghai.SprintDate)
	require.Nil(t, shanghai.QualifyingDate)

	_, err = client.FetchSeasonCalendar(context.Background(), 0)
	require.Error(t, err)
}

func TestClient_FetchPilotsUsesLatestMeeting(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/meetings":
			_, _ = w.Write([]byte(`[
				{"meeting_key": 5, "meeting_name": "Early", "date_start": "2026-03-06T01:00:00+00:00"},
				{"meeting_key": 9, "meeting_name": "Late", "date_start": "2026-06-06T01:00:00+00:00"}
			]`))
		case "/v1/drivers":
			if got := r.URL.Query().Get("meeting_key"); got != "9" {
				t.Errorf("expected the latest meeting key, got %s", got)
			}
			_, _ = w.Write([]byte(`[
				{"driver_number": 1, "full_name": "Max Verstappen", "name_acronym": "ver", "team_name": "Red Bull Racing"},
				{"driver_number": 4, "full_name": "Lando Norris", "name_acronym": "NOR", "team_name": "McLaren"},
				{"driver_number": 99, "full_name": "Duplicate Verstappen", "name_acronym": "VER"},
				{"driver_number": 0, "full_name": "No Acronym", "name_acronym": ""}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, resilience.CircuitBreakerConfig{})
	pilots, err := client.FetchPilots(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, pilots, 2)
	require.Equal(t, "NOR", pilots[0].Acronym)
	require.Equal(t, "VER", pilots[1].Acronym)
	require.Equal(t, "Max Verstappen", pilots[1].Name)
	require.Equal(t, "1", pilots[1].Number)
}

func TestClient_NonRetryableStatusFailsFast(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, resilience.CircuitBreakerConfig{})
	client.maxRetries = 2

	_, err := client.FetchSeasonCalendar(context.Background(), 2026)
	require.Error(t, err)
	require.Equal(t, int64(1), calls.Load())
}

func TestClient_CircuitBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	_, err := client.FetchSeasonCalendar(context.Background(), 2026)
	require.Error(t, err)
	require.NotErrorIs(t, err, usecase.ErrDependencyUnavailable)

	_, err = client.FetchSeasonCalendar(context.Background(), 2026)
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
}
