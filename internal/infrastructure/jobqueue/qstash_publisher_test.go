package jobqueue

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gridpredict/gridpredict/internal/platform/logging"
	"github.com/gridpredict/gridpredict/internal/platform/resilience"
)

func TestQStashPublisher_Enqueue(t *testing.T) {
	t.Parallel()

	var (
		capturedMethod string
		capturedPath   string
		capturedHeader http.Header
		capturedBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		capturedHeader = r.Header.Clone()
		capturedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:          srv.URL,
		Token:            "qstash-token",
		TargetBaseURL:    "https://api.gridpredict.io",
		Retries:          3,
		InternalJobToken: "internal-secret",
	}, logging.NewNop())

	err := publisher.Enqueue(context.Background(), "v1/internal/jobs/race-clock", map[string]any{"season": 2026}, 90*time.Second, "race-clock-2026-1")
	require.NoError(t, err)

	require.Equal(t, http.MethodPost, capturedMethod)
	require.Equal(t, "/v2/publish/https://api.gridpredict.io/v1/internal/jobs/race-clock", capturedPath)
	require.Equal(t, "Bearer qstash-token", capturedHeader.Get("Authorization"))
	require.Equal(t, "POST", capturedHeader.Get("Upstash-Method"))
	require.Equal(t, "3", capturedHeader.Get("Upstash-Retries"))
	require.Equal(t, "90s", capturedHeader.Get("Upstash-Delay"))
	require.Equal(t, "race-clock-2026-1", capturedHeader.Get("Upstash-Deduplication-Id"))
	require.Equal(t, "internal-secret", capturedHeader.Get("Upstash-Forward-X-Internal-Job-Token"))
	require.JSONEq(t, `{"season": 2026}`, string(capturedBody))
}

func TestQStashPublisher_EnqueueValidation(t *testing.T) {
	t.Parallel()

	logger := logging.NewNop()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       "https://qstash.upstash.io",
		TargetBaseURL: "https://api.gridpredict.io",
	}, logger)
	require.Error(t, publisher.Enqueue(context.Background(), "   ", nil, 0, ""))

	publisher = NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       "ftp://qstash.upstash.io",
		TargetBaseURL: "https://api.gridpredict.io",
	}, logger)
	require.Error(t, publisher.Enqueue(context.Background(), "/v1/internal/jobs/race-clock", nil, 0, ""))

	publisher = NewQStashPublisher(QStashPublisherConfig{
		BaseURL: "https://qstash.upstash.io",
	}, logger)
	require.Error(t, publisher.Enqueue(context.Background(), "/v1/internal/jobs/race-clock", nil, 0, ""))
}

func TestQStashPublisher_CircuitBreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       srv.URL,
		TargetBaseURL: "https://api.gridpredict.io",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())

	err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/race-clock", nil, 0, "dedup-1")
	require.Error(t, err)

	err = publisher.Enqueue(context.Background(), "/v1/internal/jobs/race-clock", nil, 0, "dedup-2")
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestQStashPublisher_NonRetryableStatusDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	publisher := NewQStashPublisher(QStashPublisherConfig{
		BaseURL:       srv.URL,
		TargetBaseURL: "https://api.gridpredict.io",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())

	for i := 0; i < 3; i++ {
		err := publisher.Enqueue(context.Background(), "/v1/internal/jobs/race-clock", nil, 0, "")
		require.Error(t, err)
		require.NotErrorIs(t, err, resilience.ErrCircuitOpen)
	}
}
