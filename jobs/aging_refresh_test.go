package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(_ context.Context) error {
	s.calls++
	return s.err
}

func TestAgingRefreshHandlerRunsRefresher(t *testing.T) {
	refresher := &stubRefresher{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	handler := NewAgingRefreshHandler(refresher, metrics, slog.New(slog.DiscardHandler))

	task, err := NewAgingRefreshTask(time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 1, refresher.calls)
}

func TestAgingRefreshHandlerPropagatesFailure(t *testing.T) {
	refresher := &stubRefresher{err: errors.New("redis down")}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	handler := NewAgingRefreshHandler(refresher, metrics, slog.New(slog.DiscardHandler))

	task, err := NewAgingRefreshTask(time.Now().UTC())
	require.NoError(t, err)

	err = handler(context.Background(), task)
	require.ErrorContains(t, err, "redis down")
}

func TestAgingRefreshHandlerSkipsBadPayload(t *testing.T) {
	refresher := &stubRefresher{}
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	handler := NewAgingRefreshHandler(refresher, metrics, slog.New(slog.DiscardHandler))

	err := handler(context.Background(), asynq.NewTask(TaskAgingRefresh, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, refresher.calls)
}
