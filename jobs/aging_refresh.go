package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// TaskAgingRefresh rebuilds the cached AP and AR aging snapshots.
const TaskAgingRefresh = "report:aging-refresh"

// AgingRefresher recomputes and stores the aging reports.
type AgingRefresher interface {
	Refresh(ctx context.Context) error
}

// AgingRefreshPayload carries scheduling metadata.
type AgingRefreshPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewAgingRefreshTask constructs the aging refresh task.
func NewAgingRefreshTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(AgingRefreshPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAgingRefresh, body, asynq.Queue(QueueDefault)), nil
}

// NewAgingRefreshHandler returns the Asynq handler for TaskAgingRefresh.
func NewAgingRefreshHandler(refresher AgingRefresher, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AgingRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("aging_refresh")
		err := tracker.End(refresher.Refresh(ctx))
		if err != nil {
			logger.Error("aging refresh failed", slog.Any("error", err))
			return err
		}
		logger.Info("aging snapshots refreshed",
			slog.Time("scheduled_for", payload.ScheduledFor))
		return nil
	}
}
