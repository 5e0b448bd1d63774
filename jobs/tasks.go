// Package jobs contains the background task types and handlers that keep
// module cost snapshots warm outside the request path.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// QueuePnL is the queue all P&L background tasks run on.
const QueuePnL = "pnl"

// TaskSnapshotRefresh rebuilds every module's period-cost snapshot from the
// upstream data API and pushes the results through the sync sinks.
const TaskSnapshotRefresh = "pnl:snapshot_refresh"

// SnapshotRefreshPayload parameterises a snapshot refresh run.
type SnapshotRefreshPayload struct {
	Period string `json:"period"`
}

// NewSnapshotRefreshTask builds the asynq task for a snapshot refresh.
func NewSnapshotRefreshTask(payload SnapshotRefreshPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotRefresh, raw), nil
}
