package jobs

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportSnapshot renders and stores the monthly report export.
	TaskReportSnapshot = "report:snapshot"
)

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ReportSnapshotPayload selects the month to snapshot. An empty period means
// the month before the time the task runs.
type ReportSnapshotPayload struct {
	Period string `json:"period,omitempty"`
}

// NewReportSnapshotTask constructs an Asynq task for a snapshot run.
func NewReportSnapshotTask(payload ReportSnapshotPayload) (*asynq.Task, error) {
	if payload.Period != "" && !periodPattern.MatchString(payload.Period) {
		return nil, fmt.Errorf("jobs: invalid period %q", payload.Period)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportSnapshot, data), nil
}
