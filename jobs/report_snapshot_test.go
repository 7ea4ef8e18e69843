package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-erp/atelier-erp/internal/reports"
	"github.com/atelier-erp/atelier-erp/internal/reports/export"
)

type snapshotDeps struct {
	summary     reports.Summary
	rows        []reports.TimeseriesRow
	serviceErr  error
	renderErr   error
	storeErr    error
	lastRequest reports.Request
	payload     export.ReportPayload
	saved       []reports.Snapshot
}

func (d *snapshotDeps) Summary(_ context.Context, req reports.Request) (reports.Summary, error) {
	d.lastRequest = req
	return d.summary, d.serviceErr
}

func (d *snapshotDeps) Timeseries(_ context.Context, req reports.Request) ([]reports.TimeseriesRow, error) {
	return d.rows, d.serviceErr
}

func (d *snapshotDeps) RenderReport(_ context.Context, payload export.ReportPayload) ([]byte, error) {
	d.payload = payload
	if d.renderErr != nil {
		return nil, d.renderErr
	}
	return []byte("%PDF-1.7"), nil
}

func (d *snapshotDeps) SaveSnapshot(_ context.Context, snap reports.Snapshot) error {
	if d.storeErr != nil {
		return d.storeErr
	}
	d.saved = append(d.saved, snap)
	return nil
}

func newSnapshotTask(t *testing.T, period string) *asynq.Task {
	t.Helper()
	task, err := NewReportSnapshotTask(ReportSnapshotPayload{Period: period})
	require.NoError(t, err)
	return task
}

func TestReportSnapshotStoresPDF(t *testing.T) {
	deps := &snapshotDeps{
		summary: reports.Summary{InvoicesTotal: 4000, Net: 3200},
		rows:    []reports.TimeseriesRow{{DateKey: "2024-03", Invoices: 4000, Net: 3200}},
	}
	job := NewReportSnapshotJob(deps, deps, deps, nil)

	require.NoError(t, job.Handle(context.Background(), newSnapshotTask(t, "2024-03")))

	require.Len(t, deps.saved, 1)
	assert.Equal(t, "2024-03", deps.saved[0].Period)
	assert.Equal(t, []byte("%PDF-1.7"), deps.saved[0].PDF)

	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), deps.lastRequest.From)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), deps.lastRequest.To)
	assert.Equal(t, reports.GranularityMonth, deps.lastRequest.Granularity)
	assert.NotEmpty(t, deps.payload.ChartSVG)
}

func TestReportSnapshotDefaultsToPreviousMonth(t *testing.T) {
	deps := &snapshotDeps{}
	job := NewReportSnapshotJob(deps, deps, deps, nil)
	job.WithNow(func() time.Time {
		return time.Date(2024, time.April, 1, 2, 0, 0, 0, time.UTC)
	})

	require.NoError(t, job.Handle(context.Background(), newSnapshotTask(t, "")))

	require.Len(t, deps.saved, 1)
	assert.Equal(t, "2024-03", deps.saved[0].Period)
}

func TestReportSnapshotSkipsRetryOnBadPayload(t *testing.T) {
	deps := &snapshotDeps{}
	job := NewReportSnapshotJob(deps, deps, deps, nil)

	task := asynq.NewTask(TaskReportSnapshot, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, deps.saved)
}

func TestReportSnapshotPropagatesFailures(t *testing.T) {
	t.Run("service", func(t *testing.T) {
		deps := &snapshotDeps{serviceErr: errors.New("pg down")}
		job := NewReportSnapshotJob(deps, deps, deps, nil)
		err := job.Handle(context.Background(), newSnapshotTask(t, "2024-03"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry, "transient failures stay retryable")
	})
	t.Run("renderer", func(t *testing.T) {
		deps := &snapshotDeps{renderErr: errors.New("gotenberg down")}
		job := NewReportSnapshotJob(deps, deps, deps, nil)
		require.Error(t, job.Handle(context.Background(), newSnapshotTask(t, "2024-03")))
		assert.Empty(t, deps.saved)
	})
	t.Run("store", func(t *testing.T) {
		deps := &snapshotDeps{storeErr: errors.New("insert failed")}
		job := NewReportSnapshotJob(deps, deps, deps, nil)
		require.Error(t, job.Handle(context.Background(), newSnapshotTask(t, "2024-03")))
	})
}

func TestNewReportSnapshotTaskValidatesPeriod(t *testing.T) {
	_, err := NewReportSnapshotTask(ReportSnapshotPayload{Period: "March 2024"})
	require.Error(t, err)

	task, err := NewReportSnapshotTask(ReportSnapshotPayload{Period: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, TaskReportSnapshot, task.Type())
}
