package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atelier-erp/atelier-erp/internal/reports"
	"github.com/atelier-erp/atelier-erp/internal/reports/export"
	"github.com/atelier-erp/atelier-erp/internal/reports/svg"
)

// SnapshotService is the slice of the reporting engine the job needs.
type SnapshotService interface {
	Summary(ctx context.Context, req reports.Request) (reports.Summary, error)
	Timeseries(ctx context.Context, req reports.Request) ([]reports.TimeseriesRow, error)
}

// SnapshotStore persists rendered exports.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap reports.Snapshot) error
}

// SnapshotRenderer turns report data into PDF bytes.
type SnapshotRenderer interface {
	RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error)
}

// ReportSnapshotJob renders the previous month's report and stores it, so a
// finished month always has a durable export regardless of who asks later.
type ReportSnapshotJob struct {
	service  SnapshotService
	store    SnapshotStore
	renderer SnapshotRenderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewReportSnapshotJob constructs the job handler.
func NewReportSnapshotJob(service SnapshotService, store SnapshotStore, renderer SnapshotRenderer, logger *slog.Logger) *ReportSnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportSnapshotJob{service: service, store: store, renderer: renderer, logger: logger, now: time.Now}
}

// WithNow overrides the job clock for testing.
func (j *ReportSnapshotJob) WithNow(fn func() time.Time) {
	if fn != nil {
		j.now = fn
	}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ReportSnapshotJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.service == nil || j.store == nil || j.renderer == nil {
		return fmt.Errorf("report snapshot job not configured")
	}
	var payload ReportSnapshotPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	period := payload.Period
	if period == "" {
		period = j.now().UTC().AddDate(0, -1, 0).Format("2006-01")
	}
	base, err := time.Parse("2006-01", period)
	if err != nil {
		return asynq.SkipRetry
	}
	from := time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	req := reports.Request{From: from, To: to, Granularity: reports.GranularityMonth}
	summary, err := j.service.Summary(ctx, req)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", period, err)
	}
	rows, err := j.service.Timeseries(ctx, req)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", period, err)
	}

	pdf, err := j.renderer.RenderReport(ctx, export.ReportPayload{
		Title:      "Monthly Financial Report",
		RangeLabel: period,
		Summary:    summary,
		Rows:       rows,
		ChartSVG:   j.renderChart(rows),
	})
	if err != nil {
		return fmt.Errorf("snapshot %s: render: %w", period, err)
	}

	if err := j.store.SaveSnapshot(ctx, reports.Snapshot{Period: period, PDF: pdf}); err != nil {
		return fmt.Errorf("snapshot %s: store: %w", period, err)
	}
	j.logger.Info("report snapshot stored", slog.String("period", period), slog.Int("bytes", len(pdf)))
	return nil
}

func (j *ReportSnapshotJob) renderChart(rows []reports.TimeseriesRow) template.HTML {
	if len(rows) == 0 {
		return ""
	}
	labels := make([]string, 0, len(rows))
	invoices := make([]float64, 0, len(rows))
	expenses := make([]float64, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.DateKey)
		invoices = append(invoices, row.Invoices)
		expenses = append(expenses, row.Expenses)
	}
	chart, err := svg.Lines(svg.DefaultWidth, svg.DefaultHeight, []svg.Series{
		{Label: "Invoices", Values: invoices},
		{Label: "Expenses", Values: expenses},
	}, labels, svg.LineOpts{Title: "Monthly trend"})
	if err != nil {
		j.logger.Warn("render snapshot chart", slog.Any("error", err))
		return ""
	}
	return chart
}
