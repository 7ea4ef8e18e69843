package reporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-erp/atelier-erp/internal/reports"
	"github.com/atelier-erp/atelier-erp/internal/reports/export"
	"github.com/atelier-erp/atelier-erp/internal/reports/svg"
)

const (
	requestTimeout = 5 * time.Second
	statusAll      = "all"
	dateLayout     = "2006-01-02"
)

// ReportService defines the aggregation contract used by the handler.
type ReportService interface {
	Summary(ctx context.Context, req reports.Request) (reports.Summary, error)
	Timeseries(ctx context.Context, req reports.Request) ([]reports.TimeseriesRow, error)
	Breakdown(ctx context.Context, req reports.BreakdownRequest) ([]reports.BreakdownRow, error)
}

// LabelService resolves client/project display names for export labeling.
type LabelService interface {
	ClientName(ctx context.Context, id int64) (string, error)
	ProjectName(ctx context.Context, id int64) (string, error)
}

// PDFService renders report content to PDF bytes.
type PDFService interface {
	RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error)
}

// SnapshotStore loads stored monthly report exports.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, period string) (reports.Snapshot, error)
}

// SnapshotScheduler enqueues an on-demand snapshot render for a period; an
// empty period means the previous month.
type SnapshotScheduler func(ctx context.Context, period string) error

// ChartFunc renders the timeseries chart embedded in the PDF export.
type ChartFunc func(width, height int, series []svg.Series, labels []string, opts svg.LineOpts) (template.HTML, error)

// Handler coordinates HTTP requests for the financial reports.
type Handler struct {
	logger        *slog.Logger
	service       ReportService
	labels        LabelService
	pdf           PDFService
	chart         ChartFunc
	validate      *validator.Validate
	maxRangeYears int
	csvPool       sync.Pool
	countExport   func(format string)
	snapshots     SnapshotStore
	schedule      SnapshotScheduler
}

// NewHandler constructs the reports HTTP handler. maxRangeYears caps the
// bucket count per request at this boundary; zero disables the cap.
func NewHandler(logger *slog.Logger, service ReportService, labels LabelService, pdf PDFService, chart ChartFunc, maxRangeYears int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if chart == nil {
		chart = svg.Lines
	}
	h := &Handler{
		logger:        logger,
		service:       service,
		labels:        labels,
		pdf:           pdf,
		chart:         chart,
		validate:      validator.New(),
		maxRangeYears: maxRangeYears,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithExportCounter registers a callback invoked once per successful export,
// with the format ("csv" or "pdf").
func (h *Handler) WithExportCounter(fn func(format string)) {
	h.countExport = fn
}

// WithSnapshots enables the stored snapshot endpoints. Either argument may be
// nil; the corresponding endpoint then responds 404.
func (h *Handler) WithSnapshots(store SnapshotStore, schedule SnapshotScheduler) {
	h.snapshots = store
	h.schedule = schedule
}

func (h *Handler) recordExport(format string) {
	if h.countExport != nil {
		h.countExport(format)
	}
}

// reportQuery is the raw query-string shape shared by summary and timeseries.
type reportQuery struct {
	From              string `validate:"omitempty,datetime=2006-01-02"`
	To                string `validate:"omitempty,datetime=2006-01-02"`
	ClientID          string `validate:"omitempty,number"`
	ProjectID         string `validate:"omitempty,number"`
	Granularity       string `validate:"omitempty,oneof=day week month year"`
	InvoiceStatus     string `validate:"omitempty,oneof=all draft sent paid cancelled"`
	PurchaseStatus    string `validate:"omitempty,oneof=all pending completed cancelled"`
	ExpenseStatus     string `validate:"omitempty,oneof=all active cancelled"`
	InstallmentStatus string `validate:"omitempty,oneof=all pending paid overdue cancelled"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r, false)
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.Summary(ctx, req)
	if err != nil {
		h.respondServiceError(w, "load summary", err)
		return
	}
	h.writeJSON(w, summary)
}

func (h *Handler) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r, true)
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.Timeseries(ctx, req)
	if err != nil {
		h.respondServiceError(w, "load timeseries", err)
		return
	}
	h.writeJSON(w, rows)
}

func (h *Handler) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseBreakdownRequest(r)
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.Breakdown(ctx, req)
	if err != nil {
		h.respondServiceError(w, "load breakdown", err)
		return
	}
	h.writeJSON(w, rows)
}

func (h *Handler) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r, false)
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.Summary(ctx, req)
	if err != nil {
		h.respondServiceError(w, "load summary", err)
		return
	}

	h.streamCSV(w, "summary", func(buf *bytes.Buffer) error {
		return export.WriteSummaryCSV(buf, summary)
	})
}

func (h *Handler) handleTimeseriesCSV(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseRequest(r, true)
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.Timeseries(ctx, req)
	if err != nil {
		h.respondServiceError(w, "load timeseries", err)
		return
	}

	h.streamCSV(w, "timeseries", func(buf *bytes.Buffer) error {
		return export.WriteTimeseriesCSV(buf, rows)
	})
}

func (h *Handler) handleBreakdownCSV(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseBreakdownRequest(r)
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rows, err := h.service.Breakdown(ctx, req)
	if err != nil {
		h.respondServiceError(w, "load breakdown", err)
		return
	}

	h.streamCSV(w, "breakdown", func(buf *bytes.Buffer) error {
		return export.WriteBreakdownCSV(buf, req, rows)
	})
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.respondServerError(w, "pdf exporter", errors.New("pdf exporter not configured"))
		return
	}
	req, err := h.parseRequest(r, true)
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var (
		summary reports.Summary
		rows    []reports.TimeseriesRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = h.service.Summary(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = h.service.Timeseries(gctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		h.respondServiceError(w, "load report", err)
		return
	}

	payload := export.ReportPayload{
		Title:      "Financial Report",
		RangeLabel: fmt.Sprintf("%s to %s", req.From.Format(dateLayout), req.To.Format(dateLayout)),
		Summary:    summary,
		Rows:       rows,
		ChartSVG:   h.renderChart(rows),
	}
	h.attachLabels(ctx, &payload, req)

	pdfBytes, err := h.pdf.RenderReport(ctx, payload)
	if err != nil {
		h.respondServerError(w, "render pdf", err)
		return
	}

	filename := fmt.Sprintf("financial-report-%s.pdf", req.To.Format("2006-01"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logger.Error("stream pdf", slog.Any("error", err))
		return
	}
	h.recordExport("pdf")
}

var snapshotPeriodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

func (h *Handler) handleSnapshotGet(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		http.NotFound(w, r)
		return
	}
	period := chi.URLParam(r, "period")
	if !snapshotPeriodPattern.MatchString(period) {
		http.Error(w, "period must look like 2006-01", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, err := h.snapshots.GetSnapshot(ctx, period)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			http.Error(w, "no snapshot for "+period, http.StatusNotFound)
			return
		}
		h.respondServerError(w, "load snapshot", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "financial-report-"+snap.Period+".pdf"))
	if _, err := w.Write(snap.PDF); err != nil {
		h.logger.Error("stream snapshot", slog.Any("error", err))
	}
}

func (h *Handler) handleSnapshotSchedule(w http.ResponseWriter, r *http.Request) {
	if h.schedule == nil {
		http.NotFound(w, r)
		return
	}
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if period != "" && !snapshotPeriodPattern.MatchString(period) {
		http.Error(w, "period must look like 2006-01", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.schedule(ctx, period); err != nil {
		h.respondServerError(w, "schedule snapshot", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	h.writeJSONStatus(w, "queued")
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, status string) {
	if _, err := fmt.Fprintf(w, `{"status":%q}`, status); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

// renderChart builds the timeseries chart for the PDF. Failures degrade to
// the textual placeholder rather than failing the export.
func (h *Handler) renderChart(rows []reports.TimeseriesRow) template.HTML {
	if len(rows) == 0 {
		return ""
	}
	labels := make([]string, 0, len(rows))
	invoices := make([]float64, 0, len(rows))
	expenses := make([]float64, 0, len(rows))
	net := make([]float64, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.DateKey)
		invoices = append(invoices, row.Invoices)
		expenses = append(expenses, row.Expenses)
		net = append(net, row.Net)
	}
	chart, err := h.chart(svg.DefaultWidth, svg.DefaultHeight, []svg.Series{
		{Label: "Invoices", Values: invoices},
		{Label: "Expenses", Values: expenses},
		{Label: "Net", Values: net},
	}, labels, svg.LineOpts{
		Title:       "Financial trend",
		Description: "Invoices, expenses and net per period",
		ShowDots:    true,
	})
	if err != nil {
		h.logger.Warn("render chart", slog.Any("error", err))
		return ""
	}
	return chart
}

// attachLabels resolves cosmetic names; failures are logged, never fatal.
func (h *Handler) attachLabels(ctx context.Context, payload *export.ReportPayload, req reports.Request) {
	if h.labels == nil {
		return
	}
	if req.ClientID != nil {
		name, err := h.labels.ClientName(ctx, *req.ClientID)
		if err != nil {
			h.logger.Warn("resolve client label", slog.Any("error", err))
		} else {
			payload.ClientLabel = name
		}
	}
	if req.ProjectID != nil {
		name, err := h.labels.ProjectName(ctx, *req.ProjectID)
		if err != nil {
			h.logger.Warn("resolve project label", slog.Any("error", err))
		} else {
			payload.ProjectLabel = name
		}
	}
}

func (h *Handler) parseRequest(r *http.Request, requireBounds bool) (reports.Request, error) {
	q := r.URL.Query()
	raw := reportQuery{
		From:              strings.TrimSpace(q.Get("from")),
		To:                strings.TrimSpace(q.Get("to")),
		ClientID:          strings.TrimSpace(q.Get("clientId")),
		ProjectID:         strings.TrimSpace(q.Get("projectId")),
		Granularity:       strings.TrimSpace(q.Get("granularity")),
		InvoiceStatus:     strings.TrimSpace(q.Get("invoiceStatus")),
		PurchaseStatus:    strings.TrimSpace(q.Get("purchaseStatus")),
		ExpenseStatus:     strings.TrimSpace(q.Get("expenseStatus")),
		InstallmentStatus: strings.TrimSpace(q.Get("installmentStatus")),
	}
	if err := h.validate.Struct(raw); err != nil {
		return reports.Request{}, badRequestError{msg: "invalid report parameters", cause: err}
	}

	req := reports.Request{Granularity: reports.Granularity(raw.Granularity)}
	if req.Granularity == "" {
		req.Granularity = reports.GranularityMonth
	}

	var err error
	if req.From, err = parseDate(raw.From); err != nil {
		return reports.Request{}, badRequestError{msg: "invalid from date", cause: err}
	}
	if req.To, err = parseDate(raw.To); err != nil {
		return reports.Request{}, badRequestError{msg: "invalid to date", cause: err}
	}
	if requireBounds && (req.From.IsZero() || req.To.IsZero()) {
		return reports.Request{}, badRequestError{msg: "from and to are required"}
	}
	if err := h.checkRangeCap(req.From, req.To); err != nil {
		return reports.Request{}, err
	}

	if req.ClientID, err = parseID(raw.ClientID); err != nil {
		return reports.Request{}, badRequestError{msg: "invalid clientId", cause: err}
	}
	if req.ProjectID, err = parseID(raw.ProjectID); err != nil {
		return reports.Request{}, badRequestError{msg: "invalid projectId", cause: err}
	}

	if s := normalizeStatus(raw.InvoiceStatus); s != "" {
		req.InvoiceStatus = reports.InvoiceStatus(s)
	}
	if s := normalizeStatus(raw.PurchaseStatus); s != "" {
		req.PurchaseStatus = reports.PurchaseStatus(s)
	}
	if s := normalizeStatus(raw.ExpenseStatus); s != "" {
		req.ExpenseStatus = reports.ExpenseStatus(s)
	}
	if s := normalizeStatus(raw.InstallmentStatus); s != "" {
		req.InstallmentStatus = reports.InstallmentStatus(s)
	}
	return req, nil
}

func (h *Handler) parseBreakdownRequest(r *http.Request) (reports.BreakdownRequest, error) {
	base, err := h.parseRequest(r, true)
	if err != nil {
		return reports.BreakdownRequest{}, err
	}
	q := r.URL.Query()

	req := reports.BreakdownRequest{
		From:        base.From,
		To:          base.To,
		ClientID:    base.ClientID,
		ProjectID:   base.ProjectID,
		Granularity: base.Granularity,
	}

	for _, raw := range splitStatuses(q.Get("invoiceStatuses")) {
		s, err := reports.ParseInvoiceStatus(raw)
		if err != nil {
			return reports.BreakdownRequest{}, badRequestError{msg: "invalid invoiceStatuses", cause: err}
		}
		req.InvoiceStatuses = append(req.InvoiceStatuses, s)
	}
	for _, raw := range splitStatuses(q.Get("purchaseStatuses")) {
		s, err := reports.ParsePurchaseStatus(raw)
		if err != nil {
			return reports.BreakdownRequest{}, badRequestError{msg: "invalid purchaseStatuses", cause: err}
		}
		req.PurchaseStatuses = append(req.PurchaseStatuses, s)
	}
	for _, raw := range splitStatuses(q.Get("expenseStatuses")) {
		s, err := reports.ParseExpenseStatus(raw)
		if err != nil {
			return reports.BreakdownRequest{}, badRequestError{msg: "invalid expenseStatuses", cause: err}
		}
		req.ExpenseStatuses = append(req.ExpenseStatuses, s)
	}
	for _, raw := range splitStatuses(q.Get("installmentStatuses")) {
		s, err := reports.ParseInstallmentStatus(raw)
		if err != nil {
			return reports.BreakdownRequest{}, badRequestError{msg: "invalid installmentStatuses", cause: err}
		}
		req.InstallmentStatuses = append(req.InstallmentStatuses, s)
	}
	return req, nil
}

// checkRangeCap bounds the work a single request can ask for. Bucket count is
// proportional to the range, so the cap lives here at the boundary, not in
// the aggregators.
func (h *Handler) checkRangeCap(from, to time.Time) error {
	if h.maxRangeYears <= 0 || from.IsZero() || to.IsZero() {
		return nil
	}
	if to.After(from.AddDate(h.maxRangeYears, 0, 0)) {
		return badRequestError{msg: fmt.Sprintf("range exceeds %d years", h.maxRangeYears)}
	}
	return nil
}

func (h *Handler) streamCSV(w http.ResponseWriter, name string, write func(*bytes.Buffer) error) {
	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := write(buf); err != nil {
		h.respondServerError(w, "write csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+name+".csv"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
		return
	}
	h.recordExport("csv")
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

func (h *Handler) respondRequestError(w http.ResponseWriter, err error) {
	var bad badRequestError
	if errors.As(err, &bad) {
		http.Error(w, bad.msg, http.StatusBadRequest)
		return
	}
	h.respondServerError(w, "parse request", err)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, context string, err error) {
	if errors.Is(err, reports.ErrInvalidRange) || errors.Is(err, reports.ErrUnsupportedGranularity) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error(context, slog.Any("error", err))
	http.Error(w, "could not load report", http.StatusInternalServerError)
}

func (h *Handler) respondServerError(w http.ResponseWriter, context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type badRequestError struct {
	msg   string
	cause error
}

func (e badRequestError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e badRequestError) Unwrap() error { return e.cause }

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}

func parseID(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return nil, fmt.Errorf("must be a positive integer")
	}
	return &value, nil
}

func normalizeStatus(raw string) string {
	if raw == "" || raw == statusAll {
		return ""
	}
	return raw
}

func splitStatuses(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
