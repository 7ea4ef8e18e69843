package reporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-erp/atelier-erp/internal/reports"
	"github.com/atelier-erp/atelier-erp/internal/reports/export"
	"github.com/atelier-erp/atelier-erp/internal/reports/svg"
)

type fakeService struct {
	summary       reports.Summary
	rows          []reports.TimeseriesRow
	breakdown     []reports.BreakdownRow
	err           error
	lastRequest   reports.Request
	lastBreakdown reports.BreakdownRequest
}

func (f *fakeService) Summary(_ context.Context, req reports.Request) (reports.Summary, error) {
	f.lastRequest = req
	return f.summary, f.err
}

func (f *fakeService) Timeseries(_ context.Context, req reports.Request) ([]reports.TimeseriesRow, error) {
	f.lastRequest = req
	return f.rows, f.err
}

func (f *fakeService) Breakdown(_ context.Context, req reports.BreakdownRequest) ([]reports.BreakdownRow, error) {
	f.lastBreakdown = req
	return f.breakdown, f.err
}

type fakeLabels struct{}

func (fakeLabels) ClientName(_ context.Context, _ int64) (string, error) {
	return "Moreira Construction", nil
}

func (fakeLabels) ProjectName(_ context.Context, _ int64) (string, error) {
	return "Harbor Tower", nil
}

type fakePDF struct {
	payload export.ReportPayload
	err     error
}

func (f *fakePDF) RenderReport(_ context.Context, payload export.ReportPayload) ([]byte, error) {
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7"), nil
}

func newTestRouter(svc *fakeService, pdf *fakePDF) http.Handler {
	// A nil *fakePDF must reach NewHandler as a nil interface, not a
	// typed-nil PDFService, so the handler's exporter guard applies.
	var exporter PDFService
	if pdf != nil {
		exporter = pdf
	}
	h := NewHandler(nil, svc, fakeLabels{}, exporter, nil, 10)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSummaryEndpoint(t *testing.T) {
	svc := &fakeService{summary: reports.Summary{InvoicesTotal: 1500, Net: 1200}}
	router := newTestRouter(svc, nil)

	rec := get(t, router, "/reports/summary?from=2024-01-01&to=2024-02-28&invoiceStatus=paid&clientId=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body reports.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1500.0, body.InvoicesTotal)

	assert.Equal(t, reports.InvoicePaid, svc.lastRequest.InvoiceStatus)
	require.NotNil(t, svc.lastRequest.ClientID)
	assert.Equal(t, int64(7), *svc.lastRequest.ClientID)
}

func TestSummaryStatusAllMeansUnrestricted(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(svc, nil)

	rec := get(t, router, "/reports/summary?invoiceStatus=all")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.lastRequest.InvoiceStatus)
}

func TestSummaryRejectsBadInput(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	for name, target := range map[string]string{
		"malformed date":  "/reports/summary?from=01-2024",
		"unknown status":  "/reports/summary?invoiceStatus=archived",
		"bad granularity": "/reports/summary?granularity=quarter",
		"bad clientId":    "/reports/summary?clientId=abc",
	} {
		t.Run(name, func(t *testing.T) {
			rec := get(t, router, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTimeseriesRequiresBounds(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rec := get(t, router, "/reports/timeseries?from=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimeseriesRangeCap(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rec := get(t, router, "/reports/timeseries?from=2000-01-01&to=2024-01-01")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "range exceeds")
}

func TestTimeseriesServiceErrors(t *testing.T) {
	t.Run("invalid range maps to 400", func(t *testing.T) {
		svc := &fakeService{err: reports.ErrInvalidRange}
		rec := get(t, newTestRouter(svc, nil), "/reports/timeseries?from=2024-01-01&to=2024-02-01")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("source failure maps to 500", func(t *testing.T) {
		svc := &fakeService{err: errors.New("pg down")}
		rec := get(t, newTestRouter(svc, nil), "/reports/timeseries?from=2024-01-01&to=2024-02-01")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pg down", "internal details stay out of responses")
	})
}

func TestBreakdownEndpoint(t *testing.T) {
	svc := &fakeService{breakdown: []reports.BreakdownRow{{DateKey: "2024-01"}}}
	router := newTestRouter(svc, nil)

	rec := get(t, router, "/reports/breakdown?from=2024-01-01&to=2024-01-31&invoiceStatuses=draft,paid&expenseStatuses=active")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []reports.InvoiceStatus{reports.InvoiceDraft, reports.InvoicePaid}, svc.lastBreakdown.InvoiceStatuses)
	assert.Equal(t, []reports.ExpenseStatus{reports.ExpenseActive}, svc.lastBreakdown.ExpenseStatuses)
}

func TestBreakdownRejectsUnknownStatus(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rec := get(t, router, "/reports/breakdown?from=2024-01-01&to=2024-01-31&invoiceStatuses=draft,archived")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCSVExports(t *testing.T) {
	svc := &fakeService{
		rows: []reports.TimeseriesRow{{DateKey: "2024-01", Invoices: 1000, Net: 1000}},
	}
	var exported []string
	h := NewHandler(nil, svc, fakeLabels{}, nil, nil, 10)
	h.WithExportCounter(func(format string) { exported = append(exported, format) })
	router := chi.NewRouter()
	h.MountRoutes(router)

	rec := get(t, router, "/reports/timeseries/export.csv?from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-timeseries.csv")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, rec.Body.String(), "date,invoices,purchases,expenses,installments,net")
	assert.Equal(t, []string{"csv"}, exported)
}

func TestPDFExport(t *testing.T) {
	svc := &fakeService{
		summary: reports.Summary{InvoicesTotal: 1000, Net: 1000},
		rows:    []reports.TimeseriesRow{{DateKey: "2024-01", Invoices: 1000, Net: 1000}},
	}
	pdf := &fakePDF{}
	router := newTestRouter(svc, pdf)

	rec := get(t, router, "/reports/pdf?from=2024-01-01&to=2024-01-31&clientId=7&projectId=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "financial-report-2024-01.pdf")
	assert.Equal(t, []byte("%PDF-1.7"), rec.Body.Bytes())

	assert.Equal(t, "Moreira Construction", pdf.payload.ClientLabel)
	assert.Equal(t, "Harbor Tower", pdf.payload.ProjectLabel)
	assert.NotEmpty(t, pdf.payload.ChartSVG)
}

func TestPDFChartFailureDegradesToPlaceholder(t *testing.T) {
	svc := &fakeService{rows: []reports.TimeseriesRow{{DateKey: "2024-01"}}}
	pdf := &fakePDF{}
	broken := func(_, _ int, _ []svg.Series, _ []string, _ svg.LineOpts) (template.HTML, error) {
		return "", errors.New("render failed")
	}
	h := NewHandler(nil, svc, nil, pdf, broken, 0)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := get(t, r, "/reports/pdf?from=2024-01-01&to=2024-01-31")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, pdf.payload.ChartSVG)
}

type fakeSnapshots struct {
	snap reports.Snapshot
	err  error
}

func (f *fakeSnapshots) GetSnapshot(_ context.Context, period string) (reports.Snapshot, error) {
	if f.err != nil {
		return reports.Snapshot{}, f.err
	}
	if f.snap.Period != period {
		return reports.Snapshot{}, reports.ErrNotFound
	}
	return f.snap, nil
}

func TestSnapshotDownload(t *testing.T) {
	store := &fakeSnapshots{snap: reports.Snapshot{Period: "2024-03", PDF: []byte("%PDF-1.7")}}
	h := NewHandler(nil, &fakeService{}, nil, nil, nil, 0)
	h.WithSnapshots(store, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := get(t, r, "/reports/snapshots/2024-03")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "financial-report-2024-03.pdf")

	rec = get(t, r, "/reports/snapshots/2024-01")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, r, "/reports/snapshots/march")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshotSchedule(t *testing.T) {
	var scheduled []string
	h := NewHandler(nil, &fakeService{}, nil, nil, nil, 0)
	h.WithSnapshots(nil, func(_ context.Context, period string) error {
		scheduled = append(scheduled, period)
		return nil
	})
	r := chi.NewRouter()
	h.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports/snapshots?period=2024-03", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"queued"}`, rec.Body.String())
	assert.Equal(t, []string{"2024-03"}, scheduled)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports/snapshots?period=Q1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPDFWithoutExporter(t *testing.T) {
	router := newTestRouter(&fakeService{}, nil)

	rec := get(t, router, "/reports/pdf?from=2024-01-01&to=2024-01-31")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
