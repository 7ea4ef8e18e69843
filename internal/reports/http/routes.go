package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the reporting endpoints onto the router. Export
// routes are rate limited since each render fans out to all four sources and,
// for PDF, to Gotenberg.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/reports/summary", h.handleSummary)
	r.Get("/reports/timeseries", h.handleTimeseries)
	r.Get("/reports/breakdown", h.handleBreakdown)
	r.Get("/reports/snapshots/{period}", h.handleSnapshotGet)

	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/reports/summary/export.csv", h.handleSummaryCSV)
		gr.Get("/reports/timeseries/export.csv", h.handleTimeseriesCSV)
		gr.Get("/reports/breakdown/export.csv", h.handleBreakdownCSV)
		gr.Get("/reports/pdf", h.handlePDF)
		gr.Post("/reports/snapshots", h.handleSnapshotSchedule)
	})
}
