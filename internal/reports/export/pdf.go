package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/atelier-erp/atelier-erp/internal/reports"
)

// ReportPayload aggregates report data destined for PDF rendering.
type ReportPayload struct {
	Title        string
	RangeLabel   string
	ClientLabel  string
	ProjectLabel string
	Summary      reports.Summary
	Rows         []reports.TimeseriesRow
	// ChartSVG is the pre-rendered timeseries chart. When chart rendering
	// failed upstream it is left empty and the document carries a textual
	// placeholder instead.
	ChartSVG template.HTML
}

// PDFExporter wraps Gotenberg interactions for report exports.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// RenderReport sends HTML content to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderReport(ctx context.Context, payload ReportPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	html := buildHTML(payload)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "report.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.WriteField("waitDelay", "500"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}

	return io.ReadAll(resp.Body)
}

// display formats amounts for the printed document. This is the only layer
// that applies locale formatting; aggregator output stays untouched.
var display = message.NewPrinter(language.English)

func buildHTML(payload ReportPayload) string {
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}section{margin-bottom:24px;} .metric-label{text-align:left;} .placeholder{color:#64748b;font-style:italic;}")
	b.WriteString("</style></head><body>")
	title := payload.Title
	if title == "" {
		title = "Financial Report"
	}
	b.WriteString(fmt.Sprintf("<h1>%s – %s</h1>", templateEscape(title), templateEscape(payload.RangeLabel)))

	if payload.ClientLabel != "" || payload.ProjectLabel != "" {
		b.WriteString("<p>")
		if payload.ClientLabel != "" {
			b.WriteString("Client: " + templateEscape(payload.ClientLabel))
		}
		if payload.ProjectLabel != "" {
			if payload.ClientLabel != "" {
				b.WriteString(" · ")
			}
			b.WriteString("Project: " + templateEscape(payload.ProjectLabel))
		}
		b.WriteString("</p>")
	}

	b.WriteString("<section><h2>Totals</h2><table><tbody>")
	writeMetricRow(&b, "Invoices", payload.Summary.InvoicesTotal)
	writeMetricRow(&b, "Purchases", payload.Summary.PurchasesTotal)
	writeMetricRow(&b, "Expenses", payload.Summary.ExpensesTotal)
	writeMetricRow(&b, "Installments", payload.Summary.InstallmentsTotal)
	writeMetricRow(&b, "Net", payload.Summary.Net)
	b.WriteString("</tbody></table></section>")

	b.WriteString("<section><h2>Trend</h2>")
	if payload.ChartSVG != "" {
		b.WriteString(string(payload.ChartSVG))
	} else {
		b.WriteString("<p class=\"placeholder\">Chart unavailable</p>")
	}
	b.WriteString("</section>")

	if len(payload.Rows) > 0 {
		b.WriteString("<section><h2>Per Period</h2><table><thead><tr><th>Period</th><th>Invoices</th><th>Purchases</th><th>Expenses</th><th>Installments</th><th>Net</th></tr></thead><tbody>")
		for _, row := range payload.Rows {
			b.WriteString("<tr><td class=\"metric-label\">")
			b.WriteString(templateEscape(row.DateKey))
			b.WriteString("</td><td>")
			b.WriteString(formatDisplay(row.Invoices))
			b.WriteString("</td><td>")
			b.WriteString(formatDisplay(row.Purchases))
			b.WriteString("</td><td>")
			b.WriteString(formatDisplay(row.Expenses))
			b.WriteString("</td><td>")
			b.WriteString(formatDisplay(row.Installments))
			b.WriteString("</td><td>")
			b.WriteString(formatDisplay(row.Net))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func writeMetricRow(b *strings.Builder, label string, value float64) {
	b.WriteString("<tr><td class=\"metric-label\">")
	b.WriteString(templateEscape(label))
	b.WriteString("</td><td>")
	b.WriteString(formatDisplay(value))
	b.WriteString("</td></tr>")
}

func formatDisplay(v float64) string {
	return display.Sprintf("%.2f", v)
}

func templateEscape(v string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(v)
}
