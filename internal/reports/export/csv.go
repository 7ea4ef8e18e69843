package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/atelier-erp/atelier-erp/internal/reports"
)

// utf8BOM keeps right-to-left currency labels rendering correctly in common
// spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteSummaryCSV serialises the summary totals to CSV.
func WriteSummaryCSV(w io.Writer, summary reports.Summary) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"metric", "value"}); err != nil {
		return err
	}
	records := [][]string{
		{"invoices", formatAmount(summary.InvoicesTotal)},
		{"purchases", formatAmount(summary.PurchasesTotal)},
		{"expenses", formatAmount(summary.ExpensesTotal)},
		{"installments", formatAmount(summary.InstallmentsTotal)},
		{"net", formatAmount(summary.Net)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTimeseriesCSV emits one row per period in bucket order.
func WriteTimeseriesCSV(w io.Writer, rows []reports.TimeseriesRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"date", "invoices", "purchases", "expenses", "installments", "net"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.DateKey,
			formatAmount(row.Invoices),
			formatAmount(row.Purchases),
			formatAmount(row.Expenses),
			formatAmount(row.Installments),
			formatAmount(row.Net),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteBreakdownCSV emits one column per requested series, in the order the
// request declared them, one row per period.
func WriteBreakdownCSV(w io.Writer, req reports.BreakdownRequest, rows []reports.BreakdownRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"date"}
	for _, s := range req.InvoiceStatuses {
		header = append(header, "invoices:"+string(s))
	}
	for _, s := range req.PurchaseStatuses {
		header = append(header, "purchases:"+string(s))
	}
	for _, s := range req.ExpenseStatuses {
		header = append(header, "expenses:"+string(s))
	}
	for _, s := range req.InstallmentStatuses {
		header = append(header, "installments:"+string(s))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record, row.DateKey)
		for _, s := range req.InvoiceStatuses {
			record = append(record, formatAmount(row.Invoices[s]))
		}
		for _, s := range req.PurchaseStatuses {
			record = append(record, formatAmount(row.Purchases[s]))
		}
		for _, s := range req.ExpenseStatuses {
			record = append(record, formatAmount(row.Expenses[s]))
		}
		for _, s := range req.InstallmentStatuses {
			record = append(record, formatAmount(row.Installments[s]))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// formatAmount keeps CSV values as plain decimal strings; locale formatting
// never happens at this layer.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
