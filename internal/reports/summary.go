package reports

// Summarize reduces the record set to grand totals per kind in a single pass
// per kind. Net is invoices minus expenses; purchases and installments are
// reported but stay out of the net figure.
func Summarize(records RecordSet, req Request) Summary {
	f := newFilter(req)

	var out Summary
	out.InvoicesTotal = sumIncluded(KindInvoice, records.Invoices, f)
	out.PurchasesTotal = sumIncluded(KindPurchase, records.Purchases, f)
	out.ExpensesTotal = sumIncluded(KindExpense, records.Expenses, f)
	out.InstallmentsTotal = sumIncluded(KindInstallment, records.Installments, f)
	out.Net = out.InvoicesTotal - out.ExpensesTotal
	return out
}

func sumIncluded(kind EntityKind, records []FinancialRecord, f filter) float64 {
	var total float64
	for _, rec := range records {
		if f.include(kind, rec) {
			total += rec.Amount
		}
	}
	return total
}
