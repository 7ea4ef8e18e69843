package reports

// Breakdown reduces the record set to per-period, per-status running totals.
// Every requested status is present in every row, zero when nothing matched;
// statuses present in the data but not requested are dropped. Rows follow the
// chronological bucket sequence, exactly like Timeseries.
func Breakdown(records RecordSet, req BreakdownRequest) ([]BreakdownRow, error) {
	g := req.Granularity
	if g == "" {
		g = GranularityMonth
	}
	buckets, err := BucketsBetween(req.From, req.To, g)
	if err != nil {
		return nil, err
	}

	rows := make([]BreakdownRow, len(buckets))
	index := make(map[string]*BreakdownRow, len(buckets))
	for i, b := range buckets {
		rows[i] = BreakdownRow{
			DateKey:      b.Key,
			Invoices:     make(map[InvoiceStatus]float64, len(req.InvoiceStatuses)),
			Purchases:    make(map[PurchaseStatus]float64, len(req.PurchaseStatuses)),
			Expenses:     make(map[ExpenseStatus]float64, len(req.ExpenseStatuses)),
			Installments: make(map[InstallmentStatus]float64, len(req.InstallmentStatuses)),
		}
		for _, s := range req.InvoiceStatuses {
			rows[i].Invoices[s] = 0
		}
		for _, s := range req.PurchaseStatuses {
			rows[i].Purchases[s] = 0
		}
		for _, s := range req.ExpenseStatuses {
			rows[i].Expenses[s] = 0
		}
		for _, s := range req.InstallmentStatuses {
			rows[i].Installments[s] = 0
		}
		index[b.Key] = &rows[i]
	}

	f := newBreakdownFilter(req)

	locate := func(rec FinancialRecord) (*BreakdownRow, error) {
		key, err := KeyFor(rec.Date, g)
		if err != nil {
			return nil, err
		}
		return index[key], nil
	}

	for _, rec := range records.Invoices {
		if !f.include(KindInvoice, rec) {
			continue
		}
		row, err := locate(rec)
		if err != nil {
			return nil, err
		}
		if row != nil {
			row.Invoices[InvoiceStatus(rec.Status)] += rec.Amount
		}
	}
	for _, rec := range records.Purchases {
		if !f.include(KindPurchase, rec) {
			continue
		}
		row, err := locate(rec)
		if err != nil {
			return nil, err
		}
		if row != nil {
			row.Purchases[PurchaseStatus(rec.Status)] += rec.Amount
		}
	}
	for _, rec := range records.Expenses {
		if !f.include(KindExpense, rec) {
			continue
		}
		row, err := locate(rec)
		if err != nil {
			return nil, err
		}
		if row != nil {
			row.Expenses[ExpenseStatus(rec.Status)] += rec.Amount
		}
	}
	for _, rec := range records.Installments {
		if !f.include(KindInstallment, rec) {
			continue
		}
		row, err := locate(rec)
		if err != nil {
			return nil, err
		}
		if row != nil {
			row.Installments[InstallmentStatus(rec.Status)] += rec.Amount
		}
	}

	return rows, nil
}
