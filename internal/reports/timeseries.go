package reports

// Timeseries reduces the record set to one row per calendar bucket. The full
// bucket sequence is computed first so every period in range appears in the
// output, zero-filled when nothing matched. Rows are emitted in bucket order.
func Timeseries(records RecordSet, req Request) ([]TimeseriesRow, error) {
	g := req.Granularity
	if g == "" {
		g = GranularityMonth
	}
	buckets, err := BucketsBetween(req.From, req.To, g)
	if err != nil {
		return nil, err
	}

	rows := make([]TimeseriesRow, len(buckets))
	index := make(map[string]*TimeseriesRow, len(buckets))
	for i, b := range buckets {
		rows[i] = TimeseriesRow{DateKey: b.Key}
		index[b.Key] = &rows[i]
	}

	f := newFilter(req)
	accumulate := func(kind EntityKind, recs []FinancialRecord, add func(*TimeseriesRow, float64)) error {
		for _, rec := range recs {
			if !f.include(kind, rec) {
				continue
			}
			key, err := KeyFor(rec.Date, g)
			if err != nil {
				return err
			}
			if row, ok := index[key]; ok {
				add(row, rec.Amount)
			}
		}
		return nil
	}

	if err := accumulate(KindInvoice, records.Invoices, func(r *TimeseriesRow, v float64) { r.Invoices += v }); err != nil {
		return nil, err
	}
	if err := accumulate(KindPurchase, records.Purchases, func(r *TimeseriesRow, v float64) { r.Purchases += v }); err != nil {
		return nil, err
	}
	if err := accumulate(KindExpense, records.Expenses, func(r *TimeseriesRow, v float64) { r.Expenses += v }); err != nil {
		return nil, err
	}
	if err := accumulate(KindInstallment, records.Installments, func(r *TimeseriesRow, v float64) { r.Installments += v }); err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].Net = rows[i].Invoices - rows[i].Expenses
	}
	return rows, nil
}
