package reports

import "time"

// statusSet is the allowed-status constraint for one entity kind. A nil set
// means no restriction; an empty set excludes every record of that kind.
type statusSet map[string]struct{}

// filter is the single inclusion predicate shared by all three aggregation
// paths. Summary, timeseries and breakdown must observe identical filtering
// semantics, so both request shapes are lowered into this one form.
type filter struct {
	from, to            time.Time // zero value leaves the bound open
	clientID, projectID *int64
	statuses            map[EntityKind]statusSet
}

func newFilter(req Request) filter {
	f := filter{
		from:      dayOf(req.From),
		to:        dayOf(req.To),
		clientID:  req.ClientID,
		projectID: req.ProjectID,
		statuses:  map[EntityKind]statusSet{},
	}
	if req.InvoiceStatus != "" {
		f.statuses[KindInvoice] = statusSet{string(req.InvoiceStatus): {}}
	}
	if req.PurchaseStatus != "" {
		f.statuses[KindPurchase] = statusSet{string(req.PurchaseStatus): {}}
	}
	if req.ExpenseStatus != "" {
		f.statuses[KindExpense] = statusSet{string(req.ExpenseStatus): {}}
	}
	if req.InstallmentStatus != "" {
		f.statuses[KindInstallment] = statusSet{string(req.InstallmentStatus): {}}
	}
	return f
}

func newBreakdownFilter(req BreakdownRequest) filter {
	f := filter{
		from:      dayOf(req.From),
		to:        dayOf(req.To),
		clientID:  req.ClientID,
		projectID: req.ProjectID,
		statuses:  map[EntityKind]statusSet{},
	}

	invoices := statusSet{}
	for _, s := range req.InvoiceStatuses {
		invoices[string(s)] = struct{}{}
	}
	f.statuses[KindInvoice] = invoices

	purchases := statusSet{}
	for _, s := range req.PurchaseStatuses {
		purchases[string(s)] = struct{}{}
	}
	f.statuses[KindPurchase] = purchases

	expenses := statusSet{}
	for _, s := range req.ExpenseStatuses {
		expenses[string(s)] = struct{}{}
	}
	f.statuses[KindExpense] = expenses

	installments := statusSet{}
	for _, s := range req.InstallmentStatuses {
		installments[string(s)] = struct{}{}
	}
	f.statuses[KindInstallment] = installments

	return f
}

// include decides whether a single record participates in aggregation.
// Both date bounds are inclusive.
func (f filter) include(kind EntityKind, rec FinancialRecord) bool {
	day := dayOf(rec.Date)
	if !f.from.IsZero() && day.Before(f.from) {
		return false
	}
	if !f.to.IsZero() && f.to.Before(day) {
		return false
	}
	if f.clientID != nil {
		if rec.ClientID == nil || *rec.ClientID != *f.clientID {
			return false
		}
	}
	if f.projectID != nil {
		if rec.ProjectID == nil || *rec.ProjectID != *f.projectID {
			return false
		}
	}
	if allowed, ok := f.statuses[kind]; ok {
		if _, member := allowed[rec.Status]; !member {
			return false
		}
	}
	return true
}

// dayOf normalizes a timestamp to its calendar day in UTC. Records are
// attributed to dates, not instants, so time-of-day and zone never influence
// filtering or bucketing.
func dayOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
