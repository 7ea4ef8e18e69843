package reports

import (
	"fmt"
	"time"
)

// EntityKind identifies one of the four financial record types fed into the
// reporting engine.
type EntityKind string

const (
	KindInvoice     EntityKind = "invoice"
	KindPurchase    EntityKind = "purchase"
	KindExpense     EntityKind = "expense"
	KindInstallment EntityKind = "installment"
)

// InvoiceStatus enumerates the invoice lifecycle.
type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether the status is a member of the closed set.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceCancelled:
		return true
	}
	return false
}

// ParseInvoiceStatus converts raw input into an InvoiceStatus.
func ParseInvoiceStatus(raw string) (InvoiceStatus, error) {
	s := InvoiceStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("reports: unknown invoice status %q", raw)
	}
	return s, nil
}

// PurchaseStatus enumerates the purchase lifecycle.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// Valid reports whether the status is a member of the closed set.
func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchasePending, PurchaseCompleted, PurchaseCancelled:
		return true
	}
	return false
}

// ParsePurchaseStatus converts raw input into a PurchaseStatus.
func ParsePurchaseStatus(raw string) (PurchaseStatus, error) {
	s := PurchaseStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("reports: unknown purchase status %q", raw)
	}
	return s, nil
}

// ExpenseStatus enumerates the operating expense lifecycle.
type ExpenseStatus string

const (
	ExpenseActive    ExpenseStatus = "active"
	ExpenseCancelled ExpenseStatus = "cancelled"
)

// Valid reports whether the status is a member of the closed set.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpenseActive, ExpenseCancelled:
		return true
	}
	return false
}

// ParseExpenseStatus converts raw input into an ExpenseStatus.
func ParseExpenseStatus(raw string) (ExpenseStatus, error) {
	s := ExpenseStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("reports: unknown expense status %q", raw)
	}
	return s, nil
}

// InstallmentStatus enumerates the legacy installment lifecycle.
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentCancelled InstallmentStatus = "cancelled"
)

// Valid reports whether the status is a member of the closed set.
func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue, InstallmentCancelled:
		return true
	}
	return false
}

// ParseInstallmentStatus converts raw input into an InstallmentStatus.
func ParseInstallmentStatus(raw string) (InstallmentStatus, error) {
	s := InstallmentStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("reports: unknown installment status %q", raw)
	}
	return s, nil
}

// FinancialRecord is the normalized shape every source adapter produces.
// Date is the single canonical date of the record (issue date, purchase date,
// expense date or due date depending on the kind).
type FinancialRecord struct {
	Amount    float64
	Date      time.Time
	Status    string
	ClientID  *int64
	ProjectID *int64
}

// RecordSet groups the four record slices fetched for a single report request.
type RecordSet struct {
	Invoices     []FinancialRecord
	Purchases    []FinancialRecord
	Expenses     []FinancialRecord
	Installments []FinancialRecord
}

// Summary holds the grand totals backing the summary cards view.
// Net excludes purchases and installments, matching the product decision
// carried over from the legacy system.
type Summary struct {
	InvoicesTotal     float64 `json:"invoicesTotal"`
	PurchasesTotal    float64 `json:"purchasesTotal"`
	ExpensesTotal     float64 `json:"expensesTotal"`
	InstallmentsTotal float64 `json:"installmentsTotal"`
	Net               float64 `json:"net"`
}

// TimeseriesRow is one chronological bucket of per-kind totals.
type TimeseriesRow struct {
	DateKey      string  `json:"dateKey"`
	Invoices     float64 `json:"invoices"`
	Purchases    float64 `json:"purchases"`
	Expenses     float64 `json:"expenses"`
	Installments float64 `json:"installments"`
	Net          float64 `json:"net"`
}

// BreakdownRow is one chronological bucket of per-status running totals.
// Only statuses the caller requested appear as keys; requested statuses with
// no qualifying records are present with value zero so chart series stay
// continuous.
type BreakdownRow struct {
	DateKey      string                        `json:"dateKey"`
	Invoices     map[InvoiceStatus]float64     `json:"invoices"`
	Purchases    map[PurchaseStatus]float64    `json:"purchases"`
	Expenses     map[ExpenseStatus]float64     `json:"expenses"`
	Installments map[InstallmentStatus]float64 `json:"installments"`
}

// Request carries the filters shared by the summary and timeseries views.
// A zero From or To leaves that bound open; an empty status means no
// restriction for that kind.
type Request struct {
	From              time.Time
	To                time.Time
	ClientID          *int64
	ProjectID         *int64
	InvoiceStatus     InvoiceStatus
	PurchaseStatus    PurchaseStatus
	ExpenseStatus     ExpenseStatus
	InstallmentStatus InstallmentStatus
	Granularity       Granularity
}

// BreakdownRequest selects an explicit status set per kind; every selected
// status becomes its own output series. An empty set for a kind means that
// kind contributes nothing.
type BreakdownRequest struct {
	From                time.Time
	To                  time.Time
	ClientID            *int64
	ProjectID           *int64
	InvoiceStatuses     []InvoiceStatus
	PurchaseStatuses    []PurchaseStatus
	ExpenseStatuses     []ExpenseStatus
	InstallmentStatuses []InstallmentStatus
	Granularity         Granularity
}
