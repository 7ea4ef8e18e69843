package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrSourceFetch is returned when any of the four record sources fails. The
// whole request fails with it; partial aggregates are never produced.
var ErrSourceFetch = errors.New("reports: source fetch failed")

// DateRange restricts a source fetch. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Source lists financial records per entity kind. Implementations must return
// the normalized FinancialRecord shape and reject malformed rows at their own
// boundary.
type Source interface {
	ListInvoices(ctx context.Context, r DateRange) ([]FinancialRecord, error)
	ListPurchases(ctx context.Context, r DateRange) ([]FinancialRecord, error)
	ListExpenses(ctx context.Context, r DateRange) ([]FinancialRecord, error)
	ListInstallments(ctx context.Context, r DateRange) ([]FinancialRecord, error)
}

// Service orchestrates a report request: fetch the four record sets
// concurrently, then filter and reduce. Each call is a stateless computation
// over a fresh RecordSet; nothing is cached or mutated.
type Service struct {
	source Source
	logger *slog.Logger
}

// NewService wires a Source into the reporting engine.
func NewService(source Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger}
}

// Summary computes grand totals per kind. Both range bounds may be open.
func (s *Service) Summary(ctx context.Context, req Request) (Summary, error) {
	if err := validateRange(req.From, req.To); err != nil {
		return Summary{}, err
	}
	records, err := s.fetch(ctx, DateRange{From: req.From, To: req.To})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records, req), nil
}

// Timeseries computes one row per calendar bucket. The range must be bounded.
func (s *Service) Timeseries(ctx context.Context, req Request) ([]TimeseriesRow, error) {
	g := req.Granularity
	if g == "" {
		g = GranularityMonth
	}
	// Range and granularity problems are rejected before any fetch work.
	if _, err := BucketsBetween(req.From, req.To, g); err != nil {
		return nil, err
	}
	records, err := s.fetch(ctx, DateRange{From: req.From, To: req.To})
	if err != nil {
		return nil, err
	}
	return Timeseries(records, req)
}

// Breakdown computes per-status series per calendar bucket. The range must be
// bounded.
func (s *Service) Breakdown(ctx context.Context, req BreakdownRequest) ([]BreakdownRow, error) {
	g := req.Granularity
	if g == "" {
		g = GranularityMonth
	}
	if _, err := BucketsBetween(req.From, req.To, g); err != nil {
		return nil, err
	}
	records, err := s.fetch(ctx, DateRange{From: req.From, To: req.To})
	if err != nil {
		return nil, err
	}
	return Breakdown(records, req)
}

// fetch issues the four independent source queries concurrently and joins
// them before any aggregation begins.
func (s *Service) fetch(ctx context.Context, r DateRange) (RecordSet, error) {
	var records RecordSet
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		recs, err := s.source.ListInvoices(ctx, r)
		if err != nil {
			return fmt.Errorf("%w: invoices: %w", ErrSourceFetch, err)
		}
		records.Invoices = recs
		return nil
	})
	g.Go(func() error {
		recs, err := s.source.ListPurchases(ctx, r)
		if err != nil {
			return fmt.Errorf("%w: purchases: %w", ErrSourceFetch, err)
		}
		records.Purchases = recs
		return nil
	})
	g.Go(func() error {
		recs, err := s.source.ListExpenses(ctx, r)
		if err != nil {
			return fmt.Errorf("%w: expenses: %w", ErrSourceFetch, err)
		}
		records.Expenses = recs
		return nil
	})
	g.Go(func() error {
		recs, err := s.source.ListInstallments(ctx, r)
		if err != nil {
			return fmt.Errorf("%w: installments: %w", ErrSourceFetch, err)
		}
		records.Installments = recs
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("fetch report sources", slog.Any("error", err))
		return RecordSet{}, err
	}
	return records, nil
}

// validateRange checks an optionally open range. Both bounds set and reversed
// is the only rejected shape.
func validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return nil
	}
	if dayOf(to).Before(dayOf(from)) {
		return fmt.Errorf("%w: %s precedes %s", ErrInvalidRange, dayOf(to).Format("2006-01-02"), dayOf(from).Format("2006-01-02"))
	}
	return nil
}
