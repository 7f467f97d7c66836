package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"salonpos/backend/internal/domain"
	"salonpos/backend/internal/report"
)

// Dashboard summarizes sales and staff performance for whole calendar days in
// the service's location. Empty bounds mean today.
func (s *Service) Dashboard(ctx context.Context, from string, to string) (domain.Dashboard, error) {
	start, end, err := s.parseRange(from, to)
	if err != nil {
		return domain.Dashboard{}, err
	}

	var (
		transactions []domain.Transaction
		items        []domain.StaffItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		transactions, err = s.repo.ListTransactions(gctx, start, end)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = s.repo.ListStaffItems(gctx, start, end)
		if err != nil {
			return fmt.Errorf("list staff items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}

	perf := report.Aggregate(items)
	return domain.Dashboard{
		From:                 start.Format(report.DateLayout),
		To:                   end.Format(report.DateLayout),
		TotalSales:           report.TotalSales(transactions),
		TransactionCount:     len(transactions),
		StaffPerformance:     perf.Rows(),
		TopTipEarners:        perf.TopTipEarners(report.DefaultTopN),
		MostServicesProvided: perf.MostServicesProvided(report.DefaultTopN),
	}, nil
}

// DailySummary condenses one calendar day for the scheduled report.
func (s *Service) DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	date := day.In(s.loc).Format(report.DateLayout)
	dashboard, err := s.Dashboard(ctx, date, date)
	if err != nil {
		return domain.DailySummary{}, err
	}

	summary := domain.DailySummary{
		Date:             date,
		TotalSales:       dashboard.TotalSales,
		TransactionCount: dashboard.TransactionCount,
	}
	if len(dashboard.TopTipEarners) > 0 {
		summary.TopTipEarner = dashboard.TopTipEarners[0].Name
	}
	if len(dashboard.MostServicesProvided) > 0 {
		summary.MostServices = dashboard.MostServicesProvided[0].Name
	}
	return summary, nil
}

// ListTransactions returns the sales recorded in the range, newest first.
func (s *Service) ListTransactions(ctx context.Context, from string, to string) ([]domain.Transaction, error) {
	start, end, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, start, end)
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Transaction{}, invalidf("transaction id is required")
	}
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from string, to string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	start, end, err := s.parseRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, start, end, limit)
}

func (s *Service) parseRange(from string, to string) (time.Time, time.Time, error) {
	start, end, err := report.ParseRange(strings.TrimSpace(from), strings.TrimSpace(to), s.now(), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalidf("dates must use the YYYY-MM-DD format")
	}
	return start, end, nil
}
