package billing

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"hourglass/internal/domain"
)

// ProjectStore lists projects with their ledgers, ordered by name.
type ProjectStore interface {
	ListProjects(ctx context.Context, activeOnly bool) ([]domain.Project, error)
}

// ProjectBilling is one row of a billing report.
type ProjectBilling struct {
	domain.Project
	ExecutedHoursMonth float64 `json:"executed_hours_month"`
	ExecutedHoursTotal float64 `json:"executed_hours_total"`
	BilledHoursMonth   float64 `json:"billed_hours_month"`
	BilledAmountMonth  float64 `json:"billed_amount_month"`
	BilledHoursTotal   float64 `json:"billed_hours_total"`
	BilledAmountTotal  float64 `json:"billed_amount_total"`
}

// Pipeline builds billing reports. Projects are aggregated concurrently, at
// most MaxConcurrency at a time when it is positive.
type Pipeline struct {
	Projects       ProjectStore
	Hours          HoursAggregator
	Now            func() time.Time
	Logger         *slog.Logger
	MaxConcurrency int
}

func (p Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run reports every project (only active ones when activeOnly is set) in the
// store's order. The first failing project aborts the run with an
// AggregationError and no rows are returned.
func (p Pipeline) Run(ctx context.Context, activeOnly bool) ([]ProjectBilling, error) {
	now := p.now()
	projects, err := p.Projects.ListProjects(ctx, activeOnly)
	if err != nil {
		return nil, err
	}

	rows := make([]ProjectBilling, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	if p.MaxConcurrency > 0 {
		g.SetLimit(p.MaxConcurrency)
	}
	for i, project := range projects {
		g.Go(func() error {
			hours, err := p.Hours.Aggregate(gctx, project.ID, now)
			if err != nil {
				return &domain.AggregationError{ProjectID: project.ID, Err: err}
			}
			if project.Invoices == nil {
				project.Invoices = domain.Ledger{}
			}
			billed := ReduceLedger(project.Invoices, now)
			rows[i] = ProjectBilling{
				Project:            project,
				ExecutedHoursMonth: hours.Month,
				ExecutedHoursTotal: hours.Total,
				BilledHoursMonth:   billed.HoursMonth,
				BilledAmountMonth:  billed.AmountMonth,
				BilledHoursTotal:   billed.HoursTotal,
				BilledAmountTotal:  billed.AmountTotal,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.logger().ErrorContext(ctx, "billing run failed", "active_only", activeOnly, "err", err)
		return nil, err
	}
	p.logger().DebugContext(ctx, "billing run", "active_only", activeOnly, "projects", len(rows))
	return rows, nil
}
