package billing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hourglass/internal/domain"
)

type ExecutedHours struct {
	Month float64 `json:"month"`
	Total float64 `json:"total"`
}

// HoursAggregator computes the executed hours of one project at now.
type HoursAggregator interface {
	Aggregate(ctx context.Context, projectID string, now time.Time) (ExecutedHours, error)
}

// ExecutedHoursAggregator sums work entry time reachable from a project. The
// objective ids are resolved once and shared by the month and total sums.
type ExecutedHoursAggregator struct {
	Resolver Resolver
}

func (a ExecutedHoursAggregator) Aggregate(ctx context.Context, projectID string, now time.Time) (ExecutedHours, error) {
	objectiveIDs, err := a.Resolver.ObjectiveIDs(ctx, projectID)
	if err != nil {
		return ExecutedHours{}, fmt.Errorf("resolve objectives: %w", err)
	}
	if len(objectiveIDs) == 0 {
		return ExecutedHours{}, nil
	}

	month := domain.MonthOf(now)
	var out ExecutedHours
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := a.Resolver.WorkEntries(gctx, objectiveIDs, &month)
		if err != nil {
			return fmt.Errorf("month work entries: %w", err)
		}
		out.Month = SumHours(entries)
		return nil
	})
	g.Go(func() error {
		entries, err := a.Resolver.WorkEntries(gctx, objectiveIDs, nil)
		if err != nil {
			return fmt.Errorf("work entries: %w", err)
		}
		out.Total = SumHours(entries)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ExecutedHours{}, err
	}
	return out, nil
}

// SumHours converts the summed seconds of entries to hours.
func SumHours(entries []domain.WorkEntry) float64 {
	var seconds int64
	for _, e := range entries {
		seconds += e.Time
	}
	return float64(seconds) / 3600
}
