package billing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hourglass/internal/domain"
)

type fakeProjects struct {
	projects  []domain.Project
	gotActive bool
}

func (f *fakeProjects) ListProjects(_ context.Context, activeOnly bool) ([]domain.Project, error) {
	f.gotActive = activeOnly
	return f.projects, nil
}

type hoursFunc func(ctx context.Context, projectID string, now time.Time) (ExecutedHours, error)

func (f hoursFunc) Aggregate(ctx context.Context, projectID string, now time.Time) (ExecutedHours, error) {
	return f(ctx, projectID, now)
}

func pipeline(projects []domain.Project, hours HoursAggregator) Pipeline {
	return Pipeline{
		Projects: &fakeProjects{projects: projects},
		Hours:    hours,
		Now:      func() time.Time { return now },
	}
}

func TestPipelinePreservesOrder(t *testing.T) {
	var projects []domain.Project
	for i := 0; i < 25; i++ {
		projects = append(projects, domain.Project{ID: fmt.Sprintf("p%02d", i), Name: fmt.Sprintf("Project %02d", i)})
	}
	// Later projects finish first.
	hours := hoursFunc(func(_ context.Context, projectID string, _ time.Time) (ExecutedHours, error) {
		var n int
		fmt.Sscanf(projectID, "p%d", &n)
		time.Sleep(time.Duration(25-n) * time.Millisecond)
		return ExecutedHours{Total: float64(n)}, nil
	})

	rows, err := pipeline(projects, hours).Run(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, rows, len(projects))
	for i, row := range rows {
		assert.Equal(t, projects[i].ID, row.ID)
		assert.Equal(t, float64(i), row.ExecutedHoursTotal)
		assert.NotNil(t, row.Invoices)
	}
}

func TestPipelineEmpty(t *testing.T) {
	rows, err := pipeline(nil, hoursFunc(func(context.Context, string, time.Time) (ExecutedHours, error) {
		t.Fatal("no project to aggregate")
		return ExecutedHours{}, nil
	})).Run(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPipelineCombinesHoursAndLedger(t *testing.T) {
	project := domain.Project{
		ID:     "p1",
		Name:   "Acme",
		Active: true,
		Invoices: domain.Ledger{
			{ID: "a", Amount: 4400, BilledHours: 80, InvoicingDate: now},
			{ID: "b", Amount: 275, BilledHours: 5, InvoicingDate: now.AddDate(0, -1, 0)},
		},
	}
	store := &fakeProjects{projects: []domain.Project{project}}
	p := Pipeline{
		Projects: store,
		Hours: hoursFunc(func(context.Context, string, time.Time) (ExecutedHours, error) {
			return ExecutedHours{Month: 1.5, Total: 10}, nil
		}),
		Now: func() time.Time { return now },
	}

	rows, err := p.Run(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, store.gotActive)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "Acme", row.Name)
	assert.Equal(t, 1.5, row.ExecutedHoursMonth)
	assert.Equal(t, 10.0, row.ExecutedHoursTotal)
	assert.Equal(t, 80.0, row.BilledHoursMonth)
	assert.Equal(t, 4400.0, row.BilledAmountMonth)
	assert.Equal(t, 85.0, row.BilledHoursTotal)
	assert.Equal(t, 4675.0, row.BilledAmountTotal)
}

func TestPipelineFailureAbortsRun(t *testing.T) {
	projects := []domain.Project{{ID: "ok"}, {ID: "bad"}, {ID: "ok2"}}
	cause := &domain.StoreError{Op: "list tasks", Err: errors.New("timeout")}
	p := pipeline(projects, hoursFunc(func(_ context.Context, projectID string, _ time.Time) (ExecutedHours, error) {
		if projectID == "bad" {
			return ExecutedHours{}, cause
		}
		return ExecutedHours{Total: 1}, nil
	}))

	rows, err := p.Run(context.Background(), true)
	assert.Nil(t, rows)
	var agg *domain.AggregationError
	require.True(t, errors.As(err, &agg))
	assert.Equal(t, "bad", agg.ProjectID)
	assert.ErrorIs(t, err, cause)
}

func TestPipelineConcurrencyLimit(t *testing.T) {
	var projects []domain.Project
	for i := 0; i < 12; i++ {
		projects = append(projects, domain.Project{ID: fmt.Sprint(i)})
	}
	var inFlight, peak atomic.Int32
	p := pipeline(projects, hoursFunc(func(context.Context, string, time.Time) (ExecutedHours, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return ExecutedHours{}, nil
	}))
	p.MaxConcurrency = 3

	_, err := p.Run(context.Background(), true)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}
