package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hourglass/internal/domain"
)

type fakeHierarchy struct {
	mu         sync.Mutex
	tasks      map[string][]string
	objectives map[string][]string
	entries    map[string][]domain.WorkEntry
	calls      map[string]int
	failTasks  error
}

func (f *fakeHierarchy) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeHierarchy) TaskIDsForProject(_ context.Context, projectID string) ([]string, error) {
	f.count("tasks")
	if f.failTasks != nil {
		return nil, f.failTasks
	}
	return f.tasks[projectID], nil
}

func (f *fakeHierarchy) ObjectiveIDsForTasks(_ context.Context, taskIDs []string) ([]string, error) {
	f.count("objectives")
	var out []string
	for _, id := range taskIDs {
		out = append(out, f.objectives[id]...)
	}
	return out, nil
}

func (f *fakeHierarchy) WorkEntriesForObjectives(_ context.Context, objectiveIDs []string, created *domain.Period) ([]domain.WorkEntry, error) {
	f.count("entries")
	var out []domain.WorkEntry
	for _, id := range objectiveIDs {
		for _, e := range f.entries[id] {
			if created == nil || created.Contains(e.CreatedTS) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func TestExecutedHours(t *testing.T) {
	store := &fakeHierarchy{
		tasks:      map[string][]string{"p1": {"t1", "t2"}},
		objectives: map[string][]string{"t1": {"o1"}, "t2": {"o2"}},
		entries: map[string][]domain.WorkEntry{
			"o1": {{Time: 3600, CreatedTS: now}, {Time: 1800, CreatedTS: now.AddDate(0, -2, 0)}},
			"o2": {{Time: 5400, CreatedTS: now.AddDate(0, 0, -1)}},
		},
	}
	agg := ExecutedHoursAggregator{Resolver: Resolver{Store: store}}

	got, err := agg.Aggregate(context.Background(), "p1", now)
	require.NoError(t, err)
	assert.Equal(t, ExecutedHours{Month: 2.5, Total: 3}, got)
	assert.Equal(t, 1, store.calls["tasks"])
	assert.Equal(t, 1, store.calls["objectives"])
	assert.Equal(t, 2, store.calls["entries"])
}

func TestExecutedHoursShortCircuits(t *testing.T) {
	store := &fakeHierarchy{tasks: map[string][]string{}}
	agg := ExecutedHoursAggregator{Resolver: Resolver{Store: store}}

	got, err := agg.Aggregate(context.Background(), "empty", now)
	require.NoError(t, err)
	assert.Equal(t, ExecutedHours{}, got)
	assert.Zero(t, store.calls["objectives"])
	assert.Zero(t, store.calls["entries"])

	entries, err := Resolver{Store: store}.ResolveWorkEntries(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExecutedHoursPropagatesStoreErrors(t *testing.T) {
	cause := errors.New("connection reset")
	agg := ExecutedHoursAggregator{Resolver: Resolver{Store: &fakeHierarchy{failTasks: cause}}}
	_, err := agg.Aggregate(context.Background(), "p1", now)
	assert.ErrorIs(t, err, cause)
}
