package billing

import (
	"context"

	"hourglass/internal/domain"
)

// HierarchyStore answers the three hops from a project down to its work entries.
type HierarchyStore interface {
	TaskIDsForProject(ctx context.Context, projectID string) ([]string, error)
	ObjectiveIDsForTasks(ctx context.Context, taskIDs []string) ([]string, error)
	// WorkEntriesForObjectives filters on creation time when created is non-nil.
	WorkEntriesForObjectives(ctx context.Context, objectiveIDs []string, created *domain.Period) ([]domain.WorkEntry, error)
}

// Resolver walks project -> tasks -> objectives -> work entries. An empty hop
// ends the walk with an empty result instead of querying further.
type Resolver struct {
	Store HierarchyStore
}

// ObjectiveIDs returns the ids of every objective reachable from the project.
func (r Resolver) ObjectiveIDs(ctx context.Context, projectID string) ([]string, error) {
	taskIDs, err := r.Store.TaskIDsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(taskIDs) == 0 {
		return nil, nil
	}
	return r.Store.ObjectiveIDsForTasks(ctx, taskIDs)
}

func (r Resolver) WorkEntries(ctx context.Context, objectiveIDs []string, created *domain.Period) ([]domain.WorkEntry, error) {
	if len(objectiveIDs) == 0 {
		return nil, nil
	}
	return r.Store.WorkEntriesForObjectives(ctx, objectiveIDs, created)
}

func (r Resolver) ResolveWorkEntries(ctx context.Context, projectID string, created *domain.Period) ([]domain.WorkEntry, error) {
	objectiveIDs, err := r.ObjectiveIDs(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return r.WorkEntries(ctx, objectiveIDs, created)
}
