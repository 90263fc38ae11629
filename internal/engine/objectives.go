package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hourglass/internal/domain"
	"hourglass/internal/events"
)

type ObjectiveCreateOptions struct {
	ID            string
	RelatedTask   string
	Owners        []string
	ObjectiveDate time.Time
	Level         domain.Level
	ActorID       string
}

// CreateObjective stores a new objective. Owners default to the actor; the
// objective date is truncated to its UTC day.
func (e Engine) CreateObjective(ctx context.Context, opts ObjectiveCreateOptions) (domain.Objective, error) {
	if !opts.Level.Valid() {
		return domain.Objective{}, domain.NewValidationError("level", "must be day, month or year")
	}
	if opts.ObjectiveDate.IsZero() {
		return domain.Objective{}, domain.NewValidationError("objective_date", "objective date is required")
	}
	owners := uniqueOwners(opts.Owners)
	if len(owners) == 0 && opts.ActorID != "" {
		owners = []string{opts.ActorID}
	}
	if len(owners) == 0 {
		return domain.Objective{}, domain.NewValidationError("owners", "at least one owner is required")
	}
	if opts.RelatedTask != "" {
		if _, err := e.Repo.GetTask(ctx, opts.RelatedTask); err != nil {
			return domain.Objective{}, err
		}
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	o := domain.Objective{
		ID:            opts.ID,
		RelatedTask:   opts.RelatedTask,
		Owners:        owners,
		ObjectiveDate: domain.DayOf(opts.ObjectiveDate).Start,
		Level:         opts.Level,
		CreatedBy:     opts.ActorID,
		CreatedAt:     e.now(),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Objective{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertObjective(ctx, tx, o); err != nil {
		return domain.Objective{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "objective.created", EntityKind: "objective", EntityID: o.ID, ActorID: opts.ActorID,
		Payload: events.Payload{"level": o.Level, "owners": o.Owners, "related_task": o.RelatedTask},
	}); err != nil {
		return domain.Objective{}, err
	}
	return o, nil
}

func uniqueOwners(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range in {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

// ObjectiveUpdateOptions changes progress and scratch state; nil fields are kept.
// The level of an objective cannot change.
type ObjectiveUpdateOptions struct {
	ID        string
	Progress  *float64
	Scratched *bool
	ActorID   string
}

// UpdateObjective applies progress and scratch changes. Reaching progress 1
// stamps completed_ts and dropping below clears it; scratching stamps
// scratched_ts and unscratching clears it.
func (e Engine) UpdateObjective(ctx context.Context, opts ObjectiveUpdateOptions) (domain.Objective, error) {
	if opts.Progress != nil && (*opts.Progress < 0 || *opts.Progress > 1) {
		return domain.Objective{}, domain.NewValidationError("progress", "must be between 0 and 1")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Objective{}, err
	}
	defer tx.Rollback()

	o, err := e.Repo.GetObjectiveTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Objective{}, err
	}
	if o.Deleted {
		return domain.Objective{}, &domain.NotFoundError{Kind: "objective", ID: opts.ID}
	}
	now := e.now()
	changed := events.Payload{}
	if opts.Progress != nil {
		o.Progress = *opts.Progress
		switch {
		case o.Completed() && o.CompletedTS == nil:
			o.CompletedTS = &now
		case !o.Completed():
			o.CompletedTS = nil
		}
		changed["progress"] = o.Progress
	}
	if opts.Scratched != nil {
		if *opts.Scratched && !o.Scratched {
			o.ScratchedTS = &now
		}
		if !*opts.Scratched {
			o.ScratchedTS = nil
		}
		o.Scratched = *opts.Scratched
		changed["scratched"] = o.Scratched
	}
	if err := e.Repo.UpdateObjectiveState(ctx, tx, o); err != nil {
		return domain.Objective{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "objective.updated", EntityKind: "objective", EntityID: o.ID, ActorID: opts.ActorID, Payload: changed,
	}); err != nil {
		return domain.Objective{}, err
	}
	return o, nil
}

// DeleteObjective flags the objective as deleted; rows are never removed.
func (e Engine) DeleteObjective(ctx context.Context, id, actorID string) (domain.Objective, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Objective{}, err
	}
	defer tx.Rollback()

	o, err := e.Repo.GetObjectiveTx(ctx, tx, id)
	if err != nil {
		return domain.Objective{}, err
	}
	if o.Deleted {
		return o, nil
	}
	now := e.now()
	o.Deleted = true
	o.DeletedTS = &now
	o.DeletedBy = actorID
	if err := e.Repo.UpdateObjectiveState(ctx, tx, o); err != nil {
		return domain.Objective{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "objective.deleted", EntityKind: "objective", EntityID: o.ID, ActorID: actorID,
	}); err != nil {
		return domain.Objective{}, err
	}
	return o, nil
}

type WorkLogOptions struct {
	ID          string
	ObjectiveID string
	Seconds     int64
	ActorID     string
}

// LogWork records a span of time against an objective.
func (e Engine) LogWork(ctx context.Context, opts WorkLogOptions) (domain.WorkEntry, error) {
	if opts.Seconds < 0 {
		return domain.WorkEntry{}, domain.NewValidationError("time", "must not be negative")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	entry := domain.WorkEntry{
		ID:        opts.ID,
		Objective: opts.ObjectiveID,
		Time:      opts.Seconds,
		CreatedBy: opts.ActorID,
		CreatedTS: e.now(),
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkEntry{}, err
	}
	defer tx.Rollback()

	o, err := e.Repo.GetObjectiveTx(ctx, tx, opts.ObjectiveID)
	if err != nil {
		return domain.WorkEntry{}, err
	}
	if err := e.Repo.InsertWorkEntry(ctx, tx, entry); err != nil {
		return domain.WorkEntry{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "work.logged", EntityKind: "work_entry", EntityID: entry.ID, ActorID: opts.ActorID,
		Payload: events.Payload{"objective": o.ID, "seconds": entry.Time},
	}); err != nil {
		return domain.WorkEntry{}, err
	}
	return entry, nil
}
