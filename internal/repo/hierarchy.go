package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"hourglass/internal/domain"
)

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := exec(ctx, tx, builder.Insert("tasks").
		Columns("id", "project_id", "title", "created_by", "created_at").
		Values(t.ID, t.Project, t.Title, t.CreatedBy, ts(t.CreatedAt)))
	return storeErr("insert task", err)
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var (
		t         domain.Task
		createdAt string
	)
	stmt, args, err := builder.Select("id", "project_id", "title", "created_by", "created_at").
		From("tasks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return t, storeErr("get task", err)
	}
	err = r.DB.QueryRowContext(ctx, stmt, args...).Scan(&t.ID, &t.Project, &t.Title, &t.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return t, &domain.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return t, storeErr("get task", err)
	}
	t.CreatedAt, err = domain.ParseTimestamp(createdAt)
	return t, storeErr("get task", err)
}

// TaskIDsForProject is the first hop of the billing hierarchy.
func (r Repo) TaskIDsForProject(ctx context.Context, projectID string) ([]string, error) {
	rows, err := query(ctx, r.DB, builder.Select("id").From("tasks").
		Where(sq.Eq{"project_id": projectID}).OrderBy("id"))
	if err != nil {
		return nil, storeErr("list task ids", err)
	}
	ids, err := scanIDs(rows)
	return ids, storeErr("list task ids", err)
}

// ObjectiveIDsForTasks returns the objectives related to any of the tasks.
// Deleted objectives are included; their work still counts as executed.
func (r Repo) ObjectiveIDsForTasks(ctx context.Context, taskIDs []string) ([]string, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	rows, err := query(ctx, r.DB, builder.Select("id").From("objectives").
		Where(sq.Eq{"related_task": taskIDs}).OrderBy("id"))
	if err != nil {
		return nil, storeErr("list objective ids", err)
	}
	ids, err := scanIDs(rows)
	return ids, storeErr("list objective ids", err)
}

func (r Repo) InsertWorkEntry(ctx context.Context, tx *sql.Tx, e domain.WorkEntry) error {
	_, err := exec(ctx, tx, builder.Insert("work_entries").
		Columns("id", "objective_id", "seconds", "created_by", "created_ts").
		Values(e.ID, e.Objective, e.Time, e.CreatedBy, ts(e.CreatedTS)))
	return storeErr("insert work entry", err)
}

// WorkEntriesForObjectives returns the work entries of the objectives, limited
// to those created within created when it is non-nil.
func (r Repo) WorkEntriesForObjectives(ctx context.Context, objectiveIDs []string, created *domain.Period) ([]domain.WorkEntry, error) {
	if len(objectiveIDs) == 0 {
		return nil, nil
	}
	cond := sq.And{sq.Eq{"objective_id": objectiveIDs}}
	if created != nil {
		cond = append(cond,
			sq.GtOrEq{"created_ts": ts(created.Start)},
			sq.LtOrEq{"created_ts": ts(created.End)})
	}
	rows, err := query(ctx, r.DB, builder.Select("id", "objective_id", "seconds", "created_by", "created_ts").
		From("work_entries").Where(cond).OrderBy("created_ts", "id"))
	if err != nil {
		return nil, storeErr("list work entries", err)
	}
	defer rows.Close()
	var entries []domain.WorkEntry
	for rows.Next() {
		var (
			e         domain.WorkEntry
			createdTS string
		)
		if err := rows.Scan(&e.ID, &e.Objective, &e.Time, &e.CreatedBy, &createdTS); err != nil {
			return nil, storeErr("list work entries", err)
		}
		if e.CreatedTS, err = domain.ParseTimestamp(createdTS); err != nil {
			return nil, storeErr("list work entries", err)
		}
		entries = append(entries, e)
	}
	return entries, storeErr("list work entries", rows.Err())
}
