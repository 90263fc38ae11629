package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"hourglass/internal/domain"
	"hourglass/internal/rollup"
)

var objectiveColumns = []string{
	"id", "related_task", "objective_date", "level", "progress", "completed_ts",
	"scratched", "scratched_ts", "deleted", "deleted_ts", "deleted_by", "created_by", "created_at",
}

func scanObjective(scan func(...any) error) (domain.Objective, error) {
	var (
		o                             domain.Objective
		relatedTask, deletedBy        sql.NullString
		completed, scratched, deleted sql.NullString
		objectiveDate, createdAt      string
	)
	err := scan(&o.ID, &relatedTask, &objectiveDate, &o.Level, &o.Progress, &completed,
		&o.Scratched, &scratched, &o.Deleted, &deleted, &deletedBy, &o.CreatedBy, &createdAt)
	if err != nil {
		return o, err
	}
	o.RelatedTask = relatedTask.String
	o.DeletedBy = deletedBy.String
	if o.ObjectiveDate, err = domain.ParseTimestamp(objectiveDate); err != nil {
		return o, err
	}
	if o.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
		return o, err
	}
	if o.CompletedTS, err = parseNullTS(completed); err != nil {
		return o, err
	}
	if o.ScratchedTS, err = parseNullTS(scratched); err != nil {
		return o, err
	}
	if o.DeletedTS, err = parseNullTS(deleted); err != nil {
		return o, err
	}
	o.Owners = []string{}
	return o, nil
}

// FindObjectives returns the objectives matching p, ordered by objective date,
// with their owners loaded.
func (r Repo) FindObjectives(ctx context.Context, p rollup.Predicate) ([]domain.Objective, error) {
	objectives, err := r.findObjectives(ctx, r.DB, p)
	return objectives, storeErr("find objectives", err)
}

func (r Repo) findObjectives(ctx context.Context, q queryer, where sq.Sqlizer) ([]domain.Objective, error) {
	rows, err := query(ctx, q, builder.Select(objectiveColumns...).From("objectives").
		Where(where).OrderBy("objective_date", "id"))
	if err != nil {
		return nil, err
	}
	objectives := []domain.Objective{}
	for rows.Next() {
		o, err := scanObjective(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		objectives = append(objectives, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachOwners(ctx, q, objectives); err != nil {
		return nil, err
	}
	return objectives, nil
}

func (r Repo) attachOwners(ctx context.Context, q queryer, objectives []domain.Objective) error {
	if len(objectives) == 0 {
		return nil
	}
	index := make(map[string]int, len(objectives))
	ids := make([]string, len(objectives))
	for i, o := range objectives {
		index[o.ID] = i
		ids[i] = o.ID
	}
	rows, err := query(ctx, q, builder.Select("objective_id", "user_id").From("objective_owners").
		Where(sq.Eq{"objective_id": ids}).OrderBy("rowid"))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var objectiveID, userID string
		if err := rows.Scan(&objectiveID, &userID); err != nil {
			return err
		}
		i := index[objectiveID]
		objectives[i].Owners = append(objectives[i].Owners, userID)
	}
	return rows.Err()
}

func (r Repo) GetObjective(ctx context.Context, id string) (domain.Objective, error) {
	o, err := r.getObjective(ctx, r.DB, id)
	return o, storeErr("get objective", err)
}

func (r Repo) GetObjectiveTx(ctx context.Context, tx *sql.Tx, id string) (domain.Objective, error) {
	o, err := r.getObjective(ctx, tx, id)
	return o, storeErr("get objective", err)
}

func (r Repo) getObjective(ctx context.Context, q queryer, id string) (domain.Objective, error) {
	objectives, err := r.findObjectives(ctx, q, sq.Eq{"id": id})
	if err != nil {
		return domain.Objective{}, err
	}
	if len(objectives) == 0 {
		return domain.Objective{}, &domain.NotFoundError{Kind: "objective", ID: id}
	}
	return objectives[0], nil
}

func (r Repo) InsertObjective(ctx context.Context, tx *sql.Tx, o domain.Objective) error {
	_, err := exec(ctx, tx, builder.Insert("objectives").Columns(objectiveColumns...).
		Values(o.ID, nullable(o.RelatedTask), ts(o.ObjectiveDate), o.Level, o.Progress, nullableTS(o.CompletedTS),
			boolInt(o.Scratched), nullableTS(o.ScratchedTS), boolInt(o.Deleted), nullableTS(o.DeletedTS),
			nullable(o.DeletedBy), o.CreatedBy, ts(o.CreatedAt)))
	if err != nil {
		return storeErr("insert objective", err)
	}
	if len(o.Owners) == 0 {
		return domain.NewValidationError("owners", "at least one owner is required")
	}
	ins := builder.Insert("objective_owners").Columns("objective_id", "user_id")
	for _, owner := range o.Owners {
		ins = ins.Values(o.ID, owner)
	}
	_, err = exec(ctx, tx, ins)
	return storeErr("insert objective owners", err)
}

// UpdateObjectiveState persists the mutable fields of o: progress, scratch and
// deletion state.
func (r Repo) UpdateObjectiveState(ctx context.Context, tx *sql.Tx, o domain.Objective) error {
	res, err := exec(ctx, tx, builder.Update("objectives").
		Set("progress", o.Progress).
		Set("completed_ts", nullableTS(o.CompletedTS)).
		Set("scratched", boolInt(o.Scratched)).
		Set("scratched_ts", nullableTS(o.ScratchedTS)).
		Set("deleted", boolInt(o.Deleted)).
		Set("deleted_ts", nullableTS(o.DeletedTS)).
		Set("deleted_by", nullable(o.DeletedBy)).
		Where(sq.Eq{"id": o.ID}))
	if err != nil {
		return storeErr("update objective", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "objective", ID: o.ID}
	}
	return nil
}
