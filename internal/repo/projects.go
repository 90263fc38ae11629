package repo

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"hourglass/internal/domain"
)

var projectColumns = []string{"id", "name", "hours_sold", "hours_sold_unit", "hourly_rate", "active", "created_at"}

func scanProject(scan func(...any) error) (domain.Project, error) {
	var (
		p         domain.Project
		createdAt string
	)
	if err := scan(&p.ID, &p.Name, &p.HoursSold, &p.HoursSoldUnit, &p.HourlyRate, &p.Active, &createdAt); err != nil {
		return p, err
	}
	t, err := domain.ParseTimestamp(createdAt)
	if err != nil {
		return p, err
	}
	p.CreatedAt = t
	p.Invoices = domain.Ledger{}
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := exec(ctx, tx, builder.Insert("projects").Columns(projectColumns...).
		Values(p.ID, p.Name, p.HoursSold, p.HoursSoldUnit, p.HourlyRate, boolInt(p.Active), ts(p.CreatedAt)))
	return storeErr("insert project", err)
}

// GetProject returns the project with its ledger.
func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := r.getProject(ctx, r.DB, id)
	if err != nil {
		return p, storeErr("get project", err)
	}
	ledgers, err := r.ledgers(ctx, r.DB, []string{id})
	if err != nil {
		return p, storeErr("get project ledger", err)
	}
	if l, ok := ledgers[id]; ok {
		p.Invoices = l
	}
	return p, nil
}

// GetProjectTx returns the project inside tx, without its ledger.
func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	p, err := r.getProject(ctx, tx, id)
	return p, storeErr("get project", err)
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := exec(ctx, tx, builder.Update("projects").
		Set("name", p.Name).
		Set("hours_sold", p.HoursSold).
		Set("hours_sold_unit", p.HoursSoldUnit).
		Set("hourly_rate", p.HourlyRate).
		Set("active", boolInt(p.Active)).
		Where(sq.Eq{"id": p.ID}))
	if err != nil {
		return storeErr("update project", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "project", ID: p.ID}
	}
	return nil
}

func (r Repo) getProject(ctx context.Context, q queryer, id string) (domain.Project, error) {
	stmt, args, err := builder.Select(projectColumns...).From("projects").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Project{}, err
	}
	p, err := scanProject(q.QueryRowContext(ctx, stmt, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return p, &domain.NotFoundError{Kind: "project", ID: id}
	}
	return p, err
}

// ListProjects returns projects ordered by name with their ledgers attached.
func (r Repo) ListProjects(ctx context.Context, activeOnly bool) ([]domain.Project, error) {
	projects, err := r.listProjects(ctx, activeOnly)
	if err != nil {
		return nil, storeErr("list projects", err)
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	ledgers, err := r.ledgers(ctx, r.DB, ids)
	if err != nil {
		return nil, storeErr("list project ledgers", err)
	}
	for i := range projects {
		if l, ok := ledgers[projects[i].ID]; ok {
			projects[i].Invoices = l
		}
	}
	return projects, nil
}

// ListProjectSummaries returns projects ordered by name without their ledgers.
func (r Repo) ListProjectSummaries(ctx context.Context, activeOnly bool) ([]domain.Project, error) {
	projects, err := r.listProjects(ctx, activeOnly)
	return projects, storeErr("list projects", err)
}

func (r Repo) listProjects(ctx context.Context, activeOnly bool) ([]domain.Project, error) {
	b := builder.Select(projectColumns...).From("projects").OrderBy("name ASC", "id ASC")
	if activeOnly {
		b = b.Where(sq.Eq{"active": 1})
	}
	rows, err := query(ctx, r.DB, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r Repo) source() LedgerSource {
	if r.Ledger == "" {
		return LedgerEmbedded
	}
	return r.Ledger
}

// ledgers loads the ledgers of the given projects from the configured source.
func (r Repo) ledgers(ctx context.Context, q queryer, projectIDs []string) (map[string]domain.Ledger, error) {
	out := map[string]domain.Ledger{}
	if len(projectIDs) == 0 {
		return out, nil
	}
	var b sq.SelectBuilder
	switch r.source() {
	case LedgerInvoices:
		b = builder.Select(lineColumns...).From("invoices").
			Where(sq.Eq{"project_id": projectIDs}).OrderBy("project_id", "invoicing_date", "id")
	default:
		b = builder.Select(lineColumns...).From("invoice_lines").
			Where(sq.Eq{"project_id": projectIDs}).OrderBy("project_id", "position")
	}
	rows, err := query(ctx, q, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		projectID, line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out[projectID] = append(out[projectID], line)
	}
	return out, rows.Err()
}
