package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"hourglass/internal/domain"
)

var lineColumns = []string{"project_id", "id", "description", "amount", "billed_hours", "invoicing_date", "paid", "direction"}

func scanLine(rows *sql.Rows) (string, domain.InvoiceLine, error) {
	var (
		projectID   string
		line        domain.InvoiceLine
		description sql.NullString
		date        string
	)
	if err := rows.Scan(&projectID, &line.ID, &description, &line.Amount, &line.BilledHours, &date, &line.Paid, &line.Direction); err != nil {
		return "", line, err
	}
	line.Description = description.String
	t, err := domain.ParseTimestamp(date)
	if err != nil {
		return "", line, err
	}
	line.InvoicingDate = t
	return projectID, line, nil
}

// LedgerTx reads the embedded ledger of a project inside tx; it fails with
// NotFoundError when the project does not exist.
func (r Repo) LedgerTx(ctx context.Context, tx *sql.Tx, projectID string) (domain.Ledger, error) {
	if _, err := r.getProject(ctx, tx, projectID); err != nil {
		return nil, storeErr("get project", err)
	}
	rows, err := query(ctx, tx, builder.Select(lineColumns...).From("invoice_lines").
		Where(sq.Eq{"project_id": projectID}).OrderBy("position"))
	if err != nil {
		return nil, storeErr("read ledger", err)
	}
	defer rows.Close()
	ledger := domain.Ledger{}
	for rows.Next() {
		_, line, err := scanLine(rows)
		if err != nil {
			return nil, storeErr("read ledger", err)
		}
		ledger = append(ledger, line)
	}
	return ledger, storeErr("read ledger", rows.Err())
}

// SaveLedger replaces the stored ledger of a project with l, keeping its order.
func (r Repo) SaveLedger(ctx context.Context, tx *sql.Tx, projectID string, l domain.Ledger) error {
	if _, err := exec(ctx, tx, builder.Delete("invoice_lines").Where(sq.Eq{"project_id": projectID})); err != nil {
		return storeErr("clear ledger", err)
	}
	if len(l) == 0 {
		return nil
	}
	ins := builder.Insert("invoice_lines").
		Columns("project_id", "id", "position", "description", "amount", "billed_hours", "invoicing_date", "paid", "direction")
	for i, line := range l {
		ins = ins.Values(projectID, line.ID, i, nullable(line.Description), line.Amount, line.BilledHours,
			ts(line.InvoicingDate), boolInt(line.Paid), line.Direction)
	}
	_, err := exec(ctx, tx, ins)
	return storeErr("save ledger", err)
}

// GetInvoiceLine returns one line of a project's embedded ledger.
func (r Repo) GetInvoiceLine(ctx context.Context, projectID, lineID string) (domain.InvoiceLine, error) {
	if _, err := r.getProject(ctx, r.DB, projectID); err != nil {
		return domain.InvoiceLine{}, storeErr("get project", err)
	}
	rows, err := query(ctx, r.DB, builder.Select(lineColumns...).From("invoice_lines").
		Where(sq.Eq{"project_id": projectID, "id": lineID}))
	if err != nil {
		return domain.InvoiceLine{}, storeErr("get invoice line", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.InvoiceLine{}, storeErr("get invoice line", err)
		}
		return domain.InvoiceLine{}, &domain.NotFoundError{Kind: "invoice line", ID: lineID}
	}
	_, line, err := scanLine(rows)
	return line, storeErr("get invoice line", err)
}

var invoiceColumns = []string{"id", "project_id", "description", "amount", "billed_hours", "invoicing_date", "paid", "direction", "created_by", "created_at"}

func (r Repo) InsertInvoice(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
	_, err := exec(ctx, tx, builder.Insert("invoices").Columns(invoiceColumns...).
		Values(inv.ID, inv.Project, nullable(inv.Description), inv.Amount, inv.BilledHours, ts(inv.InvoicingDate),
			boolInt(inv.Paid), inv.Direction, inv.CreatedBy, ts(inv.CreatedAt)))
	return storeErr("insert invoice", err)
}

// ListInvoices returns the standalone invoices of a project by invoicing date.
func (r Repo) ListInvoices(ctx context.Context, projectID string) ([]domain.Invoice, error) {
	rows, err := query(ctx, r.DB, builder.Select(invoiceColumns...).From("invoices").
		Where(sq.Eq{"project_id": projectID}).OrderBy("invoicing_date", "id"))
	if err != nil {
		return nil, storeErr("list invoices", err)
	}
	defer rows.Close()
	invoices := []domain.Invoice{}
	for rows.Next() {
		var (
			inv             domain.Invoice
			description     sql.NullString
			date, createdAt string
		)
		if err := rows.Scan(&inv.ID, &inv.Project, &description, &inv.Amount, &inv.BilledHours, &date, &inv.Paid,
			&inv.Direction, &inv.CreatedBy, &createdAt); err != nil {
			return nil, storeErr("list invoices", err)
		}
		inv.Description = description.String
		if inv.InvoicingDate, err = domain.ParseTimestamp(date); err != nil {
			return nil, storeErr("list invoices", err)
		}
		if inv.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
			return nil, storeErr("list invoices", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, storeErr("list invoices", rows.Err())
}
