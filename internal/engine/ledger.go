package engine

import (
	"context"

	"github.com/google/uuid"

	"hourglass/internal/domain"
	"hourglass/internal/events"
)

func validateLine(line domain.InvoiceLine) error {
	if !line.Direction.Valid() {
		return domain.NewValidationError("direction", "must be in or out")
	}
	if line.InvoicingDate.IsZero() {
		return domain.NewValidationError("invoicing_date", "invoicing date is required")
	}
	if line.BilledHours < 0 {
		return domain.NewValidationError("billed_hours", "must not be negative")
	}
	return nil
}

// editLedger loads the project ledger in a transaction, applies edit to it and
// stores the result with an audit event.
func (e Engine) editLedger(ctx context.Context, projectID, actorID, evtType, lineID string, edit func(domain.Ledger) (domain.Ledger, error)) (domain.Ledger, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := e.Repo.LedgerTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	next, err := edit(current)
	if err != nil {
		return nil, err
	}
	if err := e.Repo.SaveLedger(ctx, tx, projectID, next); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: evtType, ProjectID: projectID, EntityKind: "invoice_line", EntityID: lineID, ActorID: actorID,
		Payload: events.Payload{"lines": len(next)},
	}); err != nil {
		return nil, err
	}
	return next, nil
}

// AddInvoiceLine appends a line to the project ledger, generating its id when empty.
func (e Engine) AddInvoiceLine(ctx context.Context, projectID string, line domain.InvoiceLine, actorID string) (domain.InvoiceLine, error) {
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	if line.Direction == "" {
		line.Direction = domain.DirectionOut
	}
	line.InvoicingDate = line.InvoicingDate.UTC()
	if err := validateLine(line); err != nil {
		return domain.InvoiceLine{}, err
	}
	_, err := e.editLedger(ctx, projectID, actorID, "invoice_line.added", line.ID, func(l domain.Ledger) (domain.Ledger, error) {
		return l.Append(line)
	})
	if err != nil {
		return domain.InvoiceLine{}, err
	}
	return line, nil
}

// ReplaceInvoiceLine swaps the line with the same id, keeping its position.
func (e Engine) ReplaceInvoiceLine(ctx context.Context, projectID string, line domain.InvoiceLine, actorID string) (domain.InvoiceLine, error) {
	if line.Direction == "" {
		line.Direction = domain.DirectionOut
	}
	line.InvoicingDate = line.InvoicingDate.UTC()
	if err := validateLine(line); err != nil {
		return domain.InvoiceLine{}, err
	}
	_, err := e.editLedger(ctx, projectID, actorID, "invoice_line.replaced", line.ID, func(l domain.Ledger) (domain.Ledger, error) {
		return l.Replace(line)
	})
	if err != nil {
		return domain.InvoiceLine{}, err
	}
	return line, nil
}

func (e Engine) RemoveInvoiceLine(ctx context.Context, projectID, lineID, actorID string) error {
	_, err := e.editLedger(ctx, projectID, actorID, "invoice_line.removed", lineID, func(l domain.Ledger) (domain.Ledger, error) {
		return l.Remove(lineID)
	})
	return err
}

// InvoiceLine returns one ledger line; a missing project or line is a NotFoundError.
func (e Engine) InvoiceLine(ctx context.Context, projectID, lineID string) (domain.InvoiceLine, error) {
	return e.Repo.GetInvoiceLine(ctx, projectID, lineID)
}

// RecordInvoice stores a standalone invoice for a project.
func (e Engine) RecordInvoice(ctx context.Context, inv domain.Invoice, actorID string) (domain.Invoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Direction == "" {
		inv.Direction = domain.DirectionOut
	}
	inv.InvoicingDate = inv.InvoicingDate.UTC()
	if err := validateLine(inv.Line()); err != nil {
		return domain.Invoice{}, err
	}
	inv.CreatedBy = actorID
	inv.CreatedAt = e.now()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Invoice{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProjectTx(ctx, tx, inv.Project); err != nil {
		return domain.Invoice{}, err
	}
	if err := e.Repo.InsertInvoice(ctx, tx, inv); err != nil {
		return domain.Invoice{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "invoice.recorded", ProjectID: inv.Project, EntityKind: "invoice", EntityID: inv.ID, ActorID: actorID,
		Payload: events.Payload{"amount": inv.Amount, "billed_hours": inv.BilledHours},
	}); err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (e Engine) ListInvoices(ctx context.Context, projectID string) ([]domain.Invoice, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListInvoices(ctx, projectID)
}

