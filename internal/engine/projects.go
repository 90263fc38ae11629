package engine

import (
	"context"

	"github.com/google/uuid"

	"hourglass/internal/domain"
	"hourglass/internal/events"
)

type ProjectCreateOptions struct {
	ID            string
	Name          string
	HoursSold     float64
	HoursSoldUnit domain.HoursSoldUnit
	HourlyRate    float64
	Active        *bool
	ActorID       string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, domain.NewValidationError("name", "name is required")
	}
	if opts.HoursSoldUnit == "" {
		opts.HoursSoldUnit = domain.HoursSoldTotal
	}
	if !opts.HoursSoldUnit.Valid() {
		return domain.Project{}, domain.NewValidationError("hours_sold_unit", "must be total or monthly")
	}
	if opts.HoursSold < 0 || opts.HourlyRate < 0 {
		return domain.Project{}, domain.NewValidationError("hours_sold", "hours and rate must not be negative")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	p := domain.Project{
		ID:            opts.ID,
		Name:          opts.Name,
		HoursSold:     opts.HoursSold,
		HoursSoldUnit: opts.HoursSoldUnit,
		HourlyRate:    opts.HourlyRate,
		Active:        opts.Active == nil || *opts.Active,
		Invoices:      domain.Ledger{},
		CreatedAt:     e.now(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "project.created", ProjectID: p.ID, EntityKind: "project", EntityID: p.ID, ActorID: opts.ActorID,
		Payload: events.Payload{"name": p.Name, "active": p.Active},
	}); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// ProjectUpdateOptions changes only the fields that are set.
type ProjectUpdateOptions struct {
	ID            string
	Name          *string
	HoursSold     *float64
	HoursSoldUnit *domain.HoursSoldUnit
	HourlyRate    *float64
	Active        *bool
	ActorID       string
}

func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (domain.Project, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Project{}, err
	}
	changed := events.Payload{}
	if opts.Name != nil {
		if *opts.Name == "" {
			return domain.Project{}, domain.NewValidationError("name", "name is required")
		}
		p.Name = *opts.Name
		changed["name"] = p.Name
	}
	if opts.HoursSold != nil {
		if *opts.HoursSold < 0 {
			return domain.Project{}, domain.NewValidationError("hours_sold", "must not be negative")
		}
		p.HoursSold = *opts.HoursSold
		changed["hours_sold"] = p.HoursSold
	}
	if opts.HoursSoldUnit != nil {
		if !opts.HoursSoldUnit.Valid() {
			return domain.Project{}, domain.NewValidationError("hours_sold_unit", "must be total or monthly")
		}
		p.HoursSoldUnit = *opts.HoursSoldUnit
		changed["hours_sold_unit"] = p.HoursSoldUnit
	}
	if opts.HourlyRate != nil {
		if *opts.HourlyRate < 0 {
			return domain.Project{}, domain.NewValidationError("hourly_rate", "must not be negative")
		}
		p.HourlyRate = *opts.HourlyRate
		changed["hourly_rate"] = p.HourlyRate
	}
	if opts.Active != nil {
		p.Active = *opts.Active
		changed["active"] = p.Active
	}
	if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "project.updated", ProjectID: p.ID, EntityKind: "project", EntityID: p.ID, ActorID: opts.ActorID, Payload: changed,
	}); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, p.ID)
}

func (e Engine) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return e.Repo.GetProject(ctx, id)
}

// ListProjects returns projects by name, without ledgers.
func (e Engine) ListProjects(ctx context.Context, activeOnly bool) ([]domain.Project, error) {
	return e.Repo.ListProjectSummaries(ctx, activeOnly)
}

type TaskCreateOptions struct {
	ID        string
	ProjectID string
	Title     string
	ActorID   string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, domain.NewValidationError("title", "title is required")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	t := domain.Task{ID: opts.ID, Project: opts.ProjectID, Title: opts.Title, CreatedBy: opts.ActorID, CreatedAt: e.now()}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if _, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID); err != nil {
		return domain.Task{}, err
	}
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.commit(ctx, tx, events.Event{
		Type: "task.created", ProjectID: t.Project, EntityKind: "task", EntityID: t.ID, ActorID: opts.ActorID,
		Payload: events.Payload{"title": t.Title},
	}); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}
