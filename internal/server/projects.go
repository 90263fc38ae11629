package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"hourglass/internal/billing"
	"hourglass/internal/domain"
	"hourglass/internal/engine"
	"hourglass/internal/events"
)

type projectOutput struct {
	Body domain.Project `json:"body"`
}

type invoiceLineOutput struct {
	Body domain.InvoiceLine `json:"body"`
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		All bool `query:"all" doc:"Include inactive projects"`
	}) (*struct {
		Body ProjectsResponse `json:"body"`
	}, error) {
		items, err := e.ListProjects(ctx, !input.All)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Project{}
		}
		return &struct {
			Body ProjectsResponse `json:"body"`
		}{Body: ProjectsResponse{Projects: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "billing-report",
		Method:      http.MethodGet,
		Path:        "/projects/billing",
		Summary:     "Billing report",
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		All bool `query:"all" doc:"Report inactive projects too"`
	}) (*struct {
		Body BillingResponse `json:"body"`
	}, error) {
		var activeOnly *bool
		if input.All {
			only := false
			activeOnly = &only
		}
		rows, err := e.BillingReport(ctx, activeOnly)
		if err != nil {
			return nil, handleError(err)
		}
		if rows == nil {
			rows = []billing.ProjectBilling{}
		}
		return &struct {
			Body BillingResponse `json:"body"`
		}{Body: BillingResponse{Projects: rows}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
			ID:            input.Body.ID,
			Name:          input.Body.Name,
			HoursSold:     input.Body.HoursSold,
			HoursSoldUnit: input.Body.HoursSoldUnit,
			HourlyRate:    input.Body.HourlyRate,
			Active:        input.Body.Active,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project with its ledger",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*projectOutput, error) {
		p, err := e.GetProject(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update project",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string               `path:"id"`
		Body UpdateProjectRequest `json:"body"`
	}) (*projectOutput, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{
			ID:            input.ID,
			Name:          input.Body.Name,
			HoursSold:     input.Body.HoursSold,
			HoursSoldUnit: input.Body.HoursSoldUnit,
			HourlyRate:    input.Body.HourlyRate,
			Active:        input.Body.Active,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &projectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ID:        input.Body.ID,
			ProjectID: input.ID,
			Title:     input.Body.Title,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerInvoiceLines(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-invoice-line",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/invoices",
		Summary:       "Append a line to the project ledger",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body InvoiceLineRequest `json:"body"`
	}) (*invoiceLineOutput, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		line, err := e.AddInvoiceLine(ctx, input.ID, input.Body.line(), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &invoiceLineOutput{Body: line}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-invoice-line",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/invoices/{invoice_id}",
		Summary:     "Get a ledger line",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID        string `path:"id"`
		InvoiceID string `path:"invoice_id"`
	}) (*invoiceLineOutput, error) {
		line, err := e.InvoiceLine(ctx, input.ID, input.InvoiceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &invoiceLineOutput{Body: line}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "replace-invoice-line",
		Method:      http.MethodPut,
		Path:        "/projects/{id}/invoices/{invoice_id}",
		Summary:     "Replace a ledger line",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID        string             `path:"id"`
		InvoiceID string             `path:"invoice_id"`
		Body      InvoiceLineRequest `json:"body"`
	}) (*invoiceLineOutput, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		line := input.Body.line()
		line.ID = input.InvoiceID
		replaced, err := e.ReplaceInvoiceLine(ctx, input.ID, line, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &invoiceLineOutput{Body: replaced}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-invoice-line",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}/invoices/{invoice_id}",
		Summary:       "Remove a ledger line",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID        string `path:"id"`
		InvoiceID string `path:"invoice_id"`
	}) (*struct{}, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveInvoiceLine(ctx, input.ID, input.InvoiceID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerInvoices(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "record-invoice",
		Method:        http.MethodPost,
		Path:          "/invoices",
		Summary:       "Record a standalone invoice",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body RecordInvoiceRequest `json:"body"`
	}) (*struct {
		Body domain.Invoice `json:"body"`
	}, error) {
		actorID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		line := input.Body.line()
		inv, err := e.RecordInvoice(ctx, domain.Invoice{
			ID:            line.ID,
			Project:       input.Body.Project,
			Description:   line.Description,
			Amount:        line.Amount,
			BilledHours:   line.BilledHours,
			InvoicingDate: line.InvoicingDate,
			Paid:          line.Paid,
			Direction:     line.Direction,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Invoice `json:"body"`
		}{Body: inv}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-invoices",
		Method:      http.MethodGet,
		Path:        "/invoices",
		Summary:     "List standalone invoices of a project",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Project string `query:"project" required:"true"`
	}) (*struct {
		Body InvoicesResponse `json:"body"`
	}, error) {
		items, err := e.ListInvoices(ctx, input.Project)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Invoice{}
		}
		return &struct {
			Body InvoicesResponse `json:"body"`
		}{Body: InvoicesResponse{Invoices: items}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit history of an entity",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		EntityKind string `query:"entity_kind" required:"true" enum:"project,task,objective,work_entry,invoice_line,invoice"`
		EntityID   string `query:"entity_id" required:"true"`
	}) (*struct {
		Body EventsResponse `json:"body"`
	}, error) {
		items, err := e.History(ctx, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []events.Event{}
		}
		return &struct {
			Body EventsResponse `json:"body"`
		}{Body: EventsResponse{Events: items}}, nil
	})
}
