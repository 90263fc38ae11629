package server

import (
	"time"

	"hourglass/internal/billing"
	"hourglass/internal/domain"
	"hourglass/internal/events"
	"hourglass/internal/rollup"
)

// Request payloads

type CreateObjectiveRequest struct {
	ID            string       `json:"id,omitempty"`
	RelatedTask   string       `json:"related_task,omitempty"`
	Owners        []string     `json:"owners,omitempty"`
	ObjectiveDate string       `json:"objective_date" format:"date" example:"2024-05-02"`
	Level         domain.Level `json:"level" enum:"day,month,year"`
}

type UpdateObjectiveRequest struct {
	Progress  *float64 `json:"progress,omitempty" minimum:"0" maximum:"1"`
	Scratched *bool    `json:"scratched,omitempty"`
}

type LogWorkRequest struct {
	ID   string `json:"id,omitempty"`
	Time int64  `json:"time" minimum:"0" doc:"Seconds worked"`
}

type CreateProjectRequest struct {
	ID            string               `json:"id,omitempty"`
	Name          string               `json:"name"`
	HoursSold     float64              `json:"hours_sold,omitempty"`
	HoursSoldUnit domain.HoursSoldUnit `json:"hours_sold_unit,omitempty" enum:"total,monthly"`
	HourlyRate    float64              `json:"hourly_rate,omitempty"`
	Active        *bool                `json:"active,omitempty"`
}

type UpdateProjectRequest struct {
	Name          *string               `json:"name,omitempty"`
	HoursSold     *float64              `json:"hours_sold,omitempty"`
	HoursSoldUnit *domain.HoursSoldUnit `json:"hours_sold_unit,omitempty" enum:"total,monthly"`
	HourlyRate    *float64              `json:"hourly_rate,omitempty"`
	Active        *bool                 `json:"active,omitempty"`
}

type CreateTaskRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

type InvoiceLineRequest struct {
	ID            string           `json:"id,omitempty"`
	Description   string           `json:"description,omitempty"`
	Amount        float64          `json:"amount"`
	BilledHours   float64          `json:"billed_hours"`
	InvoicingDate time.Time        `json:"invoicing_date" format:"date-time"`
	Paid          bool             `json:"paid,omitempty"`
	Direction     domain.Direction `json:"direction,omitempty" enum:"in,out"`
}

func (r InvoiceLineRequest) line() domain.InvoiceLine {
	return domain.InvoiceLine{
		ID:            r.ID,
		Description:   r.Description,
		Amount:        r.Amount,
		BilledHours:   r.BilledHours,
		InvoicingDate: r.InvoicingDate,
		Paid:          r.Paid,
		Direction:     r.Direction,
	}
}

type RecordInvoiceRequest struct {
	InvoiceLineRequest
	Project string `json:"project"`
}

// Responses

type ObjectivesResponse struct {
	Objectives rollup.Rollup `json:"objectives"`
}

type SummaryResponse struct {
	Summary rollup.Summary `json:"summary"`
}

type ProjectsResponse struct {
	Projects []domain.Project `json:"projects"`
}

type BillingResponse struct {
	Projects []billing.ProjectBilling `json:"projects"`
}

type InvoicesResponse struct {
	Invoices []domain.Invoice `json:"invoices"`
}

type EventsResponse struct {
	Events []events.Event `json:"events"`
}
