package domain

import "time"

// Level is the granularity an objective is tracked at.
type Level string

const (
	LevelDay   Level = "day"
	LevelMonth Level = "month"
	LevelYear  Level = "year"
)

// Levels lists every level, most specific first.
var Levels = []Level{LevelDay, LevelMonth, LevelYear}

func (l Level) Valid() bool {
	switch l {
	case LevelDay, LevelMonth, LevelYear:
		return true
	}
	return false
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

type HoursSoldUnit string

const (
	HoursSoldTotal   HoursSoldUnit = "total"
	HoursSoldMonthly HoursSoldUnit = "monthly"
)

func (u HoursSoldUnit) Valid() bool {
	return u == HoursSoldTotal || u == HoursSoldMonthly
}

type Objective struct {
	ID            string     `json:"id"`
	RelatedTask   string     `json:"related_task"`
	Owners        []string   `json:"owners"`
	ObjectiveDate time.Time  `json:"objective_date" format:"date-time"`
	Level         Level      `json:"level" enum:"day,month,year"`
	Progress      float64    `json:"progress"`
	CompletedTS   *time.Time `json:"completed_ts,omitempty" format:"date-time"`
	Scratched     bool       `json:"scratched"`
	ScratchedTS   *time.Time `json:"scratched_ts,omitempty" format:"date-time"`
	Deleted       bool       `json:"deleted"`
	DeletedTS     *time.Time `json:"deleted_ts,omitempty" format:"date-time"`
	DeletedBy     string     `json:"deleted_by,omitempty"`
	CreatedBy     string     `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at" format:"date-time"`
}

// Completed reports whether progress reached exactly 1.
func (o Objective) Completed() bool {
	return o.Progress == 1
}

// OwnedBy reports whether userID is one of the objective owners.
func (o Objective) OwnedBy(userID string) bool {
	for _, owner := range o.Owners {
		if owner == userID {
			return true
		}
	}
	return false
}

type Task struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	Title     string    `json:"title"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at" format:"date-time"`
}

// WorkEntry is a span of tracked time; Time is in seconds.
type WorkEntry struct {
	ID        string    `json:"id"`
	Objective string    `json:"objective"`
	Time      int64     `json:"time"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedTS time.Time `json:"created_ts" format:"date-time"`
}

type Project struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	HoursSold     float64       `json:"hours_sold"`
	HoursSoldUnit HoursSoldUnit `json:"hours_sold_unit" enum:"total,monthly"`
	HourlyRate    float64       `json:"hourly_rate"`
	Active        bool          `json:"active"`
	Invoices      Ledger        `json:"invoices"`
	CreatedAt     time.Time     `json:"created_at" format:"date-time"`
}

// InvoiceLine is a ledger entry owned by a project; its ID is unique within that project.
type InvoiceLine struct {
	ID            string    `json:"id"`
	Description   string    `json:"description,omitempty"`
	Amount        float64   `json:"amount"`
	BilledHours   float64   `json:"billed_hours"`
	InvoicingDate time.Time `json:"invoicing_date" format:"date-time"`
	Paid          bool      `json:"paid"`
	Direction     Direction `json:"direction" enum:"in,out"`
}

// Invoice is the standalone form of a ledger line, referencing its project.
type Invoice struct {
	ID            string    `json:"id"`
	Project       string    `json:"project"`
	Description   string    `json:"description,omitempty"`
	Amount        float64   `json:"amount"`
	BilledHours   float64   `json:"billed_hours"`
	InvoicingDate time.Time `json:"invoicing_date" format:"date-time"`
	Paid          bool      `json:"paid"`
	Direction     Direction `json:"direction" enum:"in,out"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at" format:"date-time"`
}

// Line projects the invoice onto the ledger line shape used for billing.
func (i Invoice) Line() InvoiceLine {
	return InvoiceLine{
		ID:            i.ID,
		Description:   i.Description,
		Amount:        i.Amount,
		BilledHours:   i.BilledHours,
		InvoicingDate: i.InvoicingDate,
		Paid:          i.Paid,
		Direction:     i.Direction,
	}
}
