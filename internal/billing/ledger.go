package billing

import (
	"time"

	"hourglass/internal/domain"
)

type LinePredicate func(domain.InvoiceLine) bool

type LineField func(domain.InvoiceLine) float64

func Amount(l domain.InvoiceLine) float64      { return l.Amount }
func BilledHours(l domain.InvoiceLine) float64 { return l.BilledHours }

// AnyLine accepts every line.
func AnyLine(domain.InvoiceLine) bool { return true }

// InMonth accepts lines invoiced in the UTC calendar month of now.
func InMonth(now time.Time) LinePredicate {
	month := domain.MonthOf(now)
	return func(l domain.InvoiceLine) bool {
		return month.Contains(l.InvoicingDate)
	}
}

// SumLedger adds field over the lines accepted by pred. Sums are not rounded.
func SumLedger(lines []domain.InvoiceLine, field LineField, pred LinePredicate) float64 {
	var sum float64
	for _, l := range lines {
		if pred(l) {
			sum += field(l)
		}
	}
	return sum
}

type BilledFigures struct {
	HoursMonth  float64
	AmountMonth float64
	HoursTotal  float64
	AmountTotal float64
}

func ReduceLedger(lines []domain.InvoiceLine, now time.Time) BilledFigures {
	inMonth := InMonth(now)
	return BilledFigures{
		HoursMonth:  SumLedger(lines, BilledHours, inMonth),
		AmountMonth: SumLedger(lines, Amount, inMonth),
		HoursTotal:  SumLedger(lines, BilledHours, AnyLine),
		AmountTotal: SumLedger(lines, Amount, AnyLine),
	}
}
