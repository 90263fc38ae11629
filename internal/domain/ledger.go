package domain

// Ledger is a project's ordered collection of invoice lines.
// Mutators never modify the receiver; they return a new slice.
type Ledger []InvoiceLine

func (l Ledger) index(id string) int {
	for i, line := range l {
		if line.ID == id {
			return i
		}
	}
	return -1
}

// Line returns the line with the given id.
func (l Ledger) Line(id string) (InvoiceLine, error) {
	i := l.index(id)
	if i < 0 {
		return InvoiceLine{}, &NotFoundError{Kind: "invoice line", ID: id}
	}
	return l[i], nil
}

// Append adds line at the end. Line ids must stay unique within the ledger.
func (l Ledger) Append(line InvoiceLine) (Ledger, error) {
	if line.ID == "" {
		return nil, NewValidationError("id", "invoice line id is required")
	}
	if l.index(line.ID) >= 0 {
		return nil, NewValidationError("id", "duplicate invoice line id "+line.ID)
	}
	out := make(Ledger, len(l), len(l)+1)
	copy(out, l)
	return append(out, line), nil
}

// Replace swaps the line with line.ID in place, keeping its position.
func (l Ledger) Replace(line InvoiceLine) (Ledger, error) {
	i := l.index(line.ID)
	if i < 0 {
		return nil, &NotFoundError{Kind: "invoice line", ID: line.ID}
	}
	out := make(Ledger, len(l))
	copy(out, l)
	out[i] = line
	return out, nil
}

// Remove drops the line with the given id.
func (l Ledger) Remove(id string) (Ledger, error) {
	i := l.index(id)
	if i < 0 {
		return nil, &NotFoundError{Kind: "invoice line", ID: id}
	}
	out := make(Ledger, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...), nil
}
