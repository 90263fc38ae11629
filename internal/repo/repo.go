package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"hourglass/internal/domain"
)

// LedgerSource selects where project ledgers are read from.
type LedgerSource string

const (
	// LedgerEmbedded reads the ordered invoice_lines owned by each project.
	LedgerEmbedded LedgerSource = "embedded"
	// LedgerInvoices reads standalone invoices referencing the project.
	LedgerInvoices LedgerSource = "invoices"
)

func (s LedgerSource) Valid() bool {
	return s == LedgerEmbedded || s == LedgerInvoices
}

// Repo is the sqlite read collaborator for rollups and billing, plus the
// transactional writes the engine performs.
type Repo struct {
	DB     *sql.DB
	Ledger LedgerSource
}

var ErrNotFound = domain.ErrNotFound

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}

func query(ctx context.Context, q queryer, b sq.Sqlizer) (*sql.Rows, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, stmt, args...)
}

func exec(ctx context.Context, e execer, b sq.Sqlizer) (sql.Result, error) {
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return e.ExecContext(ctx, stmt, args...)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func ts(t time.Time) string {
	return domain.FormatTimestamp(t)
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return domain.FormatTimestamp(*t)
}

func parseNullTS(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := domain.ParseTimestamp(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
