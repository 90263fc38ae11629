package rollup

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"hourglass/internal/domain"
)

// Predicate selects objectives. The same tree is evaluated in memory with
// Match and compiled to a SQL condition over the objectives table with ToSql.
type Predicate interface {
	sq.Sqlizer
	Match(o domain.Objective) bool
}

// Field names an objective attribute; the value is also its column name.
type Field string

const (
	FieldLevel         Field = "level"
	FieldDeleted       Field = "deleted"
	FieldObjectiveDate Field = "objective_date"
	FieldProgress      Field = "progress"
	FieldCompletedTS   Field = "completed_ts"
	FieldScratched     Field = "scratched"
	FieldScratchedTS   Field = "scratched_ts"
)

type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpLte Op = "<="
	OpGte Op = ">="
)

// Cond compares one field with a constant. An unset timestamp never matches,
// the same as a NULL column in SQL.
type Cond struct {
	Field Field
	Op    Op
	Value any
}

func (c Cond) Match(o domain.Objective) bool {
	actual, ok := fieldValue(o, c.Field)
	if !ok {
		return false
	}
	cmp, ok := compare(actual, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLte:
		return cmp <= 0
	case OpGte:
		return cmp >= 0
	}
	return false
}

func (c Cond) ToSql() (string, []any, error) {
	col := string(c.Field)
	v := sqlValue(c.Value)
	switch c.Op {
	case OpEq:
		return sq.Eq{col: v}.ToSql()
	case OpNe:
		return sq.NotEq{col: v}.ToSql()
	case OpLte:
		return sq.LtOrEq{col: v}.ToSql()
	case OpGte:
		return sq.GtOrEq{col: v}.ToSql()
	}
	return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
}

func (c Cond) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// All is a conjunction; an empty All matches everything.
type All []Predicate

func (a All) Match(o domain.Objective) bool {
	for _, p := range a {
		if !p.Match(o) {
			return false
		}
	}
	return true
}

func (a All) ToSql() (string, []any, error) {
	return sq.And(sqlizers(a)).ToSql()
}

func (a All) String() string { return join(a, " AND ") }

// Any is a disjunction; an empty Any matches nothing.
type Any []Predicate

func (a Any) Match(o domain.Objective) bool {
	for _, p := range a {
		if p.Match(o) {
			return true
		}
	}
	return false
}

func (a Any) ToSql() (string, []any, error) {
	return sq.Or(sqlizers(a)).ToSql()
}

func (a Any) String() string { return join(a, " OR ") }

// HasOwner matches objectives owned by the user id.
type HasOwner string

func (h HasOwner) Match(o domain.Objective) bool {
	return o.OwnedBy(string(h))
}

func (h HasOwner) ToSql() (string, []any, error) {
	return "EXISTS (SELECT 1 FROM objective_owners oo WHERE oo.objective_id = objectives.id AND oo.user_id = ?)",
		[]any{string(h)}, nil
}

func (h HasOwner) String() string { return "owner = " + string(h) }

// LevelPredicate selects objectives of level l visible in the window: they
// exist by the end of the period, and are either unfinished or were completed
// during it, and either not scratched or scratched during it.
func LevelPredicate(l domain.Level, w Window) Predicate {
	p := w.Period(l)
	return All{
		Cond{FieldLevel, OpEq, l},
		Cond{FieldDeleted, OpEq, false},
		Cond{FieldObjectiveDate, OpLte, p.End},
		Any{
			Cond{FieldProgress, OpNe, 1.0},
			Cond{FieldCompletedTS, OpGte, p.Start},
		},
		Any{
			Cond{FieldScratched, OpEq, false},
			Cond{FieldScratchedTS, OpGte, p.Start},
		},
	}
}

// Query is a rollup request.
type Query struct {
	DateQuery
	AllLevels bool
	Owner     string
}

// Select builds the predicate for q. With AllLevels every level is matched
// against its own period around the same anchor.
func Select(q Query, w Window) Predicate {
	var p Predicate
	if q.AllLevels {
		levels := make(Any, 0, len(domain.Levels))
		for _, l := range domain.Levels {
			levels = append(levels, LevelPredicate(l, w))
		}
		p = levels
	} else {
		p = LevelPredicate(q.Level(), w)
	}
	if q.Owner != "" {
		p = All{p, HasOwner(q.Owner)}
	}
	return p
}

// Filter returns the objectives matching p, preserving order.
func Filter(objectives []domain.Objective, p Predicate) []domain.Objective {
	out := make([]domain.Objective, 0, len(objectives))
	for _, o := range objectives {
		if p.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

func fieldValue(o domain.Objective, f Field) (any, bool) {
	switch f {
	case FieldLevel:
		return o.Level, true
	case FieldDeleted:
		return o.Deleted, true
	case FieldObjectiveDate:
		return o.ObjectiveDate, true
	case FieldProgress:
		return o.Progress, true
	case FieldCompletedTS:
		return derefTime(o.CompletedTS)
	case FieldScratched:
		return o.Scratched, true
	case FieldScratchedTS:
		return derefTime(o.ScratchedTS)
	}
	return nil, false
}

func derefTime(t *time.Time) (any, bool) {
	if t == nil {
		return nil, false
	}
	return *t, true
}

// compare orders a against b; ok is false when the types cannot be compared.
func compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case float64:
		bv, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	case domain.Level:
		return strings.Compare(string(av), fmt.Sprint(b)), true
	case string:
		return strings.Compare(av, fmt.Sprint(b)), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return domain.FormatTimestamp(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case domain.Level:
		return string(x)
	}
	return v
}

func sqlizers(ps []Predicate) []sq.Sqlizer {
	out := make([]sq.Sqlizer, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out
}

func join(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprint(p)
	}
	return "(" + strings.Join(parts, sep) + ")"
}
