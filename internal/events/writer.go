package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"hourglass/internal/domain"
)

type Payload map[string]any

// Event is one audit record of a write.
type Event struct {
	ID         int64     `json:"id"`
	TS         time.Time `json:"ts" format:"date-time"`
	Type       string    `json:"type"`
	ProjectID  string    `json:"project_id,omitempty"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Payload    Payload   `json:"payload"`
}

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Append records evt inside tx so the event commits with the write it describes.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evt Event) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	if evt.Payload == nil {
		evt.Payload = Payload{}
	}
	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	stmt, args, err := builder.Insert("events").
		Columns("ts", "type", "project_id", "entity_kind", "entity_id", "actor_id", "payload_json").
		Values(domain.FormatTimestamp(w.Now()), evt.Type, nullable(evt.ProjectID), evt.EntityKind,
			nullable(evt.EntityID), evt.ActorID, string(data)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("append event %s: %w", evt.Type, err)
	}
	return nil
}

// List returns the events of one entity, oldest first. An empty entityID
// lists every event of the kind.
func (w Writer) List(ctx context.Context, entityKind, entityID string) ([]Event, error) {
	b := builder.Select("id", "ts", "type", "project_id", "entity_kind", "entity_id", "actor_id", "payload_json").
		From("events").Where(sq.Eq{"entity_kind": entityKind}).OrderBy("id")
	if entityID != "" {
		b = b.Where(sq.Eq{"entity_id": entityID})
	}
	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := w.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			evt             Event
			ts, payload     string
			project, entity sql.NullString
		)
		if err := rows.Scan(&evt.ID, &ts, &evt.Type, &project, &evt.EntityKind, &entity, &evt.ActorID, &payload); err != nil {
			return nil, err
		}
		if evt.TS, err = domain.ParseTimestamp(ts); err != nil {
			return nil, err
		}
		evt.ProjectID = project.String
		evt.EntityID = entity.String
		if err := json.Unmarshal([]byte(payload), &evt.Payload); err != nil {
			return nil, fmt.Errorf("decode event %d payload: %w", evt.ID, err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
