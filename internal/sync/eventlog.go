package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Actor     string          `json:"actor"`
	CreatedAt int64           `json:"created_at"`
}

// Execer is satisfied by *sql.DB and *sql.Tx so events can be written inside the caller's transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db, siteID: "local"} }

// Append writes e through ex. Actor defaults to the one carried by ctx.
func (r *EventRepo) Append(ctx context.Context, ex Execer, e Event) error {
	if ex == nil {
		ex = r.db
	}
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	if e.Actor == "" {
		e.Actor = ActorFromContext(ctx)
	}
	data := string(e.Data)
	if data == "" {
		data = "{}"
	}
	// The counter row stays locked until commit, so versions become visible in commit order.
	if _, err := ex.ExecContext(ctx, `UPDATE data_version SET v = v + 1 WHERE id = 1`); err != nil {
		return err
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, entity_key, data, actor, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.SiteID, e.Type, e.Key, data, e.Actor, time.Now().Unix())
	return err
}

// Latest returns the committed data version. It moves by one with every appended event.
func (r *EventRepo) Latest(ctx context.Context) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT v FROM data_version WHERE id = 1`).Scan(&v)
	return v, err
}

// List returns events newest first, optionally restricted to one type.
func (r *EventRepo) List(ctx context.Context, typ string, limit, offset int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT seq, site_id, typ, entity_key, data, actor, created_at FROM event_log`
	args := []any{}
	if typ != "" {
		q += ` WHERE typ=$1 ORDER BY seq DESC LIMIT $2 OFFSET $3`
		args = append(args, typ, limit, offset)
	} else {
		q += ` ORDER BY seq DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Payload marshals v for Event.Data; values that cannot be encoded become an empty object.
func Payload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

type actorKey struct{}

func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}
